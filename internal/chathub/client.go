package chathub

import "strangerchat/backend/internal/models"

// Identity is what a transport knows about a connection before it joins:
// the participant id it will use, the linked account if any, profile
// defaults and the filter entitlement resolved at connect time.
type Identity struct {
	ParticipantID string
	AccountID     string
	DisplayName   string
	Attribute     models.Attribute
	FilterEnabled bool
}

// Client is the interface for any type of connection (WebSocket, Telegram).
// It abstracts the underlying communication mechanism, allowing the hub to
// manage different client types uniformly.
type Client interface {
	// GetParticipantID returns the id the connection acts as.
	GetParticipantID() string
	GetIdentity() Identity

	// GetSendChannel returns the channel the hub writes this client's
	// outbound events to. The hub never blocks on it.
	GetSendChannel() chan<- models.Outbound

	// Run starts the client's pumps.
	Run()
	// Close shuts the connection down. The hub calls it at most once, after
	// removing the client from its map.
	Close()
}

// Heartbeater is implemented by clients that can say whether their transport
// keeps the participant's lastSeenAt fresh while it is idle. A client that
// does not implement it is assumed to.
type Heartbeater interface {
	Heartbeats() bool
}
