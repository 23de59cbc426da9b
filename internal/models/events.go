package models

import (
	"encoding/json"
	"time"
)

// Inbound event names.
const (
	EventJoin        = "join"
	EventFindPartner = "find_partner"
	EventLeaveSearch = "leave_search"
	EventNextPartner = "next_partner"
	EventLeaveChat   = "leave_chat"
	EventMessage     = "message"
	EventTyping      = "typing"
	EventStopTyping  = "stop_typing"
	EventJoinRoom    = "join_room"
	EventLeaveRoom   = "leave_room"
	EventRoomMessage = "room_message"
	EventHeartbeat   = "heartbeat"
)

// Outbound event names. EventMessage and EventRoomMessage are reused.
const (
	EventJoined               = "joined"
	EventSearching            = "searching"
	EventSearchCancelled      = "search_cancelled"
	EventPartnerFound         = "partner_found"
	EventPartnerLeft          = "partner_left"
	EventMessageFailed        = "message_failed"
	EventPartnerTyping        = "partner_typing"
	EventPartnerStoppedTyping = "partner_stopped_typing"
	EventRoomJoined           = "room_joined"
	EventParticipantJoined    = "participant_joined"
	EventParticipantLeft      = "participant_left"
	EventFilterUnavailable    = "filter_unavailable"
	EventError                = "error"
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound is a decoded frame tagged with the connection it arrived on.
type Inbound struct {
	ParticipantID string
	Envelope
}

// Outbound is an event addressed to one participant's connection.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Inbound payloads.

type JoinPayload struct {
	DisplayName string `json:"displayName" validate:"max=64"`
	Attribute   string `json:"attribute"`
}

type FindPartnerPayload struct {
	Filter string `json:"filter"`
}

type MessagePayload struct {
	To      string `json:"to"`
	Content string `json:"content" validate:"required,max=2000"`
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId" validate:"max=64"`
}

type RoomMessagePayload struct {
	RoomID  string `json:"roomId" validate:"required"`
	Content string `json:"content" validate:"required,max=2000"`
}

// Outbound payloads.

type Empty struct{}

type JoinedPayload struct {
	ParticipantID string    `json:"participantId"`
	DisplayName   string    `json:"displayName"`
	Attribute     Attribute `json:"attribute"`
}

type PartnerFoundPayload struct {
	PartnerID   string    `json:"partnerId"`
	DisplayName string    `json:"displayName"`
	Attribute   Attribute `json:"attribute"`
}

type RelayedMessagePayload struct {
	From      string    `json:"from"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type MessageFailedPayload struct {
	To      string `json:"to"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

type RoomMember struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type RoomJoinedPayload struct {
	RoomID       string       `json:"roomId"`
	Participants []RoomMember `json:"participants"`
}

type RoomMessageOutPayload struct {
	From      string    `json:"from"`
	RoomID    string    `json:"roomId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
