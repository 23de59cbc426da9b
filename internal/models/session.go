package models

import "time"

// Session is an exclusive, symmetric 1:1 pairing.
type Session struct {
	ID           string    `json:"sessionId"`
	ParticipantA string    `json:"participantA"`
	ParticipantB string    `json:"participantB"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Has reports whether id is a member of the session.
func (s *Session) Has(id string) bool {
	return s.ParticipantA == id || s.ParticipantB == id
}

// Other returns the counterpart of id, or false if id is not a member.
func (s *Session) Other(id string) (string, bool) {
	switch id {
	case s.ParticipantA:
		return s.ParticipantB, true
	case s.ParticipantB:
		return s.ParticipantA, true
	}
	return "", false
}

// Room is a group chat. Members are kept in join order.
type Room struct {
	ID        string    `json:"roomId"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionRecord is the archived metadata of a session. Message content is
// never stored.
type SessionRecord struct {
	SessionID    string `gorm:"primaryKey"`
	ParticipantA string `gorm:"index"`
	ParticipantB string `gorm:"index"`
	WithPersona  bool
	StartedAt    time.Time
	EndedAt      *time.Time
	EndReason    string
}
