package models

import "time"

type MessageKind string

const (
	KindDirect MessageKind = "direct"
	KindRoom   MessageKind = "room"
)

// Message is an ephemeral relay payload. Timestamp is always server-side.
type Message struct {
	From      string      `json:"from"`
	To        string      `json:"to"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Kind      MessageKind `json:"kind"`
}
