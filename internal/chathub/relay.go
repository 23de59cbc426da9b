package chathub

import (
	"time"

	"strangerchat/backend/internal/models"
	"strangerchat/backend/pkg/errorx"

	"github.com/samber/lo"
)

// Notifier delivers an outbound event to a participant's live connection, if
// there is one. Delivery is at-most-once.
type Notifier interface {
	Notify(participantID string, ev models.Outbound)
}

type notifierFunc func(participantID string, ev models.Outbound)

func (f notifierFunc) Notify(participantID string, ev models.Outbound) { f(participantID, ev) }

// Replier produces the persona's answer to an incoming message.
type Replier interface {
	Reply(text string) string
}

// Relay forwards messages between members of a session or room.
type Relay struct {
	registry *Registry
	table    *PairingTable
	notifier Notifier
	now      func() time.Time

	personaID  string
	replier    Replier
	replyDelay func() time.Duration
	schedule   Scheduler
	// deliverReply is invoked from the timer goroutine; it must take the hub
	// lock before relaying the persona's message.
	deliverReply func(personaID, to, content string)
}

type RelayConfig struct {
	PersonaID    string
	Replier      Replier
	ReplyDelay   func() time.Duration
	Schedule     Scheduler
	DeliverReply func(personaID, to, content string)
	Now          func() time.Time
}

func NewRelay(registry *Registry, table *PairingTable, notifier Notifier, cfg RelayConfig) *Relay {
	r := &Relay{
		registry:     registry,
		table:        table,
		notifier:     notifier,
		now:          cfg.Now,
		personaID:    cfg.PersonaID,
		replier:      cfg.Replier,
		replyDelay:   cfg.ReplyDelay,
		schedule:     cfg.Schedule,
		deliverReply: cfg.DeliverReply,
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.schedule == nil {
		r.schedule = afterFunc
	}
	if r.replyDelay == nil {
		r.replyDelay = func() time.Duration { return 0 }
	}
	return r
}

// SendDirect relays content from fromID to toID. An empty toID addresses the
// sender's current partner. The timestamp is always the server's.
func (r *Relay) SendDirect(fromID, toID, content string) (models.Message, error) {
	if r.registry.Get(fromID) == nil {
		return models.Message{}, errorx.Wrapf(errorx.ErrUnknownParticipant, errorx.CodeUnknownParticipant, "send from %s", fromID)
	}
	if toID == "" {
		if s := r.table.FindByParticipant(fromID); s != nil {
			toID, _ = s.Other(fromID)
		}
	}
	if toID == "" || r.table.Find(fromID, toID) == nil {
		return models.Message{}, errorx.Wrapf(errorx.ErrNoActiveSession, errorx.CodeNoActiveSession, "send from %s to %q", fromID, toID)
	}

	msg := models.Message{
		From:      fromID,
		To:        toID,
		Content:   content,
		Timestamp: r.now().UTC(),
		Kind:      models.KindDirect,
	}
	r.notifier.Notify(toID, models.Outbound{
		Event: models.EventMessage,
		Data: models.RelayedMessagePayload{
			From:      msg.From,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		},
	})

	if toID == r.personaID && r.replier != nil && r.deliverReply != nil {
		reply := r.replier.Reply(content)
		personaID := r.personaID
		r.schedule(r.replyDelay(), func() { r.deliverReply(personaID, fromID, reply) })
	}
	return msg, nil
}

// SendRoom relays content to every other member of roomID. The sender must
// be a member.
func (r *Relay) SendRoom(fromID, roomID, content string) (models.Message, error) {
	if r.registry.Get(fromID) == nil {
		return models.Message{}, errorx.Wrapf(errorx.ErrUnknownParticipant, errorx.CodeUnknownParticipant, "room send from %s", fromID)
	}
	room := r.table.Room(roomID)
	if room == nil || r.table.RoomOf(fromID) != roomID {
		return models.Message{}, errorx.Wrapf(errorx.ErrNotInRoom, errorx.CodeNotInRoom, "%s in room %q", fromID, roomID)
	}

	msg := models.Message{
		From:      fromID,
		To:        roomID,
		Content:   content,
		Timestamp: r.now().UTC(),
		Kind:      models.KindRoom,
	}
	ev := models.Outbound{
		Event: models.EventRoomMessage,
		Data: models.RoomMessageOutPayload{
			From:      msg.From,
			RoomID:    roomID,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		},
	}
	for _, id := range lo.Without(room.Members, fromID) {
		r.notifier.Notify(id, ev)
	}
	return msg, nil
}
