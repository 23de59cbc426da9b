package chathub

import (
	"fmt"
	"time"

	"strangerchat/backend/internal/models"
	"strangerchat/backend/pkg/errorx"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Lifecycle tears participants out of searches, sessions and rooms and tells
// whoever is left behind.
type Lifecycle struct {
	registry *Registry
	table    *PairingTable
	matcher  *Matcher
	notifier Notifier
	// strict turns invariant violations into panics.
	strict bool
}

func NewLifecycle(registry *Registry, table *PairingTable, matcher *Matcher, notifier Notifier, strict bool) *Lifecycle {
	return &Lifecycle{
		registry: registry,
		table:    table,
		matcher:  matcher,
		notifier: notifier,
		strict:   strict,
	}
}

// EndSession ends the session id is in. The survivor gets partner_left and
// goes back to idle; it is not requeued.
func (l *Lifecycle) EndSession(id, reason string) bool {
	other, ok := l.table.EndFor(id, reason)
	if !ok {
		return false
	}
	l.settle(id)
	l.settle(other)
	l.notifier.Notify(other, models.Outbound{Event: models.EventPartnerLeft, Data: models.Empty{}})

	zap.L().Info("session ended",
		zap.String("participant_id", id),
		zap.String("partner_id", other),
		zap.String("reason", reason),
	)
	return true
}

// settle resets a human participant to idle once it holds no session.
func (l *Lifecycle) settle(id string) {
	p := l.registry.Get(id)
	if p == nil || p.IsPersona || l.table.FindByParticipant(id) != nil {
		return
	}
	if p.State == models.StatePaired {
		p.State = models.StateIdle
	}
}

// LeaveRoom removes id from its room and tells the remaining members.
func (l *Lifecycle) LeaveRoom(id string) bool {
	room, deleted, ok := l.table.LeaveRoom(id)
	if !ok {
		return false
	}
	if p := l.registry.Get(id); p != nil {
		p.RoomID = ""
		if p.State == models.StateInRoom {
			p.State = models.StateIdle
		}
	}
	ev := models.Outbound{
		Event: models.EventParticipantLeft,
		Data:  models.RoomMember{ID: id, DisplayName: l.displayName(id)},
	}
	for _, member := range room.Members {
		l.notifier.Notify(member, ev)
	}
	zap.L().Debug("left room", zap.String("participant_id", id), zap.String("room_id", room.ID), zap.Bool("deleted", deleted))
	return true
}

func (l *Lifecycle) displayName(id string) string {
	if p := l.registry.Get(id); p != nil {
		return p.DisplayName
	}
	return ""
}

// Disconnect removes id completely: its search is cancelled, its session
// and room are left, then the registry entry is dropped. Personas are never
// disconnected.
func (l *Lifecycle) Disconnect(id, reason string) error {
	p := l.registry.Get(id)
	if p == nil {
		return errorx.Wrapf(errorx.ErrUnknownParticipant, errorx.CodeUnknownParticipant, "disconnect %s", id)
	}
	if p.IsPersona {
		return nil
	}

	l.matcher.Cancel(id)
	l.EndSession(id, reason)
	l.LeaveRoom(id)
	l.registry.Remove(id)

	zap.L().Info("participant removed", zap.String("participant_id", id), zap.String("reason", reason))
	return nil
}

// Next ends the current session and searches again with the last filter.
// The old partner is idle by then and is not on the wait list.
func (l *Lifecycle) Next(id string) (MatchResult, error) {
	p := l.registry.Get(id)
	if p == nil {
		return MatchResult{}, errorx.Wrapf(errorx.ErrUnknownParticipant, errorx.CodeUnknownParticipant, "next for %s", id)
	}
	l.EndSession(id, EndReasonNext)
	return l.matcher.FindPartner(id, p.Filter)
}

// Sweep disconnects every human participant not seen since cutoff, other
// than those for which exempt reports true, and returns their ids.
func (l *Lifecycle) Sweep(cutoff time.Time, exempt func(id string) bool) []string {
	stale := lo.Map(l.registry.ListOnline(func(p *models.Participant) bool {
		return !p.IsPersona && p.LastSeenAt.Before(cutoff) && (exempt == nil || !exempt(p.ID))
	}), func(p *models.Participant, _ int) string { return p.ID })

	for _, id := range stale {
		if err := l.Disconnect(id, EndReasonStale); err != nil {
			zap.L().Warn("sweep disconnect failed", zap.String("participant_id", id), zap.Error(err))
		}
	}
	return stale
}

// Audit repairs any participant found in two sessions by ending the older
// one. In strict mode a violation panics instead.
func (l *Lifecycle) Audit() []models.Session {
	ended := l.table.Audit()
	if len(ended) == 0 {
		return nil
	}
	if l.strict {
		panic(fmt.Sprintf("chathub: %d session(s) share a participant", len(ended)))
	}
	for _, s := range ended {
		for _, id := range []string{s.ParticipantA, s.ParticipantB} {
			if l.table.FindByParticipant(id) != nil {
				continue
			}
			l.settle(id)
			if p := l.registry.Get(id); p != nil && !p.IsPersona {
				l.notifier.Notify(id, models.Outbound{Event: models.EventPartnerLeft, Data: models.Empty{}})
			}
		}
	}
	return ended
}
