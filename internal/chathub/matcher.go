package chathub

import (
	"time"

	"strangerchat/backend/internal/models"
	"strangerchat/backend/pkg/errorx"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Stopper cancels a scheduled callback. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler func(d time.Duration, f func()) Stopper

func afterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// MatchResult is the outcome of a search step. When Session is nil the
// requester is still searching.
type MatchResult struct {
	Session *models.Session
	Partner *models.Participant
	// Existing is set when the requester was already paired and nothing
	// changed.
	Existing bool
}

func (r MatchResult) Matched() bool {
	return r.Session != nil
}

type fallbackTimer struct {
	stop Stopper
	seq  uint64
}

// Matcher holds the wait list and pairs searching participants, falling back
// to the persona after a fixed wait.
type Matcher struct {
	registry *Registry
	table    *PairingTable

	waiting map[string]*models.WaitEntry
	order   []string

	timers map[string]fallbackTimer
	seq    uint64

	wait      time.Duration
	personaID string
	schedule  Scheduler
	// fire is invoked from the timer goroutine; it must take the hub lock
	// and call Fallback.
	fire func(participantID string, seq uint64)
	now  func() time.Time
}

type MatcherConfig struct {
	FallbackWait time.Duration
	// PersonaID disables the fallback when empty.
	PersonaID string
	Schedule  Scheduler
	Fire      func(participantID string, seq uint64)
	Now       func() time.Time
}

func NewMatcher(registry *Registry, table *PairingTable, cfg MatcherConfig) *Matcher {
	m := &Matcher{
		registry:  registry,
		table:     table,
		waiting:   make(map[string]*models.WaitEntry),
		timers:    make(map[string]fallbackTimer),
		wait:      cfg.FallbackWait,
		personaID: cfg.PersonaID,
		schedule:  cfg.Schedule,
		fire:      cfg.Fire,
		now:       cfg.Now,
	}
	if m.schedule == nil {
		m.schedule = afterFunc
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// FindPartner enters or continues a search for requesterID. A compatible
// waiting candidate, scanned in enqueue order, is paired immediately;
// otherwise the requester stays on the wait list and a one-shot fallback
// timer is armed.
func (m *Matcher) FindPartner(requesterID string, filter models.Attribute) (MatchResult, error) {
	requester := m.registry.Get(requesterID)
	if requester == nil {
		return MatchResult{}, errorx.Wrapf(errorx.ErrUnknownParticipant, errorx.CodeUnknownParticipant, "find partner for %s", requesterID)
	}

	if s := m.table.FindByParticipant(requesterID); s != nil {
		other, _ := s.Other(requesterID)
		return MatchResult{Session: s, Partner: m.registry.Get(other), Existing: true}, nil
	}

	if entry, ok := m.waiting[requesterID]; ok {
		entry.Filter = filter
	} else {
		m.waiting[requesterID] = &models.WaitEntry{
			ParticipantID: requesterID,
			Filter:        filter,
			EnqueuedAt:    m.now(),
		}
		m.order = append(m.order, requesterID)
	}
	requester.State = models.StateSearching
	requester.Filter = filter

	if candidate := m.scan(requester, filter); candidate != nil {
		return m.pair(requester, candidate)
	}

	m.arm(requesterID)
	return MatchResult{}, nil
}

func (m *Matcher) scan(requester *models.Participant, filter models.Attribute) *models.Participant {
	for _, id := range m.order {
		if id == requester.ID {
			continue
		}
		entry := m.waiting[id]
		candidate := m.registry.Get(id)
		if entry == nil || candidate == nil || candidate.IsPersona {
			continue
		}
		if m.table.FindByParticipant(id) != nil {
			continue
		}
		if requester.CompatibleWith(filter, candidate, entry.Filter) {
			return candidate
		}
	}
	return nil
}

func (m *Matcher) pair(requester, partner *models.Participant) (MatchResult, error) {
	s, err := m.table.Create(requester.ID, partner.ID)
	if err != nil {
		return MatchResult{}, err
	}
	for _, p := range []*models.Participant{requester, partner} {
		m.dequeue(p.ID)
		if !p.IsPersona {
			p.State = models.StatePaired
		}
	}
	return MatchResult{Session: s, Partner: partner}, nil
}

func (m *Matcher) arm(id string) {
	if m.personaID == "" || m.fire == nil {
		return
	}
	if _, armed := m.timers[id]; armed {
		return
	}
	m.seq++
	seq := m.seq
	stop := m.schedule(m.wait, func() { m.fire(id, seq) })
	m.timers[id] = fallbackTimer{stop: stop, seq: seq}
}

// Fallback pairs id with the persona if the timer identified by seq is still
// the live one for a participant that is still waiting. A timer that was
// cancelled or superseded never creates a session.
func (m *Matcher) Fallback(id string, seq uint64) (MatchResult, bool) {
	t, ok := m.timers[id]
	if !ok || t.seq != seq {
		return MatchResult{}, false
	}
	delete(m.timers, id)

	entry := m.waiting[id]
	requester := m.registry.Get(id)
	persona := m.registry.Get(m.personaID)
	if entry == nil || requester == nil || persona == nil {
		return MatchResult{}, false
	}
	if m.table.FindByParticipant(id) != nil {
		return MatchResult{}, false
	}
	if !requester.CompatibleWith(entry.Filter, persona, models.NoFilter) {
		zap.L().Warn("persona rejected by filter", zap.String("participant_id", id))
		return MatchResult{}, false
	}

	res, err := m.pair(requester, persona)
	if err != nil {
		zap.L().Error("fallback pairing failed", zap.String("participant_id", id), zap.Error(err))
		return MatchResult{}, false
	}
	return res, true
}

// Cancel removes id from the wait list. It reports whether there was
// anything to cancel, so repeated calls are harmless.
func (m *Matcher) Cancel(id string) bool {
	if _, ok := m.waiting[id]; !ok {
		return false
	}
	m.dequeue(id)
	if p := m.registry.Get(id); p != nil && p.State == models.StateSearching {
		p.State = models.StateIdle
	}
	return true
}

func (m *Matcher) dequeue(id string) {
	if t, ok := m.timers[id]; ok {
		t.stop.Stop()
		delete(m.timers, id)
	}
	if _, ok := m.waiting[id]; ok {
		delete(m.waiting, id)
		m.order = lo.Without(m.order, id)
	}
}

func (m *Matcher) IsWaiting(id string) bool {
	_, ok := m.waiting[id]
	return ok
}

func (m *Matcher) WaitingCount() int {
	return len(m.waiting)
}

// Stop cancels every pending fallback timer.
func (m *Matcher) Stop() {
	for id, t := range m.timers {
		t.stop.Stop()
		delete(m.timers, id)
	}
}
