package chathub

import (
	"sort"
	"time"

	"strangerchat/backend/internal/models"
	"strangerchat/backend/pkg/errorx"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// SessionObserver is told about every session the table creates or ends.
// Calls happen under the hub lock, so implementations must not block.
type SessionObserver interface {
	SessionStarted(s models.Session, withPersona bool)
	SessionEnded(s models.Session, reason string, at time.Time)
}

// Session end reasons.
const (
	EndReasonLeft       = "left"
	EndReasonNext       = "next"
	EndReasonDisconnect = "disconnect"
	EndReasonRoom       = "joined_room"
	EndReasonStale      = "stale"
	EndReasonAnomaly    = "invariant_repair"
)

// PairingTable records active 1:1 sessions and room memberships. It is the
// only place sessions are created, so it enforces that a human participant
// belongs to at most one session. Personas are exempt and may hold any
// number of sessions at once.
type PairingTable struct {
	sessions      map[string]*models.Session
	byParticipant map[string]string

	rooms  map[string]*models.Room
	roomOf map[string]string

	isPersona func(id string) bool
	observer  SessionObserver
	now       func() time.Time
	newID     func() string
}

func NewPairingTable(isPersona func(id string) bool, observer SessionObserver, now func() time.Time) *PairingTable {
	if isPersona == nil {
		isPersona = func(string) bool { return false }
	}
	if now == nil {
		now = time.Now
	}
	return &PairingTable{
		sessions:      make(map[string]*models.Session),
		byParticipant: make(map[string]string),
		rooms:         make(map[string]*models.Room),
		roomOf:        make(map[string]string),
		isPersona:     isPersona,
		observer:      observer,
		now:           now,
		newID:         func() string { return uuid.New().String() },
	}
}

// Create opens a session between a and b. It fails with ErrAlreadyPaired if
// either human member already owns a session.
func (t *PairingTable) Create(a, b string) (*models.Session, error) {
	if a == b {
		return nil, errorx.Newf(errorx.CodeAlreadyPaired, "cannot pair %s with itself", a)
	}
	for _, id := range []string{a, b} {
		if t.isPersona(id) {
			continue
		}
		if sid, ok := t.byParticipant[id]; ok {
			return t.sessions[sid], errorx.Wrapf(errorx.ErrAlreadyPaired, errorx.CodeAlreadyPaired, "participant %s", id)
		}
	}

	s := &models.Session{
		ID:           t.newID(),
		ParticipantA: a,
		ParticipantB: b,
		CreatedAt:    t.now(),
	}
	t.sessions[s.ID] = s
	t.index(s)

	if t.observer != nil {
		t.observer.SessionStarted(*s, t.isPersona(a) || t.isPersona(b))
	}
	return s, nil
}

func (t *PairingTable) index(s *models.Session) {
	for _, id := range []string{s.ParticipantA, s.ParticipantB} {
		if !t.isPersona(id) {
			t.byParticipant[id] = s.ID
		}
	}
}

// Find returns the live session joining a and b, in either order.
func (t *PairingTable) Find(a, b string) *models.Session {
	for _, id := range []string{a, b} {
		if s := t.FindByParticipant(id); s != nil {
			if s.Has(a) && s.Has(b) {
				return s
			}
			return nil
		}
	}
	return nil
}

// FindByParticipant returns the session a human participant is in. Personas
// are not indexed and always yield nil.
func (t *PairingTable) FindByParticipant(id string) *models.Session {
	sid, ok := t.byParticipant[id]
	if !ok {
		return nil
	}
	return t.sessions[sid]
}

// End closes a session. Ending an unknown or already ended session is a
// no-op and reports ok=false.
func (t *PairingTable) End(sessionID, reason string) (ended models.Session, ok bool) {
	s, ok := t.sessions[sessionID]
	if !ok {
		return models.Session{}, false
	}
	delete(t.sessions, sessionID)
	for _, id := range []string{s.ParticipantA, s.ParticipantB} {
		if t.byParticipant[id] == sessionID {
			delete(t.byParticipant, id)
		}
	}

	if t.observer != nil {
		t.observer.SessionEnded(*s, reason, t.now())
	}
	return *s, true
}

// EndFor ends whatever session id is in and returns the counterpart.
func (t *PairingTable) EndFor(id, reason string) (other string, ok bool) {
	s := t.FindByParticipant(id)
	if s == nil {
		return "", false
	}
	ended, ok := t.End(s.ID, reason)
	if !ok {
		return "", false
	}
	other, _ = ended.Other(id)
	return other, true
}

// Sessions lists active sessions, oldest first.
func (t *PairingTable) Sessions() []models.Session {
	out := lo.MapToSlice(t.sessions, func(_ string, s *models.Session) models.Session { return *s })
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (t *PairingTable) Count() int {
	return len(t.sessions)
}

// Audit checks that no human participant appears in two sessions. For every
// participant claimed twice, the older session is ended and returned; the
// newest one stays and the index is pointed back at it.
func (t *PairingTable) Audit() []models.Session {
	all := t.Sessions()
	claimed := make(map[string]string, len(all)*2)
	var violations []models.Session

	// newest first, so the first claim on a participant is the one kept
	for i := len(all) - 1; i >= 0; i-- {
		s := all[i]
		stale := false
		for _, id := range []string{s.ParticipantA, s.ParticipantB} {
			if t.isPersona(id) {
				continue
			}
			if _, taken := claimed[id]; taken {
				stale = true
			}
		}
		if stale {
			violations = append(violations, s)
			continue
		}
		for _, id := range []string{s.ParticipantA, s.ParticipantB} {
			if !t.isPersona(id) {
				claimed[id] = s.ID
			}
		}
	}

	for _, s := range violations {
		zap.L().Error("participant found in more than one session",
			zap.String("session_id", s.ID),
			zap.String("participant_a", s.ParticipantA),
			zap.String("participant_b", s.ParticipantB),
		)
		t.End(s.ID, EndReasonAnomaly)
	}
	for id, sid := range claimed {
		t.byParticipant[id] = sid
	}
	return violations
}

// JoinRoom adds id to roomID, creating the room when it does not exist.
// Callers remove id from any previous room first.
func (t *PairingTable) JoinRoom(roomID, id string) *models.Room {
	room, ok := t.rooms[roomID]
	if !ok {
		room = &models.Room{ID: roomID, CreatedAt: t.now()}
		t.rooms[roomID] = room
	}
	if !lo.Contains(room.Members, id) {
		room.Members = append(room.Members, id)
	}
	t.roomOf[id] = roomID
	return room
}

// LeaveRoom removes id from its current room. The room is deleted once empty.
func (t *PairingTable) LeaveRoom(id string) (room models.Room, deleted, ok bool) {
	roomID, ok := t.roomOf[id]
	if !ok {
		return models.Room{}, false, false
	}
	delete(t.roomOf, id)

	r := t.rooms[roomID]
	if r == nil {
		return models.Room{ID: roomID}, true, true
	}
	r.Members = lo.Without(r.Members, id)
	if len(r.Members) == 0 {
		delete(t.rooms, roomID)
		deleted = true
	}
	return *r, deleted, true
}

func (t *PairingTable) Room(roomID string) *models.Room {
	return t.rooms[roomID]
}

// RoomOf returns the id of the room id is in, or "".
func (t *PairingTable) RoomOf(id string) string {
	return t.roomOf[id]
}

func (t *PairingTable) RoomCount() int {
	return len(t.rooms)
}
