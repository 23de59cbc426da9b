package chathub

import (
	"strangerchat/backend/internal/models"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Registry is the presence registry: every connected participant and the
// persona, keyed by id and iterable in insertion order.
//
// Registry is not safe for concurrent use; ManagerService serializes access.
// Removal of a participant with live search/session/room state must go
// through Lifecycle so those entries are cleaned up first.
type Registry struct {
	participants map[string]*models.Participant
	order        []string
	newID        func() string
}

func NewRegistry() *Registry {
	return &Registry{
		participants: make(map[string]*models.Participant),
		newID:        func() string { return uuid.New().String() },
	}
}

// Add inserts p, generating an id if it has none. Adding an id that is
// already present is an upsert of the descriptive fields; the live state
// (search, session, room) of the existing entry is kept.
func (r *Registry) Add(p *models.Participant) *models.Participant {
	if p.ID == "" {
		p.ID = r.newID()
	}

	if existing, ok := r.participants[p.ID]; ok {
		existing.DisplayName = p.DisplayName
		existing.Attribute = p.Attribute
		existing.AccountID = p.AccountID
		existing.FilterEnabled = p.FilterEnabled
		if !p.LastSeenAt.IsZero() {
			existing.LastSeenAt = p.LastSeenAt
		}
		return existing
	}

	if p.State == "" {
		p.State = models.StateIdle
	}
	r.participants[p.ID] = p
	r.order = append(r.order, p.ID)
	return p
}

// Remove deletes a participant. Personas are never removed.
func (r *Registry) Remove(id string) bool {
	p, ok := r.participants[id]
	if !ok || p.IsPersona {
		return false
	}
	delete(r.participants, id)
	r.order = lo.Without(r.order, id)
	return true
}

func (r *Registry) Get(id string) *models.Participant {
	return r.participants[id]
}

// ListOnline returns participants accepted by pred, in insertion order. A nil
// predicate accepts everyone.
func (r *Registry) ListOnline(pred func(*models.Participant) bool) []*models.Participant {
	out := make([]*models.Participant, 0, len(r.order))
	for _, id := range r.order {
		p := r.participants[id]
		if pred == nil || pred(p) {
			out = append(out, p)
		}
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.participants)
}
