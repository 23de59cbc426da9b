package models

import (
	"strings"
	"time"
)

// Attribute is the declared, filterable trait of a participant.
type Attribute string

const (
	AttributeMale        Attribute = "male"
	AttributeFemale      Attribute = "female"
	AttributeUndisclosed Attribute = "undisclosed"
)

// NoFilter is the zero Attribute; used as a filter it accepts everyone.
const NoFilter Attribute = ""

// ParseAttribute normalizes a declared attribute. Unknown values, including
// the empty string, become AttributeUndisclosed.
func ParseAttribute(s string) Attribute {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return AttributeMale
	case "female", "f":
		return AttributeFemale
	default:
		return AttributeUndisclosed
	}
}

// ParseFilter normalizes a requested filter. "any", empty and unknown values
// all mean NoFilter; ok is false only when s was non-empty and unrecognized.
func ParseFilter(s string) (filter Attribute, ok bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "", "any", "all", "undisclosed":
		return NoFilter, true
	}
	if a := ParseAttribute(v); a != AttributeUndisclosed {
		return a, true
	}
	return NoFilter, false
}

// Accepts reports whether a filter admits a partner with attribute attr.
// An undisclosed attribute satisfies any filter.
func Accepts(filter, attr Attribute) bool {
	return filter == NoFilter || attr == AttributeUndisclosed || attr == filter
}

// State is a participant's position in the pairing lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateSearching State = "searching"
	StatePaired    State = "paired"
	StateInRoom    State = "in_room"
)

// Participant is one online entity, a real connection or the persona.
type Participant struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"-"`
	DisplayName string    `json:"displayName"`
	Attribute   Attribute `json:"attribute"`
	State       State     `json:"state"`
	IsPersona   bool      `json:"isPersona"`

	// FilterEnabled is the entitlement resolved when the connection was
	// established; without it requested filters are ignored.
	FilterEnabled bool `json:"-"`
	// Filter is the most recent filter the participant searched with.
	Filter Attribute `json:"-"`
	RoomID string    `json:"roomId,omitempty"`

	ConnectedAt time.Time `json:"connectedAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

// CompatibleWith checks both directions: each side's filter must accept the
// other's attribute.
func (p *Participant) CompatibleWith(pFilter Attribute, other *Participant, otherFilter Attribute) bool {
	return Accepts(pFilter, other.Attribute) && Accepts(otherFilter, p.Attribute)
}

// WaitEntry is a standing request to be matched.
type WaitEntry struct {
	ParticipantID string
	Filter        Attribute
	EnqueuedAt    time.Time
}
