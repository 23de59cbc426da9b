package models_test

import (
	"testing"

	"strangerchat/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in     string
		want   models.Attribute
		wantOK bool
	}{
		{"", models.NoFilter, true},
		{"any", models.NoFilter, true},
		{"male", models.AttributeMale, true},
		{" FEMALE ", models.AttributeFemale, true},
		{"undisclosed", models.NoFilter, true},
		{"robot", models.NoFilter, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := models.ParseFilter(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

// A filter for B admits B and undisclosed, never A.
func TestAccepts(t *testing.T) {
	assert.False(t, models.Accepts(models.AttributeFemale, models.AttributeMale))
	assert.True(t, models.Accepts(models.AttributeFemale, models.AttributeFemale))
	assert.True(t, models.Accepts(models.AttributeFemale, models.AttributeUndisclosed))
	assert.True(t, models.Accepts(models.NoFilter, models.AttributeMale))
}

func TestCompatibleWith_IsSymmetric(t *testing.T) {
	requester := &models.Participant{ID: "a", Attribute: models.AttributeMale}
	candidate := &models.Participant{ID: "b", Attribute: models.AttributeFemale}

	// Requester has no filter but the candidate only wants female partners.
	assert.False(t, requester.CompatibleWith(models.NoFilter, candidate, models.AttributeFemale))
	assert.False(t, candidate.CompatibleWith(models.AttributeFemale, requester, models.NoFilter))

	assert.True(t, requester.CompatibleWith(models.AttributeFemale, candidate, models.AttributeMale))
	assert.True(t, candidate.CompatibleWith(models.AttributeMale, requester, models.AttributeFemale))
}

func TestSessionOther(t *testing.T) {
	s := models.Session{ID: "s1", ParticipantA: "a", ParticipantB: "b"}

	other, ok := s.Other("a")
	assert.True(t, ok)
	assert.Equal(t, "b", other)

	other, ok = s.Other("b")
	assert.True(t, ok)
	assert.Equal(t, "a", other)

	_, ok = s.Other("c")
	assert.False(t, ok)
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("c"))
}
