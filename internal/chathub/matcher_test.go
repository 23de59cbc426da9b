package chathub_test

import (
	"fmt"
	"testing"
	"time"

	"strangerchat/backend/internal/chathub"
	"strangerchat/backend/internal/models"
	"strangerchat/backend/pkg/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type matcherFixture struct {
	reg      *chathub.Registry
	table    *chathub.PairingTable
	matcher  *chathub.Matcher
	sched    *manualScheduler
	fallback []chathub.MatchResult
}

func newMatcherFixture(t *testing.T, withPersona bool) *matcherFixture {
	t.Helper()
	f := &matcherFixture{reg: chathub.NewRegistry(), sched: &manualScheduler{}}

	personaID := ""
	if withPersona {
		personaID = f.reg.Add(&models.Participant{ID: "persona", IsPersona: true, Attribute: models.AttributeUndisclosed}).ID
	}
	f.table = chathub.NewPairingTable(func(id string) bool { return personaID != "" && id == personaID }, nil, nil)
	f.matcher = chathub.NewMatcher(f.reg, f.table, chathub.MatcherConfig{
		FallbackWait: 8 * time.Second,
		PersonaID:    personaID,
		Schedule:     f.sched.Schedule,
		Fire: func(id string, seq uint64) {
			if res, ok := f.matcher.Fallback(id, seq); ok {
				f.fallback = append(f.fallback, res)
			}
		},
	})
	return f
}

func (f *matcherFixture) add(id string, attr models.Attribute) {
	f.reg.Add(&models.Participant{ID: id, Attribute: attr})
}

func TestMatcherFilterCorrectness(t *testing.T) {
	type waiter struct {
		attr   models.Attribute
		filter models.Attribute
	}
	// waiters are chosen so that they never match each other
	tests := []struct {
		name      string
		waiting   []waiter
		wantMatch string
	}{
		{
			name: "skips excluded attribute",
			waiting: []waiter{
				{models.AttributeMale, models.AttributeMale},
				{models.AttributeFemale, models.AttributeMale},
			},
			wantMatch: "w1",
		},
		{
			name: "undisclosed is eligible",
			waiting: []waiter{
				{models.AttributeFemale, models.AttributeFemale},
				{models.AttributeUndisclosed, models.AttributeMale},
			},
			wantMatch: "w1",
		},
		{
			name: "nobody eligible",
			waiting: []waiter{
				{models.AttributeMale, models.AttributeFemale},
				{models.AttributeFemale, models.AttributeFemale},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMatcherFixture(t, false)
			for i, w := range tt.waiting {
				id := fmt.Sprintf("w%d", i)
				f.add(id, w.attr)
				res, err := f.matcher.FindPartner(id, w.filter)
				require.NoError(t, err)
				require.False(t, res.Matched())
			}
			f.add("req", models.AttributeMale)

			res, err := f.matcher.FindPartner("req", models.AttributeFemale)
			require.NoError(t, err)

			if tt.wantMatch == "" {
				assert.False(t, res.Matched())
				assert.True(t, f.matcher.IsWaiting("req"))
				return
			}
			require.True(t, res.Matched())
			assert.Equal(t, tt.wantMatch, res.Partner.ID)
			assert.False(t, f.matcher.IsWaiting("req"))
			assert.False(t, f.matcher.IsWaiting(tt.wantMatch))
			assert.Equal(t, models.StatePaired, f.reg.Get("req").State)
			assert.Equal(t, models.StatePaired, f.reg.Get(tt.wantMatch).State)
		})
	}
}

func TestMatcherChecksCandidateFilter(t *testing.T) {
	f := newMatcherFixture(t, false)
	f.add("cand", models.AttributeFemale)
	f.add("req", models.AttributeMale)

	_, err := f.matcher.FindPartner("cand", models.AttributeFemale)
	require.NoError(t, err)
	res, err := f.matcher.FindPartner("req", models.NoFilter)
	require.NoError(t, err)

	assert.False(t, res.Matched(), "candidate filter must exclude the requester")
	assert.Equal(t, 2, f.matcher.WaitingCount())
}

func TestMatcherMutualFilters(t *testing.T) {
	f := newMatcherFixture(t, true)
	f.add("a", models.AttributeMale)
	f.add("b", models.AttributeFemale)

	res, err := f.matcher.FindPartner("a", models.AttributeFemale)
	require.NoError(t, err)
	assert.False(t, res.Matched())

	res, err = f.matcher.FindPartner("b", models.AttributeMale)
	require.NoError(t, err)
	require.True(t, res.Matched())
	assert.Equal(t, "a", res.Partner.ID)
	assert.True(t, res.Session.Has("a"))
	assert.True(t, res.Session.Has("b"))

	// the early match cancelled a's fallback timer
	f.sched.FireAll(true)
	assert.Empty(t, f.fallback)
	assert.Nil(t, f.table.Find("a", "persona"))
}

func TestMatcherRequestWhilePairedReturnsExisting(t *testing.T) {
	f := newMatcherFixture(t, false)
	f.add("a", models.AttributeMale)
	f.add("b", models.AttributeFemale)
	_, _ = f.matcher.FindPartner("a", models.NoFilter)
	first, err := f.matcher.FindPartner("b", models.NoFilter)
	require.NoError(t, err)

	again, err := f.matcher.FindPartner("a", models.NoFilter)

	require.NoError(t, err)
	assert.True(t, again.Existing)
	assert.Equal(t, first.Session.ID, again.Session.ID)
	assert.Equal(t, "b", again.Partner.ID)
	assert.Equal(t, 1, f.table.Count())
}

func TestMatcherUnknownParticipant(t *testing.T) {
	f := newMatcherFixture(t, false)

	_, err := f.matcher.FindPartner("ghost", models.NoFilter)

	assert.ErrorIs(t, err, errorx.ErrUnknownParticipant)
	assert.Zero(t, f.matcher.WaitingCount())
}

func TestMatcherFallbackPairsWithPersonaOnce(t *testing.T) {
	f := newMatcherFixture(t, true)
	f.add("e", models.AttributeFemale)

	_, err := f.matcher.FindPartner("e", models.NoFilter)
	require.NoError(t, err)
	// a repeated request while searching keeps the original timer
	_, err = f.matcher.FindPartner("e", models.NoFilter)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{8 * time.Second}, f.sched.Delays())

	f.sched.FireAll(false)
	f.sched.FireAll(true)

	require.Len(t, f.fallback, 1)
	assert.Equal(t, "persona", f.fallback[0].Partner.ID)
	assert.NotNil(t, f.table.Find("e", "persona"))
	assert.Equal(t, 1, f.table.Count())
	assert.False(t, f.matcher.IsWaiting("e"))
}

func TestMatcherCancelledTimerNeverPairs(t *testing.T) {
	f := newMatcherFixture(t, true)
	f.add("e", models.AttributeFemale)
	_, err := f.matcher.FindPartner("e", models.NoFilter)
	require.NoError(t, err)

	assert.True(t, f.matcher.Cancel("e"))
	assert.False(t, f.matcher.Cancel("e"))
	assert.Equal(t, models.StateIdle, f.reg.Get("e").State)

	// simulate a timer that fired concurrently with the cancel
	f.sched.FireAll(true)

	assert.Empty(t, f.fallback)
	assert.Zero(t, f.table.Count())
}

func TestMatcherStaleTimerFromEarlierSearch(t *testing.T) {
	f := newMatcherFixture(t, true)
	f.add("e", models.AttributeFemale)

	_, _ = f.matcher.FindPartner("e", models.NoFilter)
	f.matcher.Cancel("e")
	_, _ = f.matcher.FindPartner("e", models.NoFilter)

	f.sched.FireAll(true)

	assert.Len(t, f.fallback, 1, "only the live timer pairs")
	assert.Equal(t, 1, f.table.Count())
}

func TestMatcherWithoutPersonaKeepsSearching(t *testing.T) {
	f := newMatcherFixture(t, false)
	f.add("e", models.AttributeFemale)

	_, err := f.matcher.FindPartner("e", models.NoFilter)
	require.NoError(t, err)

	assert.Empty(t, f.sched.Delays())
	assert.True(t, f.matcher.IsWaiting("e"))
	assert.Equal(t, models.StateSearching, f.reg.Get("e").State)
}
