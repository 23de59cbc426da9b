package persona_test

import (
	"testing"

	"strangerchat/backend/internal/persona"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResponder(t *testing.T, opts ...persona.Option) *persona.Responder {
	t.Helper()
	r, err := persona.NewResponder("Sarah", opts...)
	require.NoError(t, err)
	return r
}

func TestClassify(t *testing.T) {
	r := newResponder(t)

	tests := []struct {
		input string
		want  persona.Category
	}{
		{"hello there", persona.CategoryGreeting},
		{"Hey!!", persona.CategoryGreeting},
		{"how are you?", persona.CategoryHowAreYou},
		{"What's up", persona.CategoryHowAreYou},
		{"what is your name", persona.CategoryName},
		{"how old are you", persona.CategoryAge},
		{"what do you do for work", persona.CategoryOccupation},
		{"any good music lately?", persona.CategoryMusic},
		{"I love pizza", persona.CategoryFood},
		// Greeting outranks everything that follows it.
		{"hi, how are you? I love pizza", persona.CategoryGreeting},
		// Occupation outranks food.
		{"I cook for a living", persona.CategoryOccupation},
		// Keywords must be whole words: "this" does not contain a greeting.
		{"this thing", persona.CategoryGeneric},
		{"the weather is nice", persona.CategoryGeneric},
		{"", persona.CategoryGeneric},
		{"?!", persona.CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Classify(tt.input))
		})
	}
}

func TestReply_IsDeterministicForRules(t *testing.T) {
	r := newResponder(t)

	first := r.Reply("hello there")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Reply("hello there"))
	}
	assert.Equal(t, r.Reply("I love pizza"), r.Reply("pizza for dinner"))
	assert.NotEqual(t, first, r.Reply("I love pizza"))
}

func TestReply_NameUsesPersonaName(t *testing.T) {
	r := newResponder(t)
	assert.Contains(t, r.Reply("what's your name?"), "Sarah")
}

func TestReply_GenericComesFromPool(t *testing.T) {
	pool := persona.GenericReplies()
	require.NotEmpty(t, pool)

	for i := range pool {
		idx := i
		r := newResponder(t, persona.WithPicker(func(n int) int {
			assert.Equal(t, len(pool), n)
			return idx
		}))
		assert.Equal(t, pool[idx], r.Reply("the weather is nice"))
	}

	r := newResponder(t)
	for i := 0; i < 20; i++ {
		assert.Contains(t, pool, r.Reply("random words"))
	}
}
