// Package persona implements the scripted fallback partner's replies.
//
// Replies are chosen by keyword rules checked in a fixed priority order; the
// first category with a keyword present in the text wins. Text that matches no
// rule gets a random line from a pool of generic openers. All keywords are
// compiled into a single Aho-Corasick automaton so a message is scanned once.
package persona

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Category string

const (
	CategoryGreeting   Category = "greeting"
	CategoryHowAreYou  Category = "how_are_you"
	CategoryName       Category = "name"
	CategoryAge        Category = "age"
	CategoryOccupation Category = "occupation"
	CategoryMusic      Category = "music"
	CategoryFood       Category = "food"
	CategoryGeneric    Category = "generic"
)

type rule struct {
	category Category
	keywords []string
	reply    string
}

// rules are in priority order.
var rules = []rule{
	{
		category: CategoryGreeting,
		keywords: []string{"hello", "hi", "hey", "hiya", "howdy", "greetings", "good morning", "good evening", "good afternoon", "yo"},
		reply:    "Hey there! Nice to meet you 😊 How's your day going?",
	},
	{
		category: CategoryHowAreYou,
		keywords: []string{"how are you", "how r u", "hows it going", "how is it going", "how are things", "how do you do", "whats up", "sup"},
		reply:    "I'm doing great, thanks for asking! How about you?",
	},
	{
		category: CategoryName,
		keywords: []string{"your name", "who are you", "call you", "whats your name"},
		reply:    "I'm %s! What should I call you?",
	},
	{
		category: CategoryAge,
		keywords: []string{"how old", "your age", "age"},
		reply:    "I'm 24. Age is just a number though, right?",
	},
	{
		category: CategoryOccupation,
		keywords: []string{"your job", "for work", "for a living", "occupation", "job", "work", "student", "study", "studying"},
		reply:    "I work as a graphic designer. What do you do?",
	},
	{
		category: CategoryMusic,
		keywords: []string{"music", "song", "songs", "band", "singer", "listen to", "playlist", "concert"},
		reply:    "I love music! Mostly indie and a bit of jazz. What are you listening to lately?",
	},
	{
		category: CategoryFood,
		keywords: []string{"food", "pizza", "eat", "eating", "cook", "cooking", "dinner", "lunch", "breakfast", "hungry", "pasta", "sushi"},
		reply:    "Now I'm hungry 😄 Pizza is my weakness. What's your favourite food?",
	},
}

var genericReplies = []string{
	"That's interesting! Tell me more.",
	"Haha, I see what you mean.",
	"Really? I never thought about it that way.",
	"So what brings you here today?",
	"What do you like to do for fun?",
	"Cool! Where are you chatting from?",
}

// Responder produces persona replies. It is safe for concurrent use.
type Responder struct {
	name     string
	machine  *goahocorasick.Machine
	category map[string]Category
	priority map[Category]int
	replies  map[Category]string
	pick     func(n int) int
}

type Option func(*Responder)

// WithPicker replaces the random index source used for generic replies.
func WithPicker(pick func(n int) int) Option {
	return func(r *Responder) { r.pick = pick }
}

func NewResponder(name string, opts ...Option) (*Responder, error) {
	r := &Responder{
		name:     name,
		category: make(map[string]Category),
		priority: make(map[Category]int),
		replies:  make(map[Category]string),
		pick:     rand.IntN,
	}
	for _, opt := range opts {
		opt(r)
	}

	for i, rl := range rules {
		r.priority[rl.category] = i
		r.replies[rl.category] = rl.reply
		for _, kw := range rl.keywords {
			norm := string(normalize(kw))
			if _, dup := r.category[norm]; dup {
				continue
			}
			r.category[norm] = rl.category
		}
	}

	keys := make([]string, 0, len(r.category))
	for k := range r.category {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	patterns := make([][]rune, len(keys))
	for i, k := range keys {
		patterns[i] = []rune(k)
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, fmt.Errorf("build keyword automaton: %w", err)
	}
	r.machine = m
	return r, nil
}

// Classify returns the highest-priority category whose keyword occurs as a
// whole word (or phrase) in text, or CategoryGeneric.
func (r *Responder) Classify(text string) Category {
	norm := normalize(text)
	if len(norm) == 0 {
		return CategoryGeneric
	}

	best := CategoryGeneric
	bestRank := len(rules)
	for _, term := range r.machine.MultiPatternSearch(norm, false) {
		start, end := term.Pos, term.Pos+len(term.Word)
		if !isBoundary(norm, start-1) || !isBoundary(norm, end) {
			continue
		}
		cat := r.category[string(term.Word)]
		if rank := r.priority[cat]; rank < bestRank {
			best, bestRank = cat, rank
		}
	}
	return best
}

// Reply returns the persona's answer to text.
func (r *Responder) Reply(text string) string {
	cat := r.Classify(text)
	if cat == CategoryGeneric {
		return genericReplies[r.pick(len(genericReplies))]
	}
	reply := r.replies[cat]
	if cat == CategoryName {
		return fmt.Sprintf(reply, r.name)
	}
	return reply
}

// GenericReplies returns a copy of the fallback pool.
func GenericReplies() []string {
	out := make([]string, len(genericReplies))
	copy(out, genericReplies)
	return out
}

// normalize lowercases letters and digits, drops apostrophes so "what's"
// matches "whats", and collapses everything else into single spaces.
func normalize(s string) []rune {
	out := make([]rune, 0, len(s))
	space := true
	for _, r := range s {
		switch {
		case r == '\'' || r == '’':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			out = append(out, unicode.ToLower(r))
			space = false
		default:
			if !space {
				out = append(out, ' ')
				space = true
			}
		}
	}
	return []rune(strings.TrimRight(string(out), " "))
}

func isBoundary(text []rune, i int) bool {
	return i < 0 || i >= len(text) || text[i] == ' '
}
