package chathub_test

import (
	"sync"
	"time"

	"strangerchat/backend/internal/chathub"
	"strangerchat/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockClient is an in-memory chathub.Client that records what the hub sends.
type MockClient struct {
	ident  chathub.Identity
	send   chan models.Outbound
	mu     sync.Mutex
	closed bool

	noHeartbeat bool
}

func (c *MockClient) Heartbeats() bool { return !c.noHeartbeat }

func newMockClient(id string, attr models.Attribute, filterEnabled bool) *MockClient {
	return &MockClient{
		ident: chathub.Identity{
			ParticipantID: id,
			DisplayName:   id,
			Attribute:     attr,
			FilterEnabled: filterEnabled,
		},
		send: make(chan models.Outbound, 64),
	}
}

func (c *MockClient) GetParticipantID() string               { return c.ident.ParticipantID }
func (c *MockClient) GetIdentity() chathub.Identity          { return c.ident }
func (c *MockClient) GetSendChannel() chan<- models.Outbound { return c.send }
func (c *MockClient) Run()                                   {}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Drain returns everything sent so far.
func (c *MockClient) Drain() []models.Outbound {
	var out []models.Outbound
	for {
		select {
		case ev := <-c.send:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// DrainEvents returns only the event names sent so far.
func (c *MockClient) DrainEvents() []string {
	var names []string
	for _, ev := range c.Drain() {
		names = append(names, ev.Event)
	}
	return names
}

// MockObserver records session lifecycle callbacks.
type MockObserver struct {
	mock.Mock
}

func (o *MockObserver) SessionStarted(s models.Session, withPersona bool) {
	o.Called(s, withPersona)
}

func (o *MockObserver) SessionEnded(s models.Session, reason string, at time.Time) {
	o.Called(s, reason, at)
}

// manualScheduler collects scheduled callbacks so tests decide when timers
// fire.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	s       *manualScheduler
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTask) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

func (s *manualScheduler) Schedule(d time.Duration, fn func()) chathub.Stopper {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTask{s: s, delay: d, fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

// FireAll runs every pending callback, including stopped ones, the way a
// timer that already fired before Stop would.
func (s *manualScheduler) FireAll(includeStopped bool) int {
	s.mu.Lock()
	pending := make([]*manualTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.fired || (t.stopped && !includeStopped) {
			continue
		}
		t.fired = true
		pending = append(pending, t)
	}
	s.mu.Unlock()

	for _, t := range pending {
		t.fn()
	}
	return len(pending)
}

func (s *manualScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.delay)
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type echoReplier struct{}

func (echoReplier) Reply(text string) string { return "echo: " + text }
