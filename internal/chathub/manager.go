package chathub

import (
	"context"
	"errors"
	"sync"
	"time"

	"strangerchat/backend/internal/models"
	"strangerchat/backend/pkg/errorx"

	"go.uber.org/zap"
)

const defaultDisplayName = "Stranger"

// PersonaOptions configures the always-available fallback partner.
type PersonaOptions struct {
	Enabled    bool
	Name       string
	Replier    Replier
	ReplyDelay func() time.Duration
}

type Options struct {
	FallbackWait  time.Duration
	StaleAfter    time.Duration
	SweepInterval time.Duration
	// Strict panics on a session invariant violation instead of repairing it.
	Strict   bool
	Persona  PersonaOptions
	Observer SessionObserver
	Schedule Scheduler
	Now      func() time.Time
}

// Stats is a snapshot of the hub's population.
type Stats struct {
	TotalUsers   int `json:"totalUsers"`
	OnlineUsers  int `json:"onlineUsers"`
	WaitingUsers int `json:"waitingUsers"`
	ActiveChats  int `json:"activeChats"`
	Rooms        int `json:"rooms"`
}

// ManagerService is the hub. It owns the registry, pairing table, matcher,
// relay and lifecycle, and serializes every mutation of them behind one
// mutex. Transports talk to it through the channels or the exported
// methods.
type ManagerService struct {
	mu sync.Mutex

	Clients map[string]Client

	// Channels
	IncomingCh   chan models.Inbound
	RegisterCh   chan Client
	UnregisterCh chan Client

	registry  *Registry
	table     *PairingTable
	matcher   *Matcher
	relay     *Relay
	lifecycle *Lifecycle

	personaID string
	opts      Options
	now       func() time.Time
}

func NewManagerService(opts Options) *ManagerService {
	m := &ManagerService{
		Clients:      make(map[string]Client),
		IncomingCh:   make(chan models.Inbound, 256),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		opts:         opts,
		now:          opts.Now,
	}
	if m.now == nil {
		m.now = time.Now
	}

	m.registry = NewRegistry()
	if opts.Persona.Enabled {
		started := m.now()
		persona := m.registry.Add(&models.Participant{
			DisplayName: opts.Persona.Name,
			Attribute:   models.AttributeUndisclosed,
			IsPersona:   true,
			ConnectedAt: started,
			LastSeenAt:  started,
		})
		m.personaID = persona.ID
	}

	notifier := notifierFunc(m.deliver)
	m.table = NewPairingTable(m.isPersona, opts.Observer, m.now)
	m.matcher = NewMatcher(m.registry, m.table, MatcherConfig{
		FallbackWait: opts.FallbackWait,
		PersonaID:    m.personaID,
		Schedule:     opts.Schedule,
		Fire:         m.onFallback,
		Now:          m.now,
	})
	m.relay = NewRelay(m.registry, m.table, notifier, RelayConfig{
		PersonaID:    m.personaID,
		Replier:      opts.Persona.Replier,
		ReplyDelay:   opts.Persona.ReplyDelay,
		Schedule:     opts.Schedule,
		DeliverReply: m.onPersonaReply,
		Now:          m.now,
	})
	m.lifecycle = NewLifecycle(m.registry, m.table, m.matcher, notifier, opts.Strict)
	return m
}

func (m *ManagerService) isPersona(id string) bool {
	return m.personaID != "" && id == m.personaID
}

// PersonaID returns the persona's participant id, or "" when disabled.
func (m *ManagerService) PersonaID() string {
	return m.personaID
}

// Run processes registrations, inbound events and the stale sweep until ctx
// is cancelled. Events from one connection are handled in arrival order.
func (m *ManagerService) Run(ctx context.Context) {
	zap.L().Info("chat hub started", zap.String("persona_id", m.personaID))

	var sweep <-chan time.Time
	if m.opts.SweepInterval > 0 && m.opts.StaleAfter > 0 {
		ticker := time.NewTicker(m.opts.SweepInterval)
		defer ticker.Stop()
		sweep = ticker.C
	}
	defer m.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-m.RegisterCh:
			m.register(client)
		case client := <-m.UnregisterCh:
			m.unregister(client)
		case in := <-m.IncomingCh:
			m.HandleInbound(in)
		case <-sweep:
			m.Sweep()
		}
	}
}

func (m *ManagerService) shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.matcher.Stop()
	for id, c := range m.Clients {
		delete(m.Clients, id)
		c.Close()
	}
	zap.L().Info("chat hub stopped")
}

func (m *ManagerService) register(c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := c.GetParticipantID()
	if old, ok := m.Clients[id]; ok && old != c {
		// a reconnect replaces the previous connection but keeps the state
		old.Close()
	}
	m.Clients[id] = c
	if p := m.registry.Get(id); p != nil {
		p.LastSeenAt = m.now()
	}
	zap.L().Info("client registered", zap.String("participant_id", id))
}

func (m *ManagerService) unregister(c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := c.GetParticipantID()
	if cur, ok := m.Clients[id]; !ok || cur != c {
		return
	}
	delete(m.Clients, id)
	c.Close()

	if m.registry.Get(id) != nil {
		if err := m.lifecycle.Disconnect(id, EndReasonDisconnect); err != nil {
			zap.L().Warn("disconnect failed", zap.String("participant_id", id), zap.Error(err))
		}
	}
	zap.L().Info("client unregistered", zap.String("participant_id", id))
}

// deliver is the hub's Notifier. It must be called with mu held.
func (m *ManagerService) deliver(id string, ev models.Outbound) {
	c, ok := m.Clients[id]
	if !ok {
		return
	}
	select {
	case c.GetSendChannel() <- ev:
	default:
		zap.L().Warn("send buffer full, dropping event",
			zap.String("participant_id", id),
			zap.String("event", ev.Event),
		)
	}
}

func (m *ManagerService) notifyError(id string, err error) {
	m.deliver(id, models.Outbound{
		Event: models.EventError,
		Data:  models.ErrorPayload{Code: string(errorx.GetCode(err)), Message: err.Error()},
	})
}

func (m *ManagerService) onFallback(id string, seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if res, ok := m.matcher.Fallback(id, seq); ok {
		zap.L().Info("paired with persona", zap.String("participant_id", id), zap.String("session_id", res.Session.ID))
		m.announce(id, res)
	}
}

func (m *ManagerService) onPersonaReply(personaID, to, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.relay.SendDirect(personaID, to, content); err != nil {
		zap.L().Debug("persona reply dropped", zap.String("participant_id", to), zap.Error(err))
	}
}

// announce tells the requester, and for a new session also the partner,
// about the outcome of a search step.
func (m *ManagerService) announce(requesterID string, res MatchResult) {
	if !res.Matched() {
		m.deliver(requesterID, models.Outbound{Event: models.EventSearching, Data: models.Empty{}})
		return
	}

	requester := m.registry.Get(requesterID)
	if res.Partner != nil {
		m.deliver(requesterID, partnerFound(res.Partner))
	}
	if res.Existing {
		return
	}
	if res.Partner != nil && requester != nil {
		m.deliver(res.Partner.ID, partnerFound(requester))
	}
	zap.L().Info("session created",
		zap.String("session_id", res.Session.ID),
		zap.String("participant_a", res.Session.ParticipantA),
		zap.String("participant_b", res.Session.ParticipantB),
	)
	m.lifecycle.Audit()
}

func partnerFound(p *models.Participant) models.Outbound {
	return models.Outbound{
		Event: models.EventPartnerFound,
		Data: models.PartnerFoundPayload{
			PartnerID:   p.ID,
			DisplayName: p.DisplayName,
			Attribute:   p.Attribute,
		},
	}
}

func (m *ManagerService) unknown(id, op string) error {
	err := errorx.Wrapf(errorx.ErrUnknownParticipant, errorx.CodeUnknownParticipant, "%s by %s", op, id)
	zap.L().Warn("unknown participant", zap.String("participant_id", id), zap.String("op", op))
	return err
}

// Join registers or refreshes a participant. Empty payload fields fall back
// to the connection's profile defaults.
func (m *ManagerService) Join(id string, payload models.JoinPayload) (models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" || m.isPersona(id) {
		return models.Participant{}, errorx.Newf(errorx.CodeInvalidPayload, "cannot join as %q", id)
	}

	var ident Identity
	if c, ok := m.Clients[id]; ok {
		ident = c.GetIdentity()
	}

	name := payload.DisplayName
	if name == "" {
		name = ident.DisplayName
	}
	if name == "" {
		name = defaultDisplayName
	}
	attr := ident.Attribute
	if payload.Attribute != "" || attr == "" {
		attr = models.ParseAttribute(payload.Attribute)
	}

	now := m.now()
	p := m.registry.Add(&models.Participant{
		ID:            id,
		AccountID:     ident.AccountID,
		DisplayName:   name,
		Attribute:     attr,
		FilterEnabled: ident.FilterEnabled,
		ConnectedAt:   now,
		LastSeenAt:    now,
	})

	m.deliver(id, models.Outbound{
		Event: models.EventJoined,
		Data: models.JoinedPayload{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Attribute:     p.Attribute,
		},
	})
	zap.L().Info("participant joined", zap.String("participant_id", id), zap.String("attribute", string(attr)))
	return *p, nil
}

// FindPartner starts or continues a search. A filter the participant is not
// entitled to, or one that does not parse, is replaced by no filter.
func (m *ManagerService) FindPartner(id, rawFilter string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.registry.Get(id)
	if p == nil {
		return m.unknown(id, "find_partner")
	}

	filter, ok := models.ParseFilter(rawFilter)
	if !ok {
		zap.L().Debug("invalid filter ignored", zap.String("participant_id", id), zap.String("filter", rawFilter))
		m.notifyError(id, errorx.Newf(errorx.CodeInvalidFilter, "unknown filter %q, searching without one", rawFilter))
	}
	if filter != models.NoFilter && !p.FilterEnabled {
		m.deliver(id, models.Outbound{Event: models.EventFilterUnavailable, Data: models.Empty{}})
		filter = models.NoFilter
	}

	if p.State == models.StateInRoom {
		m.lifecycle.LeaveRoom(id)
	}

	res, err := m.matcher.FindPartner(id, filter)
	if err != nil {
		return err
	}
	m.announce(id, res)
	return nil
}

// CancelSearch leaves the wait list. Cancelling when not searching does
// nothing and sends nothing.
func (m *ManagerService) CancelSearch(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registry.Get(id) == nil {
		return m.unknown(id, "leave_search")
	}
	if m.matcher.Cancel(id) {
		m.deliver(id, models.Outbound{Event: models.EventSearchCancelled, Data: models.Empty{}})
	}
	return nil
}

// NextPartner ends the current session and immediately searches again.
func (m *ManagerService) NextPartner(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.registry.Get(id)
	if p == nil {
		return m.unknown(id, "next_partner")
	}
	if p.State == models.StateInRoom {
		m.lifecycle.LeaveRoom(id)
	}
	res, err := m.lifecycle.Next(id)
	if err != nil {
		return err
	}
	m.announce(id, res)
	return nil
}

// LeaveChat ends the current session, or the current search, without
// starting a new one.
func (m *ManagerService) LeaveChat(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registry.Get(id) == nil {
		return m.unknown(id, "leave_chat")
	}
	if m.matcher.Cancel(id) {
		m.deliver(id, models.Outbound{Event: models.EventSearchCancelled, Data: models.Empty{}})
	}
	m.lifecycle.EndSession(id, EndReasonLeft)
	return nil
}

// SendDirect relays a message to the sender's partner. Without a live
// session the sender gets message_failed and the message is dropped.
func (m *ManagerService) SendDirect(from, to, content string) (models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, err := m.relay.SendDirect(from, to, content)
	if errors.Is(err, errorx.ErrNoActiveSession) {
		m.deliver(from, models.Outbound{
			Event: models.EventMessageFailed,
			Data:  models.MessageFailedPayload{To: to, Content: content, Reason: string(errorx.CodeNoActiveSession)},
		})
	}
	return msg, err
}

func (m *ManagerService) SendRoom(from, roomID, content string) (models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.relay.SendRoom(from, roomID, content)
}

// Typing relays a typing indicator to the current partner, if any.
func (m *ManagerService) Typing(id string, typing bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registry.Get(id) == nil {
		return m.unknown(id, "typing")
	}
	s := m.table.FindByParticipant(id)
	if s == nil {
		return nil
	}
	other, _ := s.Other(id)
	event := models.EventPartnerStoppedTyping
	if typing {
		event = models.EventPartnerTyping
	}
	m.deliver(other, models.Outbound{Event: event, Data: models.Empty{}})
	return nil
}

// JoinRoom moves id into roomID, generating a room id when empty. Any
// session or search is ended first.
func (m *ManagerService) JoinRoom(id, roomID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.registry.Get(id)
	if p == nil {
		return "", m.unknown(id, "join_room")
	}
	if roomID == "" {
		roomID = m.table.newID()
	}

	if cur := m.table.RoomOf(id); cur != "" && cur != roomID {
		m.lifecycle.LeaveRoom(id)
	}
	if m.matcher.Cancel(id) {
		m.deliver(id, models.Outbound{Event: models.EventSearchCancelled, Data: models.Empty{}})
	}
	m.lifecycle.EndSession(id, EndReasonRoom)

	fresh := m.table.RoomOf(id) != roomID
	room := m.table.JoinRoom(roomID, id)
	p.State = models.StateInRoom
	p.RoomID = roomID

	members := make([]models.RoomMember, 0, len(room.Members))
	for _, mid := range room.Members {
		members = append(members, models.RoomMember{ID: mid, DisplayName: m.lifecycle.displayName(mid)})
		if fresh && mid != id {
			m.deliver(mid, models.Outbound{
				Event: models.EventParticipantJoined,
				Data:  models.RoomMember{ID: id, DisplayName: p.DisplayName},
			})
		}
	}
	m.deliver(id, models.Outbound{
		Event: models.EventRoomJoined,
		Data:  models.RoomJoinedPayload{RoomID: roomID, Participants: members},
	})
	return roomID, nil
}

// LeaveRoom removes id from its room. Leaving when not in a room is a no-op.
func (m *ManagerService) LeaveRoom(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registry.Get(id) == nil {
		return m.unknown(id, "leave_room")
	}
	m.lifecycle.LeaveRoom(id)
	return nil
}

// Disconnect removes a participant and everything it holds.
func (m *ManagerService) Disconnect(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lifecycle.Disconnect(id, EndReasonDisconnect)
}

// Touch records activity for the stale sweep.
func (m *ManagerService) Touch(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p := m.registry.Get(id); p != nil {
		p.LastSeenAt = m.now()
	}
}

// Sweep disconnects participants idle for longer than StaleAfter and then
// audits the session table. Clients without a transport heartbeat are
// never swept.
func (m *ManagerService) Sweep() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := m.lifecycle.Sweep(m.now().Add(-m.opts.StaleAfter), m.withoutHeartbeat)
	for _, id := range removed {
		if c, ok := m.Clients[id]; ok {
			delete(m.Clients, id)
			c.Close()
		}
	}
	if len(removed) > 0 {
		zap.L().Info("stale participants removed", zap.Strings("participant_ids", removed))
	}
	m.lifecycle.Audit()
	return removed
}

// withoutHeartbeat reports whether id's connection cannot go stale, because
// its transport never refreshes lastSeenAt on its own.
func (m *ManagerService) withoutHeartbeat(id string) bool {
	c, ok := m.Clients[id]
	if !ok {
		return false
	}
	hb, ok := c.(Heartbeater)
	return ok && !hb.Heartbeats()
}

func (m *ManagerService) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	online := len(m.registry.ListOnline(func(p *models.Participant) bool { return !p.IsPersona }))
	return Stats{
		TotalUsers:   m.registry.Len(),
		OnlineUsers:  online,
		WaitingUsers: m.matcher.WaitingCount(),
		ActiveChats:  m.table.Count(),
		Rooms:        m.table.RoomCount(),
	}
}

// Participant returns a copy of a participant's current record.
func (m *ManagerService) Participant(id string) (models.Participant, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.registry.Get(id)
	if p == nil {
		return models.Participant{}, false
	}
	return *p, true
}

// SessionOf returns the session id is in.
func (m *ManagerService) SessionOf(id string) (models.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.table.FindByParticipant(id)
	if s == nil {
		return models.Session{}, false
	}
	return *s, true
}
