package chathub

import "strangerchat/backend/internal/models"

// RegisterForTest registers c synchronously, bypassing RegisterCh.
func (m *ManagerService) RegisterForTest(c Client) {
	m.register(c)
}

// UnregisterForTest unregisters c synchronously, bypassing UnregisterCh.
func (m *ManagerService) UnregisterForTest(c Client) {
	m.unregister(c)
}

// InjectSessionForTest stores s without any checks, so tests can build a
// table that violates the one-session-per-participant rule.
func (t *PairingTable) InjectSessionForTest(s models.Session) {
	t.sessions[s.ID] = &s
	t.index(&s)
}

// InjectSessionForTest does the same through the hub.
func (m *ManagerService) InjectSessionForTest(s models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table.InjectSessionForTest(s)
	for _, id := range []string{s.ParticipantA, s.ParticipantB} {
		if p := m.registry.Get(id); p != nil && !p.IsPersona {
			p.State = models.StatePaired
		}
	}
}
