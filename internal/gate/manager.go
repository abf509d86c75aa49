package gate

import (
	"context"
	"sync"

	"github.com/pharmacore-hq/attendance-gate-go/internal/config"
	"github.com/pharmacore-hq/attendance-gate-go/internal/pkg/sse"
)

// Manager owns one gate session per authenticated user. Sessions are
// created lazily from the injected identity and all of them are released
// on shutdown.
type Manager struct {
	cfg config.GateConfig
	api BackendAPI
	hub *sse.Hub

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

func NewManager(cfg config.GateConfig, api BackendAPI, hub *sse.Hub) *Manager {
	return &Manager{
		cfg:      cfg,
		api:      api,
		hub:      hub,
		sessions: make(map[string]*Session),
	}
}

// Session returns the user's gate session, starting a new one on first use.
func (m *Manager) Session(ctx context.Context, userID string) *Session {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	if s, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		return s
	}
	s := NewSession(userID, m.cfg, m.api, m.hub)
	m.sessions[userID] = s
	m.mu.Unlock()

	s.Start(ctx)
	return s
}

// AmendCheckIn forwards an administrative check-in correction upstream.
// No gating applies on this path.
func (m *Manager) AmendCheckIn(ctx context.Context, userID, recordID, timestamp string) error {
	return m.api.AmendCheckIn(ctx, userID, recordID, timestamp)
}

// AmendCheckOut forwards an administrative check-out correction upstream.
func (m *Manager) AmendCheckOut(ctx context.Context, userID, recordID, timestamp string) error {
	return m.api.AmendCheckOut(ctx, userID, recordID, timestamp)
}

// Close tears down every session; no timers survive.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
