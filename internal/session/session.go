package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/amadvs/internal/platform/metrics"
	"example.com/amadvs/internal/registration"
)

// Session is one browser client: its own Store plus the registration draft
// it is filling in, if any.
type Session struct {
	ID        string
	Store     *Store
	StartTime time.Time

	mu       sync.Mutex
	lastSeen time.Time
	workflow *registration.Workflow
}

func (s *Session) Workflow() (*registration.Workflow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workflow, s.workflow != nil
}

func (s *Session) SetWorkflow(w *registration.Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflow = w
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	newStore func() *Store
	logger   *zap.Logger
	metrics  *metrics.Auth
	now      func() time.Time
}

func NewManager(newStore func() *Store, logger *zap.Logger, m *metrics.Auth) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		newStore: newStore,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

func (m *Manager) CreateSession() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	session := &Session{
		ID:        uuid.New().String(),
		Store:     m.newStore(),
		StartTime: now,
		lastSeen:  now,
	}

	m.sessions[session.ID] = session
	m.metrics.SessionOpened()
	m.logger.Info("Created new session", zap.String("sessionID", session.ID))

	return session
}

// GetSession also marks the session as used.
func (m *Manager) GetSession(sessionID string) (*Session, bool) {
	m.mu.RLock()
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if ok {
		session.touch(m.now())
	}
	return session, ok
}

func (m *Manager) EndSession(sessionID string) bool {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if !ok {
		return false
	}
	session.Store.Close()
	m.metrics.SessionClosed()
	m.logger.Info("Ended session", zap.String("sessionID", sessionID), zap.Duration("age", m.now().Sub(session.StartTime)))
	return true
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Expire ends every session unused for longer than idle.
func (m *Manager) Expire(idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	n := 0
	for _, id := range stale {
		if m.EndSession(id) {
			n++
		}
	}
	return n
}

func (m *Manager) Run(ctx context.Context, idle, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Expire(idle); n > 0 {
				m.logger.Info("Expired idle sessions", zap.Int("count", n))
			}
		}
	}
}

// Close ends all sessions.
func (m *Manager) Close() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		m.EndSession(id)
	}
}
