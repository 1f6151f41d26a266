package session

import (
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown or expired session IDs.
var ErrNotFound = errors.New("session not found")

// Manager tracks live sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opt      Options
	now      func() time.Time
}

// NewManager returns an empty manager. Sessions inherit opt.
func NewManager(opt Options) *Manager {
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	return &Manager{sessions: map[string]*Session{}, opt: opt, now: time.Now}
}

// Create starts a session with a fresh ID.
func (m *Manager) Create() *Session {
	s := newSession(uuid.NewString(), m.opt, m.now)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.opt.Logger.Info("session created", "session", s.ID)
	return s
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete discards a session and its cache.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.cache.Reset()
	m.opt.Logger.Info("session deleted", "session", id)
	return nil
}

// Sweep discards sessions idle for longer than idle and returns how many
// were removed. Idleness is checked outside the manager lock so a session busy
// with a long computation does not hold up the others.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := m.now().Add(-idle)
	m.mu.Lock()
	live := make(map[string]*Session, len(m.sessions))
	maps.Copy(live, m.sessions)
	m.mu.Unlock()

	var idleIDs []string
	for id, s := range live {
		if s.LastUsed().Before(cutoff) {
			idleIDs = append(idleIDs, id)
		}
	}
	var stale []*Session
	m.mu.Lock()
	for _, id := range idleIDs {
		if s, ok := m.sessions[id]; ok && s == live[id] {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range stale {
		s.cache.Reset()
	}
	if len(stale) > 0 {
		m.opt.Logger.Info("idle sessions expired", "count", len(stale))
	}
	return len(stale)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CacheStats sums hits and misses across live sessions.
func (m *Manager) CacheStats() (hits, misses int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		h, mi := s.cache.Stats()
		hits += h
		misses += mi
	}
	return hits, misses
}
