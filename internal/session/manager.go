package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a session ID is unknown or expired.
var ErrNotFound = errors.New("session not found")

// DefaultIdleTTL is how long an unused session is kept.
const DefaultIdleTTL = 5 * time.Minute

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Manager hands out independent sessions keyed by ID.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	cfg      Config
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewManager creates a manager whose new sessions use cfg.
func NewManager(cfg Config, ttl time.Duration, logger *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*entry),
		cfg:      cfg,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// SetConfig replaces the configuration used for sessions created afterwards.
// Running sessions keep their configuration.
func (m *Manager) SetConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
}

// Config returns the configuration for new sessions.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Create starts a new session with a random ID.
func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(uuid.NewString())
}

// Get returns a live session and refreshes its idle timer.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = m.now()
	return e.session, nil
}

// GetOrCreate returns the session for id, creating one when id is empty or
// unknown. created reports whether a new session was made; a new session
// keeps a caller-supplied ID only if it parses as a UUID.
func (m *Manager) GetOrCreate(id string) (s *Session, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.sessions[id]; ok {
		e.lastSeen = m.now()
		return e.session, false
	}

	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	return m.createLocked(id), true
}

// Delete removes a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were evicted.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.ttl)
	evicted := 0
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		m.logger.Info("evicted idle sessions", zap.Int("count", evicted), zap.Int("remaining", len(m.sessions)))
	}
	return evicted
}

// RunSweeper evicts idle sessions periodically until stop is closed.
func (m *Manager) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Manager) createLocked(id string) *Session {
	s := New(id, m.cfg, m.logger)
	m.sessions[id] = &entry{session: s, lastSeen: m.now()}
	m.logger.Debug("session created", zap.String("session", id))
	return s
}
