package discover

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultSessionTTL    = 2 * time.Hour
	DefaultSweepInterval = time.Minute
	DefaultMaxSessions   = 1000
)

// Manager keeps the live sessions of the HTTP presenter, keyed by UUID.
type Manager struct {
	fetcher Fetcher
	opts    Options
	log     *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	// MaxSessions caps the live sessions. Creating one more evicts the
	// least recently used. Zero means no cap.
	MaxSessions int

	// OnRemove, if set, is called with the ID of every removed, expired or
	// evicted session after it is closed.
	OnRemove func(id string)
}

func NewManager(f Fetcher, opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		fetcher:  f,
		opts:     opts,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new idle session. No fetch runs until the caller
// starts one with Start or Discover.
func (m *Manager) Create() *Session {
	s := NewSession(uuid.NewString(), m.fetcher, m.opts)

	m.mu.Lock()
	var evicted *Session
	if m.MaxSessions > 0 && len(m.sessions) >= m.MaxSessions {
		evicted = m.oldestLocked()
		delete(m.sessions, evicted.ID)
	}
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()

	if evicted != nil {
		evicted.Close()
		m.removed(evicted.ID)
		m.log.Info("session evicted", zap.String("session", evicted.ID), zap.Int("max_sessions", m.MaxSessions))
	}
	m.log.Info("session created", zap.String("session", s.ID), zap.Int("sessions", n))
	return s
}

func (m *Manager) oldestLocked() *Session {
	var (
		oldest *Session
		seen   time.Time
	)
	for _, s := range m.sessions {
		if t := s.LastSeen(); oldest == nil || t.Before(seen) {
			oldest, seen = s, t
		}
	}
	return oldest
}

// Get returns the session with id and marks it used.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.Touch()
	}
	return s, ok
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Remove closes and forgets the session with id.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
		m.removed(id)
	}
	return ok
}

// Sweep closes sessions unused for longer than ttl and returns how many
// were removed.
func (m *Manager) Sweep(ttl time.Duration) int {
	cutoff := time.Now().UTC().Add(-ttl)

	var stale []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
		m.removed(s.ID)
	}
	if len(stale) > 0 {
		m.log.Info("expired idle sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Run sweeps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, ttl, interval time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m.Sweep(ttl)
		}
	}
}

func (m *Manager) removed(id string) {
	if m.OnRemove != nil {
		m.OnRemove(id)
	}
}

// Close shuts every session down.
func (m *Manager) Close() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
