// Package discover runs fetch cycles for one user's ban list.
package discover

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"artdiscover/internal/bans"
	"artdiscover/internal/catalog"
	"artdiscover/pkg/models"
)

var (
	ErrBusy   = errors.New("a discovery is already in progress")
	ErrClosed = errors.New("session closed")
)

const DefaultFetchTimeout = 20 * time.Second

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Fetcher is satisfied by *catalog.Client.
type Fetcher interface {
	FetchArtwork(ctx context.Context, bans []models.Ban) (models.Artwork, error)
}

// State is a point-in-time copy of a session.
type State struct {
	SessionID string          `json:"session_id"`
	Status    Status          `json:"status"`
	Loading   bool            `json:"loading"`
	Error     string          `json:"error,omitempty"`
	Artwork   *models.Artwork `json:"artwork,omitempty"`
	Bans      []models.Ban    `json:"bans"`
	Cycle     uint64          `json:"cycle"`
	Version   uint64          `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// IsBanned reports whether (kind, value) is in the state's ban list.
func (s State) IsBanned(kind models.BanKind, value string) bool {
	for _, b := range s.Bans {
		if b.Kind == kind && b.Value == value {
			return true
		}
	}
	return false
}

type Options struct {
	Guard        bans.Guard
	FetchTimeout time.Duration
	Logger       *zap.Logger
	// OnChange is called after every state change, in version order.
	OnChange func(State)
}

// Session owns one ban registry and the fetch cycle driven by it.
//
// Each cycle gets a sequence number and its own context. Starting a new
// cycle cancels the previous one and a result from any cycle but the
// latest is dropped.
type Session struct {
	ID string

	fetcher  Fetcher
	timeout  time.Duration
	log      *zap.Logger
	onChange func(State)

	mu       sync.Mutex
	registry *bans.Registry
	status   Status
	errMsg   string
	artwork  *models.Artwork
	cycle    uint64
	version  uint64
	updated  time.Time
	cancel   context.CancelFunc
	lastSeen time.Time
	closed   bool

	emitMu      sync.Mutex
	lastEmitted uint64

	wg sync.WaitGroup
}

func NewSession(id string, f Fetcher, opts Options) *Session {
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now().UTC()
	return &Session{
		ID:       id,
		fetcher:  f,
		timeout:  timeout,
		log:      log.With(zap.String("session", id)),
		onChange: opts.OnChange,
		registry: bans.NewRegistry(opts.Guard),
		status:   StatusIdle,
		updated:  now,
		lastSeen: now,
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Discover starts a fetch cycle. It fails with ErrBusy while one is running.
func (s *Session) Discover() (State, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return State{}, ErrClosed
	}
	if s.status == StatusLoading {
		st := s.snapshotLocked()
		s.mu.Unlock()
		return st, ErrBusy
	}
	st := s.startLocked()
	s.mu.Unlock()

	s.emit(st)
	return st, nil
}

// Start runs the first fetch cycle of a session that has never fetched.
// It reports whether a cycle was started.
func (s *Session) Start() (State, bool) {
	s.mu.Lock()
	if s.closed || s.cycle > 0 {
		st := s.snapshotLocked()
		s.mu.Unlock()
		return st, false
	}
	st := s.startLocked()
	s.mu.Unlock()

	s.emit(st)
	return st, true
}

// Toggle flips the ban on (kind, value). A change starts a new fetch cycle
// that supersedes any cycle still in flight.
func (s *Session) Toggle(kind models.BanKind, value string) (State, bool) {
	s.mu.Lock()
	if s.closed || !s.registry.Toggle(kind, value) {
		st := s.snapshotLocked()
		s.mu.Unlock()
		return st, false
	}
	s.log.Debug("ban toggled",
		zap.String("kind", string(kind)),
		zap.Bool("banned", s.registry.IsBanned(kind, value)),
		zap.Int("bans", s.registry.Len()))
	st := s.startLocked()
	s.mu.Unlock()

	s.emit(st)
	return st, true
}

func (s *Session) IsBanned(kind models.BanKind, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.IsBanned(kind, value)
}

// Bannable reports whether value could be added to the ban list.
func (s *Session) Bannable(value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Bannable(value)
}

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now().UTC()
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Wait blocks until no fetch cycle is running.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close cancels the running cycle and waits for it to return.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Session) startLocked() State {
	if s.cancel != nil {
		s.cancel()
	}
	s.cycle++
	cycle := s.cycle

	ctx, cancel := context.WithTimeout(catalog.WithSessionID(context.Background(), s.ID), s.timeout)
	s.cancel = cancel
	s.status = StatusLoading
	s.errMsg = ""
	s.bumpLocked()
	s.lastSeen = s.updated

	entries := s.registry.Entries()
	s.wg.Add(1)
	go s.run(ctx, cancel, cycle, entries)

	return s.snapshotLocked()
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, cycle uint64, entries []models.Ban) {
	defer s.wg.Done()
	defer cancel()

	art, err := s.fetcher.FetchArtwork(ctx, entries)

	s.mu.Lock()
	if s.closed || cycle != s.cycle {
		s.mu.Unlock()
		s.log.Debug("dropping superseded fetch result", zap.Uint64("cycle", cycle))
		return
	}
	s.cancel = nil
	if err != nil {
		s.status = StatusError
		s.errMsg = err.Error()
		s.artwork = nil
		s.log.Warn("fetch failed", zap.Uint64("cycle", cycle), zap.Error(err))
	} else {
		s.status = StatusSuccess
		s.artwork = &art
		s.log.Debug("artwork loaded", zap.Uint64("cycle", cycle), zap.Int("artwork_id", art.ID))
	}
	s.bumpLocked()
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(st)
}

func (s *Session) bumpLocked() {
	s.version++
	s.updated = time.Now().UTC()
}

func (s *Session) snapshotLocked() State {
	st := State{
		SessionID: s.ID,
		Status:    s.status,
		Loading:   s.status == StatusLoading,
		Error:     s.errMsg,
		Bans:      s.registry.Entries(),
		Cycle:     s.cycle,
		Version:   s.version,
		UpdatedAt: s.updated,
	}
	if s.artwork != nil {
		a := *s.artwork
		st.Artwork = &a
	}
	return st
}

// emit delivers st unless a newer version was already delivered.
func (s *Session) emit(st State) {
	if s.onChange == nil {
		return
	}
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if st.Version <= s.lastEmitted {
		return
	}
	s.lastEmitted = st.Version
	s.onChange(st)
}
