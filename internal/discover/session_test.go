package discover

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"artdiscover/internal/bans"
	"artdiscover/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type result struct {
	art models.Artwork
	err error
}

type call struct {
	ctx   context.Context
	bans  []models.Ban
	reply chan result
}

// fakeFetcher hands every request to the test and blocks until the test
// replies or the request context ends.
type fakeFetcher struct {
	calls chan call
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: make(chan call, 8)}
}

func (f *fakeFetcher) FetchArtwork(ctx context.Context, b []models.Ban) (models.Artwork, error) {
	c := call{ctx: ctx, bans: b, reply: make(chan result, 1)}
	f.calls <- c
	select {
	case r := <-c.reply:
		return r.art, r.err
	case <-ctx.Done():
		return models.Artwork{}, ctx.Err()
	}
}

func (f *fakeFetcher) next(t *testing.T) call {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no fetch was issued")
		return call{}
	}
}

func (f *fakeFetcher) assertIdle(t *testing.T) {
	t.Helper()
	select {
	case c := <-f.calls:
		t.Fatalf("unexpected fetch with bans %v", c.bans)
	case <-time.After(20 * time.Millisecond):
	}
}

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) add(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) all() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func newTestSession(f Fetcher, rec *recorder) *Session {
	opts := Options{Guard: bans.GuardAllPlaceholders}
	if rec != nil {
		opts.OnChange = rec.add
	}
	return NewSession("s-1", f, opts)
}

func TestSession_DiscoverSuccess(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSession(f, nil)
	defer s.Close()

	st, err := s.Discover()
	require.NoError(t, err)
	assert.True(t, st.Loading)
	assert.Equal(t, StatusLoading, st.Status)

	f.next(t).reply <- result{art: models.Artwork{ID: 1, Title: "Irises"}}
	s.Wait()

	st = s.Snapshot()
	assert.Equal(t, StatusSuccess, st.Status)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
	require.NotNil(t, st.Artwork)
	assert.Equal(t, "Irises", st.Artwork.Title)
}

func TestSession_FetchErrorIsVisible(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSession(f, nil)
	defer s.Close()

	_, err := s.Discover()
	require.NoError(t, err)
	f.next(t).reply <- result{err: errors.New("failed to fetch artwork: catalog status 500")}
	s.Wait()

	st := s.Snapshot()
	assert.Equal(t, StatusError, st.Status)
	assert.False(t, st.Loading)
	assert.Equal(t, "failed to fetch artwork: catalog status 500", st.Error)
	assert.Nil(t, st.Artwork)
}

func TestSession_DiscoverWhileLoadingIsRefused(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSession(f, nil)
	defer s.Close()

	_, err := s.Discover()
	require.NoError(t, err)
	c := f.next(t)

	_, err = s.Discover()
	assert.ErrorIs(t, err, ErrBusy)
	f.assertIdle(t)

	c.reply <- result{art: models.Artwork{ID: 1}}
	s.Wait()
	_, err = s.Discover()
	require.NoError(t, err)
	f.next(t).reply <- result{art: models.Artwork{ID: 2}}
	s.Wait()
	assert.Equal(t, 2, s.Snapshot().Artwork.ID)
}

func TestSession_ToggleSupersedesInFlightFetch(t *testing.T) {
	f := newFakeFetcher()
	rec := &recorder{}
	s := newTestSession(f, rec)
	defer s.Close()

	_, err := s.Discover()
	require.NoError(t, err)
	first := f.next(t)

	_, changed := s.Toggle(models.BanArtist, "Rembrandt")
	require.True(t, changed)
	second := f.next(t)
	assert.Equal(t, []models.Ban{{Kind: models.BanArtist, Value: "Rembrandt"}}, second.bans)

	select {
	case <-first.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("superseded fetch was not cancelled")
	}

	second.reply <- result{art: models.Artwork{ID: 2, Title: "fresh"}}
	first.reply <- result{art: models.Artwork{ID: 1, Title: "stale"}}
	s.Wait()

	st := s.Snapshot()
	require.NotNil(t, st.Artwork)
	assert.Equal(t, "fresh", st.Artwork.Title)
	assert.True(t, st.IsBanned(models.BanArtist, "Rembrandt"))

	states := rec.all()
	require.NotEmpty(t, states)
	for i := 1; i < len(states); i++ {
		assert.Greater(t, states[i].Version, states[i-1].Version)
	}
	assert.Equal(t, "fresh", states[len(states)-1].Artwork.Title)
}

func TestSession_GuardedToggleDoesNotFetch(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSession(f, nil)
	defer s.Close()

	_, changed := s.Toggle(models.BanCulture, models.UnknownCulture)
	assert.False(t, changed)
	_, changed = s.Toggle(models.BanArtist, "")
	assert.False(t, changed)
	f.assertIdle(t)
	assert.Empty(t, s.Snapshot().Bans)
}

func TestSession_UnbanRefetches(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSession(f, nil)
	defer s.Close()

	s.Toggle(models.BanCentury, "19th century")
	f.next(t).reply <- result{art: models.Artwork{ID: 1}}
	s.Wait()
	assert.True(t, s.IsBanned(models.BanCentury, "19th century"))

	s.Toggle(models.BanCentury, "19th century")
	c := f.next(t)
	assert.Empty(t, c.bans)
	c.reply <- result{art: models.Artwork{ID: 2}}
	s.Wait()
	assert.False(t, s.IsBanned(models.BanCentury, "19th century"))
}

func TestSession_CloseCancelsFetch(t *testing.T) {
	f := newFakeFetcher()
	rec := &recorder{}
	s := newTestSession(f, rec)

	_, err := s.Discover()
	require.NoError(t, err)
	c := f.next(t)

	s.Close()
	assert.ErrorIs(t, c.ctx.Err(), context.Canceled)
	for _, st := range rec.all() {
		assert.NotEqual(t, StatusError, st.Status)
	}

	_, err = s.Discover()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSession_StartRunsOnlyFirstCycle(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSession(f, nil)

	st, started := s.Start()
	require.True(t, started)
	assert.Equal(t, uint64(1), st.Cycle)
	c := f.next(t)

	_, started = s.Start()
	assert.False(t, started)
	f.assertIdle(t)
	c.reply <- result{art: models.Artwork{ID: 1}}
	s.Wait()

	s.Close()

	closed := newTestSession(f, nil)
	closed.Close()
	_, started = closed.Start()
	assert.False(t, started)
	f.assertIdle(t)
}
