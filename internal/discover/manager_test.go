package discover

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artdiscover/pkg/models"
)

func TestManager_CreateDoesNotFetch(t *testing.T) {
	f := newFakeFetcher()
	m := NewManager(f, Options{})
	defer m.Close()

	s := m.Create()
	require.NotEmpty(t, s.ID)
	f.assertIdle(t)
	st := s.Snapshot()
	assert.Equal(t, StatusIdle, st.Status)
	assert.Zero(t, st.Cycle)

	st, started := s.Start()
	require.True(t, started)
	assert.True(t, st.Loading)
	f.next(t).reply <- result{art: models.Artwork{ID: 3}}
	s.Wait()

	_, started = s.Start()
	assert.False(t, started)
	f.assertIdle(t)

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 3, got.Snapshot().Artwork.ID)
	assert.Equal(t, 1, m.Len())
}

func TestManager_SessionsAreIndependent(t *testing.T) {
	f := newFakeFetcher()
	m := NewManager(f, Options{})
	defer m.Close()

	a := m.Create()
	a.Start()
	f.next(t).reply <- result{art: models.Artwork{ID: 1}}
	b := m.Create()
	b.Start()
	f.next(t).reply <- result{art: models.Artwork{ID: 2}}
	a.Wait()
	b.Wait()

	a.Toggle(models.BanArtist, "Goya")
	f.next(t).reply <- result{art: models.Artwork{ID: 4}}
	a.Wait()

	assert.True(t, a.IsBanned(models.BanArtist, "Goya"))
	assert.False(t, b.IsBanned(models.BanArtist, "Goya"))
	assert.NotEqual(t, a.ID, b.ID)
}

func TestManager_CapEvictsLeastRecentlyUsed(t *testing.T) {
	f := newFakeFetcher()
	m := NewManager(f, Options{})
	m.MaxSessions = 2
	defer m.Close()
	var removed []string
	m.OnRemove = func(id string) { removed = append(removed, id) }

	a := m.Create()
	time.Sleep(2 * time.Millisecond)
	b := m.Create()
	b.Start()
	inFlight := f.next(t)
	time.Sleep(2 * time.Millisecond)
	_, ok := m.Get(a.ID)
	require.True(t, ok)

	c := m.Create()
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []string{b.ID}, removed)
	assert.ErrorIs(t, inFlight.ctx.Err(), context.Canceled)

	_, ok = m.Get(b.ID)
	assert.False(t, ok)
	_, ok = m.Get(a.ID)
	assert.True(t, ok)
	_, ok = m.Get(c.ID)
	assert.True(t, ok)
	_, err := b.Discover()
	assert.ErrorIs(t, err, ErrClosed)

	for range 5 {
		m.Create()
	}
	assert.Equal(t, 2, m.Len())
	assert.Len(t, removed, 6)
	f.assertIdle(t)
}

func TestManager_SweepExpiresIdleSessions(t *testing.T) {
	f := newFakeFetcher()
	m := NewManager(f, Options{})
	defer m.Close()
	var removed []string
	m.OnRemove = func(id string) { removed = append(removed, id) }

	s := m.Create()
	s.Start()
	f.next(t)

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, m.Sweep(time.Millisecond))
	assert.Zero(t, m.Len())
	assert.Equal(t, []string{s.ID}, removed)

	_, ok := m.Get(s.ID)
	assert.False(t, ok)
	_, err := s.Discover()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManager_RemoveAndRun(t *testing.T) {
	f := newFakeFetcher()
	m := NewManager(f, Options{})
	defer m.Close()

	s := m.Create()
	s.Start()
	f.next(t)
	assert.True(t, m.Remove(s.ID))
	assert.False(t, m.Remove(s.ID))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, time.Hour, time.Millisecond) }()
	cancel()
	assert.NoError(t, <-done)
}
