package page

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) (*MemoryStore, *time.Time) {
	t.Helper()
	st := NewMemoryStore(ttl)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }
	t.Cleanup(st.Close)
	return st, &now
}

func addSession(t *testing.T, st *MemoryStore, id string) *Session {
	t.Helper()
	s, err := NewSession(id, "/", newFakeSource())
	require.NoError(t, err)
	st.Put(s)
	return s
}

func TestNewMemoryStoreDefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultIdleTTL, NewMemoryStore(0).ttl)
}

func TestStoreGetAndDelete(t *testing.T) {
	st, _ := newTestStore(t, time.Minute)
	s := addSession(t, st, "a")

	got, err := st.Get("a")
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = st.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, st.Delete("a"))
	assert.ErrorIs(t, st.Delete("a"), ErrSessionNotFound)
	_, err = s.Apply(Event{Type: EventEdit, Value: "x"})
	assert.ErrorIs(t, err, ErrSessionExpired, "deleted sessions are closed")
	assert.Zero(t, st.Count())
}

func TestStoreGetExpiresIdleSession(t *testing.T) {
	st, now := newTestStore(t, time.Minute)
	addSession(t, st, "a")

	*now = now.Add(30 * time.Second)
	_, err := st.Get("a")
	require.NoError(t, err, "use refreshes the idle timer")

	*now = now.Add(50 * time.Second)
	_, err = st.Get("a")
	require.NoError(t, err)

	*now = now.Add(2 * time.Minute)
	_, err = st.Get("a")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Zero(t, st.Count())
}

func TestStoreCleanup(t *testing.T) {
	st, now := newTestStore(t, time.Minute)
	addSession(t, st, "old")
	*now = now.Add(45 * time.Second)
	addSession(t, st, "fresh")
	*now = now.Add(30 * time.Second)

	n, err := st.Cleanup(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, st.Count())

	_, err = st.Get("fresh")
	assert.NoError(t, err)
}

func TestStoreWakeReleasesWaiters(t *testing.T) {
	st, _ := newTestStore(t, time.Minute)
	s := addSession(t, st, "a")
	before := s.Snapshot().Version

	done := make(chan Snapshot, 1)
	go func() {
		snap, _ := s.WaitVersion(context.Background(), before)
		done <- snap
	}()

	st.Wake()
	select {
	case snap := <-done:
		assert.Greater(t, snap.Version, before)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not released")
	}

	// Woken sessions stay usable.
	_, err := st.Get("a")
	assert.NoError(t, err)
}

func TestStorePutAfterClose(t *testing.T) {
	st, _ := newTestStore(t, time.Minute)
	st.Close()

	s := addSession(t, st, "late")
	assert.Zero(t, st.Count())
	_, err := s.WaitVersion(context.Background(), 0)
	assert.ErrorIs(t, err, ErrSessionExpired)
}
