// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-brain/pkg/types"
)

func testRegistry(cfg types.SessionConfig) (*Registry, *time.Time) {
	r := NewRegistry(cfg, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	return r, &now
}

func TestCreateAndGet(t *testing.T) {
	r, _ := testRegistry(types.SessionConfig{})
	s, err := r.Create()
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)
	require.NotNil(t, s.Index)
	t.Cleanup(func() { r.Delete(s.ID) })

	got, err := r.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, got.Messages())
}

func TestGetUnknownSession(t *testing.T) {
	r, _ := testRegistry(types.SessionConfig{})
	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessageLimit(t *testing.T) {
	r, _ := testRegistry(types.SessionConfig{MaxMessages: 2})
	s, err := r.Create()
	require.NoError(t, err)
	t.Cleanup(func() { r.Delete(s.ID) })

	_, err = r.Get(s.ID)
	require.NoError(t, err)
	_, err = r.Get(s.ID)
	require.NoError(t, err)
	_, err = r.Get(s.ID)
	assert.ErrorIs(t, err, ErrMessageLimit)
}

func TestDelete(t *testing.T) {
	r, _ := testRegistry(types.SessionConfig{})
	s, err := r.Create()
	require.NoError(t, err)

	require.NoError(t, r.Delete(s.ID))
	assert.Equal(t, 0, r.Len())
	assert.ErrorIs(t, r.Delete(s.ID), ErrNotFound)
}

func TestSweepReclaimsIdleSessions(t *testing.T) {
	r, now := testRegistry(types.SessionConfig{TTL: 30 * time.Minute})
	idle, err := r.Create()
	require.NoError(t, err)
	_, err = r.Create()
	require.NoError(t, err)
	fresh, err := r.Create()
	require.NoError(t, err)

	// Two sessions go idle past the TTL; the third stays active.
	*now = now.Add(31 * time.Minute)
	_, err = r.Get(fresh.ID)
	require.NoError(t, err)

	removed := r.Sweep()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, r.Len())

	_, err = r.Get(idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Get(fresh.ID)
	assert.NoError(t, err)

	r.Delete(fresh.ID)
}

func TestSweepAtBoundaryKeepsSession(t *testing.T) {
	r, now := testRegistry(types.SessionConfig{TTL: 30 * time.Minute})
	s, err := r.Create()
	require.NoError(t, err)
	t.Cleanup(func() { r.Delete(s.ID) })

	// Exactly at the TTL is not yet expired.
	*now = now.Add(30 * time.Minute)
	assert.Equal(t, 0, r.Sweep())
	assert.Equal(t, 1, r.Len())
}

func TestRunClosesSessionsOnCancel(t *testing.T) {
	r, _ := testRegistry(types.SessionConfig{SweepInterval: time.Hour})
	_, err := r.Create()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.Equal(t, 0, r.Len())
}
