package metacache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/namespace"
)

func newTestBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := NewBadgerStore(context.Background(), BadgerConfig{DBPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	s := newTestBadgerStore(t)
	ctx := context.Background()

	meta := &namespace.ObjectMeta{
		ID:          42,
		Type:        namespace.FileTypeDirectory,
		Mode:        0o755,
		Version:     7,
		LeaseExpiry: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Frags: []namespace.Frag{
			namespace.MakeFrag(1, 0),
			namespace.MakeFrag(1, 1<<23),
		},
	}
	require.NoError(t, s.Put(ctx, meta))

	got, err := s.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, meta.ID, got.ID)
	assert.Equal(t, meta.Version, got.Version)
	assert.Equal(t, meta.Frags, got.Frags)
	assert.True(t, meta.LeaseExpiry.Equal(got.LeaseExpiry))
}

func TestBadgerStoreMiss(t *testing.T) {
	s := newTestBadgerStore(t)

	got, err := s.Get(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBadgerStoreDelete(t *testing.T) {
	s := newTestBadgerStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &namespace.ObjectMeta{ID: 7}))
	require.NoError(t, s.Delete(ctx, 7))
	require.NoError(t, s.Delete(ctx, 7))

	got, err := s.Get(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBadgerStoreCancelledContext(t *testing.T) {
	s := newTestBadgerStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, 1)
	assert.Error(t, err)
	assert.Error(t, s.Put(ctx, &namespace.ObjectMeta{ID: 1}))
}
