package client_test

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/namespace"
	"github.com/driftfs/driftfs/pkg/namespace/client"
	"github.com/driftfs/driftfs/pkg/transport/memory"
)

// splitNames picks names that hash into the left and right halves of the
// fragment space, so a depth-1 split distributes them deterministically.
func splitNames(left, right int) (leftNames, rightNames []string) {
	half := namespace.MakeFrag(1, 0)
	for i := 0; len(leftNames) < left || len(rightNames) < right; i++ {
		name := fmt.Sprintf("f%03d", i)
		if half.Contains(namespace.HashName(name)) {
			if len(leftNames) < left {
				leftNames = append(leftNames, name)
			}
		} else if len(rightNames) < right {
			rightNames = append(rightNames, name)
		}
	}
	return leftNames, rightNames
}

func openRootListing(t *testing.T, c *client.Client) *client.ListingHandle {
	t.Helper()
	root, err := c.Root()
	require.NoError(t, err)
	h, err := c.OpenDir(root)
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}

func TestListingSingleFragment(t *testing.T) {
	srv := memory.New(memory.Config{})
	for _, name := range []string{"beta", "alpha", "gamma"} {
		_, err := srv.CreateFile(name, 1)
		require.NoError(t, err)
	}
	c := newTestClient(t, srv)
	h := openRootListing(t, c)

	names := listAll(t, h)
	assert.Equal(t, []string{".", "..", "alpha", "beta", "gamma"}, names)
}

func TestListingSynthesizesRootDots(t *testing.T) {
	srv := memory.New(memory.Config{})
	c := newTestClient(t, srv)
	h := openRootListing(t, c)

	var entries []namespace.DirEntry
	err := h.ReadDir(context.Background(), func(e namespace.DirEntry, _ namespace.Cursor) bool {
		entries = append(entries, e)
		return true
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ".", entries[0].Name)
	assert.Equal(t, "..", entries[1].Name)
	// The root's parent is itself.
	assert.Equal(t, entries[0].ID, entries[1].ID)
}

func TestListingAcrossTwoFragments(t *testing.T) {
	srv := memory.New(memory.Config{})
	leftNames, rightNames := splitNames(3, 2)
	for _, name := range append(append([]string{}, leftNames...), rightNames...) {
		_, err := srv.CreateFile(name, 1)
		require.NoError(t, err)
	}
	require.NoError(t, srv.SplitDir("", 1))

	c := newTestClient(t, srv)
	h := openRootListing(t, c)

	names := listAll(t, h)

	sort.Strings(leftNames)
	sort.Strings(rightNames)
	want := append([]string{".", ".."}, leftNames...)
	want = append(want, rightNames...)
	assert.Equal(t, want, names,
		"the dots appear once, then each fragment's entries in order")
	assert.Equal(t, 2, srv.Submissions(namespace.OpReaddir),
		"one fetch per fragment")

	// A drained listing stays drained.
	assert.Empty(t, listAll(t, h))
}

func TestListingEarlyStopResumes(t *testing.T) {
	srv := memory.New(memory.Config{})
	leftNames, rightNames := splitNames(3, 2)
	for _, name := range append(append([]string{}, leftNames...), rightNames...) {
		_, err := srv.CreateFile(name, 1)
		require.NoError(t, err)
	}
	require.NoError(t, srv.SplitDir("", 1))

	c := newTestClient(t, srv)
	h := openRootListing(t, c)

	// Consume two entries per call, as a caller with a small buffer would.
	var all []string
	for {
		count := 0
		stopped := false
		err := h.ReadDir(context.Background(), func(e namespace.DirEntry, _ namespace.Cursor) bool {
			if count == 2 {
				stopped = true
				return false
			}
			all = append(all, e.Name)
			count++
			return true
		})
		require.NoError(t, err, "an early stop is success, not an error")
		if !stopped {
			break
		}
	}

	sort.Strings(leftNames)
	sort.Strings(rightNames)
	want := append([]string{".", ".."}, leftNames...)
	want = append(want, rightNames...)
	assert.Equal(t, want, all, "resumption must neither skip nor repeat entries")
}

func TestSeekToStartForcesRefetch(t *testing.T) {
	srv := memory.New(memory.Config{})
	_, err := srv.CreateFile("old", 1)
	require.NoError(t, err)
	c := newTestClient(t, srv)
	h := openRootListing(t, c)

	first := listAll(t, h)
	assert.Contains(t, first, "old")
	fetched := srv.Submissions(namespace.OpReaddir)

	// The namespace moves on; a rewind must not serve the stale snapshot.
	_, err = srv.CreateFile("new", 1)
	require.NoError(t, err)

	h.Seek(namespace.CursorStart)
	second := listAll(t, h)
	assert.Contains(t, second, "new")
	assert.Greater(t, srv.Submissions(namespace.OpReaddir), fetched)
}

func TestOpenDirRejectsNonDirectory(t *testing.T) {
	srv := memory.New(memory.Config{})
	_, err := srv.CreateFile("plain", 1)
	require.NoError(t, err)
	c := newTestClient(t, srv)
	root, err := c.Root()
	require.NoError(t, err)

	file, err := c.Lookup(context.Background(), root, "plain")
	require.NoError(t, err)
	defer c.Release(file)

	_, err = c.OpenDir(file)
	assert.True(t, namespace.IsCode(err, namespace.ErrNotDirectory))
}

func TestListingPrimesAttributeCache(t *testing.T) {
	srv := memory.New(memory.Config{})
	_, err := srv.CreateFile("readme", 512)
	require.NoError(t, err)
	c := newTestClient(t, srv)
	h := openRootListing(t, c)

	var got *namespace.ObjectMeta
	err = h.ReadDir(context.Background(), func(e namespace.DirEntry, _ namespace.Cursor) bool {
		if e.Name == "readme" {
			got = e.Meta
		}
		return true
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(512), got.Size)
}
