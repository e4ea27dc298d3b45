package client_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/namespace"
	"github.com/driftfs/driftfs/pkg/namespace/client"
	"github.com/driftfs/driftfs/pkg/transport/memory"
)

func newTestClient(t *testing.T, srv *memory.Server) *client.Client {
	t.Helper()
	c := client.New(srv, client.Options{})
	require.NoError(t, c.Mount(context.Background()))
	t.Cleanup(func() {
		require.NoError(t, c.Close())
	})
	return c
}

// listAll drains a listing handle, returning every emitted name in order.
func listAll(t *testing.T, h *client.ListingHandle) []string {
	t.Helper()
	var names []string
	err := h.ReadDir(context.Background(), func(e namespace.DirEntry, _ namespace.Cursor) bool {
		names = append(names, e.Name)
		return true
	})
	require.NoError(t, err)
	return names
}

func TestLookupCachesPositiveBinding(t *testing.T) {
	srv := memory.New(memory.Config{})
	_, err := srv.CreateFile("docs/readme", 128)
	require.NoError(t, err)
	c := newTestClient(t, srv)
	ctx := context.Background()

	root, err := c.Root()
	require.NoError(t, err)

	docs, err := c.Lookup(ctx, root, "docs")
	require.NoError(t, err)
	defer c.Release(docs)

	readme, err := c.Lookup(ctx, docs, "readme")
	require.NoError(t, err)
	meta := c.Meta(readme)
	require.NotNil(t, meta)
	assert.Equal(t, uint64(128), meta.Size)
	c.Release(readme)

	// Mount plus the two lookups so far.
	before := srv.Submissions(namespace.OpLookup)

	again, err := c.Lookup(ctx, docs, "readme")
	require.NoError(t, err)
	c.Release(again)

	assert.Equal(t, before, srv.Submissions(namespace.OpLookup),
		"a lease-valid binding must be answered locally")
}

func TestLookupCachesConfirmedAbsence(t *testing.T) {
	srv := memory.New(memory.Config{})
	c := newTestClient(t, srv)
	ctx := context.Background()

	root, err := c.Root()
	require.NoError(t, err)

	_, err = c.Lookup(ctx, root, "missing")
	require.Error(t, err)
	assert.True(t, namespace.IsNotFound(err))

	before := srv.Submissions(namespace.OpLookup)
	_, err = c.Lookup(ctx, root, "missing")
	assert.True(t, namespace.IsNotFound(err))
	assert.Equal(t, before, srv.Submissions(namespace.OpLookup),
		"a confirmed absence must be answered locally")
}

func TestLookupDoubleNoTraceSurfacesStaleMetadata(t *testing.T) {
	srv := memory.New(memory.Config{})
	_, err := srv.CreateFile("readme", 1)
	require.NoError(t, err)
	c := newTestClient(t, srv)

	srv.SuppressTraces(namespace.OpLookup)
	root, err := c.Root()
	require.NoError(t, err)

	_, err = c.Lookup(context.Background(), root, "readme")
	require.Error(t, err)
	assert.True(t, namespace.IsCode(err, namespace.ErrStaleMetadata))
}

func TestLookupRejectsBadNames(t *testing.T) {
	srv := memory.New(memory.Config{})
	c := newTestClient(t, srv)
	root, err := c.Root()
	require.NoError(t, err)
	before := srv.Submissions(namespace.OpLookup)

	for _, name := range []string{"", ".", "..", "a/b"} {
		_, err := c.Lookup(context.Background(), root, name)
		assert.True(t, namespace.IsCode(err, namespace.ErrInvalidArgument), "name %q", name)
	}

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	_, err = c.Lookup(context.Background(), root, string(long))
	assert.True(t, namespace.IsCode(err, namespace.ErrNameTooLong))

	assert.Equal(t, before, srv.Submissions(namespace.OpLookup),
		"input errors must be rejected before any request is built")
}

func TestMkdirWithTrace(t *testing.T) {
	srv := memory.New(memory.Config{})
	c := newTestClient(t, srv)
	ctx := context.Background()
	root, err := c.Root()
	require.NoError(t, err)

	dir, err := c.Mkdir(ctx, root, "projects", 0o755)
	require.NoError(t, err)
	defer c.Release(dir)

	meta := c.Meta(dir)
	require.NotNil(t, meta)
	assert.True(t, meta.IsDir())

	nested, err := c.Mkdir(ctx, dir, "driftfs", 0o755)
	require.NoError(t, err)
	c.Release(nested)
}

func TestMkdirNoTraceFallsBackToLookup(t *testing.T) {
	srv := memory.New(memory.Config{})
	c := newTestClient(t, srv)
	ctx := context.Background()
	root, err := c.Root()
	require.NoError(t, err)

	srv.SuppressTraces(namespace.OpMkdir)
	before := srv.Submissions(namespace.OpLookup)

	dir, err := c.Mkdir(ctx, root, "projects", 0o755)
	require.NoError(t, err)
	defer c.Release(dir)

	meta := c.Meta(dir)
	require.NotNil(t, meta)
	assert.True(t, meta.IsDir())
	assert.Greater(t, srv.Submissions(namespace.OpLookup), before,
		"a traceless create must re-resolve the name")
}

func TestMkdirDoubleNoTraceSurfacesStaleMetadata(t *testing.T) {
	srv := memory.New(memory.Config{})
	c := newTestClient(t, srv)
	root, err := c.Root()
	require.NoError(t, err)

	srv.SuppressTraces(namespace.OpMkdir, namespace.OpLookup)

	_, err = c.Mkdir(context.Background(), root, "projects", 0o755)
	require.Error(t, err)
	assert.True(t, namespace.IsCode(err, namespace.ErrStaleMetadata),
		"the fallback lookup must not loop on a second traceless reply")
}

func TestMkdirExisting(t *testing.T) {
	srv := memory.New(memory.Config{})
	_, err := srv.MkdirAll("projects")
	require.NoError(t, err)
	c := newTestClient(t, srv)
	root, err := c.Root()
	require.NoError(t, err)

	_, err = c.Mkdir(context.Background(), root, "projects", 0o755)
	assert.True(t, namespace.IsCode(err, namespace.ErrExist))
}

func TestMutationFailureDropsDestinationBinding(t *testing.T) {
	srv := memory.New(memory.Config{})
	c := newTestClient(t, srv)
	ctx := context.Background()
	root, err := c.Root()
	require.NoError(t, err)

	boom := errors.New("mds connection reset")
	srv.FailNext(namespace.OpMkdir, boom)

	_, err = c.Mkdir(ctx, root, "projects", 0o755)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom), "transport errors pass through verbatim")

	// The server actually applied the mkdir before failing the reply; the
	// next lookup must go remote and find it.
	before := srv.Submissions(namespace.OpLookup)
	dir, err := c.Lookup(ctx, root, "projects")
	require.NoError(t, err)
	c.Release(dir)
	assert.Greater(t, srv.Submissions(namespace.OpLookup), before)
}

func TestSymlinkAndMknod(t *testing.T) {
	srv := memory.New(memory.Config{})
	c := newTestClient(t, srv)
	ctx := context.Background()
	root, err := c.Root()
	require.NoError(t, err)

	link, err := c.Symlink(ctx, root, "latest", "releases/v2")
	require.NoError(t, err)
	meta := c.Meta(link)
	require.NotNil(t, meta)
	assert.Equal(t, namespace.FileTypeSymlink, meta.Type)
	assert.Equal(t, "releases/v2", meta.SymlinkTarget)
	c.Release(link)

	fifo, err := c.Mknod(ctx, root, "pipe", 0o010644, 0)
	require.NoError(t, err)
	assert.Equal(t, namespace.FileTypeFIFO, c.Meta(fifo).Type)
	c.Release(fifo)
}

func TestLinkBumpsNlink(t *testing.T) {
	srv := memory.New(memory.Config{})
	_, err := srv.CreateFile("a", 10)
	require.NoError(t, err)
	c := newTestClient(t, srv)
	ctx := context.Background()
	root, err := c.Root()
	require.NoError(t, err)

	a, err := c.Lookup(ctx, root, "a")
	require.NoError(t, err)
	defer c.Release(a)

	b, err := c.Link(ctx, a, root, "b")
	require.NoError(t, err)
	defer c.Release(b)

	assert.Equal(t, c.Meta(a).ID, c.Meta(b).ID)
	assert.Equal(t, uint32(2), c.Meta(b).Nlink)
}

func TestUnlinkAndRmdir(t *testing.T) {
	srv := memory.New(memory.Config{})
	_, err := srv.CreateFile("docs/readme", 1)
	require.NoError(t, err)
	c := newTestClient(t, srv)
	ctx := context.Background()
	root, err := c.Root()
	require.NoError(t, err)

	docs, err := c.Lookup(ctx, root, "docs")
	require.NoError(t, err)
	defer c.Release(docs)

	require.Error(t, c.Rmdir(ctx, root, "docs"), "rmdir of a non-empty directory must fail")
	require.NoError(t, c.Unlink(ctx, docs, "readme"))

	_, err = c.Lookup(ctx, docs, "readme")
	assert.True(t, namespace.IsNotFound(err))

	require.NoError(t, c.Rmdir(ctx, root, "docs"))
	_, err = c.Lookup(ctx, root, "docs")
	assert.True(t, namespace.IsNotFound(err))
}

func TestUnlinkNoTraceReconcilesLocally(t *testing.T) {
	srv := memory.New(memory.Config{})
	_, err := srv.CreateFile("tmp", 1)
	require.NoError(t, err)
	c := newTestClient(t, srv)
	ctx := context.Background()
	root, err := c.Root()
	require.NoError(t, err)

	// Prime the binding, then remove it with a traceless reply.
	node, err := c.Lookup(ctx, root, "tmp")
	require.NoError(t, err)
	c.Release(node)

	srv.SuppressTraces(namespace.OpUnlink)
	require.NoError(t, c.Unlink(ctx, root, "tmp"))

	_, err = c.Lookup(ctx, root, "tmp")
	assert.True(t, namespace.IsNotFound(err))
}

func TestUnlinkTypeScreen(t *testing.T) {
	srv := memory.New(memory.Config{})
	_, err := srv.MkdirAll("docs")
	require.NoError(t, err)
	c := newTestClient(t, srv)
	ctx := context.Background()
	root, err := c.Root()
	require.NoError(t, err)

	node, err := c.Lookup(ctx, root, "docs")
	require.NoError(t, err)
	c.Release(node)

	err = c.Unlink(ctx, root, "docs")
	assert.True(t, namespace.IsCode(err, namespace.ErrIsDirectory))
}

func TestRenameOverExistingDestination(t *testing.T) {
	srv := memory.New(memory.Config{})
	_, err := srv.CreateFile("a", 10)
	require.NoError(t, err)
	_, err = srv.CreateFile("b", 20)
	require.NoError(t, err)
	c := newTestClient(t, srv)
	ctx := context.Background()
	root, err := c.Root()
	require.NoError(t, err)

	a, err := c.Lookup(ctx, root, "a")
	require.NoError(t, err)
	aObj := c.Meta(a).ID
	c.Release(a)

	require.NoError(t, c.Rename(ctx, root, "a", root, "b"))

	b, err := c.Lookup(ctx, root, "b")
	require.NoError(t, err)
	assert.Equal(t, aObj, c.Meta(b).ID, "the destination must resolve to the source's object")
	c.Release(b)

	_, err = c.Lookup(ctx, root, "a")
	assert.True(t, namespace.IsNotFound(err), "the source name must be gone")
}

func TestRenameAcrossDirectories(t *testing.T) {
	srv := memory.New(memory.Config{})
	_, err := srv.CreateFile("src/file", 10)
	require.NoError(t, err)
	_, err = srv.MkdirAll("dst")
	require.NoError(t, err)
	c := newTestClient(t, srv)
	ctx := context.Background()
	root, err := c.Root()
	require.NoError(t, err)

	src, err := c.Lookup(ctx, root, "src")
	require.NoError(t, err)
	defer c.Release(src)
	dst, err := c.Lookup(ctx, root, "dst")
	require.NoError(t, err)
	defer c.Release(dst)

	require.NoError(t, c.Rename(ctx, src, "file", dst, "moved"))

	node, err := c.Lookup(ctx, dst, "moved")
	require.NoError(t, err)
	c.Release(node)
	_, err = c.Lookup(ctx, src, "file")
	assert.True(t, namespace.IsNotFound(err))
}

func TestCloseShutsDownOperations(t *testing.T) {
	srv := memory.New(memory.Config{})
	c := client.New(srv, client.Options{})
	require.NoError(t, c.Mount(context.Background()))
	root, err := c.Root()
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.Lookup(context.Background(), root, "x")
	assert.True(t, namespace.IsCode(err, namespace.ErrShutdown))
	_, err = c.Root()
	assert.True(t, namespace.IsCode(err, namespace.ErrShutdown))
}

func TestFormatDirStat(t *testing.T) {
	meta := &namespace.ObjectMeta{
		Type: namespace.FileTypeDirectory,
		DirStat: namespace.DirStat{
			Entries:  3,
			Files:    2,
			Subdirs:  1,
			REntries: 7,
			RFiles:   5,
			RSubdirs: 2,
			RBytes:   4096,
			RCtime:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
	out := client.FormatDirStat(meta)
	assert.Contains(t, out, "entries:")
	assert.Contains(t, out, "rbytes:")
	assert.Contains(t, out, "4096")
	assert.Contains(t, out, "2026-03-01T12:00:00Z")
	assert.Equal(t, "", client.FormatDirStat(&namespace.ObjectMeta{Type: namespace.FileTypeRegular}))
}
