package client

import (
	"context"
	"sync"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/pkg/namespace"
	"github.com/driftfs/driftfs/pkg/namespace/cache"
)

// ListingHandle is the per-open-descriptor state of one directory listing:
// the current cursor and the cached reply for the fragment it points into.
// Safe for concurrent use, though calls serialize.
type ListingHandle struct {
	client *Client
	dir    cache.NodeID

	mu     sync.Mutex
	pos    namespace.Cursor
	last   *namespace.Reply
	closed bool
}

// EmitFunc receives one listing entry together with the cursor that resumes
// the listing immediately after it. Returning false stops the walk without
// consuming the entry; the handle's cursor stays on it, so the next ReadDir
// call delivers it again.
type EmitFunc func(entry namespace.DirEntry, next namespace.Cursor) bool

// OpenDir starts a listing of the directory node. The handle holds a
// reference on the node until Close.
func (c *Client) OpenDir(dir cache.NodeID) (*ListingHandle, error) {
	if err := c.live(); err != nil {
		return nil, err
	}
	meta := c.cache.Meta(dir)
	if meta == nil || !meta.IsDir() {
		return nil, &namespace.Error{
			Code:    namespace.ErrNotDirectory,
			Message: "listing target is not a directory",
		}
	}
	c.cache.Ref(dir)
	return &ListingHandle{client: c, dir: dir, pos: namespace.CursorStart}, nil
}

// Cursor returns the handle's current position.
func (h *ListingHandle) Cursor() namespace.Cursor {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pos
}

// Seek repositions the listing. Seeking to the beginning drops the cached
// fragment reply unconditionally: a rewind is a fresh listing with no
// staleness guarantee against the old snapshot.
func (h *ListingHandle) Seek(pos namespace.Cursor) namespace.Cursor {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pos = pos
	if pos == namespace.CursorStart {
		h.last = nil
	}
	return h.pos
}

// Close releases the handle's node reference and cached state.
func (h *ListingHandle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.last = nil
	h.client.cache.Release(h.dir)
}

// ReadDir walks the listing from the handle's cursor, calling emit for each
// entry until the listing is exhausted or emit stops it. `.` and `..` are
// synthesized at offsets 0 and 1 of the leftmost fragment only, so they
// appear exactly once per listing no matter how the directory is split.
// An early stop is success; the cursor stays on the first undelivered
// entry.
func (h *ListingHandle) ReadDir(ctx context.Context, emit EmitFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errShutdown()
	}

	c := h.client
	frag := h.pos.Frag()
	off := h.pos.Offset()

	for {
		resolved := namespace.ChooseFrag(c.cache.Meta(h.dir), frag)
		if h.last == nil || h.last.Frag != resolved {
			if err := h.fetch(ctx, resolved); err != nil {
				return err
			}
		}
		served := h.last.Frag

		// Synthetic entries skew real offsets by two in the leftmost
		// fragment.
		skew := uint32(0)
		if served.IsLeftmost() {
			skew = 2
			if off == 0 {
				self := namespace.DirEntry{Name: ".", ID: c.cache.Object(h.dir), Type: namespace.FileTypeDirectory}
				if !emit(self, namespace.MakeCursor(served, 1)) {
					h.pos = namespace.MakeCursor(served, 0)
					return nil
				}
				off = 1
			}
			if off == 1 {
				up := namespace.DirEntry{Name: "..", ID: h.parentObject(), Type: namespace.FileTypeDirectory}
				if !emit(up, namespace.MakeCursor(served, 2)) {
					h.pos = namespace.MakeCursor(served, 1)
					return nil
				}
				off = 2
			}
		}

		for i := int(off - skew); i < len(h.last.Entries); i++ {
			entry := h.last.Entries[i]
			at := uint32(i) + skew
			if !emit(entry, namespace.MakeCursor(served, at+1)) {
				h.pos = namespace.MakeCursor(served, at)
				return nil
			}
		}

		if served.IsComplete() {
			h.pos = namespace.MakeCursor(served, uint32(len(h.last.Entries))+skew)
			return nil
		}
		frag = served.Next()
		off = 0
		h.last = nil
		h.pos = namespace.MakeCursor(frag, 0)
	}
}

// fetch issues the fragment-scoped listing request and caches its reply.
// Entry metadata carried by the reply primes the attribute cache, and the
// directory's own refreshed metadata is reconciled into the name cache.
func (h *ListingHandle) fetch(ctx context.Context, frag namespace.Frag) error {
	c := h.client
	base, path, err := c.address(h.dir, "")
	if err != nil {
		return err
	}
	reply, err := c.submit(ctx, &namespace.Request{
		Op:       namespace.OpReaddir,
		Base:     base,
		Path:     path,
		Frag:     frag,
		Affinity: namespace.AffinityHash,
		Hash:     frag.Value(),
	})
	if err != nil {
		return err
	}

	if reply.Dir != nil {
		c.cache.UpdateMeta(h.dir, reply.Dir)
	}
	for _, entry := range reply.Entries {
		if entry.Meta == nil {
			continue
		}
		if err := c.attrs.Put(ctx, entry.Meta); err != nil {
			logger.Warn("Failed to cache attributes for object %d: %v", entry.ID, err)
		}
	}
	h.last = reply
	return nil
}

// parentObject resolves the object id `..` reports. The root lists itself.
func (h *ListingHandle) parentObject() namespace.ObjectID {
	c := h.client
	parent := c.cache.Parent(h.dir)
	if parent == cache.NoNode {
		return c.cache.Object(h.dir)
	}
	return c.cache.Object(parent)
}
