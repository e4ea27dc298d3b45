package client

import (
	"context"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/pkg/namespace"
	"github.com/driftfs/driftfs/pkg/namespace/cache"
)

// Mkdir creates a directory named name under parent. The returned node
// carries a reference the caller releases when done.
func (c *Client) Mkdir(ctx context.Context, parent cache.NodeID, name string, mode uint32) (cache.NodeID, error) {
	return c.doCreate(ctx, &namespace.Request{Op: namespace.OpMkdir, Mode: mode}, parent, name)
}

// Mknod creates a non-directory object (regular file, device node, fifo,
// or socket, per the format bits of mode) named name under parent.
func (c *Client) Mknod(ctx context.Context, parent cache.NodeID, name string, mode, rdev uint32) (cache.NodeID, error) {
	return c.doCreate(ctx, &namespace.Request{Op: namespace.OpMknod, Mode: mode, Rdev: rdev}, parent, name)
}

// Symlink creates a symbolic link named name under parent pointing at
// target.
func (c *Client) Symlink(ctx context.Context, parent cache.NodeID, name, target string) (cache.NodeID, error) {
	return c.doCreate(ctx, &namespace.Request{Op: namespace.OpSymlink, SymlinkTarget: target}, parent, name)
}

// doCreate runs the shared create-family protocol. req carries the
// operation kind and its arguments; the address and routing fields are
// filled in here.
func (c *Client) doCreate(ctx context.Context, req *namespace.Request, parent cache.NodeID, name string) (cache.NodeID, error) {
	if err := c.live(); err != nil {
		return cache.NoNode, err
	}
	if err := c.checkName(name); err != nil {
		return cache.NoNode, err
	}

	// Remember what the cache believed the name was bound to, so a
	// no-trace reconciliation can tell a fresh binding from a stale one.
	priorObj := c.peekObject(parent, name)

	// Invalidate before sending: while the request is in flight a
	// concurrent local lookup must not be answered from leases this
	// mutation is about to break.
	c.cache.InvalidateDir(parent)
	c.cache.DropNameLease(parent, name)

	base, path, err := c.address(parent, name)
	if err != nil {
		return cache.NoNode, err
	}
	req.Base = base
	req.Path = path
	req.Affinity = namespace.AffinityAuthoritative

	reply, err := c.submit(ctx, req)
	if err != nil {
		// The mutation may or may not have happened remotely; the cached
		// binding can no longer be trusted either way.
		c.cache.DropChild(parent, name)
		return cache.NoNode, err
	}

	if reply.Trace != nil && reply.Trace.Target != nil {
		return c.spliceLookup(ctx, parent, name, reply.Trace), nil
	}

	// No trace: re-resolve the name to get authoritative metadata. The
	// re-lookup finding the object the cache already knew means the create
	// bound nothing new, which is an aliasing condition we surface instead
	// of silently accepting.
	logger.Debug("%s of %q returned no trace; falling back to lookup", req.Op, path)
	node, err := c.doLookup(ctx, parent, name, true)
	if err != nil {
		if namespace.IsNotFound(err) {
			return cache.NoNode, &namespace.Error{
				Code:    namespace.ErrStaleMetadata,
				Message: "created name did not resolve on fallback lookup",
				Path:    path,
			}
		}
		return cache.NoNode, err
	}
	if priorObj != namespace.NoObject && c.cache.Object(node) == priorObj {
		c.cache.Drop(node)
		c.cache.Release(node)
		return cache.NoNode, &namespace.Error{
			Code:    namespace.ErrStaleMetadata,
			Message: "fallback lookup bound an already-live object",
			Path:    path,
		}
	}
	return node, nil
}

// peekObject reads the object a cached binding points at, skipping
// revalidation. NoObject when nothing positive is cached.
func (c *Client) peekObject(parent cache.NodeID, name string) namespace.ObjectID {
	node, ok := c.cache.PeekChild(parent, name)
	if !ok {
		return namespace.NoObject
	}
	obj := c.cache.Object(node)
	c.cache.Release(node)
	return obj
}
