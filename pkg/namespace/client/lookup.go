package client

import (
	"context"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/pkg/namespace"
	"github.com/driftfs/driftfs/pkg/namespace/cache"
)

// Lookup resolves name under the parent node.
//
// A cached binding that still validates answers without any request,
// including a cached confirmed-absent answer, which returns ErrNotFound
// without touching the network. On success the returned node carries a
// reference the caller releases when done.
func (c *Client) Lookup(ctx context.Context, parent cache.NodeID, name string) (cache.NodeID, error) {
	if err := c.live(); err != nil {
		return cache.NoNode, err
	}
	if err := c.checkName(name); err != nil {
		return cache.NoNode, err
	}

	if node, ok := c.cache.Lookup(parent, name); ok {
		if c.cache.Object(node) == namespace.NoObject {
			c.cache.Release(node)
			return cache.NoNode, &namespace.Error{
				Code:    namespace.ErrNotFound,
				Message: "no such entry",
				Path:    name,
			}
		}
		return node, nil
	}
	return c.doLookup(ctx, parent, name, false)
}

// doLookup issues the lookup request and reconciles the reply. retried is
// set on the depth-1 re-issue after a no-trace success; a no-trace reply at
// that depth is a protocol invariant violation, not another retry.
func (c *Client) doLookup(ctx context.Context, parent cache.NodeID, name string, retried bool) (cache.NodeID, error) {
	base, path, err := c.address(parent, name)
	if err != nil {
		return cache.NoNode, err
	}

	reply, err := c.submit(ctx, &namespace.Request{
		Op:       namespace.OpLookup,
		Base:     base,
		Path:     path,
		Affinity: namespace.AffinityAny,
	})
	if err != nil {
		if namespace.IsNotFound(err) {
			// An authoritative absence is worth caching: the next lookup of
			// this name answers negatively without a request.
			c.spliceAbsent(parent, name, reply)
			return cache.NoNode, err
		}
		return cache.NoNode, err
	}

	if reply.Trace == nil || reply.Trace.Target == nil {
		if retried {
			return cache.NoNode, &namespace.Error{
				Code:    namespace.ErrStaleMetadata,
				Message: "two consecutive replies without trace",
				Path:    path,
			}
		}
		logger.Debug("Lookup of %q returned no trace; reissuing", path)
		return c.doLookup(ctx, parent, name, true)
	}
	return c.spliceLookup(ctx, parent, name, reply.Trace), nil
}

// spliceLookup installs a positive lookup trace and returns the bound node
// with a caller reference.
func (c *Client) spliceLookup(ctx context.Context, parent cache.NodeID, name string, trace *namespace.Trace) cache.NodeID {
	version := c.reconcileDir(parent, trace.Dir)
	node := c.cache.Splice(parent, name, trace.Target, trace.NameLease, version)
	if err := c.attrs.Put(ctx, trace.Target); err != nil {
		logger.Warn("Failed to cache attributes for object %d: %v", trace.Target.ID, err)
	}
	return node
}

// spliceAbsent records a confirmed-absent name from a not-found reply.
func (c *Client) spliceAbsent(parent cache.NodeID, name string, reply *namespace.Reply) {
	var version uint64
	if reply != nil && reply.Trace != nil {
		version = c.reconcileDir(parent, reply.Trace.Dir)
	} else if meta := c.cache.Meta(parent); meta != nil {
		version = meta.Version
	}
	node := c.cache.Splice(parent, name, nil, nil, version)
	c.cache.Release(node)
}

// reconcileDir refreshes the parent's cached metadata from a trace and
// returns the directory version child bindings should validate against.
func (c *Client) reconcileDir(parent cache.NodeID, dir *namespace.ObjectMeta) uint64 {
	if dir != nil {
		c.cache.UpdateMeta(parent, dir)
		return dir.Version
	}
	if meta := c.cache.Meta(parent); meta != nil {
		return meta.Version
	}
	return 0
}
