package client

import (
	"context"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/pkg/namespace"
	"github.com/driftfs/driftfs/pkg/namespace/cache"
)

// Link creates a hard link to target named name under parent. The returned
// node is the new binding, with a reference for the caller.
func (c *Client) Link(ctx context.Context, target, parent cache.NodeID, name string) (cache.NodeID, error) {
	if err := c.live(); err != nil {
		return cache.NoNode, err
	}
	if err := c.checkName(name); err != nil {
		return cache.NoNode, err
	}

	targetObj := c.cache.Object(target)
	if targetObj == namespace.NoObject {
		return cache.NoNode, &namespace.Error{
			Code:    namespace.ErrNotFound,
			Message: "link target is not bound",
		}
	}

	c.cache.InvalidateDir(parent)
	c.cache.DropNameLease(parent, name)

	base, path, err := c.address(parent, name)
	if err != nil {
		return cache.NoNode, err
	}
	base2, path2, err := c.address(target, "")
	if err != nil {
		return cache.NoNode, err
	}

	reply, err := c.submit(ctx, &namespace.Request{
		Op:       namespace.OpLink,
		Base:     base,
		Path:     path,
		Base2:    base2,
		Path2:    path2,
		Affinity: namespace.AffinityAuthoritative,
	})
	if err != nil {
		c.cache.DropChild(parent, name)
		return cache.NoNode, err
	}

	if reply.Trace != nil && reply.Trace.Target != nil {
		node := c.spliceLookup(ctx, parent, name, reply.Trace)
		c.cache.UpdateMeta(target, reply.Trace.Target)
		return node, nil
	}

	// No trace: re-resolve the new name. Only the intended target showing
	// up there proves the link took; anything else is an inconsistency the
	// caller must see.
	logger.Debug("link of %q returned no trace; falling back to lookup", path)
	node, err := c.doLookup(ctx, parent, name, true)
	if err != nil {
		if namespace.IsNotFound(err) {
			return cache.NoNode, &namespace.Error{
				Code:    namespace.ErrStaleMetadata,
				Message: "linked name did not resolve on fallback lookup",
				Path:    path,
			}
		}
		return cache.NoNode, err
	}
	if c.cache.Object(node) != targetObj {
		c.cache.Drop(node)
		c.cache.Release(node)
		return cache.NoNode, &namespace.Error{
			Code:    namespace.ErrStaleMetadata,
			Message: "fallback lookup bound a different object than the link target",
			Path:    path,
		}
	}
	if meta := c.cache.Meta(node); meta != nil {
		c.cache.UpdateMeta(target, meta)
	}
	return node, nil
}
