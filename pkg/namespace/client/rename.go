package client

import (
	"context"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/pkg/namespace"
	"github.com/driftfs/driftfs/pkg/namespace/cache"
)

// Rename moves srcName under srcParent to dstName under dstParent,
// replacing any existing destination.
func (c *Client) Rename(ctx context.Context, srcParent cache.NodeID, srcName string, dstParent cache.NodeID, dstName string) error {
	if err := c.live(); err != nil {
		return err
	}
	if err := c.checkName(srcName); err != nil {
		return err
	}
	if err := c.checkName(dstName); err != nil {
		return err
	}

	c.cache.InvalidateDir(srcParent)
	c.cache.DropNameLease(srcParent, srcName)
	c.cache.InvalidateDir(dstParent)
	c.cache.DropNameLease(dstParent, dstName)

	base, path, err := c.address(srcParent, srcName)
	if err != nil {
		return err
	}
	base2, path2, err := c.address(dstParent, dstName)
	if err != nil {
		return err
	}

	reply, err := c.submit(ctx, &namespace.Request{
		Op:       namespace.OpRename,
		Base:     base,
		Path:     path,
		Base2:    base2,
		Path2:    path2,
		Affinity: namespace.AffinityAuthoritative,
	})
	if err != nil {
		c.cache.DropChild(dstParent, dstName)
		return err
	}

	if reply.Trace != nil && reply.Trace.Target != nil {
		c.cache.DropChild(srcParent, srcName)
		node := c.spliceLookup(ctx, dstParent, dstName, reply.Trace)
		c.cache.Release(node)
		return nil
	}

	// No trace. Unlike the create family, a rename's outcome is fully
	// described by its inputs: the destination now binds the source's
	// object. Move the cached node instead of re-resolving.
	logger.Debug("rename %q -> %q returned no trace; moving cached binding", path, path2)
	var version uint64
	if meta := c.cache.Meta(dstParent); meta != nil {
		version = meta.Version
	}
	if node, ok := c.cache.PeekChild(srcParent, srcName); ok {
		c.cache.Move(node, dstParent, dstName, version)
		c.cache.Release(node)
	} else {
		c.cache.DropChild(dstParent, dstName)
	}
	return nil
}
