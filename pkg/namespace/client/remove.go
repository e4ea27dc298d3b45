package client

import (
	"context"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/pkg/namespace"
	"github.com/driftfs/driftfs/pkg/namespace/cache"
)

// Unlink removes the non-directory name under parent.
func (c *Client) Unlink(ctx context.Context, parent cache.NodeID, name string) error {
	return c.doRemove(ctx, namespace.OpUnlink, parent, name)
}

// Rmdir removes the empty directory name under parent.
func (c *Client) Rmdir(ctx context.Context, parent cache.NodeID, name string) error {
	return c.doRemove(ctx, namespace.OpRmdir, parent, name)
}

func (c *Client) doRemove(ctx context.Context, op namespace.Op, parent cache.NodeID, name string) error {
	if err := c.live(); err != nil {
		return err
	}
	if err := c.checkName(name); err != nil {
		return err
	}

	// Cheap local type screen when the binding is cached; the server
	// re-checks authoritatively.
	if node, ok := c.cache.PeekChild(parent, name); ok {
		meta := c.cache.Meta(node)
		c.cache.Release(node)
		if meta != nil {
			if op == namespace.OpUnlink && meta.IsDir() {
				return &namespace.Error{
					Code:    namespace.ErrIsDirectory,
					Message: "unlink target is a directory",
					Path:    name,
				}
			}
			if op == namespace.OpRmdir && !meta.IsDir() {
				return &namespace.Error{
					Code:    namespace.ErrNotDirectory,
					Message: "rmdir target is not a directory",
					Path:    name,
				}
			}
		}
	}

	c.cache.InvalidateDir(parent)
	c.cache.DropNameLease(parent, name)

	base, path, err := c.address(parent, name)
	if err != nil {
		return err
	}
	reply, err := c.submit(ctx, &namespace.Request{
		Op:       op,
		Base:     base,
		Path:     path,
		Affinity: namespace.AffinityAuthoritative,
	})
	if err != nil {
		c.cache.DropChild(parent, name)
		return err
	}

	if reply.Trace != nil {
		c.reconcileDir(parent, reply.Trace.Dir)
		c.dropRemoved(ctx, parent, name)
		return nil
	}

	// No trace: the removal went through but brought no metadata back.
	// Decrement the cached link count and drop the binding locally; both
	// are cheap and idempotent, no confirming request needed.
	logger.Debug("%s of %q returned no trace; reconciling locally", op, path)
	if node, ok := c.cache.PeekChild(parent, name); ok {
		if meta := c.cache.Meta(node); meta != nil && meta.Nlink > 0 {
			meta.Nlink--
			c.cache.UpdateMeta(node, meta)
			if err := c.attrs.Put(ctx, meta); err != nil {
				logger.Warn("Failed to update cached attributes for object %d: %v", meta.ID, err)
			}
		}
		c.cache.Release(node)
	}
	c.dropRemoved(ctx, parent, name)
	return nil
}

// dropRemoved drops the cached binding of a removed name and evicts the
// object from the attribute cache when no cached link remains.
func (c *Client) dropRemoved(ctx context.Context, parent cache.NodeID, name string) {
	if node, ok := c.cache.PeekChild(parent, name); ok {
		if meta := c.cache.Meta(node); meta != nil && meta.Nlink == 0 {
			if err := c.attrs.Delete(ctx, meta.ID); err != nil {
				logger.Warn("Failed to evict attributes for object %d: %v", meta.ID, err)
			}
		}
		c.cache.Release(node)
	}
	c.cache.DropChild(parent, name)
}
