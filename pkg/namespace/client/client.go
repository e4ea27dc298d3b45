// Package client implements the namespace operations of a DriftFS mount:
// lookup, directory listing, and the create/link/remove/rename family, all
// running against a pluggable metadata transport and reconciling every
// reply into the session's name cache.
//
// Each operation follows the same shape. Cached state answers what it can;
// everything else becomes a request addressed as (base object, relative
// path) built from the name cache, and the reply either carries a trace
// that is spliced straight into the cache or triggers the per-operation
// no-trace fallback.
package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/internal/ratelimiter"
	"github.com/driftfs/driftfs/pkg/metacache"
	"github.com/driftfs/driftfs/pkg/namespace"
	"github.com/driftfs/driftfs/pkg/namespace/cache"
)

// Options configures a Client.
type Options struct {
	// NameMax is the longest accepted name component. Zero means 255.
	NameMax int

	// PathRetryLimit bounds the path construction retry loop. Zero means
	// cache.DefaultPathRetryLimit.
	PathRetryLimit int

	// RequestsPerSecond throttles outbound requests. Zero disables
	// throttling.
	RequestsPerSecond uint

	// Burst is the throttle's burst allowance. Zero means
	// RequestsPerSecond.
	Burst uint

	// AttrCache holds object metadata beside the name cache. Nil means an
	// in-memory cache with defaults. The client closes it on Close.
	AttrCache metacache.Store

	// Clock supplies the current time for lease checks. Nil means
	// time.Now.
	Clock func() time.Time
}

// Client is one mount session's namespace layer.
type Client struct {
	transport namespace.Transport
	cache     *cache.Store
	attrs     metacache.Store
	limiter   *ratelimiter.Limiter
	opts      Options

	mu      sync.Mutex
	root    cache.NodeID
	mounted bool
	closed  bool
}

// New creates a client over the given transport. The session holds no
// remote state until Mount.
func New(transport namespace.Transport, opts Options) *Client {
	if opts.NameMax <= 0 {
		opts.NameMax = 255
	}
	if opts.PathRetryLimit <= 0 {
		opts.PathRetryLimit = cache.DefaultPathRetryLimit
	}
	if opts.AttrCache == nil {
		opts.AttrCache = metacache.NewMemoryStore(metacache.MemoryConfig{})
	}
	return &Client{
		transport: transport,
		cache:     cache.New(opts.Clock),
		attrs:     opts.AttrCache,
		limiter:   ratelimiter.New(opts.RequestsPerSecond, opts.Burst),
		opts:      opts,
		root:      cache.NoNode,
	}
}

// Mount fetches the root's metadata and initializes the name cache.
func (c *Client) Mount(ctx context.Context) error {
	reply, err := c.submit(ctx, &namespace.Request{
		Op:       namespace.OpLookup,
		Base:     namespace.NoObject,
		Affinity: namespace.AffinityAny,
	})
	if err != nil {
		return err
	}
	if reply.Trace == nil || reply.Trace.Target == nil {
		return &namespace.Error{
			Code:    namespace.ErrStaleMetadata,
			Message: "mount reply carried no root metadata",
		}
	}

	c.mu.Lock()
	c.root = c.cache.SetRoot(reply.Trace.Target)
	c.mounted = true
	c.mu.Unlock()

	if err := c.attrs.Put(ctx, reply.Trace.Target); err != nil {
		logger.Warn("Failed to prime attribute cache for root: %v", err)
	}
	logger.Info("Mounted namespace: root object %d", reply.Trace.Target.ID)
	return nil
}

// Root returns the mount root node.
func (c *Client) Root() (cache.NodeID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted || c.closed {
		return cache.NoNode, errShutdown()
	}
	return c.root, nil
}

// Meta returns a copy of the node's cached metadata, nil for a node cached
// as confirmed-absent.
func (c *Client) Meta(node cache.NodeID) *namespace.ObjectMeta {
	return c.cache.Meta(node)
}

// Release gives back a node obtained from Lookup or a create operation.
func (c *Client) Release(node cache.NodeID) {
	c.cache.Release(node)
}

// CacheStats returns the name cache's activity counters.
func (c *Client) CacheStats() cache.Stats {
	return c.cache.Stats()
}

// Close shuts the session down. Outstanding operations fail with
// ErrShutdown from their next client entry point.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.attrs.Close()
}

// submit sends one request and blocks until its reply, the throttle
// permitting. This is the only suspension point in the namespace layer.
func (c *Client) submit(ctx context.Context, req *namespace.Request) (*namespace.Reply, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Submitting %s: base=%d path=%q", req.Op, req.Base, req.Path)
	pending, err := c.transport.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return pending.Await(ctx)
}

// live reports the session usable and returns its root.
func (c *Client) live() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted || c.closed {
		return errShutdown()
	}
	return nil
}

func errShutdown() error {
	return &namespace.Error{
		Code:    namespace.ErrShutdown,
		Message: "namespace client is not mounted",
	}
}

// checkName rejects caller input no request should ever be built from.
func (c *Client) checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, '/') {
		return &namespace.Error{
			Code:    namespace.ErrInvalidArgument,
			Message: "invalid name component",
			Path:    name,
		}
	}
	if len(name) > c.opts.NameMax {
		return &namespace.Error{
			Code:    namespace.ErrNameTooLong,
			Message: "name component exceeds limit",
			Path:    name,
		}
	}
	return nil
}

// address builds the (base, path) protocol address of the name under node.
func (c *Client) address(node cache.NodeID, name string) (namespace.ObjectID, string, error) {
	base, dir, err := c.cache.BuildPath(node, c.opts.PathRetryLimit)
	if err != nil {
		return namespace.NoObject, "", err
	}
	if name == "" {
		return base, dir, nil
	}
	if dir == "" {
		return base, name, nil
	}
	return base, dir + "/" + name, nil
}
