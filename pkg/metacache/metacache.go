// Package metacache provides the attribute cache sitting beside the name
// cache: object metadata keyed by object id, primed from listing entries
// and reply traces so repeated stat-style access does not round-trip to the
// metadata service.
//
// Two backends are provided. The memory backend is a bounded LRU with TTL
// expiry, suitable for most mounts. The badger backend persists metadata
// across restarts for mounts that want warm caches after a remount.
//
// The attribute cache is advisory only: name validity is decided by the
// name cache's leases, never by the presence of an entry here.
package metacache

import (
	"context"

	"github.com/driftfs/driftfs/pkg/namespace"
)

// Store caches object metadata by object id.
//
// Get returns (nil, nil) on a miss; an error indicates backend failure, not
// absence. Implementations must be safe for concurrent use and must not
// retain or expose caller-owned ObjectMeta values.
type Store interface {
	Get(ctx context.Context, id namespace.ObjectID) (*namespace.ObjectMeta, error)
	Put(ctx context.Context, meta *namespace.ObjectMeta) error
	Delete(ctx context.Context, id namespace.ObjectID) error
	Close() error
}
