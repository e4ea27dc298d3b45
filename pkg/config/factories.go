package config

import (
	"context"
	"fmt"

	"github.com/driftfs/driftfs/pkg/metacache"
)

// CreateMetaCache builds the attribute cache backend the configuration
// selects.
func CreateMetaCache(ctx context.Context, cfg *Config) (metacache.Store, error) {
	switch cfg.Metacache.Type {
	case "memory":
		return metacache.NewMemoryStore(metacache.MemoryConfig{
			MaxEntries: cfg.Metacache.Memory.MaxEntries,
			TTL:        cfg.Metacache.Memory.TTL,
		}), nil
	case "badger":
		return metacache.NewBadgerStore(ctx, metacache.BadgerConfig{
			DBPath: cfg.Metacache.Badger.Path,
		})
	default:
		return nil, fmt.Errorf("unknown metacache type: %s", cfg.Metacache.Type)
	}
}
