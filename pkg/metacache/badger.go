package metacache

import (
	"context"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/driftfs/driftfs/pkg/namespace"
)

// BadgerConfig holds configuration for the persistent attribute cache.
type BadgerConfig struct {
	// DBPath is the directory holding the BadgerDB files. Required.
	DBPath string

	// BadgerOptions overrides the store's default options entirely when
	// set. Mainly for tests.
	BadgerOptions *badger.Options
}

// BadgerStore persists the attribute cache in BadgerDB so a remount starts
// with a warm cache. Values are JSON-encoded ObjectMeta, keyed by object id
// under the "meta:" prefix.
//
// BadgerDB handles its own locking; the store adds no locking of its own.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) the persistent attribute cache at
// config.DBPath.
func NewBadgerStore(ctx context.Context, config BadgerConfig) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		opts = badger.DefaultOptions(config.DBPath)
		opts = opts.WithLoggingLevel(badger.WARNING)
		// Metadata values are small; compression overhead is not worth it.
		opts = opts.WithCompression(options.None)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open attribute cache at %s: %w", config.DBPath, err)
	}
	return &BadgerStore{db: db}, nil
}

// metaKey formats the database key for an object id.
func metaKey(id namespace.ObjectID) []byte {
	return []byte(fmt.Sprintf("meta:%016x", uint64(id)))
}

// Get returns the cached metadata for id, or (nil, nil) when absent.
func (s *BadgerStore) Get(ctx context.Context, id namespace.ObjectID) (*namespace.ObjectMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var meta *namespace.ObjectMeta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var m namespace.ObjectMeta
			if err := json.Unmarshal(val, &m); err != nil {
				return fmt.Errorf("failed to decode cached metadata for %d: %w", id, err)
			}
			meta = &m
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// Put stores meta, replacing any prior entry for the same object.
func (s *BadgerStore) Put(ctx context.Context, meta *namespace.ObjectMeta) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata for %d: %w", meta.ID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(meta.ID), data)
	})
}

// Delete removes the entry for id, if present.
func (s *BadgerStore) Delete(ctx context.Context, id namespace.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(metaKey(id))
	})
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
