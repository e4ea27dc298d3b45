package metacache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/driftfs/driftfs/pkg/namespace"
)

// MemoryConfig holds configuration for the in-memory attribute cache.
type MemoryConfig struct {
	// MaxEntries limits the cache size (LRU eviction). Zero means 1024.
	MaxEntries int

	// TTL is how long cached entries remain valid. Zero disables expiry;
	// entries then live until evicted or deleted.
	TTL time.Duration
}

// MemoryStore is a bounded in-memory attribute cache with LRU eviction and
// optional TTL expiry. All operations are protected by a mutex for safe
// concurrent use.
type MemoryStore struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	clock      func() time.Time

	cache   map[namespace.ObjectID]*memoryEntry
	lruList *list.List

	hits   uint64
	misses uint64
}

type memoryEntry struct {
	meta      *namespace.ObjectMeta
	timestamp time.Time
	lruNode   *list.Element
}

// NewMemoryStore creates an in-memory attribute cache.
func NewMemoryStore(config MemoryConfig) *MemoryStore {
	maxEntries := config.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &MemoryStore{
		maxEntries: maxEntries,
		ttl:        config.TTL,
		clock:      time.Now,
		cache:      make(map[namespace.ObjectID]*memoryEntry),
		lruList:    list.New(),
	}
}

// Get returns the cached metadata for id, or (nil, nil) when the entry is
// absent or expired. A hit refreshes the entry's LRU position.
func (s *MemoryStore) Get(_ context.Context, id namespace.ObjectID) (*namespace.ObjectMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache[id]
	if !ok {
		s.misses++
		return nil, nil
	}
	if s.ttl > 0 && s.clock().Sub(entry.timestamp) > s.ttl {
		s.lruList.Remove(entry.lruNode)
		delete(s.cache, id)
		s.misses++
		return nil, nil
	}
	s.lruList.MoveToFront(entry.lruNode)
	s.hits++
	return entry.meta.Clone(), nil
}

// Put stores a copy of meta, evicting the least recently used entry when
// the cache is full.
func (s *MemoryStore) Put(_ context.Context, meta *namespace.ObjectMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.cache[meta.ID]; ok {
		existing.meta = meta.Clone()
		existing.timestamp = s.clock()
		s.lruList.MoveToFront(existing.lruNode)
		return nil
	}

	if len(s.cache) >= s.maxEntries {
		s.evictOldest()
	}

	entry := &memoryEntry{
		meta:      meta.Clone(),
		timestamp: s.clock(),
	}
	entry.lruNode = s.lruList.PushFront(meta.ID)
	s.cache[meta.ID] = entry
	return nil
}

// Delete removes the entry for id, if present.
func (s *MemoryStore) Delete(_ context.Context, id namespace.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache[id]
	if !ok {
		return nil
	}
	s.lruList.Remove(entry.lruNode)
	delete(s.cache, id)
	return nil
}

// Close releases the cache contents.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[namespace.ObjectID]*memoryEntry)
	s.lruList = list.New()
	return nil
}

// Stats returns hit/miss counters and the current entry count.
func (s *MemoryStore) Stats() (hits, misses uint64, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses, len(s.cache)
}

// evictOldest removes the least recently used entry. Must be called with
// s.mu held.
func (s *MemoryStore) evictOldest() {
	oldest := s.lruList.Back()
	if oldest == nil {
		return
	}
	s.lruList.Remove(oldest)
	delete(s.cache, oldest.Value.(namespace.ObjectID))
}
