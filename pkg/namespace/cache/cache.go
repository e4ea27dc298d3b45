// Package cache implements the client-side name cache of the namespace
// layer: an arena of reference-counted nodes, each binding one name under a
// parent directory to a remote object (or recording its confirmed absence),
// together with the lease bookkeeping that decides when a cached binding may
// still be trusted without asking the metadata service again.
//
// The store is constructed per mount session and torn down with it; nothing
// in this package touches process-global state. All public methods are safe
// for concurrent use.
package cache

import (
	"sync"
	"time"

	"github.com/driftfs/driftfs/pkg/namespace"
)

// Store is the cache of name-to-object bindings for one mount session.
//
// Nodes live in an arena and are addressed by NodeID. Every NodeID handed
// out by a Store method carries a reference the caller must give back with
// Release; internally the parent's name index holds one reference on each
// child and each child holds one on its parent, so a node is freed only when
// it is unhashed and no caller or relative still points at it.
type Store struct {
	mu    sync.RWMutex
	nodes []*node
	free  []NodeID
	root  NodeID

	clock func() time.Time

	stats Stats
}

// Stats counts cache activity since the store was created.
type Stats struct {
	Hits          uint64 // lookups answered from a valid cached binding
	Misses        uint64 // lookups with no usable cached binding
	Invalidations uint64 // bindings dropped because revalidation failed
	Drops         uint64 // bindings dropped explicitly around mutations
	Nodes         uint64 // live nodes currently in the arena
}

// New creates an empty store. clock supplies the current time for lease
// checks; nil means time.Now.
func New(clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{root: NoNode, clock: clock}
}

// SetRoot installs the mount root's metadata and returns the root node.
// The returned reference belongs to the store itself and stays live for the
// store's lifetime; callers do not release it. Calling SetRoot twice
// replaces the root metadata but keeps the node.
func (s *Store) SetRoot(meta *namespace.ObjectMeta) NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.root == NoNode {
		n := s.alloc()
		n.parent = NoNode
		n.name = ""
		// The store's own reference keeps the root alive for the session.
		n.refs = 1
		s.root = n.id
	}
	s.setMeta(s.nodes[s.root], meta.Clone())
	return s.root
}

// Root returns the mount root node, or NoNode before SetRoot. No reference
// is taken; the root never goes away while the store lives.
func (s *Store) Root() NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// Lookup finds the cached binding for name under parent and revalidates it.
//
// A valid binding is returned with a reference taken, positive or negative
// alike; the caller distinguishes the two via Object. A binding that fails
// revalidation is unhashed on the spot and reported as a miss, forcing the
// caller through full resolution.
func (s *Store) Lookup(parent NodeID, name string) (NodeID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.get(parent)
	id, ok := p.children[name]
	if !ok {
		s.stats.Misses++
		return NoNode, false
	}
	n := s.nodes[id]
	if !s.valid(n) {
		s.stats.Invalidations++
		s.stats.Misses++
		s.unhash(n)
		return NoNode, false
	}
	s.stats.Hits++
	n.refs++
	return id, true
}

// Splice installs the authoritative binding for name under parent, creating
// the node or replacing what was cached. meta nil records a confirmed-absent
// name. dirVersion is the parent directory's version the binding was
// validated against; lease optionally grants the name its own validity
// token. The returned node carries a reference for the caller.
func (s *Store) Splice(parent NodeID, name string, meta *namespace.ObjectMeta, lease *namespace.NameLease, dirVersion uint64) NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.get(parent)
	id, ok := p.children[name]
	var n *node
	if ok {
		n = s.nodes[id]
	} else {
		n = s.alloc()
		n.parent = parent
		n.name = name
		s.nodes[parent].refs++
		s.attach(p, n)
	}

	n.meta = meta.Clone()
	if meta != nil {
		n.obj = meta.ID
	} else {
		n.obj = namespace.NoObject
	}
	n.validatedVersion = dirVersion
	if lease != nil {
		n.nameLease = lease.Expiry
	} else {
		n.nameLease = time.Time{}
	}

	n.refs++
	return n.id
}

// PeekChild returns the cached binding for name under parent without
// revalidating it, with a reference taken. Reconciliation uses this to
// inspect or move a binding whose lease state is already known to be moot.
func (s *Store) PeekChild(parent NodeID, name string) (NodeID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.get(parent)
	id, ok := p.children[name]
	if !ok {
		return NoNode, false
	}
	s.nodes[id].refs++
	return id, true
}

// DropChild unhashes the cached binding for name under parent, if any.
func (s *Store) DropChild(parent NodeID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.get(parent)
	if id, ok := p.children[name]; ok {
		s.stats.Drops++
		s.unhash(s.nodes[id])
	}
}

// Ref takes an additional reference on a node.
func (s *Store) Ref(id NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).refs++
}

// Release gives back one reference. The node is freed once it is unhashed
// and the last reference is gone; freeing cascades up the parent chain.
func (s *Store) Release(id NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release(s.get(id))
}

// Drop unhashes the binding so future lookups miss it. The node itself
// survives until its references drain; callers holding it may still read
// its fields.
func (s *Store) Drop(id NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.get(id)
	if n.hashed && n.id != s.root {
		s.stats.Drops++
		s.unhash(n)
	}
}

// Move rebinds src under newParent as newName, dropping whatever binding
// occupied the destination. This is the rename splice: the moved node keeps
// its object and metadata, and its validation is reset against dirVersion.
func (s *Store) Move(src, newParent NodeID, newName string, dirVersion uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.get(src)
	np := s.get(newParent)

	if old, ok := np.children[newName]; ok && old != src {
		s.stats.Drops++
		s.unhash(s.nodes[old])
	}
	if n.hashed {
		s.detach(n)
	}

	// Hold the node across the re-parent so the detach cannot free it.
	n.refs++
	s.releaseParent(n)
	n.parent = newParent
	n.name = newName
	np.refs++
	s.attach(np, n)
	n.validatedVersion = dirVersion
	n.nameLease = time.Time{}
	s.release(n)
}

// Meta returns a copy of the node's cached object metadata, nil for a
// negative binding.
func (s *Store) Meta(id NodeID) *namespace.ObjectMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(id).meta.Clone()
}

// Object returns the object bound to the node, NoObject for a negative
// binding.
func (s *Store) Object(id NodeID) namespace.ObjectID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(id).obj
}

// Name returns the name the node is bound under.
func (s *Store) Name(id NodeID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(id).name
}

// Parent returns the node's parent, NoNode for the root. No reference is
// taken.
func (s *Store) Parent(id NodeID) NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(id).parent
}

// UpdateMeta replaces the node's cached object metadata in place, keeping
// the binding and its validation state. Used to refresh a directory's
// version, lease, and fragment tree from a reply, or to prime attribute
// state from listing entries.
func (s *Store) UpdateMeta(id NodeID, meta *namespace.ObjectMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setMeta(s.get(id), meta.Clone())
}

// Stats returns a snapshot of the activity counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// setMeta installs meta on n. When n is a directory whose version moves,
// every cached child's name lease is cleared: a version bump means the
// directory's contents changed and per-name tokens granted before the
// change no longer vouch for anything.
func (s *Store) setMeta(n *node, meta *namespace.ObjectMeta) {
	if n.meta != nil && meta != nil && n.meta.IsDir() && meta.Version != n.meta.Version {
		for _, cid := range n.children {
			s.nodes[cid].nameLease = time.Time{}
		}
	}
	n.meta = meta
	if meta != nil {
		n.obj = meta.ID
	}
}
