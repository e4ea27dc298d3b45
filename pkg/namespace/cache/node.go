package cache

import (
	"fmt"
	"time"

	"github.com/driftfs/driftfs/pkg/namespace"
)

// NodeID addresses a node in the store's arena. IDs are stable for a node's
// lifetime; a freed slot may be reused once every reference is gone.
type NodeID int32

// NoNode is the invalid NodeID.
const NoNode NodeID = -1

// node is one cached name binding. All fields are guarded by the store
// mutex.
type node struct {
	id   NodeID
	refs int

	parent NodeID // NoNode for the root
	name   string
	hashed bool // present in parent's name index

	// obj is the bound object, NoObject for a confirmed-absent name.
	obj  namespace.ObjectID
	meta *namespace.ObjectMeta

	// validatedVersion is the parent directory's version when this binding
	// was last validated. nameLease, when set, vouches for the binding on
	// its own regardless of the parent's state.
	validatedVersion uint64
	nameLease        time.Time

	// children indexes this node's cached bindings by name. Populated for
	// directories only.
	children map[string]NodeID
}

func (s *Store) get(id NodeID) *node {
	if id < 0 || int(id) >= len(s.nodes) || s.nodes[id] == nil {
		panic(fmt.Sprintf("namespace/cache: dead node id %d", id))
	}
	return s.nodes[id]
}

func (s *Store) alloc() *node {
	var n *node
	if k := len(s.free); k > 0 {
		id := s.free[k-1]
		s.free = s.free[:k-1]
		n = &node{id: id}
		s.nodes[id] = n
	} else {
		n = &node{id: NodeID(len(s.nodes))}
		s.nodes = append(s.nodes, n)
	}
	n.parent = NoNode
	s.stats.Nodes++
	return n
}

// attach hashes n into p's name index. The index holds one reference on n.
func (s *Store) attach(p, n *node) {
	if p.children == nil {
		p.children = make(map[string]NodeID)
	}
	p.children[n.name] = n.id
	n.hashed = true
	n.refs++
}

// detach removes n from its parent's name index and gives back the index's
// reference. n keeps its parent link until it is freed or moved.
func (s *Store) detach(n *node) {
	p := s.nodes[n.parent]
	delete(p.children, n.name)
	n.hashed = false
	s.release(n)
}

// unhash makes n invisible to future lookups.
func (s *Store) unhash(n *node) {
	if n.hashed && n.parent != NoNode {
		s.detach(n)
	}
}

// release drops one reference and frees the node when none remain. A node
// being freed must have released all its children already; a populated name
// index at zero references means the reference discipline was violated
// somewhere, which is a logic bug worth crashing on.
func (s *Store) release(n *node) {
	if n.refs <= 0 {
		panic(fmt.Sprintf("namespace/cache: release of node %d with %d refs", n.id, n.refs))
	}
	n.refs--
	if n.refs > 0 {
		return
	}
	if n.hashed {
		panic(fmt.Sprintf("namespace/cache: node %d freed while hashed", n.id))
	}
	if len(n.children) != 0 {
		panic(fmt.Sprintf("namespace/cache: node %d freed with %d children", n.id, len(n.children)))
	}
	s.nodes[n.id] = nil
	s.free = append(s.free, n.id)
	s.stats.Nodes--
	s.releaseParent(n)
}

// releaseParent gives back the reference n holds on its parent.
func (s *Store) releaseParent(n *node) {
	if n.parent != NoNode {
		s.release(s.nodes[n.parent])
		n.parent = NoNode
	}
}
