package cache

import (
	"fmt"

	"github.com/driftfs/driftfs/pkg/namespace"
)

// DefaultPathRetryLimit bounds the path construction retry loop when the
// caller does not configure one.
const DefaultPathRetryLimit = 8

// BuildPath reconstructs the protocol address of a cached node: the deepest
// node on the chain, the leaf itself included, whose positive binding can no
// longer be locally validated (or the root) becomes the base object, and the
// names below it, joined root to leaf with '/', become the path relative to
// that base. A name enters the path only while its binding still validates
// or is a negative placeholder awaiting resolution; a positively bound node
// that fails revalidation is instead addressed by its object id, which does
// not depend on the possibly stale name.
//
// Construction is two passes over the parent chain: one to pick the base
// and measure the total length, one to fill the buffer from the tail
// backward. A lease can expire between the passes, shifting the base; the
// fill pass detects this and restarts from scratch. Rare but possible under
// a concurrently renamed ancestor, so the loop is bounded: past retryLimit
// attempts (<=0 means DefaultPathRetryLimit) it returns ErrRetryExhausted,
// a transient condition safe to retry at a higher level.
//
// A parent chain that does not reach the root, or exceeds the arena size,
// is a broken invariant and returns ErrCorruptNode.
func (s *Store) BuildPath(leaf NodeID, retryLimit int) (namespace.ObjectID, string, error) {
	if retryLimit <= 0 {
		retryLimit = DefaultPathRetryLimit
	}
	for attempt := 0; attempt < retryLimit; attempt++ {
		base, path, err := s.buildPathOnce(leaf)
		if err == errPathMismatch {
			continue
		}
		return base, path, err
	}
	return namespace.NoObject, "", &namespace.Error{
		Code:    namespace.ErrRetryExhausted,
		Message: "path construction kept racing lease changes",
	}
}

// errPathMismatch is the internal restart signal for BuildPath.
var errPathMismatch = &namespace.Error{Code: namespace.ErrRetryExhausted, Message: "path mismatch"}

func (s *Store) buildPathOnce(leaf NodeID) (namespace.ObjectID, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.get(leaf)

	// Pass 1: walk toward the root and total up the component lengths. A
	// positively bound node that no longer validates stops the walk and
	// anchors the address. Negative bindings have no object to anchor on;
	// their names go into the path and the walk continues upward.
	stop := NoNode
	total := 0
	steps := 0
	for cur := leaf; ; {
		if cur == s.root {
			stop = cur
			break
		}
		node := s.nodes[cur]
		if node.obj != namespace.NoObject && !s.valid(node) {
			stop = cur
			break
		}
		if total > 0 {
			total++
		}
		total += len(node.name)
		if node.parent == NoNode || s.nodes[node.parent] == nil {
			return namespace.NoObject, "", s.corrupt(cur, "parent chain ends before root")
		}
		cur = node.parent
		if steps++; steps > len(s.nodes) {
			return namespace.NoObject, "", s.corrupt(cur, "parent chain cycles")
		}
	}

	base := s.nodes[stop]
	if stop == leaf {
		return base.obj, "", nil
	}

	// Pass 2: fill from the tail backward. Validity only decays while we
	// hold the lock (leases expire, nothing revalidates), so a node turning
	// invalid mid-fill is the one race to detect.
	buf := make([]byte, total)
	pos := total
	for cur := leaf; cur != stop; {
		node := s.nodes[cur]
		if node.obj != namespace.NoObject && !s.valid(node) {
			return namespace.NoObject, "", errPathMismatch
		}
		if pos < len(node.name) {
			return namespace.NoObject, "", errPathMismatch
		}
		pos -= len(node.name)
		copy(buf[pos:], node.name)
		cur = node.parent
		if cur != stop {
			if pos == 0 {
				return namespace.NoObject, "", errPathMismatch
			}
			pos--
			buf[pos] = '/'
		}
	}
	if pos != 0 {
		return namespace.NoObject, "", errPathMismatch
	}
	return base.obj, string(buf), nil
}

func (s *Store) corrupt(id NodeID, what string) error {
	return &namespace.Error{
		Code:    namespace.ErrCorruptNode,
		Message: fmt.Sprintf("node %d: %s", id, what),
	}
}
