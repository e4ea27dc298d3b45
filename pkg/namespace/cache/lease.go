package cache

import "time"

// valid is the revalidation check. A binding may be trusted when the parent
// directory's cached version still matches the version recorded at the
// binding's last validation and the parent's content lease is live, or when
// the binding carries its own unexpired name lease. Purely local; never
// contacts the metadata service.
func (s *Store) valid(n *node) bool {
	if n.id == s.root {
		return true
	}
	now := s.clock()
	if n.parent != NoNode {
		p := s.nodes[n.parent]
		if p.meta != nil && p.meta.Version == n.validatedVersion && p.meta.ContentLeaseValid(now) {
			return true
		}
	}
	return !n.nameLease.IsZero() && now.Before(n.nameLease)
}

// Valid reports whether the binding would currently pass revalidation. Read
// only; unlike Lookup it never unhashes the node.
func (s *Store) Valid(id NodeID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valid(s.get(id))
}

// InvalidateDir expires the directory's content lease so no child binding
// can validate through it. Issued before sending a mutation, so a
// concurrent local lookup cannot be answered from state the mutation is
// about to make stale.
func (s *Store) InvalidateDir(id NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.get(id)
	if n.meta != nil {
		n.meta.LeaseExpiry = time.Time{}
	}
}

// DropNameLease revokes the per-name lease on the cached binding of name
// under parent, if one is cached. The binding itself stays until
// revalidation or an explicit drop removes it.
func (s *Store) DropNameLease(parent NodeID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.get(parent)
	if id, ok := p.children[name]; ok {
		s.nodes[id].nameLease = time.Time{}
	}
}
