package memory

import (
	"strings"

	"github.com/driftfs/driftfs/pkg/namespace"
)

// Seeding helpers. These edit the served tree directly, without going
// through the request protocol, so tests and the demo can stand up a
// namespace before any client connects. Paths are '/'-separated and
// relative to the root.

// MkdirAll creates the directory at path along with any missing parents
// and returns its object id.
func (s *Server) MkdirAll(path string) (namespace.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := s.objects[s.rootID]
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		if childID, ok := o.children[part]; ok {
			child := s.objects[childID]
			if child.meta.Type != namespace.FileTypeDirectory {
				return namespace.NoObject, &namespace.Error{
					Code:    namespace.ErrNotDirectory,
					Message: "path component is not a directory",
					Path:    path,
				}
			}
			o = child
			continue
		}
		child := s.newObject(namespace.FileTypeDirectory, 0o755)
		child.parent = o.meta.ID
		o.children[part] = child.meta.ID
		o.meta.Nlink++
		s.bump(o)
		o = child
	}
	return o.meta.ID, nil
}

// CreateFile creates a regular file at path with the given size, creating
// missing parent directories.
func (s *Server) CreateFile(path string, size uint64) (namespace.ObjectID, error) {
	dir, name := splitPath(path)
	parentID, err := s.MkdirAll(dir)
	if err != nil {
		return namespace.NoObject, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent := s.objects[parentID]
	if _, ok := parent.children[name]; ok {
		return namespace.NoObject, &namespace.Error{
			Code:    namespace.ErrExist,
			Message: "entry already exists",
			Path:    path,
		}
	}
	o := s.newObject(namespace.FileTypeRegular, 0o644)
	o.meta.Size = size
	o.parent = parent.meta.ID
	parent.children[name] = o.meta.ID
	s.bump(parent)
	return o.meta.ID, nil
}

// SplitDir splits the directory at path into 2^bits fragments. Zero bits
// merges it back into a single fragment. The directory's version advances,
// as a real split would move entries between fragment subtrees.
func (s *Server) SplitDir(path string, bits uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.resolve(s.rootID, path)
	if err != nil {
		return err
	}
	if o.meta.Type != namespace.FileTypeDirectory {
		return &namespace.Error{
			Code:    namespace.ErrNotDirectory,
			Message: "split target is not a directory",
			Path:    path,
		}
	}
	o.fragBits = bits
	s.bump(o)
	return nil
}
