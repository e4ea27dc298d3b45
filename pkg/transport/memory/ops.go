package memory

import (
	"sort"
	"strings"

	"github.com/driftfs/driftfs/pkg/namespace"
)

// handle serves one request. Called with s.mu held.
func (s *Server) handle(req *namespace.Request) (*namespace.Reply, error) {
	switch req.Op {
	case namespace.OpLookup:
		return s.lookup(req)
	case namespace.OpReaddir:
		return s.readdir(req)
	case namespace.OpMknod, namespace.OpMkdir, namespace.OpSymlink:
		return s.create(req)
	case namespace.OpLink:
		return s.link(req)
	case namespace.OpUnlink, namespace.OpRmdir:
		return s.remove(req)
	case namespace.OpRename:
		return s.rename(req)
	default:
		return nil, &namespace.Error{
			Code:    namespace.ErrInvalidArgument,
			Message: "unsupported operation " + req.Op.String(),
		}
	}
}

func (s *Server) lookup(req *namespace.Request) (*namespace.Reply, error) {
	// An empty path addresses the base object itself; this is how a mount
	// fetches the root's metadata.
	if req.Path == "" {
		o, err := s.get(req.Base)
		if err != nil {
			return nil, err
		}
		return &namespace.Reply{Trace: &namespace.Trace{
			Target:    s.publicMeta(o),
			NameLease: s.grantNameLease(),
		}}, nil
	}

	parent, name, err := s.resolveParent(req.Base, req.Path)
	if err != nil {
		return nil, err
	}
	childID, ok := parent.children[name]
	if !ok {
		reply := &namespace.Reply{Trace: &namespace.Trace{
			Dir:  s.publicMeta(parent),
			Name: name,
		}}
		return reply, &namespace.Error{
			Code:    namespace.ErrNotFound,
			Message: "no such entry",
			Path:    req.Path,
		}
	}
	return &namespace.Reply{Trace: &namespace.Trace{
		Dir:       s.publicMeta(parent),
		Name:      name,
		Target:    s.publicMeta(s.objects[childID]),
		NameLease: s.grantNameLease(),
	}}, nil
}

func (s *Server) readdir(req *namespace.Request) (*namespace.Reply, error) {
	dir, err := s.resolve(req.Base, req.Path)
	if err != nil {
		return nil, err
	}
	if dir.meta.Type != namespace.FileTypeDirectory {
		return nil, &namespace.Error{
			Code:    namespace.ErrNotDirectory,
			Message: "listing target is not a directory",
			Path:    req.Path,
		}
	}

	// Resolve the requested fragment against the directory's current split
	// and enumerate every name whose hash falls inside it.
	dirMeta := s.publicMeta(dir)
	leaf := namespace.ChooseFrag(dirMeta, req.Frag)
	names := make([]string, 0, len(dir.children))
	for name := range dir.children {
		if leaf.Contains(namespace.HashName(name)) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	entries := make([]namespace.DirEntry, 0, len(names))
	for _, name := range names {
		child := s.objects[dir.children[name]]
		entries = append(entries, namespace.DirEntry{
			Name: name,
			ID:   child.meta.ID,
			Type: child.meta.Type,
			Meta: s.publicMeta(child),
		})
	}
	return &namespace.Reply{Frag: leaf, Entries: entries, Dir: dirMeta}, nil
}

func (s *Server) create(req *namespace.Request) (*namespace.Reply, error) {
	parent, name, err := s.resolveParent(req.Base, req.Path)
	if err != nil {
		return nil, err
	}
	if _, ok := parent.children[name]; ok {
		return nil, &namespace.Error{
			Code:    namespace.ErrExist,
			Message: "entry already exists",
			Path:    req.Path,
		}
	}

	var o *object
	switch req.Op {
	case namespace.OpMkdir:
		o = s.newObject(namespace.FileTypeDirectory, req.Mode)
	case namespace.OpSymlink:
		o = s.newObject(namespace.FileTypeSymlink, req.Mode)
		o.meta.SymlinkTarget = req.SymlinkTarget
		o.meta.Size = uint64(len(req.SymlinkTarget))
	default:
		o = s.newObject(mknodType(req.Mode), req.Mode&0o7777)
	}
	o.parent = parent.meta.ID
	parent.children[name] = o.meta.ID
	if o.meta.Type == namespace.FileTypeDirectory {
		parent.meta.Nlink++
	}
	s.bump(parent)

	return &namespace.Reply{Trace: &namespace.Trace{
		Dir:       s.publicMeta(parent),
		Name:      name,
		Target:    s.publicMeta(o),
		NameLease: s.grantNameLease(),
	}}, nil
}

// mknodType maps the format bits of a mode to a file type.
func mknodType(mode uint32) namespace.FileType {
	switch mode & 0o170000 {
	case 0o140000:
		return namespace.FileTypeSocket
	case 0o060000:
		return namespace.FileTypeBlockDevice
	case 0o020000:
		return namespace.FileTypeCharDevice
	case 0o010000:
		return namespace.FileTypeFIFO
	default:
		return namespace.FileTypeRegular
	}
}

func (s *Server) link(req *namespace.Request) (*namespace.Reply, error) {
	target, err := s.resolve(req.Base2, req.Path2)
	if err != nil {
		return nil, err
	}
	if target.meta.Type == namespace.FileTypeDirectory {
		return nil, &namespace.Error{
			Code:    namespace.ErrIsDirectory,
			Message: "cannot hard-link a directory",
			Path:    req.Path2,
		}
	}
	parent, name, err := s.resolveParent(req.Base, req.Path)
	if err != nil {
		return nil, err
	}
	if _, ok := parent.children[name]; ok {
		return nil, &namespace.Error{
			Code:    namespace.ErrExist,
			Message: "entry already exists",
			Path:    req.Path,
		}
	}
	parent.children[name] = target.meta.ID
	target.meta.Nlink++
	s.bump(parent)

	return &namespace.Reply{Trace: &namespace.Trace{
		Dir:       s.publicMeta(parent),
		Name:      name,
		Target:    s.publicMeta(target),
		NameLease: s.grantNameLease(),
	}}, nil
}

func (s *Server) remove(req *namespace.Request) (*namespace.Reply, error) {
	parent, name, err := s.resolveParent(req.Base, req.Path)
	if err != nil {
		return nil, err
	}
	childID, ok := parent.children[name]
	if !ok {
		return nil, &namespace.Error{
			Code:    namespace.ErrNotFound,
			Message: "no such entry",
			Path:    req.Path,
		}
	}
	child := s.objects[childID]

	if req.Op == namespace.OpRmdir {
		if child.meta.Type != namespace.FileTypeDirectory {
			return nil, &namespace.Error{
				Code:    namespace.ErrNotDirectory,
				Message: "rmdir target is not a directory",
				Path:    req.Path,
			}
		}
		if len(child.children) != 0 {
			return nil, &namespace.Error{
				Code:    namespace.ErrNotEmpty,
				Message: "directory not empty",
				Path:    req.Path,
			}
		}
		delete(s.objects, childID)
		parent.meta.Nlink--
	} else {
		if child.meta.Type == namespace.FileTypeDirectory {
			return nil, &namespace.Error{
				Code:    namespace.ErrIsDirectory,
				Message: "unlink target is a directory",
				Path:    req.Path,
			}
		}
		child.meta.Nlink--
		if child.meta.Nlink == 0 {
			delete(s.objects, childID)
		}
	}
	delete(parent.children, name)
	s.bump(parent)

	return &namespace.Reply{Trace: &namespace.Trace{
		Dir:  s.publicMeta(parent),
		Name: name,
	}}, nil
}

func (s *Server) rename(req *namespace.Request) (*namespace.Reply, error) {
	srcParent, srcName, err := s.resolveParent(req.Base, req.Path)
	if err != nil {
		return nil, err
	}
	srcID, ok := srcParent.children[srcName]
	if !ok {
		return nil, &namespace.Error{
			Code:    namespace.ErrNotFound,
			Message: "no such entry",
			Path:    req.Path,
		}
	}
	src := s.objects[srcID]

	dstParent, dstName, err := s.resolveParent(req.Base2, req.Path2)
	if err != nil {
		return nil, err
	}
	if dstID, ok := dstParent.children[dstName]; ok && dstID != srcID {
		dst := s.objects[dstID]
		if dst.meta.Type == namespace.FileTypeDirectory {
			if len(dst.children) != 0 {
				return nil, &namespace.Error{
					Code:    namespace.ErrNotEmpty,
					Message: "rename destination not empty",
					Path:    req.Path2,
				}
			}
			dstParent.meta.Nlink--
			delete(s.objects, dstID)
		} else {
			dst.meta.Nlink--
			if dst.meta.Nlink == 0 {
				delete(s.objects, dstID)
			}
		}
	}

	delete(srcParent.children, srcName)
	dstParent.children[dstName] = srcID
	src.parent = dstParent.meta.ID
	if src.meta.Type == namespace.FileTypeDirectory && srcParent != dstParent {
		srcParent.meta.Nlink--
		dstParent.meta.Nlink++
	}
	s.bump(srcParent)
	if dstParent != srcParent {
		s.bump(dstParent)
	}

	return &namespace.Reply{Trace: &namespace.Trace{
		Dir:       s.publicMeta(dstParent),
		Name:      dstName,
		Target:    s.publicMeta(src),
		NameLease: s.grantNameLease(),
	}}, nil
}

// get fetches an object by id. The zero id addresses the root, which is
// how a client with no cached state mounts.
func (s *Server) get(id namespace.ObjectID) (*object, error) {
	if id == namespace.NoObject {
		id = s.rootID
	}
	o, ok := s.objects[id]
	if !ok {
		return nil, &namespace.Error{
			Code:    namespace.ErrStaleMetadata,
			Message: "request base refers to a dead object",
		}
	}
	return o, nil
}

// resolve walks a relative path from base. An empty path is base itself.
func (s *Server) resolve(base namespace.ObjectID, path string) (*object, error) {
	o, err := s.get(base)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return o, nil
	}
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		if o.meta.Type != namespace.FileTypeDirectory {
			return nil, &namespace.Error{
				Code:    namespace.ErrNotDirectory,
				Message: "path component is not a directory",
				Path:    path,
			}
		}
		childID, ok := o.children[part]
		if !ok {
			return nil, &namespace.Error{
				Code:    namespace.ErrNotFound,
				Message: "no such entry",
				Path:    path,
			}
		}
		o = s.objects[childID]
	}
	return o, nil
}

// resolveParent resolves the directory holding the path's last component.
func (s *Server) resolveParent(base namespace.ObjectID, path string) (*object, string, error) {
	dir, name := splitPath(path)
	parent, err := s.resolve(base, dir)
	if err != nil {
		return nil, "", err
	}
	if parent.meta.Type != namespace.FileTypeDirectory {
		return nil, "", &namespace.Error{
			Code:    namespace.ErrNotDirectory,
			Message: "parent is not a directory",
			Path:    path,
		}
	}
	return parent, name, nil
}

func splitPath(path string) (dir, name string) {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return "", path
}

// bump advances a directory's version clock after a content mutation.
func (s *Server) bump(o *object) {
	now := s.config.Clock()
	o.meta.Version++
	o.meta.Mtime = now
	o.meta.Ctime = now
}

// publicMeta builds the metadata view a reply carries: a clone with a fresh
// content lease, the fragment tree leaves, and aggregated statistics for
// directories.
func (s *Server) publicMeta(o *object) *namespace.ObjectMeta {
	meta := o.meta.Clone()
	if o.meta.Type != namespace.FileTypeDirectory {
		return meta
	}
	meta.LeaseExpiry = s.config.Clock().Add(s.config.LeaseTTL)
	meta.Frags = fragLeaves(o.fragBits)
	meta.DirStat = s.dirStat(o)
	return meta
}

// fragLeaves enumerates the leaves of a uniform split at the given depth.
// Depth zero is a single root fragment, reported as no tree at all.
func fragLeaves(bits uint32) []namespace.Frag {
	if bits == 0 {
		return nil
	}
	leaves := make([]namespace.Frag, 0, 1<<bits)
	f := namespace.MakeFrag(bits, 0)
	for {
		leaves = append(leaves, f)
		if f.IsComplete() {
			return leaves
		}
		f = f.Next()
	}
}

// dirStat aggregates immediate and recursive statistics for a directory.
func (s *Server) dirStat(o *object) namespace.DirStat {
	stat := namespace.DirStat{
		Entries: uint64(len(o.children)),
		RCtime:  o.meta.Ctime,
	}
	for _, id := range o.children {
		child := s.objects[id]
		if child.meta.Type == namespace.FileTypeDirectory {
			stat.Subdirs++
			sub := s.dirStat(child)
			stat.REntries += sub.REntries
			stat.RFiles += sub.RFiles
			stat.RSubdirs += sub.RSubdirs
			stat.RBytes += sub.RBytes
			if sub.RCtime.After(stat.RCtime) {
				stat.RCtime = sub.RCtime
			}
		} else {
			stat.Files++
			stat.RFiles++
			stat.RBytes += child.meta.Size
		}
		stat.REntries++
		if child.meta.Ctime.After(stat.RCtime) {
			stat.RCtime = child.meta.Ctime
		}
	}
	stat.RSubdirs += stat.Subdirs
	return stat
}

// grantNameLease issues a per-name lease when the server is configured to
// grant them.
func (s *Server) grantNameLease() *namespace.NameLease {
	if s.config.NameLeaseTTL == 0 {
		return nil
	}
	return &namespace.NameLease{Expiry: s.config.Clock().Add(s.config.NameLeaseTTL)}
}
