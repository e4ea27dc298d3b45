// Package namespace defines the shared vocabulary of the DriftFS client
// namespace layer: object metadata as cached from the metadata service
// (MDS), directory fragments and listing cursors, and the request/reply
// protocol types exchanged with the MDS through a pluggable transport.
//
// The package is deliberately free of caching or I/O logic; the cache engine
// lives in namespace/cache and the operation layer in namespace/client.
package namespace

import "time"

// ObjectID identifies one file or directory in the remote filesystem.
// The metadata service allocates these; the client never invents one.
type ObjectID uint64

// NoObject is the zero ObjectID, used for unbound (negative) name entries.
const NoObject ObjectID = 0

// FileType classifies a filesystem object.
type FileType int

const (
	FileTypeRegular FileType = iota
	FileTypeDirectory
	FileTypeSymlink
	FileTypeBlockDevice
	FileTypeCharDevice
	FileTypeSocket
	FileTypeFIFO
)

func (t FileType) String() string {
	switch t {
	case FileTypeRegular:
		return "regular"
	case FileTypeDirectory:
		return "directory"
	case FileTypeSymlink:
		return "symlink"
	case FileTypeBlockDevice:
		return "block-device"
	case FileTypeCharDevice:
		return "char-device"
	case FileTypeSocket:
		return "socket"
	case FileTypeFIFO:
		return "fifo"
	default:
		return "unknown"
	}
}

// DirStat carries the aggregated statistics the MDS maintains per directory:
// immediate entry counts plus recursive totals over the whole subtree.
type DirStat struct {
	Entries uint64 `json:"entries"`
	Files   uint64 `json:"files"`
	Subdirs uint64 `json:"subdirs"`

	// Recursive totals, maintained lazily by the MDS.
	REntries uint64    `json:"rentries"`
	RFiles   uint64    `json:"rfiles"`
	RSubdirs uint64    `json:"rsubdirs"`
	RBytes   uint64    `json:"rbytes"`
	RCtime   time.Time `json:"rctime"`
}

// ObjectMeta is the client's cached copy of one object's remote metadata.
//
// For directories, Version is the monotonic content clock the MDS bumps on
// every entry mutation, and LeaseExpiry bounds how long the client may trust
// names validated against that Version without asking again. Frags lists the
// leaves of the directory's fragment tree; an empty list means the directory
// is a single fragment.
type ObjectMeta struct {
	ID    ObjectID `json:"id"`
	Type  FileType `json:"type"`
	Mode  uint32   `json:"mode"`
	Nlink uint32   `json:"nlink"`
	UID   uint32   `json:"uid"`
	GID   uint32   `json:"gid"`
	Size  uint64   `json:"size"`

	Atime time.Time `json:"atime"`
	Mtime time.Time `json:"mtime"`
	Ctime time.Time `json:"ctime"`

	// SymlinkTarget is set for FileTypeSymlink only.
	SymlinkTarget string `json:"symlink_target,omitempty"`

	// Directory-only fields.
	Version     uint64    `json:"version,omitempty"`
	LeaseExpiry time.Time `json:"lease_expiry,omitzero"`
	Frags       []Frag    `json:"frags,omitempty"`
	DirStat     DirStat   `json:"dir_stat,omitzero"`
}

// IsDir reports whether the object is a directory.
func (m *ObjectMeta) IsDir() bool {
	return m.Type == FileTypeDirectory
}

// ContentLeaseValid reports whether the directory-content lease is still
// live at the given instant. Always false for non-directories.
func (m *ObjectMeta) ContentLeaseValid(now time.Time) bool {
	return m.IsDir() && now.Before(m.LeaseExpiry)
}

// Clone returns a deep copy, safe for the caller to mutate.
func (m *ObjectMeta) Clone() *ObjectMeta {
	if m == nil {
		return nil
	}
	out := *m
	if m.Frags != nil {
		out.Frags = append([]Frag(nil), m.Frags...)
	}
	return &out
}

// DirEntry is one name in a directory listing reply.
type DirEntry struct {
	Name string
	ID   ObjectID
	Type FileType

	// Meta optionally carries the entry's full metadata so the client can
	// prime its attribute cache from the listing.
	Meta *ObjectMeta
}
