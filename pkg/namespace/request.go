package namespace

import (
	"context"
	"time"
)

// Op is the kind of a metadata request.
type Op int

const (
	OpLookup Op = iota
	OpReaddir
	OpMknod
	OpSymlink
	OpMkdir
	OpLink
	OpUnlink
	OpRmdir
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpLookup:
		return "lookup"
	case OpReaddir:
		return "readdir"
	case OpMknod:
		return "mknod"
	case OpSymlink:
		return "symlink"
	case OpMkdir:
		return "mkdir"
	case OpLink:
		return "link"
	case OpUnlink:
		return "unlink"
	case OpRmdir:
		return "rmdir"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Affinity hints which MDS instance should serve a request.
type Affinity int

const (
	// AffinityAny lets any replica serve the request (pure reads).
	AffinityAny Affinity = iota

	// AffinityAuthoritative routes to the authoritative owner (mutations).
	AffinityAuthoritative

	// AffinityHash routes by directory fragment hash (listings).
	AffinityHash
)

// Request describes one exchange with the metadata service. Targets are
// addressed as a base object plus a relative path below it; link and rename
// carry a second (base, path) pair for the other name involved.
type Request struct {
	Op Op

	// Base and Path address the primary name. An empty Path addresses Base
	// itself. For rename, this is the source; for link, the new link name.
	Base ObjectID
	Path string

	// Base2 and Path2 address the secondary name: the link target for
	// OpLink, the destination for OpRename. Unused otherwise.
	Base2 ObjectID
	Path2 string

	// Operation arguments.
	Mode          uint32 // mknod, mkdir
	Rdev          uint32 // mknod device numbers
	SymlinkTarget string // symlink
	Frag          Frag   // readdir: fragment to list

	// Routing.
	Affinity Affinity
	Hash     uint32 // with AffinityHash
}

// NameLease is a per-name validity token granted by the MDS, independent of
// the parent directory's content lease.
type NameLease struct {
	Expiry time.Time
}

// Trace is the authoritative metadata a reply may carry for the affected
// name, letting the cache update itself without a follow-up lookup.
//
// Dir is the parent directory's refreshed metadata (new Version, lease, and
// fragment tree). Target is the object now bound to Name, or nil when the
// authoritative answer is that the name is absent.
type Trace struct {
	Dir       *ObjectMeta
	Name      string
	Target    *ObjectMeta
	NameLease *NameLease
}

// Reply is the result of one request.
//
// Trace is nil when the MDS answered without authoritative metadata (the
// no-trace case); the client then falls back to per-operation reconciliation.
// The readdir fields enumerate one complete fragment snapshot.
type Reply struct {
	Trace *Trace

	// Readdir results.
	Frag    Frag        // the fragment actually listed
	Entries []DirEntry  // every entry in the fragment snapshot
	Dir     *ObjectMeta // the directory's refreshed metadata
}

// Pending is one in-flight exchange. Await blocks until the reply arrives,
// the request fails, or ctx is cancelled; it is the only suspension point in
// the namespace layer. Await may be called once.
//
// On a not-found outcome Await returns a namespace *Error with ErrNotFound
// together with a non-nil Reply, which may still carry a trace recording the
// authoritative absence.
type Pending interface {
	Await(ctx context.Context) (*Reply, error)
}

// Transport submits requests to the metadata service. Implementations
// handle routing per the request's Affinity and must be safe for concurrent
// use. Wire marshalling is entirely the transport's concern.
type Transport interface {
	Submit(ctx context.Context, req *Request) (Pending, error)
}
