// Package memory implements an in-process metadata service behind the
// namespace Transport interface. It keeps a whole filesystem tree in maps,
// grants leases with a configurable TTL, and serves fragment-scoped
// listings, which makes it the backend for tests and the demo binary.
//
// Test hooks let callers suppress reply traces per operation, inject a
// failure into the next request of a kind, and split a directory's hash
// space into fragments, so client-side reconciliation paths can be driven
// deterministically.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/driftfs/driftfs/pkg/namespace"
)

// Config holds the server's tunables.
type Config struct {
	// LeaseTTL is how long granted directory-content leases stay valid.
	// Zero means 30 seconds.
	LeaseTTL time.Duration

	// NameLeaseTTL is how long per-name leases granted on lookup replies
	// stay valid. Zero grants no name leases.
	NameLeaseTTL time.Duration

	// Clock supplies the current time. Nil means time.Now.
	Clock func() time.Time
}

// Server is the in-process metadata service. All state is guarded by one
// mutex; requests are served synchronously at submit time and handed back
// through an already-completed Pending.
type Server struct {
	mu     sync.Mutex
	config Config

	objects map[namespace.ObjectID]*object
	rootID  namespace.ObjectID
	nextID  uint64

	suppressed  map[namespace.Op]bool
	failNext    map[namespace.Op]error
	submissions map[namespace.Op]int
}

// object is one file or directory in the served tree.
type object struct {
	meta     namespace.ObjectMeta
	parent   namespace.ObjectID
	children map[string]namespace.ObjectID // directories only
	fragBits uint32                        // split depth of the listing hash space
}

// New creates a server with an empty root directory.
func New(config Config) *Server {
	if config.LeaseTTL == 0 {
		config.LeaseTTL = 30 * time.Second
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	s := &Server{
		config:      config,
		objects:     make(map[namespace.ObjectID]*object),
		suppressed:  make(map[namespace.Op]bool),
		failNext:    make(map[namespace.Op]error),
		submissions: make(map[namespace.Op]int),
	}
	root := s.newObject(namespace.FileTypeDirectory, 0o755)
	root.children = make(map[string]namespace.ObjectID)
	root.parent = root.meta.ID
	s.rootID = root.meta.ID
	return s
}

// Root returns the id of the served root directory.
func (s *Server) Root() namespace.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rootID
}

// SuppressTraces makes replies to the given operations omit their trace,
// forcing clients through the no-trace reconciliation path.
func (s *Server) SuppressTraces(ops ...namespace.Op) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		s.suppressed[op] = true
	}
}

// AllowTraces undoes SuppressTraces for the given operations.
func (s *Server) AllowTraces(ops ...namespace.Op) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		delete(s.suppressed, op)
	}
}

// FailNext makes the next submitted request of the given kind fail with
// err, after any state it would have mutated has been mutated. One-shot.
func (s *Server) FailNext(op namespace.Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[op] = err
}

// Submissions reports how many requests of the given kind have been
// submitted since the server was created.
func (s *Server) Submissions(op namespace.Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submissions[op]
}

// pending is an already-completed exchange.
type pending struct {
	reply *namespace.Reply
	err   error
}

func (p *pending) Await(ctx context.Context) (*namespace.Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.reply, p.err
}

// Submit serves the request synchronously and returns its completed
// Pending.
func (s *Server) Submit(ctx context.Context, req *namespace.Request) (namespace.Pending, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.submissions[req.Op]++
	reply, err := s.handle(req)
	if ferr, ok := s.failNext[req.Op]; ok {
		delete(s.failNext, req.Op)
		return &pending{err: ferr}, nil
	}
	if reply != nil && s.suppressed[req.Op] {
		reply.Trace = nil
	}
	return &pending{reply: reply, err: err}, nil
}

func (s *Server) newObject(t namespace.FileType, mode uint32) *object {
	s.nextID++
	now := s.config.Clock()
	o := &object{
		meta: namespace.ObjectMeta{
			ID:    namespace.ObjectID(s.nextID),
			Type:  t,
			Mode:  mode,
			Nlink: 1,
			Atime: now,
			Mtime: now,
			Ctime: now,
		},
	}
	if t == namespace.FileTypeDirectory {
		o.children = make(map[string]namespace.ObjectID)
		o.meta.Version = 1
		o.meta.Nlink = 2
	}
	s.objects[o.meta.ID] = o
	return o
}
