// Package testing provides a scripted Transport for unit tests: replies are
// queued ahead of time and every submitted request is recorded, so a test
// can drive the client through exact reply sequences the in-process server
// cannot easily produce.
package testing

import (
	"context"
	"sync"

	"github.com/driftfs/driftfs/pkg/namespace"
)

// Scripted is a Transport that answers from a queue.
type Scripted struct {
	mu       sync.Mutex
	queue    []outcome
	requests []namespace.Request
}

type outcome struct {
	reply *namespace.Reply
	err   error
}

// NewScripted creates an empty scripted transport. A submit with nothing
// queued fails with ErrShutdown.
func NewScripted() *Scripted {
	return &Scripted{}
}

// Enqueue queues the outcome for the next submitted request.
func (s *Scripted) Enqueue(reply *namespace.Reply, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, outcome{reply: reply, err: err})
}

// Requests returns a copy of every request submitted so far, in order.
func (s *Scripted) Requests() []namespace.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]namespace.Request(nil), s.requests...)
}

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

// Submit records the request and dequeues its scripted outcome.
func (s *Scripted) Submit(ctx context.Context, req *namespace.Request) (namespace.Pending, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, *req)
	if len(s.queue) == 0 {
		return &pending{err: &namespace.Error{
			Code:    namespace.ErrShutdown,
			Message: "scripted transport has no queued reply",
		}}, nil
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	return &pending{reply: next.reply, err: next.err}, nil
}
