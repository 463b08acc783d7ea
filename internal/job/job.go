// Package job runs background work on a worker pool without ever letting
// results touch engine-owned state from a worker goroutine. Bodies
// execute concurrently; completions queue up in FIFO order and are
// delivered only when the owner of the main loop calls Drain, so every
// callback runs on the loop goroutine at a defined point in the frame.
package job

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// Fn is a job body. It runs on a worker goroutine and must not touch
// engine-owned state; anything it wants to publish goes through its
// return value and the completion callback. The context is cancelled
// when the manager shuts down.
type Fn func(ctx context.Context) (any, error)

// Result carries a job's outcome to its completion callback. A failed
// job is a result variant, never a process fault: Err holds the body's
// error, or the recovered panic wrapped as an error.
type Result struct {
	Value any
	Err   error
}

// Callback receives the result on the main loop goroutine during Drain.
type Callback func(Result)

// Handle identifies a submitted job.
type Handle struct {
	id uuid.UUID
}

// ID returns the job's unique identifier.
func (h Handle) ID() uuid.UUID {
	return h.id
}

// Group ties a set of jobs to an owner whose lifetime may end before
// the jobs do. Invalidating the group drops queued jobs and suppresses
// the callbacks of in-flight ones, so a destroyed owner is never
// mutated by a late completion.
type Group struct {
	invalid atomic.Bool
}

// NewGroup creates a live group.
func NewGroup() *Group {
	return &Group{}
}

// Invalidate marks the group dead. Idempotent.
func (g *Group) Invalidate() {
	g.invalid.Store(true)
}

// Invalidated reports whether the group has been invalidated.
func (g *Group) Invalidated() bool {
	return g.invalid.Load()
}

// task is the internal unit queued for a worker.
type task struct {
	id    uuid.UUID
	fn    Fn
	cb    Callback
	group *Group
}

// completion is a finished task awaiting Drain.
type completion struct {
	t   *task
	res Result
}
