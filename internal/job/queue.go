package job

import "sync"

// taskQueue is the thread-safe FIFO feeding the worker pool.
//
// The queue is unbounded: submission happens from frame handlers and
// must never block the loop, and cascading jobs (a completion callback
// submitting follow-up work) must not be able to deadlock against a
// full queue. Saturation therefore shows up as queue depth, not as
// backpressure on the caller; Len exposes it for monitoring.
//
// A buffered signal channel of size one coalesces wake-ups so idle
// workers can select on it alongside their shutdown context.
type taskQueue struct {
	mu     sync.Mutex
	tasks  []*task
	closed bool
	signal chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		tasks:  make([]*task, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends a task. Returns false if the queue is closed.
func (q *taskQueue) Enqueue(t *task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, t)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the front task without blocking.
func (q *taskQueue) TryDequeue() (*task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil, false
	}

	t := q.tasks[0]
	// Nil the slot so the backing array does not retain the task.
	q.tasks[0] = nil
	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}
	return t, true
}

// Wait returns the wake-up channel for select-based idling.
func (q *taskQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue depth.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close rejects further enqueues and wakes all waiters.
func (q *taskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// completionQueue collects finished tasks in completion order for the
// main-thread drain. Same shape as taskQueue but never closed; the
// manager's stopped flag gates delivery instead.
type completionQueue struct {
	mu    sync.Mutex
	items []completion
}

func newCompletionQueue() *completionQueue {
	return &completionQueue{items: make([]completion, 0, 16)}
}

// Push appends a completion. Called from worker goroutines.
func (q *completionQueue) Push(c completion) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, c)
}

// Pop removes the oldest completion.
func (q *completionQueue) Pop() (completion, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return completion{}, false
	}
	c := q.items[0]
	q.items[0] = completion{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return c, true
}

// Len returns the number of undelivered completions.
func (q *completionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
