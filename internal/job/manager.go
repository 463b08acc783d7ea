package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
)

// ErrStopped is returned by Submit after the manager has begun shutdown.
var ErrStopped = errors.New("job: manager stopped")

// Manager owns the worker pool. Submit is safe from any goroutine;
// Drain must only be called from the goroutine that owns the main loop,
// which is what keeps callbacks single-threaded with respect to engine
// state.
type Manager struct {
	logger      *slog.Logger
	workers     int
	pending     *taskQueue
	completions *completionQueue

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	stopped bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithWorkers sets the worker pool size. Values below 1 are clamped.
func WithWorkers(n int) Option {
	return func(m *Manager) {
		if n < 1 {
			n = 1
		}
		m.workers = n
	}
}

// NewManager creates a manager. Start must be called before submitted
// jobs execute.
func NewManager(logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		logger:      logger,
		workers:     4,
		pending:     newTaskQueue(),
		completions: newCompletionQueue(),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the worker goroutines. Idempotent; returns immediately.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running || m.stopped {
		return
	}
	m.running = true

	m.logger.Debug("job manager starting", slog.Int("workers", m.workers))
	for n := 0; n < m.workers; n++ {
		m.wg.Add(1)
		go m.workerLoop()
	}
}

// SubmitOption adjusts a single submission.
type SubmitOption func(*task)

// WithGroup ties the job to an invalidation group.
func WithGroup(g *Group) SubmitOption {
	return func(t *task) { t.group = g }
}

// Submit enqueues a job body with an optional completion callback. It
// never blocks; the pending queue is unbounded (see taskQueue). The
// returned handle identifies the job for logging and diagnostics.
func (m *Manager) Submit(fn Fn, cb Callback, opts ...SubmitOption) (Handle, error) {
	if fn == nil {
		return Handle{}, fmt.Errorf("job: nil body")
	}

	t := &task{id: uuid.New(), fn: fn, cb: cb}
	for _, opt := range opts {
		opt(t)
	}

	if !m.pending.Enqueue(t) {
		return Handle{}, ErrStopped
	}
	return Handle{id: t.id}, nil
}

// Drain delivers queued completions in FIFO order by running their
// callbacks on the calling goroutine. max limits deliveries per call;
// max <= 0 drains everything available. Completions whose group was
// invalidated are dropped. Returns the number of callbacks run.
//
// Must be called from the main loop goroutine only, and never after
// Stop has begun.
func (m *Manager) Drain(max int) int {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return 0
	}
	m.mu.Unlock()

	delivered := 0
	for max <= 0 || delivered < max {
		c, ok := m.completions.Pop()
		if !ok {
			break
		}
		if c.t.group != nil && c.t.group.Invalidated() {
			m.logger.Debug("dropped completion for invalidated group",
				slog.String("job_id", c.t.id.String()))
			continue
		}
		if c.t.cb != nil {
			c.t.cb(c.res)
			delivered++
		}
	}
	return delivered
}

// Pending returns the number of jobs waiting for a worker.
func (m *Manager) Pending() int {
	return m.pending.Len()
}

// Completed returns the number of completions awaiting Drain.
func (m *Manager) Completed() int {
	return m.completions.Len()
}

// Stop shuts the pool down: the intake closes, queued jobs that no
// worker has picked up are discarded, in-flight bodies get their
// context cancelled and are joined. No callback runs once Stop has
// begun — Drain becomes a no-op immediately.
//
// The context bounds how long Stop waits for in-flight bodies; on
// expiry the workers are abandoned (they still exit once their body
// returns) and the context error is returned.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	wasRunning := m.running
	m.running = false
	m.mu.Unlock()

	m.logger.Debug("job manager stopping",
		slog.Int("discarded", m.pending.Len()),
		slog.Int("undelivered", m.completions.Len()))

	m.pending.Close()
	m.cancel()

	if !wasRunning {
		return nil
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		m.logger.Warn("job manager shutdown timed out")
		return ctx.Err()
	}
}

// workerLoop is run by each worker goroutine.
func (m *Manager) workerLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		t, ok := m.pending.TryDequeue()
		if !ok {
			select {
			case <-m.ctx.Done():
				return
			case <-m.pending.Wait():
				continue
			}
		}

		// A job whose group died while it sat in the queue is skipped
		// entirely; no point burning a worker on it.
		if t.group != nil && t.group.Invalidated() {
			continue
		}

		m.completions.Push(completion{t: t, res: m.run(t)})
	}
}

// run executes a body, converting panics into result errors so one bad
// job cannot take down the pool.
func (m *Manager) run(t *task) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("job panicked",
				slog.String("job_id", t.id.String()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			res = Result{Err: fmt.Errorf("job %s panicked: %v", t.id, r)}
		}
	}()

	v, err := t.fn(m.ctx)
	return Result{Value: v, Err: err}
}
