package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	m := NewManager(testLogger(), opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = m.Stop(ctx)
	})
	return m
}

func TestManager_SubmitBeforeStartQueues(t *testing.T) {
	m := newTestManager(t)

	h, err := m.Submit(func(context.Context) (any, error) { return 42, nil }, nil)
	require.NoError(t, err)
	assert.NotEqual(t, Handle{}, h)
	assert.Equal(t, 1, m.Pending())
	assert.Equal(t, 0, m.Completed())

	m.Start()
	require.Eventually(t, func() bool { return m.Completed() == 1 }, time.Second, time.Millisecond)
}

func TestManager_DrainDeliversEachCompletionOnce(t *testing.T) {
	const jobs = 100

	m := newTestManager(t, WithWorkers(8))
	m.Start()

	var delivered atomic.Int64
	for i := 0; i < jobs; i++ {
		i := i
		_, err := m.Submit(
			func(context.Context) (any, error) { return i, nil },
			func(res Result) {
				require.NoError(t, res.Err)
				delivered.Add(1)
			},
		)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return m.Completed() == jobs }, 5*time.Second, time.Millisecond)

	assert.Equal(t, jobs, m.Drain(0))
	assert.Equal(t, int64(jobs), delivered.Load())

	// Nothing left: a second drain delivers nothing.
	assert.Equal(t, 0, m.Drain(0))
	assert.Equal(t, int64(jobs), delivered.Load())
}

func TestManager_DrainMaxLimitsDeliveries(t *testing.T) {
	m := newTestManager(t, WithWorkers(1))
	m.Start()

	for n := 0; n < 5; n++ {
		_, err := m.Submit(func(context.Context) (any, error) { return nil, nil }, func(Result) {})
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return m.Completed() == 5 }, time.Second, time.Millisecond)

	assert.Equal(t, 2, m.Drain(2))
	assert.Equal(t, 3, m.Completed())
	assert.Equal(t, 3, m.Drain(0))
}

func TestManager_SingleWorkerPreservesOrder(t *testing.T) {
	m := newTestManager(t, WithWorkers(1))
	m.Start()

	var got []int
	for i := 0; i < 10; i++ {
		i := i
		_, err := m.Submit(
			func(context.Context) (any, error) { return i, nil },
			func(res Result) { got = append(got, res.Value.(int)) },
		)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return m.Completed() == 10 }, time.Second, time.Millisecond)
	m.Drain(0)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestManager_ErrorIsResultNotFault(t *testing.T) {
	m := newTestManager(t)
	m.Start()

	boom := errors.New("boom")
	var res Result
	_, err := m.Submit(
		func(context.Context) (any, error) { return nil, boom },
		func(r Result) { res = r },
	)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return m.Completed() == 1 }, time.Second, time.Millisecond)
	m.Drain(0)
	assert.ErrorIs(t, res.Err, boom)
	assert.Nil(t, res.Value)
}

func TestManager_PanicBecomesResultError(t *testing.T) {
	m := newTestManager(t)
	m.Start()

	var res Result
	_, err := m.Submit(
		func(context.Context) (any, error) { panic("kaput") },
		func(r Result) { res = r },
	)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return m.Completed() == 1 }, time.Second, time.Millisecond)
	m.Drain(0)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "panicked")
	assert.Contains(t, res.Err.Error(), "kaput")

	// The pool survives a panicking body.
	_, err = m.Submit(func(context.Context) (any, error) { return "ok", nil },
		func(r Result) { res = r })
	require.NoError(t, err)
	require.Eventually(t, func() bool { return m.Completed() == 1 }, time.Second, time.Millisecond)
	m.Drain(0)
	require.NoError(t, res.Err)
	assert.Equal(t, "ok", res.Value)
}

func TestManager_GroupInvalidationSuppressesCallbacks(t *testing.T) {
	m := newTestManager(t, WithWorkers(2))
	m.Start()

	g := NewGroup()
	var fired atomic.Int64
	for n := 0; n < 10; n++ {
		_, err := m.Submit(
			func(context.Context) (any, error) { return nil, nil },
			func(Result) { fired.Add(1) },
			WithGroup(g),
		)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return m.Pending() == 0 }, time.Second, time.Millisecond)
	g.Invalidate()

	assert.Equal(t, 0, m.Drain(0))
	assert.Equal(t, int64(0), fired.Load())
}

func TestManager_GroupInvalidationSkipsQueuedJobs(t *testing.T) {
	m := newTestManager(t, WithWorkers(1))

	g := NewGroup()
	var ran atomic.Int64
	for n := 0; n < 5; n++ {
		_, err := m.Submit(
			func(context.Context) (any, error) { ran.Add(1); return nil, nil },
			nil,
			WithGroup(g),
		)
		require.NoError(t, err)
	}

	// Invalidated before any worker starts: the bodies never run.
	g.Invalidate()
	m.Start()

	require.Eventually(t, func() bool { return m.Pending() == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, int64(0), ran.Load())
}

func TestManager_SubmitAfterStop(t *testing.T) {
	m := NewManager(testLogger())
	m.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Stop(ctx))

	_, err := m.Submit(func(context.Context) (any, error) { return nil, nil }, nil)
	assert.ErrorIs(t, err, ErrStopped)

	// Drain after stop is a no-op, never a callback delivery.
	assert.Equal(t, 0, m.Drain(0))

	// Stop is idempotent.
	require.NoError(t, m.Stop(ctx))
}

func TestManager_StopCancelsInFlightBodies(t *testing.T) {
	m := NewManager(testLogger(), WithWorkers(1))
	m.Start()

	started := make(chan struct{})
	_, err := m.Submit(func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}, nil)
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, m.Stop(ctx))
}

func TestManager_StopTimesOutOnHungBody(t *testing.T) {
	m := NewManager(testLogger(), WithWorkers(1))
	m.Start()

	started := make(chan struct{})
	release := make(chan struct{})
	_, err := m.Submit(func(context.Context) (any, error) {
		close(started)
		<-release // ignores cancellation on purpose
		return nil, nil
	}, nil)
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Stop(ctx), context.DeadlineExceeded)
	close(release)
}

func TestManager_NilBodyRejected(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Submit(nil, nil)
	require.Error(t, err)
}

func TestHandle_IDsAreUnique(t *testing.T) {
	m := newTestManager(t)

	seen := map[string]bool{}
	for n := 0; n < 20; n++ {
		h, err := m.Submit(func(context.Context) (any, error) { return nil, nil }, nil)
		require.NoError(t, err)
		id := fmt.Sprint(h.ID())
		assert.False(t, seen[id])
		seen[id] = true
	}
}
