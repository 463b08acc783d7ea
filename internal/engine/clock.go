package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Clock measures the duration of each loop iteration and enforces the
// optional frame-rate ceiling. Pacing uses a burst-1 token bucket: if an
// iteration finishes under budget the wait stretches it to the budget;
// if it runs over, no tokens accumulate, so there is never a catch-up
// burst of back-to-back frames.
//
// BeginFrame/EndFrame are called from the loop goroutine only. The
// budget wait inside EndFrame is the loop's single intentional blocking
// point and is cancelled by the context a stop request cancels.
type Clock struct {
	mu         sync.Mutex
	nsPerFrame time.Duration
	limiter    *rate.Limiter

	frameStart time.Time
	last       atomic.Int64
}

// NewClock returns an uncapped clock.
func NewClock() *Clock {
	return &Clock{}
}

// SetTargetFPS installs a frame-rate ceiling. fps <= 0 removes the cap.
func (c *Clock) SetTargetFPS(fps int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if fps <= 0 {
		c.nsPerFrame = 0
		c.limiter = nil
		return
	}
	c.nsPerFrame = time.Second / time.Duration(fps)
	c.limiter = rate.NewLimiter(rate.Limit(fps), 1)
}

// FrameBudget returns the target duration per frame, 0 when uncapped.
func (c *Clock) FrameBudget() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nsPerFrame
}

// BeginFrame marks the start of an iteration.
func (c *Clock) BeginFrame() {
	c.frameStart = time.Now()
}

// EndFrame records the iteration's handler-work duration, then blocks
// out the remainder of the frame budget. Returns the context error when
// the wait is cancelled; an uncapped clock never blocks.
func (c *Clock) EndFrame(ctx context.Context) error {
	c.last.Store(int64(time.Since(c.frameStart)))

	c.mu.Lock()
	limiter := c.limiter
	c.mu.Unlock()

	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

// LastDuration returns the handler-work duration of the most recently
// completed iteration, excluding the budget wait. Readable from any
// goroutine.
func (c *Clock) LastDuration() time.Duration {
	return time.Duration(c.last.Load())
}
