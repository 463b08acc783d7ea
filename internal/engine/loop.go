package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/fenwalt/ember/internal/handler"
	"github.com/fenwalt/ember/internal/input"
)

// Run enters the frame loop and blocks until a stop request is honored
// and teardown completes. Returns nil on a clean stop (Stop call, quit
// event, or cancelled context) and an error only for fatal platform
// failures.
//
// Each iteration executes the fixed protocol: input dispatch, job
// completion drain, tick dispatch, world-space draw, screen-space hud
// draw, resize fan-out, present, frame-budget wait. A stop request is
// observed at the iteration boundary only — the iteration it arrives in
// always completes.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel.Store(&cancel)

	e.jobs.Start()
	e.logger.Info("engine loop starting", slog.String("mode", e.mode.String()))

	defer func() {
		e.teardown()
		cancel()
		e.cancel.Store(nil)
		e.running.Store(false)
	}()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine loop stopping", slog.Uint64("frames", e.frame))
			return nil
		default:
		}

		e.clock.BeginFrame()

		if err := e.dispatchInput(); err != nil {
			return err
		}

		// The one defined synchronization point with the job workers:
		// completions run here, on this goroutine, before tick logic.
		e.jobs.Drain(0)

		e.dispatchTick()
		e.dispatchDraw()
		if e.drawHud.Load() {
			e.dispatchHud()
		}
		e.dispatchResize()

		if e.platform != nil {
			if err := e.platform.Present(); err != nil {
				e.logger.Error("present failed", slog.String("error", err.Error()))
				return fmt.Errorf("engine: present: %w", err)
			}
		}

		e.frame++
		if err := e.clock.EndFrame(ctx); err != nil {
			// Budget wait cancelled by a stop request.
			e.logger.Info("engine loop stopping", slog.Uint64("frames", e.frame))
			return nil
		}
	}
}

// Stop requests loop termination at the next iteration boundary. Safe
// from any goroutine, including handlers and job callbacks; it also
// interrupts an in-progress frame-budget wait. A no-op when the loop is
// not running.
func (e *Engine) Stop() {
	if cancel := e.cancel.Load(); cancel != nil {
		(*cancel)()
	}
}

// Running reports whether the loop is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// teardown runs after the loop exits: active session first (its job
// group dies with it), then the job manager, then the platform.
func (e *Engine) teardown() {
	if e.sessions.Active() {
		if err := e.EndGame(); err != nil {
			e.logger.Warn("teardown: end game", slog.String("error", err.Error()))
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.jobs.Stop(stopCtx); err != nil {
		e.logger.Warn("teardown: job manager", slog.String("error", err.Error()))
	}

	if e.platform != nil {
		if err := e.platform.Close(); err != nil {
			e.logger.Warn("teardown: platform", slog.String("error", err.Error()))
		}
	}
}

// dispatchInput drains the event source and offers each event to the
// input chain. Propagation short-circuits at the first handler that
// consumes the event; when nobody consumes it, every handler has seen
// it. Quit events become a stop request and are not forwarded.
func (e *Engine) dispatchInput() error {
	events, err := e.pollEvents()
	if err != nil {
		e.logger.Error("event poll failed", slog.String("error", err.Error()))
		return fmt.Errorf("engine: poll events: %w", err)
	}

	for _, ev := range events {
		if ev.Kind == input.KindQuit {
			e.logger.Info("quit event received")
			e.Stop()
			continue
		}
		for _, h := range e.onInput.Snapshot() {
			if e.guardInput(h, ev) {
				break
			}
		}
	}
	return nil
}

func (e *Engine) pollEvents() ([]input.Event, error) {
	if e.platform != nil {
		return e.platform.Poll()
	}
	if e.source != nil {
		return e.source.Poll(), nil
	}
	return nil, nil
}

// dispatchTick runs every tick handler in registration order,
// unconditionally. This is where session logic advances.
func (e *Engine) dispatchTick() {
	dt := e.clock.LastDuration()
	for _, h := range e.onTick.Snapshot() {
		e.guard("tick", func() error { return h.Tick(dt) })
	}
}

// dispatchDraw runs every draw handler with the renderer in world
// space.
func (e *Engine) dispatchDraw() {
	if e.renderer != nil {
		e.renderer.BeginWorld(e.camera.Projection)
	}
	for _, h := range e.onDraw.Snapshot() {
		e.guard("draw", h.Draw)
	}
}

// dispatchHud runs every hud handler in order-key sequence with the
// renderer in screen space.
func (e *Engine) dispatchHud() {
	if e.renderer != nil {
		e.renderer.BeginScreen(e.camera.Projection)
	}
	for _, h := range e.onHud.Snapshot() {
		e.guard("hud", h.DrawHud)
	}
}

// dispatchResize applies a pending surface size change: the engine's
// own projection recompute runs first, then the external resize
// handlers see the new size.
func (e *Engine) dispatchResize() {
	if e.pendingResize == nil {
		return
	}
	size := *e.pendingResize
	e.pendingResize = nil

	e.camera.Apply(size)
	e.logger.Debug("viewport resized",
		slog.Int("width", size.Width), slog.Int("height", size.Height))

	for _, h := range e.onResize.Snapshot() {
		e.guard("resize", func() error { return h.Resize(size) })
	}
}

// guard isolates one handler call: an error return or a panic is logged
// and dispatch continues with the next handler in the phase.
func (e *Engine) guard(phase string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("handler panicked",
				slog.String("phase", phase),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	if err := fn(); err != nil {
		e.logger.Warn("handler error",
			slog.String("phase", phase),
			slog.String("error", err.Error()))
	}
}

// guardInput is guard for the consuming input chain. A handler that
// fails is treated as not having consumed the event unless it said
// otherwise before failing.
func (e *Engine) guardInput(h handler.Input, ev input.Event) (consumed bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("handler panicked",
				slog.String("phase", "input"),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			consumed = false
		}
	}()
	consumed, err := h.HandleInput(ev)
	if err != nil {
		e.logger.Warn("handler error",
			slog.String("phase", "input"),
			slog.String("error", err.Error()))
	}
	return consumed
}
