package engine

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/fenwalt/ember/internal/coord"
	"github.com/fenwalt/ember/internal/handler"
	"github.com/fenwalt/ember/internal/input"
)

// phaseRecorder registers one handler per phase and writes a line for
// every dispatch, tagged with the iteration number. The tick handler
// owns the iteration counter; input lines use frame+1 because the input
// phase runs before that iteration's tick.
type phaseRecorder struct {
	e     *Engine
	frame int
	lines []string
}

func (r *phaseRecorder) record(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func (r *phaseRecorder) install(stopAt int) {
	r.e.RegisterInputAction(handler.InputFunc(func(ev input.Event) (bool, error) {
		r.record("frame %d: input key=%s", r.frame+1, ev.Key)
		return false, nil
	}))
	r.e.RegisterTickAction(handler.TickFunc(func(time.Duration) error {
		r.frame++
		r.record("frame %d: tick", r.frame)
		if r.frame >= stopAt {
			r.e.Stop()
		}
		return nil
	}))
	r.e.RegisterDrawAction(handler.DrawFunc(func() error {
		r.record("frame %d: draw", r.frame)
		return nil
	}))
	r.e.RegisterDrawHudAction(handler.HudFunc(func() error {
		r.record("frame %d: hud underlay", r.frame)
		return nil
	}), -1)
	r.e.RegisterDrawHudAction(handler.HudFunc(func() error {
		r.record("frame %d: hud overlay", r.frame)
		return nil
	}), 1)
	r.e.RegisterResizeAction(handler.ResizeFunc(func(size coord.Viewport) error {
		r.record("frame %d: resize %dx%d", r.frame, size.Width, size.Height)
		return nil
	}))
}

// TestRun_PhaseTraceGolden pins the dispatch protocol: phase order
// within an iteration, input before tick, resize last, and the stop
// landing on the iteration boundary.
func TestRun_PhaseTraceGolden(t *testing.T) {
	source := input.NewSliceSource(keyEvent("a"))
	e := newHeadless(t, WithEventSource(source))

	r := &phaseRecorder{e: e}
	r.install(3)

	// Resize reported during frame 1 is fanned out in frame 1's resize
	// phase, after the engine's own projection update.
	e.RegisterTickAction(handler.TickFunc(func(time.Duration) error {
		if r.frame == 1 {
			e.OnResize(coord.Viewport{Width: 1280, Height: 720})
		}
		return nil
	}))

	runLoop(t, e)
	require.NotEmpty(t, r.lines)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "phase_trace", []byte(strings.Join(r.lines, "\n")+"\n"))
}
