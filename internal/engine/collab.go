package engine

import (
	"github.com/fenwalt/ember/internal/coord"
	"github.com/fenwalt/ember/internal/input"
)

// The engine consumes its external collaborators through the narrow
// interfaces below. Their internals (window creation, GL, mixing, font
// rasterization) are out of scope; headless mode runs with the no-op
// defaults.

// Platform is the windowing/graphics-context collaborator. All methods
// are called from the loop goroutine, which owns the graphics context
// for the lifetime of the process. Errors from Poll or Present are
// fatal to the loop: losing the context has no degraded-mode fallback.
type Platform interface {
	// Poll returns the OS events captured since the last call. The
	// platform reports surface size changes separately through
	// Engine.OnResize.
	Poll() ([]input.Event, error)
	// Viewport returns the current surface size.
	Viewport() coord.Viewport
	// Present flips the frame to the screen.
	Present() error
	// Close destroys the window and context.
	Close() error
}

// Renderer switches the rendering state between coordinate spaces. The
// draw phase runs under BeginWorld, the hud phase under BeginScreen.
type Renderer interface {
	BeginWorld(p coord.Projection)
	BeginScreen(p coord.Projection)
}

// AudioMixer plays named sounds. Decoding and mixing are external.
type AudioMixer interface {
	Play(name string) error
}

// TextRenderer draws text in screen coordinates.
type TextRenderer interface {
	RenderText(x, y, size int, text string) error
}

// UnitSelection tracks the currently selected units of the active game.
type UnitSelection interface {
	Select(id uint64)
	Deselect(id uint64)
	Clear()
	Count() int
}

// NopAudio discards playback requests.
type NopAudio struct{}

func (NopAudio) Play(string) error { return nil }

// NopText discards text rendering.
type NopText struct{}

func (NopText) RenderText(int, int, int, string) error { return nil }

// BasicSelection is an in-memory UnitSelection, sufficient for headless
// runs and tests. Mutated only on the loop goroutine.
type BasicSelection struct {
	ids map[uint64]struct{}
}

// NewBasicSelection returns an empty selection.
func NewBasicSelection() *BasicSelection {
	return &BasicSelection{ids: make(map[uint64]struct{})}
}

func (s *BasicSelection) Select(id uint64)   { s.ids[id] = struct{}{} }
func (s *BasicSelection) Deselect(id uint64) { delete(s.ids, id) }
func (s *BasicSelection) Clear()             { clear(s.ids) }
func (s *BasicSelection) Count() int         { return len(s.ids) }
