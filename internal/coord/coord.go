// Package coord holds the minimal viewport and projection state owned by
// the engine. Full coordinate-space math belongs to the renderer and is
// out of scope here; the engine only tracks the presentation surface size
// and the orthographic bounds derived from it, which it recomputes on
// every resize before external resize handlers run.
package coord

// Viewport is the size of the presentation surface in pixels.
type Viewport struct {
	Width  int
	Height int
}

// Aspect returns the width/height ratio, or 0 for a degenerate viewport.
func (v Viewport) Aspect() float64 {
	if v.Height == 0 {
		return 0
	}
	return float64(v.Width) / float64(v.Height)
}

// Empty reports whether the viewport has no drawable area.
func (v Viewport) Empty() bool {
	return v.Width <= 0 || v.Height <= 0
}

// Projection is a pixel-aligned orthographic projection. The hud phase
// draws in these screen coordinates; the draw phase uses the same bounds
// translated by the camera, which the renderer owns.
type Projection struct {
	Left   float64
	Right  float64
	Bottom float64
	Top    float64
}

// Ortho derives screen-space orthographic bounds from a viewport.
// Origin is bottom-left, matching GL conventions.
func Ortho(v Viewport) Projection {
	return Projection{
		Left:   0,
		Right:  float64(v.Width),
		Bottom: 0,
		Top:    float64(v.Height),
	}
}

// Camera couples the current viewport with its derived projection.
// Mutated only on the engine's main loop goroutine.
type Camera struct {
	Viewport   Viewport
	Projection Projection
}

// Apply installs a new viewport and recomputes the projection.
func (c *Camera) Apply(v Viewport) {
	c.Viewport = v
	c.Projection = Ortho(v)
}
