// Package handler defines the capability contracts the engine dispatches
// into each frame, and the registries that hold them. Each handler class
// is a single-method interface; concrete handlers implement the
// interface and the registries store interface values, never concrete
// types. Registration hands back a token so handlers can be removed
// before their owner goes away.
package handler

import (
	"sync/atomic"
	"time"

	"github.com/fenwalt/ember/internal/coord"
	"github.com/fenwalt/ember/internal/input"
)

// Token identifies a registration. Tokens are unique across all
// registries sharing a TokenSource, so a single unregister entry point
// can route removals.
type Token uint64

// NoToken is the zero token; no registration ever carries it.
const NoToken Token = 0

// TokenSource issues monotonically increasing tokens. Safe for
// concurrent use.
type TokenSource struct {
	last atomic.Uint64
}

// NewTokenSource starts a token sequence at 1.
func NewTokenSource() *TokenSource {
	return &TokenSource{}
}

// Next returns a fresh token.
func (s *TokenSource) Next() Token {
	return Token(s.last.Add(1))
}

// Input handles one input event. The boolean reports whether the event
// was consumed; a consumed event is not offered to handlers registered
// after this one.
type Input interface {
	HandleInput(ev input.Event) (bool, error)
}

// Tick advances time-dependent logic once per iteration. dt is the
// duration of the previous iteration's handler work, for
// frame-rate-independent stepping.
type Tick interface {
	Tick(dt time.Duration) error
}

// Draw renders in world coordinate space once per iteration.
type Draw interface {
	Draw() error
}

// Hud renders in screen coordinate space. Hud handlers carry an order
// key at registration: higher orders draw above lower ones.
type Hud interface {
	DrawHud() error
}

// Resize reacts to presentation surface size changes. Invoked only on
// iterations where a resize was detected, after the engine has
// recomputed its own projection state.
type Resize interface {
	Resize(size coord.Viewport) error
}

// Func adapters, so plain closures can register without a named type.

type InputFunc func(ev input.Event) (bool, error)

func (f InputFunc) HandleInput(ev input.Event) (bool, error) { return f(ev) }

type TickFunc func(dt time.Duration) error

func (f TickFunc) Tick(dt time.Duration) error { return f(dt) }

type DrawFunc func() error

func (f DrawFunc) Draw() error { return f() }

type HudFunc func() error

func (f HudFunc) DrawHud() error { return f() }

type ResizeFunc func(size coord.Viewport) error

func (f ResizeFunc) Resize(size coord.Viewport) error { return f(size) }
