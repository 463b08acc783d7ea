// Package session owns the single active game slot. The engine holds
// exactly one controller; all transitions happen on the loop goroutine.
package session

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// ErrGameRunning is returned when starting a session while one is
// active. The policy is reject, not replace: implicit replacement hides
// double-start bugs, and callers that mean it can End first.
var ErrGameRunning = errors.New("session: a game is already running")

// ErrNoGame is returned by End when no session is active, so a double
// End is loud rather than silently absorbed.
var ErrNoGame = errors.New("session: no game is running")

// Game is an active interactive session. Close tears the session down —
// releasing every handler registration it made — and is called exactly
// once, before the controller clears its slot, so a dangling handler
// can never be dispatched after the game is gone.
type Game interface {
	Close() error
}

// Controller is the {NoSession, SessionActive} state machine.
type Controller struct {
	logger *slog.Logger
	game   Game
	id     uuid.UUID
}

// NewController starts in the NoSession state.
func NewController(logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{logger: logger}
}

// Active reports whether a session is installed.
func (c *Controller) Active() bool {
	return c.game != nil
}

// Game returns the active session, or nil in the NoSession state.
func (c *Controller) Game() Game {
	return c.game
}

// ID returns the active session's identifier, or uuid.Nil.
func (c *Controller) ID() uuid.UUID {
	return c.id
}

// Start installs an already-built game, adopting ownership. Valid only
// from NoSession.
func (c *Controller) Start(g Game) error {
	if g == nil {
		return fmt.Errorf("session: nil game")
	}
	if c.game != nil {
		return ErrGameRunning
	}
	c.game = g
	c.id = uuid.New()
	c.logger.Info("game started", slog.String("session_id", c.id.String()))
	return nil
}

// End tears down the active session. The game's Close completes before
// the slot is cleared; a Close failure is reported but the slot is
// cleared regardless, since a half-dead session must not stay
// dispatchable.
func (c *Controller) End() error {
	if c.game != nil {
		err := c.game.Close()

		id := c.id
		c.game = nil
		c.id = uuid.Nil

		if err != nil {
			c.logger.Warn("game teardown failed",
				slog.String("session_id", id.String()),
				slog.String("error", err.Error()))
			return fmt.Errorf("session: close game: %w", err)
		}
		c.logger.Info("game ended", slog.String("session_id", id.String()))
		return nil
	}
	return ErrNoGame
}
