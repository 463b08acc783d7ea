// Package engine is the real-time execution core: it owns the frame
// loop, the per-frame handler registries, the background job manager,
// and the single active game session, and wires them to the external
// platform collaborators.
//
// Threading contract: everything the engine owns — handler registries,
// the session slot, frame timing state — is mutated only on the
// goroutine that called Run. Workers of the job manager are the only
// parallelism, and their results re-enter the loop exclusively through
// the completion drain at the top of each iteration.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/fenwalt/ember/internal/coord"
	"github.com/fenwalt/ember/internal/cvar"
	"github.com/fenwalt/ember/internal/handler"
	"github.com/fenwalt/ember/internal/input"
	"github.com/fenwalt/ember/internal/job"
	"github.com/fenwalt/ember/internal/screenshot"
	"github.com/fenwalt/ember/internal/session"
)

// Version is reported by the debug overlay and the CLI.
const Version = "0.1.0"

// Mode governs which subsystems are initialized at construction.
type Mode int

const (
	// ModeLegacy is the classic windowed mode.
	ModeLegacy Mode = iota
	// ModeHeadless runs without a window or renderer.
	ModeHeadless
	// ModeFull is the windowed mode with the full presentation stack.
	ModeFull
)

func (m Mode) String() string {
	switch m {
	case ModeLegacy:
		return "legacy"
	case ModeHeadless:
		return "headless"
	case ModeFull:
		return "full"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "legacy":
		return ModeLegacy, nil
	case "headless":
		return ModeHeadless, nil
	case "full":
		return ModeFull, nil
	default:
		return 0, fmt.Errorf("unknown engine mode %q", s)
	}
}

// ErrAlreadyRunning is returned by Run when the loop is already active.
var ErrAlreadyRunning = errors.New("engine: already running")

// ErrNoPlatform is returned at construction when a windowed mode has no
// platform collaborator. There is no degraded fallback; headless is the
// mode for running without one.
var ErrNoPlatform = errors.New("engine: windowed mode requires a platform")

// GameGenerator constructs a game session against a live engine, so the
// new game can register its handlers and define its cvars before it is
// installed.
type GameGenerator interface {
	Generate(e *Engine) (session.Game, error)
}

// GeneratorFunc adapts a closure to GameGenerator.
type GeneratorFunc func(e *Engine) (session.Game, error)

func (f GeneratorFunc) Generate(e *Engine) (session.Game, error) { return f(e) }

// Config carries the construction parameters that have no useful
// defaults.
type Config struct {
	Mode    Mode
	RootDir string
	// CVars is the shared configuration variable manager. nil gets a
	// memory-only manager.
	CVars *cvar.Manager
}

// Option configures optional collaborators and tuning.
type Option func(*Engine)

// WithLogger sets the structured logger shared by the subsystems.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithPlatform installs the windowing collaborator. Required for
// ModeLegacy and ModeFull.
func WithPlatform(p Platform) Option {
	return func(e *Engine) { e.platform = p }
}

// WithRenderer installs the coordinate-space switching collaborator.
func WithRenderer(r Renderer) Option {
	return func(e *Engine) { e.renderer = r }
}

// WithAudio replaces the no-op audio mixer.
func WithAudio(a AudioMixer) Option {
	return func(e *Engine) { e.audio = a }
}

// WithTextRenderer replaces the no-op text renderer.
func WithTextRenderer(t TextRenderer) Option {
	return func(e *Engine) { e.text = t }
}

// WithSelection replaces the default in-memory unit selection.
func WithSelection(s UnitSelection) Option {
	return func(e *Engine) { e.selection = s }
}

// WithEventSource installs an input source for modes without a
// platform. When a platform is present it is the source of events and
// this option is ignored.
func WithEventSource(s input.Source) Option {
	return func(e *Engine) { e.source = s }
}

// WithWorkers sizes the job manager's worker pool.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithTargetFPS sets the initial frame-rate ceiling. 0 means uncapped.
func WithTargetFPS(fps int) Option {
	return func(e *Engine) { e.initialFPS = fps }
}

// WithHudDrawing sets whether the hud phase runs at all.
func WithHudDrawing(enabled bool) Option {
	return func(e *Engine) { e.drawHud.Store(enabled) }
}

// Engine is the composition root. Construct with New, drive with Run,
// stop with Stop.
type Engine struct {
	mode    Mode
	rootDir string
	logger  *slog.Logger

	// Loop state.
	running atomic.Bool
	cancel  atomic.Pointer[context.CancelFunc]
	clock   *Clock
	frame   uint64 // iteration counter, loop goroutine only

	// Handler registries. One token space across all five, so a single
	// Unregister can route any token.
	tokens   *handler.TokenSource
	onInput  *handler.Registry[handler.Input]
	onTick   *handler.Registry[handler.Tick]
	onDraw   *handler.Registry[handler.Draw]
	onHud    *handler.OrderedRegistry
	onResize *handler.Registry[handler.Resize]

	// Owned subsystems.
	jobs      *job.Manager
	sessions  *session.Controller
	gameGroup *job.Group // job group of the active session, nil otherwise
	cvars     *cvar.Manager
	actions   *input.ActionManager
	inputMgr  *input.Manager
	shots     *screenshot.Manager

	// External collaborators.
	platform  Platform
	renderer  Renderer
	audio     AudioMixer
	text      TextRenderer
	selection UnitSelection
	source    input.Source

	// Coordinate state, recomputed in the resize phase before external
	// resize handlers run.
	camera        coord.Camera
	pendingResize *coord.Viewport

	// Toggles reachable from cvar hooks, hence atomic.
	drawHud      atomic.Bool
	debugOverlay atomic.Bool

	// Construction-time tuning.
	workers    int
	initialFPS int
}

// New builds an engine for the given mode. Windowed modes fail without
// a platform; all other construction failures are configuration errors.
func New(cfg Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		mode:     cfg.Mode,
		rootDir:  cfg.RootDir,
		logger:   slog.Default(),
		clock:    NewClock(),
		tokens:   handler.NewTokenSource(),
		cvars:    cfg.CVars,
		actions:  input.NewActionManager(),
		workers:  4,
		audio:    NopAudio{},
		text:     NopText{},
	}
	e.drawHud.Store(true)

	for _, opt := range opts {
		opt(e)
	}

	if (e.mode == ModeLegacy || e.mode == ModeFull) && e.platform == nil {
		return nil, ErrNoPlatform
	}

	if e.cvars == nil {
		e.cvars = cvar.NewManager(nil, e.logger)
	}
	if e.selection == nil {
		e.selection = NewBasicSelection()
	}

	e.onInput = handler.NewRegistry[handler.Input](e.tokens)
	e.onTick = handler.NewRegistry[handler.Tick](e.tokens)
	e.onDraw = handler.NewRegistry[handler.Draw](e.tokens)
	e.onHud = handler.NewOrderedRegistry(e.tokens)
	e.onResize = handler.NewRegistry[handler.Resize](e.tokens)

	e.jobs = job.NewManager(e.logger, job.WithWorkers(e.workers))
	e.sessions = session.NewController(e.logger)
	e.inputMgr = input.NewManager(e.actions, e.logger)
	e.shots = screenshot.NewManager(e.rootDir, e.jobs, e.logger)

	e.clock.SetTargetFPS(e.initialFPS)

	if e.platform != nil {
		e.camera.Apply(e.platform.Viewport())
	}

	// The keybind manager sits first in the input chain so bound keys
	// resolve to actions before anything else sees them.
	e.onInput.Register(e.inputMgr)

	// Debug overlay draws above everything the game registers.
	e.onHud.Register(handler.HudFunc(e.drawDebugOverlay), 100)

	if err := e.defineCVars(); err != nil {
		return nil, err
	}

	e.logger.Info("engine initialized",
		slog.String("mode", e.mode.String()),
		slog.String("root_dir", e.rootDir),
		slog.Int("workers", e.workers))
	return e, nil
}

// defineCVars registers the engine's own configuration variables.
func (e *Engine) defineCVars() error {
	if err := e.cvars.Define("engine.fps_limit", strconv.Itoa(e.initialFPS), func(v string) {
		fps, err := strconv.Atoi(v)
		if err != nil {
			e.logger.Warn("invalid engine.fps_limit", slog.String("value", v))
			return
		}
		e.clock.SetTargetFPS(fps)
	}); err != nil {
		return err
	}
	if err := e.cvars.Define("engine.draw_hud", strconv.FormatBool(e.drawHud.Load()), func(v string) {
		e.drawHud.Store(v == "true")
	}); err != nil {
		return err
	}
	return e.cvars.Define("engine.debug_overlay", "false", func(v string) {
		e.debugOverlay.Store(v == "true")
	})
}

// drawDebugOverlay renders the version and current frame time when the
// engine.debug_overlay cvar is on.
func (e *Engine) drawDebugOverlay() error {
	if !e.debugOverlay.Load() {
		return nil
	}
	last := e.clock.LastDuration()
	fps := 0.0
	if last > 0 {
		fps = float64(time.Second) / float64(last)
	}
	vp := e.camera.Viewport
	return e.text.RenderText(8, vp.Height-20, 12,
		fmt.Sprintf("ember %s  %.1f fps", Version, fps))
}

// Registration surface. Legal from handlers mid-frame; changes take
// effect the next iteration.

// RegisterInputAction appends an input handler to the dispatch chain.
func (e *Engine) RegisterInputAction(h handler.Input) handler.Token {
	return e.onInput.Register(h)
}

// RegisterTickAction appends a tick handler.
func (e *Engine) RegisterTickAction(h handler.Tick) handler.Token {
	return e.onTick.Register(h)
}

// RegisterDrawAction appends a world-space draw handler.
func (e *Engine) RegisterDrawAction(h handler.Draw) handler.Token {
	return e.onDraw.Register(h)
}

// RegisterDrawHudAction inserts a screen-space draw handler at the given
// order: positive draws above, negative below, ties keep registration
// order.
func (e *Engine) RegisterDrawHudAction(h handler.Hud, order int) handler.Token {
	return e.onHud.Register(h, order)
}

// RegisterResizeAction appends a resize handler.
func (e *Engine) RegisterResizeAction(h handler.Resize) handler.Token {
	return e.onResize.Register(h)
}

// Unregister removes a registration from whichever registry issued the
// token. Returns false for unknown tokens.
func (e *Engine) Unregister(t handler.Token) bool {
	return e.onInput.Remove(t) ||
		e.onTick.Remove(t) ||
		e.onDraw.Remove(t) ||
		e.onHud.Remove(t) ||
		e.onResize.Remove(t)
}

// Session lifecycle.

// StartGame constructs a session through the generator and installs it.
// Returns session.ErrGameRunning when one is already active.
func (e *Engine) StartGame(gen GameGenerator) error {
	if e.sessions.Active() {
		return session.ErrGameRunning
	}
	group := job.NewGroup()
	e.gameGroup = group

	g, err := gen.Generate(e)
	if err != nil {
		e.gameGroup = nil
		return fmt.Errorf("engine: generate game: %w", err)
	}
	if err := e.sessions.Start(g); err != nil {
		e.gameGroup = nil
		return err
	}
	return nil
}

// AdoptGame installs an already-constructed session, transferring
// ownership to the engine.
func (e *Engine) AdoptGame(g session.Game) error {
	if e.sessions.Active() {
		return session.ErrGameRunning
	}
	e.gameGroup = job.NewGroup()
	if err := e.sessions.Start(g); err != nil {
		e.gameGroup = nil
		return err
	}
	return nil
}

// EndGame tears down the active session. The session's job group is
// invalidated first, so completions of work it submitted can never
// reach a destroyed game; then the game closes (releasing its handler
// registrations) before the slot clears.
func (e *Engine) EndGame() error {
	if !e.sessions.Active() {
		return session.ErrNoGame
	}
	if e.gameGroup != nil {
		e.gameGroup.Invalidate()
		e.gameGroup = nil
	}
	return e.sessions.End()
}

// Game returns the active session, or nil.
func (e *Engine) Game() session.Game {
	return e.sessions.Game()
}

// GameGroup returns the job group of the active session. Game code
// submits its background work with job.WithGroup(e.GameGroup()) so the
// work dies with the session. nil when no session is active.
func (e *Engine) GameGroup() *job.Group {
	return e.gameGroup
}

// OnResize records a new surface size reported by the platform layer.
// The projection recompute and the fan-out to resize handlers happen in
// the resize phase of the next iteration, preserving the fixed phase
// order. Loop goroutine only.
func (e *Engine) OnResize(size coord.Viewport) {
	e.pendingResize = &size
}

// Accessors.

// RootDir returns the data directory the engine was started from.
func (e *Engine) RootDir() string { return e.rootDir }

// Jobs returns the background job manager.
func (e *Engine) Jobs() *job.Manager { return e.jobs }

// Audio returns the audio collaborator.
func (e *Engine) Audio() AudioMixer { return e.audio }

// Screenshots returns the screenshot manager.
func (e *Engine) Screenshots() *screenshot.Manager { return e.shots }

// Actions returns the named action registry.
func (e *Engine) Actions() *input.ActionManager { return e.actions }

// CVars returns the configuration variable manager.
func (e *Engine) CVars() *cvar.Manager { return e.cvars }

// Input returns the keybind manager.
func (e *Engine) Input() *input.Manager { return e.inputMgr }

// Selection returns the unit selection.
func (e *Engine) Selection() UnitSelection { return e.selection }

// Text returns the text renderer collaborator.
func (e *Engine) Text() TextRenderer { return e.text }

// Viewport returns the current surface size.
func (e *Engine) Viewport() coord.Viewport { return e.camera.Viewport }

// LastFrameDuration returns the handler-work duration of the previous
// iteration, for frame-rate-independent logic.
func (e *Engine) LastFrameDuration() time.Duration {
	return e.clock.LastDuration()
}

// Clock returns the frame clock.
func (e *Engine) Clock() *Clock { return e.clock }
