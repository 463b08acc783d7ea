package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fenwalt/ember/internal/config"
	"github.com/fenwalt/ember/internal/cvar"
	"github.com/fenwalt/ember/internal/engine"
	"github.com/fenwalt/ember/internal/input"
	"github.com/fenwalt/ember/internal/logging"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	FPSLimit int
	Workers  int

	// Source overrides the engine's event source (for testing). nil
	// leaves the config-built engine with an empty slice source.
	Source input.Source
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the engine loop",
		Long: `Start the engine frame loop with the configured mode.

Headless mode needs no window; the loop runs input, job completion,
tick, draw, hud, and resize dispatch each iteration until interrupted.

Example:
  ember run --config ember.yaml
  ember run --fps 60 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.FPSLimit, "fps", -1, "frame rate cap, 0 for uncapped (overrides config)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "job worker count (overrides config)")

	return cmd
}

func runEngine(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.FPSLimit >= 0 {
		cfg.FPSLimit = opts.FPSLimit
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure logging", err)
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := logging.New(cmd.ErrOrStderr(), level, logging.Format(cfg.LogFormat))

	mode, err := engine.ParseMode(cfg.Mode)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to select mode", err)
	}
	if mode != engine.ModeHeadless {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("mode %q needs a windowing platform; this build runs headless only", cfg.Mode))
	}

	store, closer, err := openStore(cfg.CVarPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open cvar store", err)
	}
	defer func() {
		if closeErr := closer.Close(); closeErr != nil {
			logger.Error("closing cvar store", slog.String("error", closeErr.Error()))
		}
	}()

	cvars := cvar.NewManager(store, logger)

	source := opts.Source
	if source == nil {
		source = input.NewSliceSource()
	}

	eng, err := engine.New(
		engine.Config{Mode: mode, RootDir: cfg.RootDir, CVars: cvars},
		engine.WithLogger(logger),
		engine.WithEventSource(source),
		engine.WithWorkers(cfg.Workers),
		engine.WithTargetFPS(cfg.FPSLimit),
		engine.WithHudDrawing(cfg.DrawHud),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build engine", err)
	}

	// Persisted values overwrite the defaults the engine just defined.
	if err := cvars.Load(cmd.Context()); err != nil {
		return WrapExitError(ExitCommandError, "failed to load cvars", err)
	}

	if err := registerDefaultBinds(eng); err != nil {
		return WrapExitError(ExitCommandError, "failed to register binds", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
			eng.Stop()
		case <-ctx.Done():
		}
	}()

	if opts.Verbose {
		watchBinds(ctx, eng, cmd)
	}

	fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render("ember "+engine.Version),
		dimStyle.Render("("+mode.String()+")"))
	fmt.Fprintln(cmd.OutOrStdout(), "Engine started. Press Ctrl-C to stop.")

	start := time.Now()
	if err := eng.Run(ctx); err != nil {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	if err := cvars.Save(context.Background()); err != nil {
		logger.Error("saving cvars", slog.String("error", err.Error()))
	}

	fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render("stopped"),
		dimStyle.Render(fmt.Sprintf("uptime %s, %d jobs completed",
			time.Since(start).Round(time.Millisecond), eng.Jobs().Completed())))
	return nil
}

// registerDefaultBinds installs the stock actions and their keys. A
// platform feeding real key events triggers them; headless runs still
// surface the table through the binds bus.
func registerDefaultBinds(eng *engine.Engine) error {
	if err := eng.Actions().Register("quit", func(input.Event) error {
		eng.Stop()
		return nil
	}); err != nil {
		return err
	}
	if err := eng.Input().Bind("q", "quit"); err != nil {
		return err
	}
	return nil
}

// watchBinds prints every keybind table broadcast until ctx ends.
func watchBinds(ctx context.Context, eng *engine.Engine, cmd *cobra.Command) {
	ch, unsubscribe := eng.Input().Binds().Subscribe()
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case binds, ok := <-ch:
				if !ok {
					return
				}
				fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render("binds:"))
				for _, line := range binds {
					fmt.Fprintln(cmd.ErrOrStderr(), "  "+keyStyle.Render(line))
				}
			}
		}
	}()
	eng.Input().Announce()
}
