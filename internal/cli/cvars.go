package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fenwalt/ember/internal/config"
)

// NewCVarCommand creates the cvar command group. The subcommands work
// directly on the persisted store named by the config file; the engine
// does not need to be running.
func NewCVarCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cvar",
		Short: "Inspect and edit persisted configuration variables",
	}
	cmd.AddCommand(newCVarListCommand(rootOpts))
	cmd.AddCommand(newCVarGetCommand(rootOpts))
	cmd.AddCommand(newCVarSetCommand(rootOpts))
	return cmd
}

func newCVarListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List persisted cvar values",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, _, err := loadPersisted(rootOpts.ConfigPath, cmd)
			if err != nil {
				return err
			}
			if len(values) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("no persisted cvars"))
				return nil
			}

			names := make([]string, 0, len(values))
			for name := range values {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n",
					keyStyle.Render(name), values[name])
			}
			return nil
		},
	}
}

func newCVarGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <name>",
		Short:         "Print one persisted cvar value",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, _, err := loadPersisted(rootOpts.ConfigPath, cmd)
			if err != nil {
				return err
			}
			value, ok := values[args[0]]
			if !ok {
				return NewExitError(ExitFailure, fmt.Sprintf("cvar %q not persisted", args[0]))
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

func newCVarSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "set <name> <value>",
		Short:         "Persist a cvar value",
		Long:          "Persist a cvar value. A running engine picks it up on its next load.",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, save, err := loadPersisted(rootOpts.ConfigPath, cmd)
			if err != nil {
				return err
			}
			values[args[0]] = args[1]
			if err := save(values); err != nil {
				return WrapExitError(ExitFailure, "failed to save cvars", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", keyStyle.Render(args[0]), args[1])
			return nil
		},
	}
}

// loadPersisted opens the configured store and returns its contents
// plus a save function. The store is closed when the command's context
// ends, which for CLI use means process exit.
func loadPersisted(configPath string, cmd *cobra.Command) (map[string]string, func(map[string]string) error, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if cfg.CVarPath == "" {
		return nil, nil, NewExitError(ExitCommandError, "config has no cvar_path; nothing is persisted")
	}

	store, closer, err := openStore(cfg.CVarPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open cvar store", err)
	}
	cobra.OnFinalize(func() { _ = closer.Close() })

	values, err := store.Load(cmd.Context())
	if err != nil {
		return nil, nil, WrapExitError(ExitFailure, "failed to read cvars", err)
	}
	save := func(v map[string]string) error {
		return store.Save(cmd.Context(), v)
	}
	return values, save, nil
}
