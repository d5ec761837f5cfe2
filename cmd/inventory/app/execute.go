package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/matt653/high-life-auto-sub000/cmd/inventory/cmd/enhance"
	"github.com/matt653/high-life-auto-sub000/cmd/inventory/cmd/ingest"
	"github.com/matt653/high-life-auto-sub000/cmd/inventory/cmd/list"
	"github.com/matt653/high-life-auto-sub000/cmd/inventory/cmd/serve"
	"github.com/matt653/high-life-auto-sub000/cmd/inventory/cmd/version"
	"github.com/matt653/high-life-auto-sub000/cmd/inventory/cmd/view"
)

// Execute runs the CLI with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "inventory",
		Short:   "Vehicle inventory reconciliation",
		Version: a.version,
		Long: `Inventory ingests dealer feeds, resolves vehicle identities and merges
each vehicle with its enhancement record (descriptions, grades, manager
notes and field overrides) into the view served to storefronts.

Price, stock number, year, make, model, VIN and the base comments always
come from the feed; everything else may be refined by an enhancement.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "management", Title: "Management Commands:"},
	)

	rootCmd.PersistentFlags().StringVar(&a.config.ConfigFile, "config", "", "config file (default is $HOME/.inventory.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringP("format", "o", "", "output format: table, json, yaml, wide")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.SetVersionTemplate("inventory {{.Version}}\n")

	a.registerCommands(rootCmd)
	return rootCmd
}

// setupCommand reloads the configuration when --config names a file and
// applies the persistent flags before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("config") {
		config, err := LoadConfig(a.config.ConfigFile)
		if err != nil {
			return err
		}
		a.config = config
	}

	a.config.UpdateFromFlags(
		mustGetBool(cmd, "verbose"),
		mustGetBool(cmd, "quiet"),
		mustGetBool(cmd, "no-color"),
		mustGetString(cmd, "format"),
		mustGetString(cmd, "log-level"),
	)

	logger := NewLogger(a.config)
	a.logger = &logger
	return nil
}

func (a *App) registerCommands(rootCmd *cobra.Command) {
	for _, c := range []*cobra.Command{
		ingest.NewCommand(a),
		list.NewCommand(a),
		view.NewCommand(a),
		serve.NewCommand(a),
	} {
		c.GroupID = "core"
		rootCmd.AddCommand(c)
	}

	enhanceCmd := enhance.NewCommand(a)
	enhanceCmd.GroupID = "management"
	rootCmd.AddCommand(enhanceCmd)

	rootCmd.AddCommand(version.NewCommand(a))
}

// ExitOnError prints err and exits with status 1. It does nothing when err
// is nil.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
