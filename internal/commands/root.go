// Package commands implements the statement-ledger command line.
package commands

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-ledger/pkg/config"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// app carries state shared by every subcommand of one invocation.
type app struct {
	envFile string
	dataDir string
	deps    *Dependencies
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return (&app{}).rootCommand()
}

// Execute runs the CLI with args and releases resources afterwards, also
// when the command fails.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if a.deps != nil {
		err = errors.Join(err, a.deps.Cleanup())
	}
	return err
}

func (a *app) rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "statement-ledger",
		Short:   "Import bank statements and classify them into accounting entries",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load")
	rootCmd.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "data directory for the file store (overrides DATA_DIR)")

	rootCmd.AddCommand(
		newImportCommand(a),
		newRemapCommand(a),
		newRefreshCommand(a),
		newEditCommand(a),
		newTransactionsCommand(a),
		newTemplatesCommand(a),
		newMappingsCommand(a),
		newRulesCommand(a),
		newPresetsCommand(a),
		newSuggestCommand(a),
		newExportCommand(a),
	)

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.deps != nil {
		return nil
	}

	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	if a.dataDir != "" {
		cfg.Store.DataDir = a.dataDir
	}

	logger := cfg.Log.NewLogger(cmd.ErrOrStderr())
	deps, err := InitDependencies(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	a.deps = deps
	return nil
}
