package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/parser"
	importservice "github.com/FACorreiaa/statement-ledger/internal/domain/import/service"
)

func newImportCommand(a *app) *cobra.Command {
	var bank string

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import PDF, CSV or OFX statements",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed int
			for _, path := range args {
				if err := runImport(cmd, a.deps, path, bank); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", filepath.Base(path), err)
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bank, "bank", "auto", `bank template to use ("auto" detects it)`)

	return cmd
}

func runImport(cmd *cobra.Command, deps *Dependencies, path, bank string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading statement: %w", err)
	}

	doc := parser.Document{Name: filepath.Base(path), Data: data}
	result, err := deps.ImportService.Import(cmd.Context(), doc, bank)
	if errors.Is(err, importservice.ErrNothingImported) {
		printRowErrors(cmd, result.Errors)
		return errors.New("no transactions found")
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: imported %d transactions (bank %s, %s), %d classified, %d rows skipped\n",
		doc.Name, result.RowsImported, result.Bank, result.Strategy, result.Classified, result.RowsFailed)
	printRowErrors(cmd, result.Errors)
	return nil
}

func printRowErrors(cmd *cobra.Command, errs []string) {
	for _, e := range errs {
		fmt.Fprintf(cmd.ErrOrStderr(), "  skipped %s\n", e)
	}
}
