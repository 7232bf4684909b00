package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-ledger/internal/domain/export"
)

func newExportCommand(a *app) *cobra.Command {
	var (
		flags  filterFlags
		format string
		layout string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions as csv, json, txt or xlsx",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			txs, err := a.deps.LedgerService.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			f := export.Format(format)
			if output == "-" {
				return a.deps.Exporter.Export(cmd.OutOrStdout(), txs, f, layout)
			}
			if output == "" {
				output = export.FileName(f, time.Now())
			}

			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer func() {
				if cerr := file.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			if err := a.deps.Exporter.Export(file, txs, f, layout); err != nil {
				_ = os.Remove(output)
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d transactions written to %s\n", len(txs), output)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", string(export.FormatCSV), "csv, json, txt or xlsx")
	cmd.Flags().StringVar(&layout, "layout", "", "export layout name (format default when empty)")
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default transacoes_<timestamp>.<format>)`)

	return cmd
}
