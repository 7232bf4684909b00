package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-ledger/internal/domain/ledger"
	"github.com/FACorreiaa/statement-ledger/internal/model"
	"github.com/FACorreiaa/statement-ledger/pkg/money"
)

// filterFlags are shared by list and export.
type filterFlags struct {
	bank   string
	mapped string
	from   string
	to     string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.bank, "bank", "", "only this bank")
	cmd.Flags().StringVar(&f.mapped, "mapped", string(ledger.MappedAll), "all, mapped or unmapped")
	cmd.Flags().StringVar(&f.from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.to, "to", "", "last date, YYYY-MM-DD")
}

func (f *filterFlags) filter() (ledger.Filter, error) {
	out := ledger.Filter{Bank: f.bank, Mapped: ledger.MappedState(f.mapped)}
	switch out.Mapped {
	case ledger.MappedAll, ledger.MappedOnly, ledger.MappedUnmapped:
	default:
		return out, fmt.Errorf("--mapped must be all, mapped or unmapped")
	}

	var err error
	if out.DateFrom, err = parseDate(f.from); err != nil {
		return out, fmt.Errorf("--from: %w", err)
	}
	if out.DateTo, err = parseDate(f.to); err != nil {
		return out, fmt.Errorf("--to: %w", err)
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(model.DateLayout, s)
}

func newTransactionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "List, summarize and delete stored transactions",
	}

	cmd.AddCommand(
		newTransactionsListCommand(a),
		newTransactionsStatsCommand(a),
		newTransactionsClearCommand(a),
		newTransactionsDeleteCommand(a),
	)

	return cmd
}

func newTransactionsListCommand(a *app) *cobra.Command {
	var (
		flags filterFlags
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}

			txs, err := a.deps.LedgerService.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if limit > 0 && len(txs) > limit {
				txs = txs[:limit]
			}

			printTable(cmd.OutOrStdout(), transactionHeaders, transactionRows(txs))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many")

	return cmd
}

func newTransactionsStatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show mapping coverage and totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.deps.LedgerService.Stats(cmd.Context())
			if err != nil {
				return err
			}

			printTable(cmd.OutOrStdout(), []string{"Total", "Mapeadas", "Não mapeadas", "% mapeadas", "Revisadas", "Créditos", "Débitos"}, [][]string{{
				fmt.Sprint(stats.Total),
				fmt.Sprint(stats.Mapped),
				fmt.Sprint(stats.Unmapped),
				fmt.Sprintf("%.1f%%", stats.MappedPercentage),
				fmt.Sprint(stats.Reviewed),
				money.FormatBRL(stats.TotalCredits),
				money.FormatBRL(stats.TotalDebits),
			}})
			return nil
		},
	}
}

func newTransactionsClearCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear without --yes")
			}

			n, err := a.deps.LedgerService.Clear(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed %d transactions\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm")

	return cmd
}

func newTransactionsDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete the given transactions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.deps.LedgerService.DeleteSelected(cmd.Context(), splitIDs(args))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed %d transactions\n", n)
			return nil
		},
	}
}
