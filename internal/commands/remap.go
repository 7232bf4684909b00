package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-ledger/internal/domain/categorization"
	"github.com/FACorreiaa/statement-ledger/internal/model"
)

func newRemapCommand(a *app) *cobra.Command {
	var ids []string

	cmd := &cobra.Command{
		Use:   "remap",
		Short: "Re-run classification over unreviewed transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := a.deps.CategorizationService

			var (
				result categorization.RemapResult
				err    error
			)
			if selected := splitIDs(ids); len(selected) > 0 {
				result, err = svc.RemapSelected(cmd.Context(), selected)
			} else {
				result, err = svc.RemapAll(cmd.Context())
			}
			if err != nil {
				return err
			}

			printRemap(cmd, "remapped", result)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&ids, "ids", nil, "only remap these transaction ids")

	return cmd
}

func newRefreshCommand(a *app) *cobra.Command {
	var ids []string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Re-derive normalized descriptions and remap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := a.deps.CategorizationService.RefreshDescriptions(cmd.Context(), splitIDs(ids))
			if err != nil {
				return err
			}

			printRemap(cmd, "refreshed", result)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&ids, "ids", nil, "only refresh these transaction ids")

	return cmd
}

func printRemap(cmd *cobra.Command, verb string, r categorization.RemapResult) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d of %d transactions (%d reviewed skipped, %d unmatched)\n",
		verb, r.Updated, r.Considered, r.Skipped, r.Unmatched)
}

func newEditCommand(a *app) *cobra.Command {
	var (
		c       model.Classification
		rule    string
		keyTerm string
	)

	cmd := &cobra.Command{
		Use:   "edit <transaction-id>",
		Short: "Classify a transaction by hand, optionally saving a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req *categorization.RuleRequest
			if rule != "" {
				req = &categorization.RuleRequest{Kind: categorization.RuleKind(rule), KeyTerm: keyTerm}
			}

			propagated, err := a.deps.CategorizationService.ApplyManualEdit(cmd.Context(), args[0], c, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "transaction %s marked as reviewed\n", args[0])
			if req != nil {
				fmt.Fprintf(out, "rule saved, applied to %d other transactions\n", propagated)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&c.LedgerLabel, "label", "", "ledger label")
	cmd.Flags().StringVar(&c.DebitAccount, "debit", "", "debit account")
	cmd.Flags().StringVar(&c.CreditAccount, "credit", "", "credit account")
	cmd.Flags().StringVar(&c.LedgerMemo, "memo", "", "ledger memo")
	cmd.Flags().StringVar(&rule, "rule", "", "also save a rule: contains, exact or exact_value")
	cmd.Flags().StringVar(&keyTerm, "key-term", "", "rule key term (defaults to the normalized description)")

	return cmd
}
