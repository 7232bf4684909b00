package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-ledger/internal/model"
	"github.com/FACorreiaa/statement-ledger/pkg/money"
)

func newRulesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage custom rules",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List custom rules in priority order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				rules, err := a.deps.CategorizationService.ListRules(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(rules))
				for _, r := range rules {
					match := "contém"
					if r.ExactMatch {
						match = "exato"
					}
					rows = append(rows, []string{
						r.ID, r.KeyTerm, match, string(r.MovementTypeFilter),
						amountConstraint(r), r.LedgerLabel, r.DebitAccount, r.CreditAccount,
					})
				}
				printTable(cmd.OutOrStdout(), []string{"ID", "Termo", "Busca", "Movimento", "Valor", "Categoria", "Débito", "Crédito"}, rows)
				return nil
			},
		},
		newRulesAddCommand(a),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a custom rule",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.deps.CategorizationService.DeleteRule(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rule %s deleted\n", args[0])
				return nil
			},
		},
	)

	return cmd
}

func newRulesAddCommand(a *app) *cobra.Command {
	var (
		rule                    model.CustomRule
		movement                string
		exact, minimum, maximum string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a custom rule and apply it to unreviewed transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rule.MovementTypeFilter = model.MovementFilter(movement)

			var err error
			if rule.ExactAmount, err = parseAmountFlag(exact); err != nil {
				return fmt.Errorf("--amount: %w", err)
			}
			if rule.MinAmount, err = parseAmountFlag(minimum); err != nil {
				return fmt.Errorf("--min: %w", err)
			}
			if rule.MaxAmount, err = parseAmountFlag(maximum); err != nil {
				return fmt.Errorf("--max: %w", err)
			}
			rule.ConsiderAmount = rule.ExactAmount != nil || rule.MinAmount != nil || rule.MaxAmount != nil

			created, updated, err := a.deps.CategorizationService.CreateRule(cmd.Context(), rule)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "rule %s created, applied to %d transactions\n", created.ID, updated)
			return nil
		},
	}

	cmd.Flags().StringVar(&rule.KeyTerm, "term", "", "key term matched against normalized descriptions")
	cmd.Flags().BoolVar(&rule.ExactMatch, "exact", false, "require the whole description to equal the term")
	cmd.Flags().StringVar(&movement, "movement", string(model.FilterEither), "incoming, outgoing or either")
	cmd.Flags().StringVar(&exact, "amount", "", "exact amount, e.g. -50,00")
	cmd.Flags().StringVar(&minimum, "min", "", "minimum amount")
	cmd.Flags().StringVar(&maximum, "max", "", "maximum amount")
	cmd.Flags().StringVar(&rule.LedgerLabel, "label", "", "ledger label")
	cmd.Flags().StringVar(&rule.DebitAccount, "debit", "", "debit account")
	cmd.Flags().StringVar(&rule.CreditAccount, "credit", "", "credit account")
	cmd.Flags().StringVar(&rule.LedgerMemo, "memo", "", "ledger memo")
	_ = cmd.MarkFlagRequired("term")

	return cmd
}

// parseAmountFlag accepts Brazilian amounts; empty means unset.
func parseAmountFlag(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := money.ParseBRL(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func amountConstraint(r model.CustomRule) string {
	if !r.ConsiderAmount {
		return ""
	}
	if r.ExactAmount != nil {
		return "= " + decimalString(r.ExactAmount)
	}
	switch {
	case r.MinAmount != nil && r.MaxAmount != nil:
		return decimalString(r.MinAmount) + " a " + decimalString(r.MaxAmount)
	case r.MinAmount != nil:
		return ">= " + decimalString(r.MinAmount)
	case r.MaxAmount != nil:
		return "<= " + decimalString(r.MaxAmount)
	}
	return ""
}
