package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-ledger/internal/domain/categorization"
	"github.com/FACorreiaa/statement-ledger/internal/model"
)

func newMappingsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Manage accounting mappings",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List accounting mappings in priority order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				mappings, err := a.deps.CategorizationService.ListMappings(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(mappings))
				for _, m := range mappings {
					rows = append(rows, []string{
						m.ID, m.LedgerLabel, string(m.MovementTypeFilter),
						strings.Join(m.Keywords, ", "), m.AdvancedRegex,
						m.DebitAccount, m.CreditAccount, fmt.Sprint(len(m.SubMappings)),
					})
				}
				printTable(cmd.OutOrStdout(), []string{"ID", "Categoria", "Movimento", "Palavras-chave", "Regex", "Débito", "Crédito", "Sub"}, rows)
				return nil
			},
		},
		newMappingsAddCommand(a),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete an accounting mapping",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.deps.CategorizationService.DeleteMapping(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "mapping %s deleted\n", args[0])
				return nil
			},
		},
	)

	return cmd
}

func newMappingsAddCommand(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "add -f mappings.yaml",
		Short: "Add mappings from a YAML file; entries with a known id replace it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var mappings []model.AccountingMapping
			if err := readYAML(file, &mappings); err != nil {
				return err
			}
			if len(mappings) == 0 {
				return errNoEntries
			}

			svc := a.deps.CategorizationService
			out := cmd.OutOrStdout()
			for _, m := range mappings {
				if m.ID != "" {
					err := svc.UpdateMapping(cmd.Context(), m)
					if err == nil {
						fmt.Fprintf(out, "mapping %s updated\n", m.ID)
						continue
					}
					if !errors.Is(err, categorization.ErrNotFound) {
						return fmt.Errorf("mapping %q: %w", m.LedgerLabel, err)
					}
				}

				created, err := svc.CreateMapping(cmd.Context(), m)
				if err != nil {
					return fmt.Errorf("mapping %q: %w", m.LedgerLabel, err)
				}
				fmt.Fprintf(out, "mapping %s created (%s)\n", created.ID, created.LedgerLabel)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with a list of mappings")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
