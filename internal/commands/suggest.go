package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSuggestCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest <id>",
		Short: "Rank mappings whose keywords resemble a transaction's description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := a.deps.LedgerService.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			suggestions, err := a.deps.CategorizationService.Suggest(cmd.Context(), tx, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", tx.RawDescription, tx.NormalizedDescription())
			if len(suggestions) == 0 {
				fmt.Fprintln(out, "no similar mappings")
				return nil
			}

			rows := make([][]string, 0, len(suggestions))
			for _, s := range suggestions {
				rows = append(rows, []string{s.MappingID, s.LedgerLabel, s.Keyword, fmt.Sprint(s.Score), fmt.Sprint(s.Distance)})
			}
			printTable(out, []string{"Mapeamento", "Categoria", "Palavra-chave", "Score", "Distância"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 5, "maximum number of suggestions")

	return cmd
}
