package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPresetsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Save and restore snapshots of the mapping list",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved presets",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				presets, err := a.deps.CategorizationService.ListPresets(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(presets))
				for _, p := range presets {
					rows = append(rows, []string{p.Name, p.CreatedAt.Local().Format("02/01/2006 15:04"), fmt.Sprint(len(p.Mappings))})
				}
				printTable(cmd.OutOrStdout(), []string{"Nome", "Criado em", "Mapeamentos"}, rows)
				return nil
			},
		},
		&cobra.Command{
			Use:   "save <name>",
			Short: "Snapshot the current mappings",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := a.deps.CategorizationService.SavePreset(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "preset %q saved with %d mappings\n", p.Name, len(p.Mappings))
				return nil
			},
		},
		&cobra.Command{
			Use:   "load <name>",
			Short: "Replace the current mappings with a preset (run remap afterwards)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := a.deps.CategorizationService.LoadPreset(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "preset %q loaded, %d mappings active\n", p.Name, len(p.Mappings))
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a preset",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.deps.CategorizationService.DeletePreset(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "preset %q deleted\n", args[0])
				return nil
			},
		},
	)

	return cmd
}
