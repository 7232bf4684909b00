package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/FACorreiaa/statement-ledger/internal/model"
)

func newTemplatesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage bank templates",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored bank templates",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				templates, err := a.deps.Store.LoadBankTemplates(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(templates))
				for _, t := range templates {
					t = t.WithDefaults()
					rows = append(rows, []string{
						t.Key(), t.Bank, string(t.Format), string(t.ReadMode),
						columnMap(t.ColumnMap), strconv.Itoa(t.SkipTopLines), strconv.Itoa(t.SkipBottomLines),
					})
				}
				printTable(cmd.OutOrStdout(), []string{"Chave", "Banco", "Formato", "Leitura", "Colunas", "Pular topo", "Pular fim"}, rows)
				return nil
			},
		},
		newTemplatesAddCommand(a),
		&cobra.Command{
			Use:   "delete <bank>",
			Short: "Delete a bank template",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				key := model.TemplateKey(args[0])
				if err := a.deps.Store.DeleteBankTemplate(cmd.Context(), key); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "template %s deleted\n", key)
				return nil
			},
		},
	)

	return cmd
}

func newTemplatesAddCommand(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "add -f templates.yaml",
		Short: "Add or replace bank templates from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var templates []model.BankTemplate
			if err := readYAML(file, &templates); err != nil {
				return err
			}
			if len(templates) == 0 {
				return errNoEntries
			}

			for _, t := range templates {
				if err := t.Validate(); err != nil {
					return fmt.Errorf("template %q: %w", t.Bank, err)
				}
			}
			for _, t := range templates {
				if err := a.deps.Store.SaveBankTemplate(cmd.Context(), t); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "template %s saved\n", t.Key())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with a list of templates")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// readYAML decodes a YAML file into v.
func readYAML(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func columnMap(m map[string]int) string {
	if len(m) == 0 {
		return ""
	}
	parts := make([]string, 0, len(m))
	for _, name := range []string{model.ColumnDate, model.ColumnDescription, model.ColumnAmount, model.ColumnBalance} {
		if idx, ok := m[name]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", name, idx))
		}
	}
	return strings.Join(parts, " ")
}

var errNoEntries = errors.New("file has no entries")
