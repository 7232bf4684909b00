package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/model"
	"github.com/FACorreiaa/statement-ledger/pkg/money"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// printTable renders rows with a header line.
func printTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}

func transactionRows(txs []model.Transaction) [][]string {
	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		reviewed := ""
		if tx.ManuallyReviewed {
			reviewed = "✓"
		}
		rows = append(rows, []string{
			tx.ID,
			tx.Date.Format("02/01/2006"),
			truncate(tx.RawDescription, 48),
			money.FormatBRL(tx.Amount),
			tx.Bank,
			tx.LedgerLabel,
			tx.DebitAccount,
			tx.CreditAccount,
			reviewed,
		})
	}
	return rows
}

var transactionHeaders = []string{"ID", "Data", "Descrição", "Valor", "Banco", "Categoria", "Débito", "Crédito", "Revisado"}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func decimalString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return money.FormatBRL(*d)
}

func splitIDs(values []string) []string {
	var ids []string
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
