package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/FACorreiaa/statement-ledger/internal/model"
	"github.com/FACorreiaa/statement-ledger/pkg/money"
)

// StatementDateLayout is the DD/MM/YYYY layout printed on statements.
const StatementDateLayout = "02/01/2006"

// buildTransaction converts the textual pieces of one row. The returned
// ParseError is nil on success.
func buildTransaction(row int, dateText, description, amountText, bank, raw string) (model.Transaction, *ParseError) {
	date, err := time.Parse(StatementDateLayout, strings.TrimSpace(dateText))
	if err != nil {
		return model.Transaction{}, &ParseError{
			Row:     row,
			Column:  model.ColumnDate,
			Message: fmt.Sprintf("invalid date %q", dateText),
			RawData: raw,
		}
	}

	amount, err := money.ParseBRL(amountText)
	if err != nil {
		return model.Transaction{}, &ParseError{
			Row:     row,
			Column:  model.ColumnAmount,
			Message: err.Error(),
			RawData: raw,
		}
	}

	return model.NewTransaction(date, strings.TrimSpace(description), amount, bank), nil
}

// window returns items with skipTop removed from the start and skipBottom from
// the end. It is empty when the skips overlap.
func window[T any](items []T, skipTop, skipBottom int) []T {
	end := len(items) - skipBottom
	if skipTop >= end {
		return nil
	}
	return items[skipTop:end]
}

// parseLines applies the template's regexes to every line of every page.
// A line becomes a transaction when it holds both a date and an amount.
func parseLines(pages []string, tmpl *compiledTemplate) ([]model.Transaction, []ParseError) {
	var txs []model.Transaction
	var errs []ParseError

	row := 0
	for _, page := range pages {
		lines := window(strings.Split(page, "\n"), tmpl.SkipTopLines, tmpl.SkipBottomLines)
		for _, line := range lines {
			row++
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			dateText := tmpl.date.FindString(line)
			amountText := tmpl.amount.FindString(line)
			if dateText == "" || amountText == "" {
				continue
			}

			tx, perr := buildTransaction(row, dateText, lineDescription(line, tmpl), amountText, tmpl.Bank, line)
			if perr != nil {
				errs = append(errs, *perr)
				continue
			}
			txs = append(txs, tx)
		}
	}

	return txs, errs
}

// lineDescription removes every date, amount and description-regex match from
// the line. When nothing is left the first description-regex match is used.
func lineDescription(line string, tmpl *compiledTemplate) string {
	desc := tmpl.date.ReplaceAllString(line, "")
	desc = tmpl.amount.ReplaceAllString(desc, "")
	desc = tmpl.description.ReplaceAllString(desc, "")
	desc = strings.TrimSpace(desc)
	if desc != "" {
		return desc
	}
	return strings.TrimSpace(tmpl.description.FindString(line))
}

// parseTable applies the template's column map to extracted table rows. Rows
// shorter than the highest mapped column are ignored.
func parseTable(tables [][][]string, tmpl *compiledTemplate) ([]model.Transaction, []ParseError) {
	if len(tmpl.ColumnMap) == 0 {
		return nil, nil
	}

	dateIdx, _ := tmpl.Column(model.ColumnDate)
	descIdx, _ := tmpl.Column(model.ColumnDescription)
	amountIdx, _ := tmpl.Column(model.ColumnAmount)
	if min(dateIdx, descIdx, amountIdx) < 0 {
		return nil, []ParseError{{Message: "template column map has a negative index"}}
	}
	width := max(tmpl.MaxColumn(), dateIdx, descIdx, amountIdx) + 1

	var txs []model.Transaction
	var errs []ParseError

	row := 0
	for _, table := range tables {
		for _, cells := range window(table, tmpl.SkipTopLines, tmpl.SkipBottomLines) {
			row++
			if len(cells) < width {
				continue
			}

			tx, perr := buildTransaction(row,
				cells[dateIdx], cells[descIdx], cells[amountIdx],
				tmpl.Bank, strings.Join(cells, " | "))
			if perr != nil {
				errs = append(errs, *perr)
				continue
			}
			txs = append(txs, tx)
		}
	}

	return txs, errs
}
