package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/sniffer"
	"github.com/FACorreiaa/statement-ledger/internal/model"
)

// processCSV reads a delimited statement. The first record is the header row;
// the template's skip counts then apply to the data rows.
func (p *Parser) processCSV(doc Document, tmpl model.BankTemplate) (*Result, error) {
	data := sniffer.StripBOM(doc.Data)
	delimiter := sniffer.DetectDelimiter(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // Allow variable fields

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV %s: %w", doc.Name, err)
	}

	result := &Result{
		Strategy: string(model.FormatCSV),
		Bank:     tmpl.Bank,
		Template: tmpl,
	}
	if len(records) == 0 {
		return result, nil
	}

	dateIdx, _ := tmpl.Column(model.ColumnDate)
	descIdx, _ := tmpl.Column(model.ColumnDescription)
	amountIdx, _ := tmpl.Column(model.ColumnAmount)

	// Row numbers are 1-based and count the header
	dataRows := window(records[1:], tmpl.SkipTopLines, tmpl.SkipBottomLines)
	for i, record := range dataRows {
		row := tmpl.SkipTopLines + i + 2
		if isBlankRecord(record) {
			continue
		}

		raw := strings.Join(record, string(delimiter))
		if missing, ok := firstMissingColumn(record, dateIdx, descIdx, amountIdx); ok {
			result.Errors = append(result.Errors, ParseError{
				Row:     row,
				Column:  fmt.Sprintf("%d", missing),
				Message: fmt.Sprintf("row has %d columns", len(record)),
				RawData: raw,
			})
			continue
		}

		tx, perr := buildTransaction(row, record[dateIdx], record[descIdx], record[amountIdx], tmpl.Bank, raw)
		if perr != nil {
			result.Errors = append(result.Errors, *perr)
			continue
		}
		result.Transactions = append(result.Transactions, tx)
	}

	p.logParseErrors(result.Errors)
	p.logger.Info("CSV parsed",
		slog.String("bank", tmpl.Bank),
		slog.Int("transactions", len(result.Transactions)),
		slog.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// firstMissingColumn reports the first index that cannot be read from record.
// Negative indexes count as missing.
func firstMissingColumn(record []string, indexes ...int) (int, bool) {
	for _, idx := range indexes {
		if idx < 0 || idx >= len(record) {
			return idx, true
		}
	}
	return 0, false
}

func isBlankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
