// Package export writes transactions as CSV, JSON, fixed-width TXT or XLSX.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/statement-ledger/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatTXT  Format = "txt"
	FormatXLSX Format = "xlsx"
)

const sheetName = "Transações"

// ErrUnsupportedFormat is returned for formats the exporter does not write.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Exporter renders transactions through named layouts.
type Exporter struct {
	layouts map[string]Layout
	logger  *slog.Logger
}

// NewExporter creates an exporter with the built-in layouts plus extra ones.
// Extra layouts replace built-ins with the same name.
func NewExporter(logger *slog.Logger, extra ...Layout) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Exporter{layouts: make(map[string]Layout), logger: logger}
	for _, l := range append(DefaultLayouts(), extra...) {
		e.layouts[strings.ToLower(l.Name)] = l
	}
	return e
}

// Layout returns the named layout, or the format's default when name is empty.
func (e *Exporter) Layout(format Format, name string) (Layout, error) {
	if name == "" {
		switch format {
		case FormatTXT:
			name = DefaultTXTLayout
		default:
			name = DefaultCSVLayout
		}
	}
	l, ok := e.layouts[strings.ToLower(name)]
	if !ok {
		return Layout{}, fmt.Errorf("%w: layout %q not found", ErrInvalidLayout, name)
	}
	return l, nil
}

// Export writes txs to w in format using the named layout ("" for the
// default). JSON ignores layouts and writes the stored record shape.
func (e *Exporter) Export(w io.Writer, txs []model.Transaction, format Format, layoutName string) error {
	var err error
	switch format {
	case FormatJSON:
		err = writeJSON(w, txs)
	case FormatCSV, FormatTXT, FormatXLSX:
		var layout Layout
		layout, err = e.Layout(format, layoutName)
		if err != nil {
			return err
		}
		switch format {
		case FormatCSV:
			err = writeCSV(w, txs, layout)
		case FormatTXT:
			err = writeTXT(w, txs, layout)
		default:
			err = writeXLSX(w, txs, layout)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if err != nil {
		e.logger.Error("export failed", slog.String("format", string(format)), slog.Any("error", err))
		return fmt.Errorf("exporting %s: %w", format, err)
	}

	e.logger.Info("transactions exported",
		slog.String("format", string(format)),
		slog.String("layout", layoutName),
		slog.Int("count", len(txs)),
	)
	return nil
}

// FileName returns the conventional export file name for format at now.
func FileName(format Format, now time.Time) string {
	return fmt.Sprintf("transacoes_%s.%s", now.Format("20060102_150405"), format)
}

// csvRow is the default CSV layout as a gocsv record.
type csvRow struct {
	Date          string `csv:"Data"`
	Description   string `csv:"Descrição"`
	Amount        string `csv:"Valor"`
	MovementType  string `csv:"Tipo"`
	Bank          string `csv:"Banco"`
	LedgerLabel   string `csv:"Categoria"`
	DebitAccount  string `csv:"Conta Débito"`
	CreditAccount string `csv:"Conta Crédito"`
	LedgerMemo    string `csv:"Histórico"`
}

func writeCSV(w io.Writer, txs []model.Transaction, layout Layout) error {
	writer := gocsv.NewSafeCSVWriter(csv.NewWriter(w))
	if layout.Delimiter != "" {
		writer.Comma = []rune(layout.Delimiter)[0]
	}

	if layout.Name == DefaultCSVLayout {
		rows := make([]csvRow, 0, len(txs))
		for _, tx := range txs {
			r := layout.Row(tx)
			rows = append(rows, csvRow{r[0], r[1], r[2], r[3], r[4], r[5], r[6], r[7], r[8]})
		}
		return gocsv.MarshalCSV(&rows, writer)
	}

	if err := writer.Write(layout.Headers()); err != nil {
		return err
	}
	for _, tx := range txs {
		if err := writer.Write(layout.Row(tx)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// writeTXT writes one delimited line per transaction without a header.
func writeTXT(w io.Writer, txs []model.Transaction, layout Layout) error {
	delimiter := layout.Delimiter
	if delimiter == "" {
		delimiter = "|"
	}
	for _, tx := range txs {
		if _, err := io.WriteString(w, strings.Join(layout.Row(tx), delimiter)+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, txs []model.Transaction) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(model.ToRecords(txs))
}

// writeXLSX writes a single sheet with a bold header. Amount columns are
// numeric cells so spreadsheets can sum them.
func writeXLSX(w io.Writer, txs []model.Transaction, layout Layout) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	amountFormat := "#,##0.00"
	amountStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &amountFormat})
	if err != nil {
		return err
	}

	headers := make([]interface{}, len(layout.Columns))
	for i, h := range layout.Headers() {
		headers[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return err
	}
	lastCol, err := excelize.CoordinatesToCellName(len(layout.Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", lastCol, headerStyle); err != nil {
		return err
	}

	for i, tx := range txs {
		rowIdx := i + 2
		row := make([]interface{}, len(layout.Columns))
		for j, c := range layout.Columns {
			if c.Field == FieldAmount && c.FixedWidth == 0 {
				row[j] = tx.Amount.InexactFloat64()
				continue
			}
			row[j] = c.Render(tx)
		}

		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}

	for j, c := range layout.Columns {
		if c.Field != FieldAmount || len(txs) == 0 {
			continue
		}
		top, _ := excelize.CoordinatesToCellName(j+1, 2)
		bottom, _ := excelize.CoordinatesToCellName(j+1, len(txs)+1)
		if err := f.SetCellStyle(sheetName, top, bottom, amountStyle); err != nil {
			return err
		}
	}

	return f.Write(w)
}
