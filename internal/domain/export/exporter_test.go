package export

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/statement-ledger/internal/model"
)

func testExporter(extra ...Layout) *Exporter {
	return NewExporter(slog.New(slog.NewTextHandler(io.Discard, nil)), extra...)
}

func sample() []model.Transaction {
	refund := model.NewTransaction(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), "PIX RECEBIDO JOAO", decimal.RequireFromString("-50"), "Itaú")
	refund.Classification = model.Classification{
		LedgerLabel:   "Devolução",
		DebitAccount:  "2.1.1",
		CreditAccount: "1.1.1",
		LedgerMemo:    "Devolução João",
	}
	salary := model.NewTransaction(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), "SALARIO, EMPRESA", decimal.RequireFromString("1300.5"), "Itaú")
	return []model.Transaction{refund, salary}
}

func TestExport_DefaultCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testExporter().Export(&buf, sample(), FormatCSV, ""))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Data,Descrição,Valor,Tipo,Banco,Categoria,Conta Débito,Conta Crédito,Histórico", lines[0])
	assert.Equal(t, "15/03/2025,PIX RECEBIDO JOAO,-50.00,Debit,Itaú,Devolução,2.1.1,1.1.1,Devolução João", lines[1])
	assert.Equal(t, `05/03/2025,"SALARIO, EMPRESA",1300.50,Credit,Itaú,,,,`, lines[2])
}

func TestExport_AccountingCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testExporter().Export(&buf, sample()[:1], FormatCSV, AccountingCSVLayout))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Data;Conta Débito;Conta Crédito;Valor;Histórico", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "15/03/2025;2.1.1;1.1.1;"))
	assert.Contains(t, lines[1], "50,00")
}

func TestExport_TXTFixedWidth(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testExporter().Export(&buf, sample(), FormatTXT, ""))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	fields := strings.Split(lines[0], "|")
	require.Len(t, fields, 5)
	assert.Equal(t, "20250315", fields[0])
	assert.Equal(t, "2.1.1          ", fields[1])
	assert.Equal(t, "1.1.1          ", fields[2])
	assert.Equal(t, "-50.00", fields[3])
	assert.Equal(t, 50, utf8.RuneCountInString(fields[4]))
	assert.True(t, strings.HasPrefix(fields[4], "Devolução João"))

	unmapped := strings.Split(lines[1], "|")
	assert.Equal(t, strings.Repeat(" ", 15), unmapped[1])
}

func TestExport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testExporter().Export(&buf, sample(), FormatJSON, ""))

	var records []model.Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "2025-03-15", records[0].Date)
	assert.Equal(t, "pix recebido joao", records[0].NormalizedDescription)
	assert.Equal(t, model.Debit, records[0].MovementType)
}

func TestExport_XLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testExporter().Export(&buf, sample(), FormatXLSX, ""))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Data", rows[0][0])
	assert.Equal(t, "Valor", rows[0][2])
	assert.Equal(t, "PIX RECEBIDO JOAO", rows[1][1])

	raw, err := f.GetCellValue(sheetName, "C3", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1300.5", raw)
}

func TestExport_CustomLayout(t *testing.T) {
	layouts, err := LoadLayouts(strings.NewReader(`
- name: Simples
  format: txt
  delimiter: ";"
  columns:
    - field: normalized_description
      header: DESC
      fixed_width: 10
    - field: amount
      header: VALOR
      decimal_separator: ","
      fixed_width: 8
      padding: zeros
`))
	require.NoError(t, err)
	require.Len(t, layouts, 1)

	var buf bytes.Buffer
	require.NoError(t, testExporter(layouts...).Export(&buf, sample()[:1], FormatTXT, "simples"))
	assert.Equal(t, "pix recebi;-0050,00\n", buf.String())
}

func TestExport_Errors(t *testing.T) {
	var buf bytes.Buffer
	e := testExporter()

	assert.ErrorIs(t, e.Export(&buf, nil, Format("pdf"), ""), ErrUnsupportedFormat)
	assert.ErrorIs(t, e.Export(&buf, nil, FormatCSV, "missing"), ErrInvalidLayout)
}

func TestLayout_Validate(t *testing.T) {
	valid := DefaultLayouts()[0]

	tests := []struct {
		name   string
		modify func(*Layout)
	}{
		{"empty name", func(l *Layout) { l.Name = " " }},
		{"json format", func(l *Layout) { l.Format = FormatJSON }},
		{"long delimiter", func(l *Layout) { l.Delimiter = ";;" }},
		{"no columns", func(l *Layout) { l.Columns = nil }},
		{"unknown field", func(l *Layout) { l.Columns = []Column{{Field: "category"}} }},
	}

	require.NoError(t, valid.Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := valid
			tt.modify(&l)
			assert.ErrorIs(t, l.Validate(), ErrInvalidLayout)
		})
	}
}

func TestLoadLayouts_Empty(t *testing.T) {
	layouts, err := LoadLayouts(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, layouts)
}

func TestFileName(t *testing.T) {
	now := time.Date(2025, 3, 15, 9, 4, 5, 0, time.UTC)
	assert.Equal(t, "transacoes_20250315_090405.xlsx", FileName(FormatXLSX, now))
}
