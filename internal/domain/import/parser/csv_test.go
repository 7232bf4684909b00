package parser

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-ledger/internal/model"
)

func TestProcess_CSVGeneric(t *testing.T) {
	data := "Data;Descrição;Valor;Saldo\n" +
		"15/03/2025;PIX RECEBIDO JOAO;50,00;100,00\n" +
		"16/03/2025;TARIFA MENSAL;-12,50;87,50\n" +
		";;;\n" +
		"bad;x;1,00;0\n" +
		"17/03/2025;SHORT\n"

	p := newTestParser(nil, &fakeText{}, &fakeText{}, &fakeTables{})
	result, err := p.Process(context.Background(), Document{Name: "extrato.csv", Data: []byte(data)}, "")
	require.NoError(t, err)

	assert.Equal(t, "csv", result.Strategy)
	assert.Equal(t, model.GenericBank, result.Bank)
	require.Len(t, result.Transactions, 2)

	first := result.Transactions[0]
	assert.Equal(t, "2025-03-15", first.DateISO())
	assert.Equal(t, "PIX RECEBIDO JOAO", first.RawDescription)
	assert.Equal(t, model.Credit, first.MovementType())

	second := result.Transactions[1]
	assert.True(t, second.Amount.Equal(decimal.RequireFromString("-12.5")))
	assert.Equal(t, model.Debit, second.MovementType())

	require.Len(t, result.Errors, 2)
	assert.Equal(t, 5, result.Errors[0].Row)
	assert.Equal(t, model.ColumnDate, result.Errors[0].Column)
	assert.Equal(t, 6, result.Errors[1].Row)
}

func TestProcess_CSVTemplate(t *testing.T) {
	templates := &fakeTemplates{templates: []model.BankTemplate{{
		Bank:   "Nubank",
		Format: model.FormatCSV,
		ColumnMap: map[string]int{
			model.ColumnDate:        1,
			model.ColumnDescription: 2,
			model.ColumnAmount:      0,
		},
		SkipTopLines:    1,
		SkipBottomLines: 1,
	}}}

	data := "\uFEFFvalor,data,descricao\n" +
		"\"0,00\",01/03/2025,SALDO ANTERIOR\n" +
		"\"-1.300,00\",02/03/2025,\"PIX ENVIADO, MARIA\"\n" +
		"\"250,00\",03/03/2025,PIX RECEBIDO\n" +
		"\"0,00\",04/03/2025,SALDO FINAL\n"

	p := newTestParser(templates, &fakeText{}, &fakeText{}, &fakeTables{})
	result, err := p.Process(context.Background(), Document{Name: "nubank.csv", Data: []byte(data)}, "NUBANK")
	require.NoError(t, err)

	assert.Equal(t, "Nubank", result.Bank)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, "PIX ENVIADO, MARIA", result.Transactions[0].RawDescription)
	assert.True(t, result.Transactions[0].Amount.Equal(decimal.RequireFromString("-1300")))
	assert.Equal(t, "2025-03-03", result.Transactions[1].DateISO())
	assert.Empty(t, result.Errors)
}

func TestProcess_CSVNegativeColumn(t *testing.T) {
	bad := model.BankTemplate{
		Bank:   "Acme",
		Format: model.FormatPDF,
		ColumnMap: map[string]int{
			model.ColumnDate:        -1,
			model.ColumnDescription: 1,
			model.ColumnAmount:      2,
		},
	}
	data := "Data;Descrição;Valor\n15/03/2025;PIX RECEBIDO;100,00\n"
	p := newTestParser(&fakeTemplates{templates: []model.BankTemplate{bad}}, &fakeText{}, &fakeText{}, &fakeTables{})

	t.Run("invalid stored template falls back to generic", func(t *testing.T) {
		var result *Result
		var err error
		assert.NotPanics(t, func() {
			result, err = p.Process(context.Background(), Document{Name: "x.csv", Data: []byte(data)}, "Acme")
		})
		require.NoError(t, err)
		require.Len(t, result.Transactions, 1)
		assert.Equal(t, "PIX RECEBIDO", result.Transactions[0].RawDescription)
	})

	t.Run("negative index is reported as a row error", func(t *testing.T) {
		var result *Result
		var err error
		assert.NotPanics(t, func() {
			result, err = p.processCSV(Document{Name: "x.csv", Data: []byte(data)}, bad)
		})
		require.NoError(t, err)
		assert.Empty(t, result.Transactions)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "-1", result.Errors[0].Column)
	})
}

func TestProcess_CSVHeaderOnly(t *testing.T) {
	p := newTestParser(nil, &fakeText{}, &fakeText{}, &fakeTables{})
	result, err := p.Process(context.Background(), Document{Name: "empty.csv", Data: []byte("Data;Descrição;Valor\n")}, "")
	require.NoError(t, err)
	assert.Empty(t, result.Transactions)

	result, err = p.Process(context.Background(), Document{Name: "empty.csv"}, "")
	require.NoError(t, err)
	assert.Empty(t, result.Transactions)
}
