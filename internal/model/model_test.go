package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-ledger/pkg/money"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

// ============================================================================
// Transaction Tests
// ============================================================================

func TestNewTransaction(t *testing.T) {
	tx := NewTransaction(date(2025, 3, 15), "15/03/2025 PIX RECEBIDO JOAO -50,00", decimal.RequireFromString("-50.00"), "Genérico")

	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, "2025-03-15", tx.DateISO())
	assert.Equal(t, "pix recebido joao", tx.NormalizedDescription())
	assert.Equal(t, Debit, tx.MovementType())
	assert.True(t, tx.Classification.IsZero())
	assert.False(t, tx.ManuallyReviewed)
	assert.False(t, tx.IsMapped())
}

// Test that the movement type always follows the amount sign
func TestTransaction_SignInvariant(t *testing.T) {
	gen := money.NewTestDataGeneratorWithSeed(3)

	for i := 0; i < 200; i++ {
		line := gen.Line()
		tx := NewTransaction(line.Date, line.Text, line.Amount, "x")
		if line.Amount.IsNegative() {
			assert.Equal(t, Debit, tx.MovementType())
		} else {
			assert.Equal(t, Credit, tx.MovementType())
		}
	}

	assert.Equal(t, Credit, MovementTypeOf(decimal.Zero))
}

func TestTransaction_SetRawDescription(t *testing.T) {
	tx := NewTransaction(date(2025, 1, 1), "PIX ENVIADO", decimal.NewFromInt(-1), "b")
	tx.SetRawDescription("TED RECEBIDA MARIA")

	assert.Equal(t, "TED RECEBIDA MARIA", tx.RawDescription)
	assert.Equal(t, "ted recebida maria", tx.NormalizedDescription())
}

func TestTransaction_RefreshNormalized(t *testing.T) {
	rec := Record{ID: "1", Date: "2025-01-01", RawDescription: "PIX ENVIADO", NormalizedDescription: "stale"}
	tx, err := FromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, "stale", tx.NormalizedDescription())

	assert.True(t, tx.RefreshNormalized())
	assert.Equal(t, "pix enviado", tx.NormalizedDescription())
	assert.False(t, tx.RefreshNormalized())
}

// Test that a record round trip preserves every field
func TestRecord_RoundTrip(t *testing.T) {
	tx := NewTransaction(date(2025, 3, 15), "COMPRA CARTAO AÇOUGUE", decimal.RequireFromString("-123.45"), "Itaú")
	tx.Classification = Classification{
		LedgerLabel:   "Alimentação",
		DebitAccount:  "3.1.01",
		CreditAccount: "1.1.02",
		LedgerMemo:    "Compra de carnes",
	}
	tx.ManuallyReviewed = true

	back, err := FromRecord(tx.ToRecord())
	require.NoError(t, err)
	assert.Equal(t, tx, back)
}

func TestRecord_JSON(t *testing.T) {
	tx := NewTransaction(date(2025, 3, 15), "PIX RECEBIDO", decimal.RequireFromString("50.10"), "Nubank")

	data, err := json.Marshal(tx.ToRecord())
	require.NoError(t, err)

	var rec Record
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "2025-03-15", rec.Date)
	assert.Equal(t, Credit, rec.MovementType)
	assert.Equal(t, "pix recebido", rec.NormalizedDescription)

	back, err := FromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, back.ID)
	assert.True(t, tx.Amount.Equal(back.Amount))
	assert.Equal(t, tx.NormalizedDescription(), back.NormalizedDescription())
}

func TestFromRecord(t *testing.T) {
	t.Run("derives normalized description when absent", func(t *testing.T) {
		tx, err := FromRecord(Record{ID: "a", Date: "2025-02-01", RawDescription: "Pagamento Açaí"})
		require.NoError(t, err)
		assert.Equal(t, "pagamento acai", tx.NormalizedDescription())
	})

	t.Run("assigns an ID when missing", func(t *testing.T) {
		tx, err := FromRecord(Record{Date: "2025-02-01"})
		require.NoError(t, err)
		assert.NotEmpty(t, tx.ID)
	})

	t.Run("ignores stored movement type", func(t *testing.T) {
		tx, err := FromRecord(Record{ID: "a", Date: "2025-02-01", Amount: decimal.NewFromInt(-3), MovementType: Credit})
		require.NoError(t, err)
		assert.Equal(t, Debit, tx.MovementType())
	})

	t.Run("rejects bad date", func(t *testing.T) {
		_, err := FromRecord(Record{ID: "a", Date: "15/03/2025"})
		require.Error(t, err)
	})
}

// ============================================================================
// BankTemplate Tests
// ============================================================================

func TestBankTemplate_WithDefaults(t *testing.T) {
	tmpl := BankTemplate{Bank: "Bradesco", Format: FormatPDF}.WithDefaults()

	assert.Equal(t, DefaultDateRegex, tmpl.DateRegex)
	assert.Equal(t, DefaultAmountRegex, tmpl.AmountRegex)
	assert.Equal(t, DefaultDescriptionRegex, tmpl.DescriptionRegex)
	assert.Equal(t, ReadModeText, tmpl.ReadMode)

	custom := BankTemplate{Bank: "X", Format: FormatPDF, DateRegex: `\d{2}-\d{2}`}.WithDefaults()
	assert.Equal(t, `\d{2}-\d{2}`, custom.DateRegex)
}

func TestBankTemplate_Key(t *testing.T) {
	assert.Equal(t, "banco_do_brasil", BankTemplate{Bank: "Banco do Brasil"}.Key())
	assert.Equal(t, "itaú", TemplateKey(" Itaú "))
}

func TestBankTemplate_Column(t *testing.T) {
	tmpl := BankTemplate{ColumnMap: map[string]int{ColumnDate: 1, ColumnAmount: 4}}

	idx, ok := tmpl.Column(ColumnDate)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	idx, ok = tmpl.Column(ColumnDescription)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = tmpl.Column(ColumnBalance)
	assert.False(t, ok)

	assert.Equal(t, 4, tmpl.MaxColumn())
	assert.Equal(t, -1, BankTemplate{}.MaxColumn())
}

func TestBankTemplate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    BankTemplate
		wantErr bool
	}{
		{"generic pdf", GenericPDFTemplate(), false},
		{"generic csv", GenericCSVTemplate(), false},
		{"missing bank", BankTemplate{Format: FormatPDF}, true},
		{"unknown format", BankTemplate{Bank: "x", Format: "xls"}, true},
		{"csv without columns", BankTemplate{Bank: "x", Format: FormatCSV}, true},
		{"table pdf without amount", BankTemplate{Bank: "x", Format: FormatPDF, ReadMode: ReadModeTable, ColumnMap: map[string]int{ColumnDate: 0, ColumnDescription: 1}}, true},
		{"bad regex", BankTemplate{Bank: "x", Format: FormatPDF, DateRegex: `(`}, true},
		{"negative skip", BankTemplate{Bank: "x", Format: FormatPDF, SkipTopLines: -1}, true},
		{"ofx", BankTemplate{Bank: "x", Format: FormatOFX}, false},
		{"text pdf with negative column", BankTemplate{Bank: "x", Format: FormatPDF, ColumnMap: map[string]int{ColumnDate: -1, ColumnDescription: 1, ColumnAmount: 2}}, true},
		{"ofx with negative column", BankTemplate{Bank: "x", Format: FormatOFX, ColumnMap: map[string]int{ColumnBalance: -3}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tmpl.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidTemplate)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// ============================================================================
// Mapping and Rule Tests
// ============================================================================

func TestMovementFilter_Allows(t *testing.T) {
	assert.True(t, FilterIncoming.Allows(Credit))
	assert.False(t, FilterIncoming.Allows(Debit))
	assert.True(t, FilterOutgoing.Allows(Debit))
	assert.False(t, FilterOutgoing.Allows(Credit))
	assert.True(t, FilterEither.Allows(Debit))
	assert.True(t, MovementFilter("").Allows(Credit))

	assert.Equal(t, FilterOutgoing, FilterFor(Debit))
	assert.Equal(t, FilterIncoming, FilterFor(Credit))
}

func TestAccountingMapping_ClassificationWith(t *testing.T) {
	m := AccountingMapping{
		LedgerLabel:       "Transporte",
		DebitAccount:      "3.2.01",
		CreditAccount:     "1.1.01",
		DefaultLedgerMemo: "Despesa com transporte",
	}

	c := m.ClassificationWith(SubMapping{LedgerLabel: strPtr("Combustível"), DebitAccount: strPtr("3.2.02")})
	assert.Equal(t, Classification{
		LedgerLabel:   "Combustível",
		DebitAccount:  "3.2.02",
		CreditAccount: "1.1.01",
		LedgerMemo:    "Despesa com transporte",
	}, c)
}

func TestAccountingMapping_Validate(t *testing.T) {
	require.NoError(t, AccountingMapping{LedgerLabel: "x", AdvancedRegex: `uber\s+trip`}.Validate())
	assert.ErrorIs(t, AccountingMapping{}.Validate(), ErrInvalidMapping)
	assert.ErrorIs(t, AccountingMapping{LedgerLabel: "x", AdvancedRegex: `[`}.Validate(), ErrInvalidMapping)
	assert.ErrorIs(t, AccountingMapping{LedgerLabel: "x", MovementTypeFilter: "sideways"}.Validate(), ErrInvalidMapping)

	m := AccountingMapping{LedgerLabel: "x"}.WithID()
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, m.ID, m.WithID().ID)
}

func TestCustomRule_Validate(t *testing.T) {
	one := decimal.NewFromInt(1)
	ten := decimal.NewFromInt(10)

	require.NoError(t, CustomRule{KeyTerm: "uber"}.Validate())
	require.NoError(t, CustomRule{KeyTerm: "uber", ConsiderAmount: true, MinAmount: &one, MaxAmount: &ten}.Validate())
	assert.ErrorIs(t, CustomRule{}.Validate(), ErrInvalidRule)
	assert.ErrorIs(t, CustomRule{KeyTerm: "x", ExactAmount: &one, MinAmount: &one}.Validate(), ErrInvalidRule)
	assert.ErrorIs(t, CustomRule{KeyTerm: "x", MinAmount: &ten, MaxAmount: &one}.Validate(), ErrInvalidRule)
}
