package categorization

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-ledger/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string {
	return &s
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newTx(raw, amount string) model.Transaction {
	date := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	return model.NewTransaction(date, raw, decimal.RequireFromString(amount), "Itaú")
}

var (
	pixMapping = model.AccountingMapping{
		ID:                 "m-pix",
		LedgerLabel:        "PIX recebido",
		MovementTypeFilter: model.FilterIncoming,
		Keywords:           []string{"PIX RECEBIDO"},
		DebitAccount:       "1.1.1",
		CreditAccount:      "3.1.1",
		DefaultLedgerMemo:  "Recebimento via PIX",
	}
	tariffMapping = model.AccountingMapping{
		ID:                 "m-tarifa",
		LedgerLabel:        "Tarifas",
		MovementTypeFilter: model.FilterOutgoing,
		Keywords:           []string{"tarifa"},
		Exceptions:         []string{"estorno"},
		DebitAccount:       "4.1.9",
		CreditAccount:      "1.1.1",
		DefaultLedgerMemo:  "Tarifa bancária",
		SubMappings: []model.SubMapping{
			{Keywords: []string{"pacote"}, LedgerLabel: strPtr("Pacote de serviços")},
			{Keywords: []string{"ted"}, DebitAccount: strPtr("4.1.8")},
		},
	}
)

// ============================================================================
// Mapping tiers
// ============================================================================

func TestEngine_KeywordMatch(t *testing.T) {
	engine := NewEngine(nil, []model.AccountingMapping{pixMapping}, testLogger())

	tx, match := engine.Classify(newTx("15/03/2025 PIX RECEBIDO JOAO 50,00", "50"))

	assert.Equal(t, SourceMapping, match.Source)
	assert.Equal(t, "m-pix", match.MappingID)
	assert.Equal(t, ScoreKeyword, match.Score)
	assert.Equal(t, -1, match.SubMapping)
	assert.Equal(t, model.Classification{
		LedgerLabel:   "PIX recebido",
		DebitAccount:  "1.1.1",
		CreditAccount: "3.1.1",
		LedgerMemo:    "Recebimento via PIX",
	}, tx.Classification)
}

func TestEngine_MovementFilter(t *testing.T) {
	engine := NewEngine(nil, []model.AccountingMapping{pixMapping}, testLogger())

	tx, match := engine.Classify(newTx("PIX RECEBIDO ESTORNADO", "-50"))

	assert.Equal(t, SourceNone, match.Source)
	assert.True(t, tx.Classification.IsZero())
}

// Regex beats keyword regardless of mapping order
func TestEngine_RegexBeatsKeyword(t *testing.T) {
	keyword := model.AccountingMapping{
		ID:          "kw",
		LedgerLabel: "Transferências",
		Keywords:    []string{"transf"},
	}
	regex := model.AccountingMapping{
		ID:            "re",
		LedgerLabel:   "Folha de pagamento",
		AdvancedRegex: `transf.*salario`,
	}

	tests := []struct {
		name     string
		mappings []model.AccountingMapping
	}{
		{"keyword first", []model.AccountingMapping{keyword, regex}},
		{"regex first", []model.AccountingMapping{regex, keyword}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(nil, tt.mappings, testLogger())
			tx, match := engine.Classify(newTx("TRANSF SALARIO MARÇO", "-3000"))

			assert.Equal(t, "re", match.MappingID)
			assert.Equal(t, ScoreRegex, match.Score)
			assert.Equal(t, "Folha de pagamento", tx.LedgerLabel)
		})
	}
}

func TestEngine_TiesKeepFirstMapping(t *testing.T) {
	first := model.AccountingMapping{ID: "a", LedgerLabel: "A", Keywords: []string{"mercado"}}
	second := model.AccountingMapping{ID: "b", LedgerLabel: "B", Keywords: []string{"super"}}

	engine := NewEngine(nil, []model.AccountingMapping{first, second}, testLogger())
	_, match := engine.Classify(newTx("SUPERMERCADO BOM PRECO", "-80"))

	assert.Equal(t, "a", match.MappingID)
}

func TestEngine_SubMappings(t *testing.T) {
	engine := NewEngine(nil, []model.AccountingMapping{tariffMapping}, testLogger())

	t.Run("first matching sub-mapping overrides label", func(t *testing.T) {
		tx, match := engine.Classify(newTx("TARIFA PACOTE SERVICOS TED", "-39.90"))

		assert.Equal(t, ScoreSubMapping, match.Score)
		assert.Equal(t, 0, match.SubMapping)
		assert.Equal(t, "Pacote de serviços", tx.LedgerLabel)
		assert.Equal(t, "4.1.9", tx.DebitAccount)
		assert.Equal(t, "Tarifa bancária", tx.LedgerMemo)
	})

	t.Run("sub-mapping falls back to parent fields", func(t *testing.T) {
		tx, match := engine.Classify(newTx("TARIFA TED OUTRO BANCO", "-10"))

		assert.Equal(t, 1, match.SubMapping)
		assert.Equal(t, "Tarifas", tx.LedgerLabel)
		assert.Equal(t, "4.1.8", tx.DebitAccount)
		assert.Equal(t, "1.1.1", tx.CreditAccount)
	})

	t.Run("sub-mapping outranks another parent keyword", func(t *testing.T) {
		other := model.AccountingMapping{ID: "other", LedgerLabel: "Outro", Keywords: []string{"tarifa"}}
		e := NewEngine(nil, []model.AccountingMapping{other, tariffMapping}, testLogger())

		_, match := e.Classify(newTx("TARIFA PACOTE", "-10"))
		assert.Equal(t, "m-tarifa", match.MappingID)
	})
}

// An exception vetoes the mapping including its sub-mappings
func TestEngine_ExceptionVeto(t *testing.T) {
	engine := NewEngine(nil, []model.AccountingMapping{tariffMapping}, testLogger())

	tx, match := engine.Classify(newTx("ESTORNO TARIFA PACOTE", "-10"))

	assert.Equal(t, SourceNone, match.Source)
	assert.True(t, tx.Classification.IsZero())
}

func TestEngine_InvalidRegexSkipsTier(t *testing.T) {
	broken := model.AccountingMapping{
		ID:            "broken",
		LedgerLabel:   "Aluguel",
		Keywords:      []string{"aluguel"},
		AdvancedRegex: `aluguel(`,
	}

	engine := NewEngine(nil, []model.AccountingMapping{broken}, testLogger())
	_, match := engine.Classify(newTx("ALUGUEL APTO 101", "-1500"))

	assert.Equal(t, "broken", match.MappingID)
	assert.Equal(t, ScoreKeyword, match.Score)
}

func TestEngine_EmptyKeywordsNeverMatch(t *testing.T) {
	m := model.AccountingMapping{ID: "empty", LedgerLabel: "X", Keywords: []string{"", "  "}}

	engine := NewEngine(nil, []model.AccountingMapping{m}, testLogger())
	_, match := engine.Classify(newTx("QUALQUER COISA", "-1"))

	assert.Equal(t, SourceNone, match.Source)
}

// ============================================================================
// Custom rules
// ============================================================================

func TestEngine_CustomRuleBeatsMappings(t *testing.T) {
	rule := model.CustomRule{
		ID:                 "r1",
		KeyTerm:            "pix recebido joao",
		ExactMatch:         true,
		MovementTypeFilter: model.FilterIncoming,
		LedgerLabel:        "Aporte sócio",
		DebitAccount:       "1.1.1",
		CreditAccount:      "2.3.1",
		LedgerMemo:         "Aporte João",
	}
	regex := model.AccountingMapping{ID: "re", LedgerLabel: "PIX", AdvancedRegex: "pix"}

	engine := NewEngine([]model.CustomRule{rule}, []model.AccountingMapping{regex}, testLogger())
	tx, match := engine.Classify(newTx("15/03/2025 PIX RECEBIDO JOAO 50,00", "50"))

	assert.Equal(t, SourceCustomRule, match.Source)
	assert.Equal(t, "r1", match.RuleID)
	assert.Equal(t, rule.Classification(), tx.Classification)
}

func TestEngine_FirstRuleWins(t *testing.T) {
	rules := []model.CustomRule{
		{ID: "first", KeyTerm: "uber", LedgerLabel: "Transporte"},
		{ID: "second", KeyTerm: "uber eats", LedgerLabel: "Alimentação"},
	}

	engine := NewEngine(rules, nil, testLogger())
	_, match := engine.Classify(newTx("UBER EATS PEDIDO", "-45"))

	assert.Equal(t, "first", match.RuleID)
}

func TestRuleMatches(t *testing.T) {
	tests := []struct {
		name   string
		rule   model.CustomRule
		raw    string
		amount string
		want   bool
	}{
		{"substring", model.CustomRule{KeyTerm: "NETFLIX"}, "NETFLIX.COM ASSINATURA", "-39.90", true},
		{"exact requires equality", model.CustomRule{KeyTerm: "netflix", ExactMatch: true}, "NETFLIX.COM", "-39.90", false},
		{"exact equal", model.CustomRule{KeyTerm: "netflixcom", ExactMatch: true}, "NETFLIX.COM", "-39.90", true},
		{"movement filter", model.CustomRule{KeyTerm: "netflix", MovementTypeFilter: model.FilterIncoming}, "NETFLIX", "-39.90", false},
		{"exact amount within a cent", model.CustomRule{KeyTerm: "netflix", ConsiderAmount: true, ExactAmount: decPtr("-39.90")}, "NETFLIX", "-39.91", true},
		{"exact amount off", model.CustomRule{KeyTerm: "netflix", ConsiderAmount: true, ExactAmount: decPtr("-39.90")}, "NETFLIX", "-40.00", false},
		{"range inside", model.CustomRule{KeyTerm: "luz", ConsiderAmount: true, MinAmount: decPtr("-300"), MaxAmount: decPtr("-100")}, "CONTA LUZ", "-180", true},
		{"range outside", model.CustomRule{KeyTerm: "luz", ConsiderAmount: true, MinAmount: decPtr("-300"), MaxAmount: decPtr("-100")}, "CONTA LUZ", "-50", false},
		{"half range ignored", model.CustomRule{KeyTerm: "luz", ConsiderAmount: true, MinAmount: decPtr("-300")}, "CONTA LUZ", "-500", true},
		{"amount ignored unless considered", model.CustomRule{KeyTerm: "luz", ExactAmount: decPtr("1")}, "CONTA LUZ", "-500", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RuleMatches(tt.rule, newTx(tt.raw, tt.amount)))
		})
	}
}

func TestEngine_NoMatchLeavesFieldsUntouched(t *testing.T) {
	engine := NewEngine(nil, []model.AccountingMapping{pixMapping}, testLogger())

	in := newTx("COMPRA CARTAO LOJA", "-20")
	in.Classification = model.Classification{LedgerLabel: "Antigo", DebitAccount: "9"}

	out, match := engine.Classify(in)
	assert.Equal(t, SourceNone, match.Source)
	assert.Equal(t, in.Classification, out.Classification)
}

func TestEngine_GeneratedDescriptionsNeverPanic(t *testing.T) {
	faker := gofakeit.New(42)
	engine := NewEngine(
		[]model.CustomRule{{ID: "r", KeyTerm: "a", ConsiderAmount: true, MinAmount: decPtr("-10"), MaxAmount: decPtr("10")}},
		[]model.AccountingMapping{pixMapping, tariffMapping},
		testLogger(),
	)

	for range 200 {
		tx := newTx(faker.Sentence(6), decimal.NewFromFloat(faker.Float64Range(-5000, 5000)).StringFixed(2))
		require.NotPanics(t, func() { engine.Classify(tx) })
	}
}

func TestEngine_ClassifyRecoversFromPanic(t *testing.T) {
	engine := NewEngine(nil, nil, testLogger())
	// A sub-mapping keyword with no matching sub-mapping indexes past SubMappings.
	engine.mappings = append(engine.mappings, compiledMapping{
		mapping:     model.AccountingMapping{ID: "broken", LedgerLabel: "Quebrado"},
		subKeywords: [][]string{{"pix"}},
	})

	in := newTx("PIX RECEBIDO JOAO", "50")
	in.Classification = model.Classification{LedgerLabel: "Antigo"}

	var out model.Transaction
	var match Match
	require.NotPanics(t, func() { out, match = engine.Classify(in) })

	assert.Equal(t, in, out)
	assert.Equal(t, SourceNone, match.Source)
	assert.Equal(t, -1, match.SubMapping)
	assert.Empty(t, match.MappingID)
}
