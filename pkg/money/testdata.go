package money

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// TestDataGenerator generates realistic statement test data using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a new test data generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(0),
	}
}

// NewTestDataGeneratorWithSeed creates a generator with a specific seed for reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(seed),
	}
}

// ============================================================================
// Statement Generation
// ============================================================================

// StatementLine is one generated statement entry together with its text rendering.
type StatementLine struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Text        string
}

var statementPrefixes = []string{
	"PIX ENVIADO", "PIX RECEBIDO", "TED", "COMPRA CARTAO", "PAG BOLETO", "TARIFA", "DEP DINHEIRO",
}

// Amount returns a random signed amount between minCents and maxCents (inclusive),
// negative about half of the time.
func (g *TestDataGenerator) Amount(minCents, maxCents int) decimal.Decimal {
	cents := int64(g.faker.Number(minCents, maxCents))
	if g.faker.Bool() {
		cents = -cents
	}
	return decimal.New(cents, -2)
}

// Description returns an uppercase statement-like description.
func (g *TestDataGenerator) Description() string {
	prefix := statementPrefixes[g.faker.Number(0, len(statementPrefixes)-1)]
	return fmt.Sprintf("%s %s", prefix, strings.ToUpper(g.faker.LastName()))
}

// Line generates one statement line rendered as "DD/MM/YYYY DESCRIPTION AMOUNT"
// with a Brazilian-formatted amount.
func (g *TestDataGenerator) Line() StatementLine {
	date := g.faker.DateRange(
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	)
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	amount := g.Amount(1, 5_000_000)
	desc := g.Description()

	return StatementLine{
		Date:        date,
		Description: desc,
		Amount:      amount,
		Text:        fmt.Sprintf("%s %s %s", date.Format("02/01/2006"), desc, FormatStatement(amount)),
	}
}

// FormatStatement renders an amount the way Brazilian statements print it:
// "." thousands separators, "," decimals and a leading "-" for debits.
func FormatStatement(d decimal.Decimal) string {
	neg := d.IsNegative()
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := b.String() + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}
