package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/statement-ledger/pkg/money"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"date prefix and negative amount", "20/01/2025 PIX TRANSF GUSTAVO18/01 -1.300,00", "pix transf gustavo1801"},
		{"statement line", "15/03/2025 PIX RECEBIDO JOAO -50,00", "pix recebido joao"},
		{"diacritics", "PAGAMENTO AÇAÍ CAFÉ", "pagamento acai cafe"},
		{"currency prefix", "COMPRA LOJA R$ 1.234,56", "compra loja"},
		{"currency suffix", "TARIFA MENSAL 12,50 R$", "tarifa mensal"},
		{"amount without decimals", "SAQUE 24H 200", "saque 24h"},
		{"punctuation", "PAG*BOLETO LUZ.", "pagboleto luz"},
		{"whitespace", "  TED   DOC\tENVIADO  ", "ted doc enviado"},
		{"underscore kept", "REF_123 PIX", "ref_123 pix"},
		{"date not at start", "PIX 20/01/2025 MARIA", "pix 20012025 maria"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

// Test that normalization is a pure function of its input
func TestNormalize_Deterministic(t *testing.T) {
	gen := money.NewTestDataGeneratorWithSeed(7)

	for i := 0; i < 100; i++ {
		line := gen.Line()
		first := Normalize(line.Text)
		assert.Equal(t, first, Normalize(line.Text))
	}
}

// Test that generated statement lines lose their date and amount
func TestNormalize_GeneratedLines(t *testing.T) {
	gen := money.NewTestDataGeneratorWithSeed(11)

	for i := 0; i < 100; i++ {
		line := gen.Line()
		assert.Equal(t, Normalize(line.Description), Normalize(line.Text), "line %q", line.Text)
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, "PIX RECEBIDO JOAO", Clean("15/03/2025 PIX RECEBIDO JOAO -50,00"))
	assert.Equal(t, "Açaí & Cia", Clean("Açaí & Cia R$ 10,00"))
	assert.Equal(t, "", Clean("  "))
}
