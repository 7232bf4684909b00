// Package normalizer turns raw bank statement descriptions into the comparison
// form used by the categorization engine.
package normalizer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// Statement lines often start with the posting date
	leadingDatePattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}\s+`)

	// Trailing Brazilian amount with optional R$ on either side: "-1.300,00", "R$ 50,00", "12,50 R$"
	trailingAmountPattern = regexp.MustCompile(`\s+(?:R\$\s*)?-?\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{2})?(?:\s+R\$)?$`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalize produces the comparison form of a raw description:
//
//  1. a leading DD/MM/YYYY date and the whitespace after it are removed
//  2. a trailing amount token is removed
//  3. diacritics are stripped
//  4. the text is lowercased, whitespace collapsed and trimmed
//  5. anything that is not a letter, digit, underscore or whitespace is dropped
//
// Always call it on the raw description. Feeding an already normalized string back
// in can strip a trailing number that was part of the text.
//
//	Normalize("20/01/2025 PIX TRANSF GUSTAVO18/01 -1.300,00") // "pix transf gustavo1801"
func Normalize(raw string) string {
	cleaned := Clean(raw)
	folded := stripDiacritics(cleaned)
	folded = whitespacePattern.ReplaceAllString(strings.TrimSpace(strings.ToLower(folded)), " ")
	return strings.Map(keepWordOrSpace, folded)
}

// Clean removes the leading date and trailing amount from a statement line,
// keeping case and punctuation.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = leadingDatePattern.ReplaceAllString(s, "")
	s = trailingAmountPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func stripDiacritics(s string) string {
	// transform.Chain is stateful, so build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func keepWordOrSpace(r rune) rune {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
		return r
	}
	return -1
}
