package sniffer

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloudflare/ahocorasick"
)

// Well-known bank aliases and the bank name they resolve to. A bare "caixa"
// is left out since statements print it for ATM withdrawals.
var knownBanks = []struct {
	alias string
	bank  string
}{
	{"bradesco", "bradesco"},
	{"itau", "itau"},
	{"itaú", "itau"},
	{"banco do brasil", "bb"},
	{"santander", "santander"},
	{"caixa economica", "caixa"},
	{"caixa econômica", "caixa"},
	{"nubank", "nubank"},
	{"nu pagamentos", "nubank"},
	{"banco inter", "inter"},
}

// BankDetector recognizes the issuing bank from statement text using a single
// Aho-Corasick pass over the lowercased text.
type BankDetector struct {
	matcher  *ahocorasick.Matcher
	patterns []string
	banks    []string // bank name per pattern index
}

// NewBankDetector builds a detector from the built-in aliases plus the given
// bank names, typically those of stored templates. Extra names take
// precedence over built-in aliases when both appear in the text.
func NewBankDetector(extra ...string) *BankDetector {
	var patterns []string
	var banks []string

	for _, name := range extra {
		alias := strings.ToLower(strings.TrimSpace(name))
		if alias == "" || slices.Contains(patterns, alias) {
			continue
		}
		patterns = append(patterns, alias)
		banks = append(banks, name)
	}
	for _, kb := range knownBanks {
		if slices.Contains(patterns, kb.alias) {
			continue
		}
		patterns = append(patterns, kb.alias)
		banks = append(banks, kb.bank)
	}

	return &BankDetector{
		matcher:  ahocorasick.NewStringMatcher(patterns),
		patterns: patterns,
		banks:    banks,
	}
}

// Detect returns the bank whose alias appears in text as whole words, so
// "inter" does not match "internet". When several match, the earliest
// registered alias wins. The second result is false when nothing matched.
func (d *BankDetector) Detect(text string) (string, bool) {
	if d == nil || text == "" {
		return "", false
	}

	lower := strings.ToLower(text)
	hits := d.matcher.Match([]byte(lower))
	slices.Sort(hits)
	for _, idx := range hits {
		if containsWord(lower, d.patterns[idx]) {
			return d.banks[idx], true
		}
	}
	return "", false
}

// containsWord reports whether word occurs in text with no letter or digit
// directly before or after it.
func containsWord(text, word string) bool {
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], word)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(word)

		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		offset = start + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
