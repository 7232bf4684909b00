package categorization

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/statement-ledger/internal/model"
)

// DefaultSuggestThreshold is the minimum similarity score a suggestion needs.
const DefaultSuggestThreshold = 50

// minFuzzyWord skips short words that match almost anything
const minFuzzyWord = 3

// Suggestion is a mapping that resembles a transaction description.
// Suggestions are advisory and never applied automatically.
type Suggestion struct {
	MappingID   string
	LedgerLabel string
	Keyword     string // The keyword that scored best
	Score       int    // Similarity score (0-100)
	Distance    int    // Levenshtein distance between keyword and closest word
}

// FuzzyMatcher ranks accounting mappings by how closely their keywords
// resemble a normalized description. It catches typos and truncations such as
// "supermerc" vs "supermercado" that the exact keyword tier misses.
type FuzzyMatcher struct {
	patterns []fuzzyPattern
}

type fuzzyPattern struct {
	keyword     string
	mappingID   string
	ledgerLabel string
}

// NewFuzzyMatcher creates a fuzzy matcher from mappings
func NewFuzzyMatcher(mappings []model.AccountingMapping) *FuzzyMatcher {
	fm := &FuzzyMatcher{}
	fm.Build(mappings)
	return fm
}

// Build collects the keywords of every mapping and sub-mapping
func (fm *FuzzyMatcher) Build(mappings []model.AccountingMapping) {
	fm.patterns = fm.patterns[:0]

	for _, m := range mappings {
		keywords := append([]string{}, m.Keywords...)
		for _, sub := range m.SubMappings {
			keywords = append(keywords, sub.Keywords...)
		}

		for _, kw := range keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if len(kw) < minFuzzyWord {
				continue
			}
			fm.patterns = append(fm.patterns, fuzzyPattern{
				keyword:     kw,
				mappingID:   m.ID,
				ledgerLabel: m.LedgerLabel,
			})
		}
	}
}

// PatternCount returns the number of keywords in the matcher
func (fm *FuzzyMatcher) PatternCount() int {
	return len(fm.patterns)
}

// Rank returns one suggestion per mapping scoring at least threshold, best
// first. Equal scores keep mapping order. limit <= 0 means no limit.
func (fm *FuzzyMatcher) Rank(normalized string, threshold, limit int) []Suggestion {
	if len(fm.patterns) == 0 || normalized == "" {
		return nil
	}

	best := make(map[string]int)
	var results []Suggestion

	for _, p := range fm.patterns {
		score, distance := keywordScore(normalized, p.keyword)
		if score < threshold {
			continue
		}

		if i, ok := best[p.mappingID]; ok {
			if score > results[i].Score {
				results[i].Score, results[i].Keyword, results[i].Distance = score, p.keyword, distance
			}
			continue
		}

		best[p.mappingID] = len(results)
		results = append(results, Suggestion{
			MappingID:   p.mappingID,
			LedgerLabel: p.ledgerLabel,
			Keyword:     p.keyword,
			Score:       score,
			Distance:    distance,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}

	return results
}

// keywordScore compares a keyword to a description (0-100). Whole-string
// containment scores highest, otherwise the closest description word wins.
func keywordScore(desc, keyword string) (int, int) {
	if strings.Contains(desc, keyword) {
		return 75 + (25 * len(keyword) / len(desc)), 0
	}

	bestScore, bestDistance := 0, -1
	for _, word := range strings.Fields(desc) {
		if len(word) < minFuzzyWord {
			continue
		}
		score, distance := fuzzyScore(word, keyword)
		if score > bestScore {
			bestScore, bestDistance = score, distance
		}
	}

	return bestScore, bestDistance
}

// fuzzyScore calculates a similarity score between two words (0-100) from
// Levenshtein distance and subsequence ranking in either direction.
func fuzzyScore(s1, s2 string) (int, int) {
	if s1 == s2 {
		return 100, 0
	}

	distance := fuzzy.LevenshteinDistance(s1, s2)
	maxLen := max(len(s1), len(s2))
	levenshteinScore := 100 * (maxLen - distance) / maxLen

	// A truncated word ("supermerc") is a subsequence of the keyword
	rank := fuzzy.RankMatchNormalizedFold(s1, s2)
	if rank < 0 {
		rank = fuzzy.RankMatchNormalizedFold(s2, s1)
	}
	subsequenceScore := 0
	if rank >= 0 {
		subsequenceScore = 70 - (rank * 40 / maxLen)
	}

	return max(levenshteinScore, subsequenceScore), distance
}
