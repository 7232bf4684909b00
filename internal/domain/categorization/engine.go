package categorization

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/model"
)

// Score tiers for mapping matches. Higher wins.
const (
	ScoreKeyword    = 1
	ScoreSubMapping = 2
	ScoreRegex      = 3
)

// amountTolerance is the accepted distance for exact-amount rules.
var amountTolerance = decimal.New(1, -2)

// Source identifies what classified a transaction.
type Source string

const (
	SourceCustomRule Source = "custom_rule"
	SourceMapping    Source = "mapping"
	SourceNone       Source = "none"
)

// Match describes why a transaction received its classification
type Match struct {
	Source     Source
	RuleID     string // set when Source is SourceCustomRule
	MappingID  string // set when Source is SourceMapping
	Score      int    // mapping tier
	SubMapping int    // index of the winning sub-mapping, -1 for the parent
}

type compiledMapping struct {
	mapping     model.AccountingMapping
	regex       *regexp.Regexp
	keywords    []string
	exceptions  []string
	subKeywords [][]string
}

// Engine classifies transactions with custom rules first, then scored mappings.
// It is immutable after Build and holds precompiled regexes and lowered keywords.
type Engine struct {
	rules    []model.CustomRule
	mappings []compiledMapping
	logger   *slog.Logger
}

// NewEngine creates an engine from rules and mappings, in storage order.
func NewEngine(rules []model.CustomRule, mappings []model.AccountingMapping, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{logger: logger}
	e.Build(rules, mappings)
	return e
}

// Build replaces the engine's rules and mappings. Invalid mapping regexes are
// logged and that mapping's regex tier is skipped.
func (e *Engine) Build(rules []model.CustomRule, mappings []model.AccountingMapping) {
	e.rules = rules

	e.mappings = make([]compiledMapping, 0, len(mappings))
	for _, m := range mappings {
		cm := compiledMapping{
			mapping:    m,
			keywords:   lowerAll(m.Keywords),
			exceptions: lowerAll(m.Exceptions),
		}

		if m.AdvancedRegex != "" {
			re, err := regexp.Compile("(?i)" + m.AdvancedRegex)
			if err != nil {
				e.logger.Warn("invalid mapping regex, skipping regex tier",
					slog.String("mapping_id", m.ID),
					slog.String("ledger_label", m.LedgerLabel),
					slog.Any("error", err),
				)
			} else {
				cm.regex = re
			}
		}

		for _, sub := range m.SubMappings {
			cm.subKeywords = append(cm.subKeywords, lowerAll(sub.Keywords))
		}

		e.mappings = append(e.mappings, cm)
	}
}

// RuleCount returns the number of custom rules loaded.
func (e *Engine) RuleCount() int {
	return len(e.rules)
}

// MappingCount returns the number of mappings loaded.
func (e *Engine) MappingCount() int {
	return len(e.mappings)
}

// Classify returns tx with classification fields assigned by the first
// matching custom rule, or else by the best scoring mapping. Without a match
// tx is returned unchanged. Classify never fails; a panic during matching is
// logged and tx is returned as is.
func (e *Engine) Classify(tx model.Transaction) (result model.Transaction, match Match) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("classification failed",
				slog.String("transaction_id", tx.ID),
				slog.Any("error", fmt.Errorf("%v", r)),
			)
			result, match = tx, Match{Source: SourceNone, SubMapping: -1}
		}
	}()

	if rule := e.MatchRule(tx); rule != nil {
		tx.Classification = rule.Classification()
		return tx, Match{Source: SourceCustomRule, RuleID: rule.ID, SubMapping: -1}
	}

	if best, score, sub := e.bestMapping(tx); best != nil {
		if sub >= 0 {
			tx.Classification = best.mapping.ClassificationWith(best.mapping.SubMappings[sub])
		} else {
			tx.Classification = best.mapping.Classification()
		}
		return tx, Match{Source: SourceMapping, MappingID: best.mapping.ID, Score: score, SubMapping: sub}
	}

	return tx, Match{Source: SourceNone, SubMapping: -1}
}

// MatchRule returns the first custom rule that matches tx, or nil.
func (e *Engine) MatchRule(tx model.Transaction) *model.CustomRule {
	for i := range e.rules {
		if RuleMatches(e.rules[i], tx) {
			return &e.rules[i]
		}
	}
	return nil
}

// RuleMatches reports whether a custom rule applies to tx: the movement
// filter passes, the key term matches the normalized description (exactly or
// as a substring) and, when the rule considers the amount, the amount fits.
func RuleMatches(rule model.CustomRule, tx model.Transaction) bool {
	if !rule.MovementTypeFilter.Allows(tx.MovementType()) {
		return false
	}

	term := strings.ToLower(rule.KeyTerm)
	desc := tx.NormalizedDescription()
	if rule.ExactMatch {
		if desc != term {
			return false
		}
	} else if !strings.Contains(desc, term) {
		return false
	}

	if !rule.ConsiderAmount {
		return true
	}

	switch {
	case rule.ExactAmount != nil:
		return tx.Amount.Sub(*rule.ExactAmount).Abs().LessThanOrEqual(amountTolerance)
	case rule.MinAmount != nil && rule.MaxAmount != nil:
		return tx.Amount.GreaterThanOrEqual(*rule.MinAmount) && tx.Amount.LessThanOrEqual(*rule.MaxAmount)
	default:
		return true
	}
}

// bestMapping scores every compatible mapping and returns the highest. Ties
// keep the mapping seen first. sub is the winning sub-mapping index or -1.
func (e *Engine) bestMapping(tx model.Transaction) (best *compiledMapping, bestScore int, bestSub int) {
	desc := tx.NormalizedDescription()
	movement := tx.MovementType()
	bestSub = -1

	for i := range e.mappings {
		cm := &e.mappings[i]
		if !cm.mapping.MovementTypeFilter.Allows(movement) {
			continue
		}
		if containsAny(desc, cm.exceptions) {
			continue
		}

		score, sub := cm.score(desc)
		if score > bestScore {
			best, bestScore, bestSub = cm, score, sub
		}
	}

	return best, bestScore, bestSub
}

// score returns the best tier this mapping reaches for desc.
func (cm *compiledMapping) score(desc string) (int, int) {
	if cm.regex != nil && cm.regex.MatchString(desc) {
		return ScoreRegex, -1
	}

	for i, keywords := range cm.subKeywords {
		if containsAny(desc, keywords) {
			return ScoreSubMapping, i
		}
	}

	if containsAny(desc, cm.keywords) {
		return ScoreKeyword, -1
	}

	return 0, -1
}

// containsAny reports whether any non-empty needle is a substring of s.
func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
