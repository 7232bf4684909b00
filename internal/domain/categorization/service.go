package categorization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/statement-ledger/internal/model"
	"github.com/FACorreiaa/statement-ledger/pkg/metrics"
)

// ErrNotFound is returned when a transaction, rule, mapping or preset id is unknown.
var ErrNotFound = errors.New("not found")

// Repository is the slice of the store the categorization service needs.
type Repository interface {
	LoadTransactions(ctx context.Context) ([]model.Transaction, error)
	SaveTransactions(ctx context.Context, txs []model.Transaction) error
	LoadAccountingMappings(ctx context.Context) ([]model.AccountingMapping, error)
	SaveAccountingMappings(ctx context.Context, mappings []model.AccountingMapping) error
	LoadCustomRules(ctx context.Context) ([]model.CustomRule, error)
	SaveCustomRules(ctx context.Context, rules []model.CustomRule) error
	LoadPresets(ctx context.Context) ([]model.Preset, error)
	SavePresets(ctx context.Context, presets []model.Preset) error
}

// RuleKind selects how a manual edit is turned into a custom rule.
type RuleKind string

const (
	// RuleContains matches descriptions containing the key term.
	RuleContains RuleKind = "contains"
	// RuleExact matches descriptions equal to the key term.
	RuleExact RuleKind = "exact"
	// RuleExactValue matches descriptions containing the key term with the same amount.
	RuleExactValue RuleKind = "exact_value"
)

// RuleRequest asks ApplyManualEdit to remember the edit as a custom rule.
type RuleRequest struct {
	Kind RuleKind
	// KeyTerm overrides the transaction's normalized description.
	KeyTerm string
}

// RemapResult summarizes a bulk remap.
type RemapResult struct {
	Considered int // transactions selected
	Skipped    int // manually reviewed, left untouched
	Updated    int // classification or normalized description changed
	Unmatched  int // no rule or mapping applied
}

// Service handles transaction categorization logic
type Service struct {
	repo    Repository
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records classification and remap counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source used for rule and preset timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new categorization service
func NewService(repo Repository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repo: repo, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine loads the current rules and mappings into a fresh engine.
func (s *Service) Engine(ctx context.Context) (*Engine, error) {
	rules, err := s.repo.LoadCustomRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading custom rules: %w", err)
	}
	mappings, err := s.repo.LoadAccountingMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading accounting mappings: %w", err)
	}
	return NewEngine(rules, mappings, s.logger), nil
}

// Classify classifies a single transaction against the stored rules and mappings.
func (s *Service) Classify(ctx context.Context, tx model.Transaction) (model.Transaction, Match, error) {
	engine, err := s.Engine(ctx)
	if err != nil {
		return tx, Match{Source: SourceNone, SubMapping: -1}, err
	}
	out, match := engine.Classify(tx)
	s.metrics.ObserveClassification(string(match.Source))
	return out, match, nil
}

// ClassifyBatch classifies transactions with one engine and returns them with
// the number that matched a rule or mapping. Manually reviewed transactions
// are returned untouched.
func (s *Service) ClassifyBatch(ctx context.Context, txs []model.Transaction) ([]model.Transaction, int, error) {
	engine, err := s.Engine(ctx)
	if err != nil {
		return txs, 0, err
	}

	out := make([]model.Transaction, len(txs))
	classified := 0
	for i, tx := range txs {
		if tx.ManuallyReviewed {
			out[i] = tx
			continue
		}
		var match Match
		out[i], match = engine.Classify(tx)
		s.metrics.ObserveClassification(string(match.Source))
		if match.Source != SourceNone {
			classified++
		}
	}
	return out, classified, nil
}

// RemapAll re-runs classification over every stored transaction that was not
// manually reviewed.
func (s *Service) RemapAll(ctx context.Context) (RemapResult, error) {
	return s.remap(ctx, "all", nil, false)
}

// RemapSelected re-runs classification over the given transactions. Unknown
// ids are ignored.
func (s *Service) RemapSelected(ctx context.Context, ids []string) (RemapResult, error) {
	return s.remap(ctx, "selected", idSet(ids), false)
}

// RefreshDescriptions re-derives normalized descriptions from the raw ones and
// then remaps. With no ids every transaction is refreshed.
func (s *Service) RefreshDescriptions(ctx context.Context, ids []string) (RemapResult, error) {
	var selected map[string]struct{}
	if len(ids) > 0 {
		selected = idSet(ids)
	}
	return s.remap(ctx, "refresh", selected, true)
}

// remap classifies the selected transactions (all when selected is nil) and
// saves the collection once when anything changed.
func (s *Service) remap(ctx context.Context, operation string, selected map[string]struct{}, refresh bool) (RemapResult, error) {
	var result RemapResult

	engine, err := s.Engine(ctx)
	if err != nil {
		return result, err
	}

	txs, err := s.repo.LoadTransactions(ctx)
	if err != nil {
		return result, fmt.Errorf("loading transactions: %w", err)
	}

	for i := range txs {
		if selected != nil {
			if _, ok := selected[txs[i].ID]; !ok {
				continue
			}
		}
		result.Considered++

		if txs[i].ManuallyReviewed {
			result.Skipped++
			continue
		}

		changed := false
		if refresh {
			changed = txs[i].RefreshNormalized()
		}

		classified, match := engine.Classify(txs[i])
		s.metrics.ObserveClassification(string(match.Source))
		if match.Source == SourceNone {
			result.Unmatched++
		}
		if classified.Classification != txs[i].Classification {
			changed = true
		}
		txs[i] = classified

		if changed {
			result.Updated++
		}
	}

	if result.Updated > 0 {
		if err := s.repo.SaveTransactions(ctx, txs); err != nil {
			return result, fmt.Errorf("saving transactions: %w", err)
		}
	}
	s.metrics.ObserveRemap(operation, result.Updated)

	s.logger.Info("remap completed",
		slog.String("operation", operation),
		slog.Int("considered", result.Considered),
		slog.Int("skipped", result.Skipped),
		slog.Int("updated", result.Updated),
		slog.Int("unmatched", result.Unmatched),
	)

	return result, nil
}

// ApplyManualEdit sets a transaction's classification by hand and marks it
// reviewed, so remaps leave it alone. With a rule request the edit is also
// saved as a custom rule and applied to every other unreviewed transaction
// the rule matches. It returns how many other transactions were updated.
func (s *Service) ApplyManualEdit(ctx context.Context, id string, c model.Classification, req *RuleRequest) (int, error) {
	txs, err := s.repo.LoadTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading transactions: %w", err)
	}

	idx := slices.IndexFunc(txs, func(tx model.Transaction) bool { return tx.ID == id })
	if idx < 0 {
		return 0, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}

	txs[idx].Classification = c
	txs[idx].ManuallyReviewed = true

	propagated := 0
	if req != nil {
		rule, err := s.ruleFromEdit(txs[idx], *req)
		if err != nil {
			return 0, err
		}

		rules, err := s.repo.LoadCustomRules(ctx)
		if err != nil {
			return 0, fmt.Errorf("loading custom rules: %w", err)
		}
		if err := s.repo.SaveCustomRules(ctx, append(rules, rule)); err != nil {
			return 0, fmt.Errorf("saving custom rules: %w", err)
		}

		for i := range txs {
			if i == idx || txs[i].ManuallyReviewed || !RuleMatches(rule, txs[i]) {
				continue
			}
			txs[i].Classification = rule.Classification()
			propagated++
		}

		s.logger.Info("custom rule created from manual edit",
			slog.String("rule_id", rule.ID),
			slog.String("kind", string(req.Kind)),
			slog.String("key_term", rule.KeyTerm),
			slog.Int("propagated", propagated),
		)
	}

	if err := s.repo.SaveTransactions(ctx, txs); err != nil {
		return 0, fmt.Errorf("saving transactions: %w", err)
	}

	return propagated, nil
}

func (s *Service) ruleFromEdit(tx model.Transaction, req RuleRequest) (model.CustomRule, error) {
	term := strings.TrimSpace(req.KeyTerm)
	if term == "" {
		term = tx.NormalizedDescription()
	}

	rule := model.CustomRule{
		ID:                 uuid.NewString(),
		KeyTerm:            term,
		MovementTypeFilter: model.FilterFor(tx.MovementType()),
		LedgerLabel:        tx.LedgerLabel,
		DebitAccount:       tx.DebitAccount,
		CreditAccount:      tx.CreditAccount,
		LedgerMemo:         tx.LedgerMemo,
		CreatedAt:          s.now(),
	}

	switch req.Kind {
	case RuleContains:
	case RuleExact:
		rule.ExactMatch = true
	case RuleExactValue:
		amount := tx.Amount
		rule.ConsiderAmount = true
		rule.ExactAmount = &amount
	default:
		return model.CustomRule{}, fmt.Errorf("%w: unknown rule kind %q", model.ErrInvalidRule, req.Kind)
	}

	if err := rule.Validate(); err != nil {
		return model.CustomRule{}, err
	}
	return rule, nil
}

// ListRules returns custom rules in priority order.
func (s *Service) ListRules(ctx context.Context) ([]model.CustomRule, error) {
	rules, err := s.repo.LoadCustomRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading custom rules: %w", err)
	}
	return rules, nil
}

// CreateRule validates and appends a custom rule, then reclassifies the
// unreviewed transactions it matches. Earlier rules keep their priority. It
// returns the stored rule and how many transactions changed.
func (s *Service) CreateRule(ctx context.Context, rule model.CustomRule) (model.CustomRule, int, error) {
	if err := rule.Validate(); err != nil {
		return model.CustomRule{}, 0, err
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = s.now()
	}

	rules, err := s.repo.LoadCustomRules(ctx)
	if err != nil {
		return model.CustomRule{}, 0, fmt.Errorf("loading custom rules: %w", err)
	}
	rules = append(rules, rule)
	if err := s.repo.SaveCustomRules(ctx, rules); err != nil {
		return model.CustomRule{}, 0, fmt.Errorf("saving custom rules: %w", err)
	}

	// Rule was created, a backfill failure is only logged
	updated, err := s.backfillRule(ctx, rule)
	if err != nil {
		s.logger.Error("failed to apply new rule to existing transactions",
			slog.String("rule_id", rule.ID),
			slog.Any("error", err),
		)
		return rule, 0, nil
	}

	return rule, updated, nil
}

func (s *Service) backfillRule(ctx context.Context, rule model.CustomRule) (int, error) {
	engine, err := s.Engine(ctx)
	if err != nil {
		return 0, err
	}
	txs, err := s.repo.LoadTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading transactions: %w", err)
	}

	updated := 0
	for i := range txs {
		if txs[i].ManuallyReviewed || !RuleMatches(rule, txs[i]) {
			continue
		}
		classified, _ := engine.Classify(txs[i])
		if classified.Classification != txs[i].Classification {
			txs[i] = classified
			updated++
		}
	}

	if updated > 0 {
		if err := s.repo.SaveTransactions(ctx, txs); err != nil {
			return 0, fmt.Errorf("saving transactions: %w", err)
		}
	}
	return updated, nil
}

// DeleteRule removes a custom rule. Classifications it already assigned stay.
func (s *Service) DeleteRule(ctx context.Context, id string) error {
	rules, err := s.repo.LoadCustomRules(ctx)
	if err != nil {
		return fmt.Errorf("loading custom rules: %w", err)
	}

	kept := slices.DeleteFunc(rules, func(r model.CustomRule) bool { return r.ID == id })
	if len(kept) == len(rules) {
		return fmt.Errorf("custom rule %s: %w", id, ErrNotFound)
	}

	if err := s.repo.SaveCustomRules(ctx, kept); err != nil {
		return fmt.Errorf("saving custom rules: %w", err)
	}
	return nil
}

// ListMappings returns accounting mappings in storage order.
func (s *Service) ListMappings(ctx context.Context) ([]model.AccountingMapping, error) {
	mappings, err := s.repo.LoadAccountingMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading accounting mappings: %w", err)
	}
	return mappings, nil
}

// CreateMapping validates and appends a mapping.
func (s *Service) CreateMapping(ctx context.Context, m model.AccountingMapping) (model.AccountingMapping, error) {
	if err := m.Validate(); err != nil {
		return model.AccountingMapping{}, err
	}
	m = m.WithID()

	mappings, err := s.repo.LoadAccountingMappings(ctx)
	if err != nil {
		return model.AccountingMapping{}, fmt.Errorf("loading accounting mappings: %w", err)
	}
	if err := s.repo.SaveAccountingMappings(ctx, append(mappings, m)); err != nil {
		return model.AccountingMapping{}, fmt.Errorf("saving accounting mappings: %w", err)
	}
	return m, nil
}

// UpdateMapping replaces the mapping with the same id, keeping its position.
func (s *Service) UpdateMapping(ctx context.Context, m model.AccountingMapping) error {
	if err := m.Validate(); err != nil {
		return err
	}

	mappings, err := s.repo.LoadAccountingMappings(ctx)
	if err != nil {
		return fmt.Errorf("loading accounting mappings: %w", err)
	}

	idx := slices.IndexFunc(mappings, func(existing model.AccountingMapping) bool { return existing.ID == m.ID })
	if idx < 0 {
		return fmt.Errorf("accounting mapping %s: %w", m.ID, ErrNotFound)
	}
	mappings[idx] = m

	if err := s.repo.SaveAccountingMappings(ctx, mappings); err != nil {
		return fmt.Errorf("saving accounting mappings: %w", err)
	}
	return nil
}

// DeleteMapping removes a mapping by id.
func (s *Service) DeleteMapping(ctx context.Context, id string) error {
	mappings, err := s.repo.LoadAccountingMappings(ctx)
	if err != nil {
		return fmt.Errorf("loading accounting mappings: %w", err)
	}

	kept := slices.DeleteFunc(mappings, func(m model.AccountingMapping) bool { return m.ID == id })
	if len(kept) == len(mappings) {
		return fmt.Errorf("accounting mapping %s: %w", id, ErrNotFound)
	}

	if err := s.repo.SaveAccountingMappings(ctx, kept); err != nil {
		return fmt.Errorf("saving accounting mappings: %w", err)
	}
	return nil
}

// Suggest ranks mappings that resemble the transaction's description. It is
// meant for transactions no rule or mapping classified.
func (s *Service) Suggest(ctx context.Context, tx model.Transaction, limit int) ([]Suggestion, error) {
	mappings, err := s.repo.LoadAccountingMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading accounting mappings: %w", err)
	}

	matcher := NewFuzzyMatcher(mappings)
	return matcher.Rank(tx.NormalizedDescription(), DefaultSuggestThreshold, limit), nil
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
