// Package ledger lists, filters and prunes stored transactions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/model"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("not found")

// MappedState filters transactions by whether a ledger label is assigned.
type MappedState string

const (
	MappedAll      MappedState = "all"
	MappedOnly     MappedState = "mapped"
	MappedUnmapped MappedState = "unmapped"
)

// Filter narrows a transaction listing. Zero values match everything.
type Filter struct {
	Bank     string
	Mapped   MappedState
	DateFrom time.Time // inclusive
	DateTo   time.Time // inclusive
}

// Matches reports whether tx passes the filter.
func (f Filter) Matches(tx model.Transaction) bool {
	if f.Bank != "" && !strings.EqualFold(f.Bank, tx.Bank) {
		return false
	}
	switch f.Mapped {
	case MappedOnly:
		if !tx.IsMapped() {
			return false
		}
	case MappedUnmapped:
		if tx.IsMapped() {
			return false
		}
	}
	if !f.DateFrom.IsZero() && tx.Date.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && tx.Date.After(f.DateTo) {
		return false
	}
	return true
}

// Stats summarizes the stored transactions.
type Stats struct {
	Total            int
	Mapped           int
	Unmapped         int
	MappedPercentage float64 // rounded to one decimal
	Reviewed         int
	TotalCredits     decimal.Decimal
	TotalDebits      decimal.Decimal // negative or zero
}

// Store is the slice of the store the ledger needs.
type Store interface {
	LoadTransactions(ctx context.Context) ([]model.Transaction, error)
	SaveTransactions(ctx context.Context, txs []model.Transaction) error
}

// Service handles transaction listing business logic
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new ledger service
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// List returns the transactions passing f, newest first. Transactions on the
// same date keep their stored order.
func (s *Service) List(ctx context.Context, f Filter) ([]model.Transaction, error) {
	txs, err := s.store.LoadTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}

	filtered := make([]model.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Matches(tx) {
			filtered = append(filtered, tx)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Date.After(filtered[j].Date)
	})

	return filtered, nil
}

// Get returns one transaction by id.
func (s *Service) Get(ctx context.Context, id string) (model.Transaction, error) {
	txs, err := s.store.LoadTransactions(ctx)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("loading transactions: %w", err)
	}

	idx := slices.IndexFunc(txs, func(tx model.Transaction) bool { return tx.ID == id })
	if idx < 0 {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return txs[idx], nil
}

// Stats computes counts and totals over every stored transaction.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	txs, err := s.store.LoadTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	return Summarize(txs), nil
}

// Summarize computes Stats for txs.
func Summarize(txs []model.Transaction) *Stats {
	stats := &Stats{
		Total:        len(txs),
		TotalCredits: decimal.Zero,
		TotalDebits:  decimal.Zero,
	}

	for _, tx := range txs {
		if tx.IsMapped() {
			stats.Mapped++
		}
		if tx.ManuallyReviewed {
			stats.Reviewed++
		}
		if tx.MovementType() == model.Debit {
			stats.TotalDebits = stats.TotalDebits.Add(tx.Amount)
		} else {
			stats.TotalCredits = stats.TotalCredits.Add(tx.Amount)
		}
	}
	stats.Unmapped = stats.Total - stats.Mapped

	if stats.Total > 0 {
		pct := float64(stats.Mapped) / float64(stats.Total) * 100
		stats.MappedPercentage = math.Round(pct*10) / 10
	}

	return stats
}

// Banks returns the distinct bank names, sorted.
func (s *Service) Banks(ctx context.Context) ([]string, error) {
	txs, err := s.store.LoadTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}

	banks := make([]string, 0)
	for _, tx := range txs {
		if tx.Bank != "" && !slices.Contains(banks, tx.Bank) {
			banks = append(banks, tx.Bank)
		}
	}
	slices.Sort(banks)
	return banks, nil
}

// Clear removes every stored transaction and returns how many there were.
func (s *Service) Clear(ctx context.Context) (int, error) {
	txs, err := s.store.LoadTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading transactions: %w", err)
	}
	if err := s.store.SaveTransactions(ctx, []model.Transaction{}); err != nil {
		return 0, fmt.Errorf("saving transactions: %w", err)
	}

	s.logger.Info("transactions cleared", slog.Int("removed", len(txs)))
	return len(txs), nil
}

// DeleteSelected removes the transactions with the given ids. Unknown ids are
// ignored. It returns how many were removed.
func (s *Service) DeleteSelected(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	txs, err := s.store.LoadTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading transactions: %w", err)
	}

	before := len(txs)
	kept := slices.DeleteFunc(txs, func(tx model.Transaction) bool {
		return slices.Contains(ids, tx.ID)
	})
	removed := before - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if err := s.store.SaveTransactions(ctx, kept); err != nil {
		return 0, fmt.Errorf("saving transactions: %w", err)
	}

	s.logger.Info("transactions deleted", slog.Int("removed", removed))
	return removed, nil
}
