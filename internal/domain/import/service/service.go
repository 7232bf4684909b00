// Package service provides the import orchestration logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-ledger/internal/model"
	"github.com/FACorreiaa/statement-ledger/pkg/metrics"
)

// ErrNothingImported is returned when a document parsed cleanly but held no transactions.
var ErrNothingImported = errors.New("no transactions found in document")

// Parser turns a statement document into transactions.
type Parser interface {
	Process(ctx context.Context, doc parser.Document, bank string) (*parser.Result, error)
}

// CategorizationService defines the interface for transaction categorization
type CategorizationService interface {
	ClassifyBatch(ctx context.Context, txs []model.Transaction) ([]model.Transaction, int, error)
}

// TransactionStore persists the transaction collection.
type TransactionStore interface {
	LoadTransactions(ctx context.Context) ([]model.Transaction, error)
	SaveTransactions(ctx context.Context, txs []model.Transaction) error
}

// ImportResult contains the result of an import operation
type ImportResult struct {
	RowsImported int
	RowsFailed   int
	Classified   int
	Strategy     string
	Bank         string
	Format       model.Format
	Duration     time.Duration
	Errors       []string
}

// ImportService orchestrates parsing, classification and storage of a statement.
type ImportService struct {
	parser     Parser
	store      TransactionStore
	catService CategorizationService // Optional: nil if categorization not available
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(p Parser, store TransactionStore, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{
		parser: p,
		store:  store,
		logger: logger,
	}
}

// WithCategorizationService adds categorization support to the import service
func (s *ImportService) WithCategorizationService(catService CategorizationService) *ImportService {
	s.catService = catService
	return s
}

// WithMetrics records import counters
func (s *ImportService) WithMetrics(m *metrics.Metrics) *ImportService {
	s.metrics = m
	return s
}

// Import parses doc with the template for bank ("" or "auto" to detect it),
// classifies every transaction and appends the batch to the stored
// transactions in a single save. A parser error stores nothing.
func (s *ImportService) Import(ctx context.Context, doc parser.Document, bank string) (*ImportResult, error) {
	start := time.Now()
	format, _ := parser.FormatOf(doc.Name)

	parsed, err := s.parser.Process(ctx, doc, bank)
	if err != nil {
		s.metrics.ObserveImport(string(format), "", "failure", "", 0, 0)
		return nil, fmt.Errorf("failed to parse %s: %w", doc.Name, err)
	}

	result := &ImportResult{
		RowsFailed: len(parsed.Errors),
		Strategy:   parsed.Strategy,
		Bank:       parsed.Bank,
		Format:     format,
	}
	for _, pe := range parsed.Errors {
		result.Errors = append(result.Errors, pe.Error())
	}

	if len(parsed.Transactions) == 0 {
		s.metrics.ObserveImport(string(format), parsed.Strategy, "empty", parsed.Bank, 0, result.RowsFailed)
		return result, ErrNothingImported
	}

	txs := parsed.Transactions
	if s.catService != nil {
		classified, n, err := s.catService.ClassifyBatch(ctx, txs)
		if err != nil {
			// Fail open - store the batch unclassified
			s.logger.Warn("categorization unavailable, importing unclassified",
				slog.String("file", doc.Name),
				slog.Any("error", err),
			)
		} else {
			txs = classified
			result.Classified = n
		}
	}

	existing, err := s.store.LoadTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	if err := s.store.SaveTransactions(ctx, append(existing, txs...)); err != nil {
		return nil, fmt.Errorf("failed to save transactions: %w", err)
	}

	result.RowsImported = len(txs)
	result.Duration = time.Since(start)
	s.metrics.ObserveImport(string(format), parsed.Strategy, "success", parsed.Bank, result.RowsImported, result.RowsFailed)

	s.logger.Info("statement imported",
		slog.String("file", doc.Name),
		slog.String("bank", result.Bank),
		slog.String("strategy", result.Strategy),
		slog.Int("rows_imported", result.RowsImported),
		slog.Int("rows_failed", result.RowsFailed),
		slog.Int("classified", result.Classified),
		slog.Duration("duration", result.Duration),
	)

	return result, nil
}
