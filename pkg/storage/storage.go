// Package storage persists the transaction, mapping, rule, preset and bank
// template collections. Each save replaces a whole collection.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FACorreiaa/statement-ledger/internal/model"
)

// ErrNotFound is returned when deleting a bank template that is not stored.
var ErrNotFound = errors.New("not found")

// Collection names shared by the file and Postgres backends.
const (
	CollectionTransactions = "transactions"
	CollectionMappings     = "accounting_mappings"
	CollectionCustomRules  = "custom_rules"
	CollectionPresets      = "presets"
)

// Store is the persistence boundary of the application.
type Store interface {
	LoadTransactions(ctx context.Context) ([]model.Transaction, error)
	SaveTransactions(ctx context.Context, txs []model.Transaction) error

	LoadBankTemplates(ctx context.Context) ([]model.BankTemplate, error)
	// SaveBankTemplate upserts by the template's key.
	SaveBankTemplate(ctx context.Context, t model.BankTemplate) error
	DeleteBankTemplate(ctx context.Context, key string) error

	LoadAccountingMappings(ctx context.Context) ([]model.AccountingMapping, error)
	SaveAccountingMappings(ctx context.Context, mappings []model.AccountingMapping) error

	LoadCustomRules(ctx context.Context) ([]model.CustomRule, error)
	SaveCustomRules(ctx context.Context, rules []model.CustomRule) error

	LoadPresets(ctx context.Context) ([]model.Preset, error)
	SavePresets(ctx context.Context, presets []model.Preset) error

	Close() error
}

// Backend identifies the storage backend
type Backend string

const (
	BackendFile     Backend = "file"
	BackendPostgres Backend = "postgres"
)

// Config holds storage configuration
type Config struct {
	Backend     Backend
	DataDir     string
	PostgresDSN string
}

// New opens the configured backend. Postgres connections run pending
// migrations before returning.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case BackendPostgres:
		return Connect(ctx, cfg.PostgresDSN, logger)
	case BackendFile, "":
		return NewFileStore(cfg.DataDir, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func encodeTransactions(txs []model.Transaction) ([]byte, error) {
	return json.Marshal(model.ToRecords(txs))
}

func decodeTransactions(data []byte) ([]model.Transaction, error) {
	records, err := decodeList[model.Record](data)
	if err != nil {
		return nil, err
	}
	return model.FromRecords(records)
}

// decodeList decodes a JSON array. Empty input is an empty collection.
func decodeList[T any](data []byte) ([]T, error) {
	out := []T{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func encodeList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

// templateKey validates the key a template is stored under.
func templateKey(t model.BankTemplate) (string, error) {
	key := sanitizeKey(t.Key())
	if key == "" {
		return "", fmt.Errorf("%w: bank name is required", model.ErrInvalidTemplate)
	}
	return key, nil
}

// sanitizeKey removes characters that cannot appear in a file name.
func sanitizeKey(key string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(key)
}
