package storage

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/FACorreiaa/statement-ledger/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps each collection as one JSONB document in the
// collections table and bank templates as rows keyed by template key.
type PostgresStore struct {
	db     DB
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore wraps an existing connection. The caller owns db.
func NewPostgresStore(db DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

// Connect opens a pool for dsn, applies migrations and returns a store that
// closes the pool on Close.
func Connect(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	if err := Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, err
	}

	s := NewPostgresStore(pool, logger)
	s.pool = pool
	return s, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, r := range results {
		logger.Info("migration applied",
			slog.Int64("version", r.Source.Version),
			slog.Duration("duration", r.Duration),
		)
	}
	return nil
}

func (s *PostgresStore) LoadTransactions(ctx context.Context) ([]model.Transaction, error) {
	data, err := s.loadPayload(ctx, CollectionTransactions)
	if err != nil {
		return nil, err
	}
	txs, err := decodeTransactions(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", CollectionTransactions, err)
	}
	return txs, nil
}

func (s *PostgresStore) SaveTransactions(ctx context.Context, txs []model.Transaction) error {
	data, err := encodeTransactions(txs)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", CollectionTransactions, err)
	}
	return s.savePayload(ctx, CollectionTransactions, data)
}

func (s *PostgresStore) LoadAccountingMappings(ctx context.Context) ([]model.AccountingMapping, error) {
	return loadRow[model.AccountingMapping](ctx, s, CollectionMappings)
}

func (s *PostgresStore) SaveAccountingMappings(ctx context.Context, mappings []model.AccountingMapping) error {
	return saveRow(ctx, s, CollectionMappings, mappings)
}

func (s *PostgresStore) LoadCustomRules(ctx context.Context) ([]model.CustomRule, error) {
	return loadRow[model.CustomRule](ctx, s, CollectionCustomRules)
}

func (s *PostgresStore) SaveCustomRules(ctx context.Context, rules []model.CustomRule) error {
	return saveRow(ctx, s, CollectionCustomRules, rules)
}

func (s *PostgresStore) LoadPresets(ctx context.Context) ([]model.Preset, error) {
	return loadRow[model.Preset](ctx, s, CollectionPresets)
}

func (s *PostgresStore) SavePresets(ctx context.Context, presets []model.Preset) error {
	return saveRow(ctx, s, CollectionPresets, presets)
}

func (s *PostgresStore) LoadBankTemplates(ctx context.Context) ([]model.BankTemplate, error) {
	query := `
		SELECT key, payload
		FROM bank_templates
		ORDER BY key
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	templates := []model.BankTemplate{}
	for rows.Next() {
		var (
			key     string
			payload []byte
		)
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, err
		}

		var t model.BankTemplate
		if err := json.Unmarshal(payload, &t); err != nil {
			s.logger.Warn("skipping unreadable bank template",
				slog.String("key", key),
				slog.Any("error", err),
			)
			continue
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (s *PostgresStore) SaveBankTemplate(ctx context.Context, t model.BankTemplate) error {
	key, err := templateKey(t)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}

	query := `
		INSERT INTO bank_templates (key, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = now()
	`
	if _, err := s.db.Exec(ctx, query, key, payload); err != nil {
		return fmt.Errorf("failed to save template %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) DeleteBankTemplate(ctx context.Context, key string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM bank_templates WHERE key = $1`, sanitizeKey(key))
	if err != nil {
		return fmt.Errorf("failed to delete template %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("template %s: %w", key, ErrNotFound)
	}
	return nil
}

// Close releases the pool when the store opened it.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// loadPayload returns the stored document, or nil when the collection has
// never been saved.
func (s *PostgresStore) loadPayload(ctx context.Context, name string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRow(ctx, `SELECT payload FROM collections WHERE name = $1`, name).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	return payload, nil
}

func (s *PostgresStore) savePayload(ctx context.Context, name string, payload []byte) error {
	query := `
		INSERT INTO collections (name, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = now()
	`
	if _, err := s.db.Exec(ctx, query, name, payload); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}

func loadRow[T any](ctx context.Context, s *PostgresStore, collection string) ([]T, error) {
	data, err := s.loadPayload(ctx, collection)
	if err != nil {
		return nil, err
	}
	items, err := decodeList[T](data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", collection, err)
	}
	return items, nil
}

func saveRow[T any](ctx context.Context, s *PostgresStore, collection string, items []T) error {
	data, err := encodeList(items)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", collection, err)
	}
	return s.savePayload(ctx, collection, data)
}
