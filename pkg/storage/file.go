package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/FACorreiaa/statement-ledger/internal/model"
)

const templatesDir = "templates"

// FileStore keeps each collection in a JSON file under a data directory and
// each bank template in templates/<key>.json.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore creates the data directory when missing.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(filepath.Join(dir, templatesDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Dir returns the data directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) LoadTransactions(context.Context) ([]model.Transaction, error) {
	data, err := s.read(CollectionTransactions + ".json")
	if err != nil {
		return nil, err
	}
	txs, err := decodeTransactions(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", CollectionTransactions, err)
	}
	return txs, nil
}

func (s *FileStore) SaveTransactions(_ context.Context, txs []model.Transaction) error {
	data, err := encodeTransactions(txs)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", CollectionTransactions, err)
	}
	return s.write(CollectionTransactions+".json", data)
}

func (s *FileStore) LoadAccountingMappings(context.Context) ([]model.AccountingMapping, error) {
	return loadFile[model.AccountingMapping](s, CollectionMappings)
}

func (s *FileStore) SaveAccountingMappings(_ context.Context, mappings []model.AccountingMapping) error {
	return saveFile(s, CollectionMappings, mappings)
}

func (s *FileStore) LoadCustomRules(context.Context) ([]model.CustomRule, error) {
	return loadFile[model.CustomRule](s, CollectionCustomRules)
}

func (s *FileStore) SaveCustomRules(_ context.Context, rules []model.CustomRule) error {
	return saveFile(s, CollectionCustomRules, rules)
}

func (s *FileStore) LoadPresets(context.Context) ([]model.Preset, error) {
	return loadFile[model.Preset](s, CollectionPresets)
}

func (s *FileStore) SavePresets(_ context.Context, presets []model.Preset) error {
	return saveFile(s, CollectionPresets, presets)
}

// LoadBankTemplates returns every stored template ordered by key. Files that
// cannot be parsed are logged and skipped.
func (s *FileStore) LoadBankTemplates(context.Context) ([]model.BankTemplate, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, templatesDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.BankTemplate{}, nil
		}
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	templates := make([]model.BankTemplate, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := s.read(filepath.Join(templatesDir, entry.Name()))
		if err != nil {
			return nil, err
		}

		var t model.BankTemplate
		if err := json.Unmarshal(data, &t); err != nil {
			s.logger.Warn("skipping unreadable bank template",
				slog.String("file", entry.Name()),
				slog.Any("error", err),
			)
			continue
		}
		templates = append(templates, t)
	}
	return templates, nil
}

func (s *FileStore) SaveBankTemplate(_ context.Context, t model.BankTemplate) error {
	key, err := templateKey(t)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}
	return s.write(filepath.Join(templatesDir, key+".json"), data)
}

func (s *FileStore) DeleteBankTemplate(_ context.Context, key string) error {
	path := filepath.Join(s.dir, templatesDir, sanitizeKey(key)+".json")
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("template %s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

// read returns the file contents, or nil when the file does not exist.
func (s *FileStore) read(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// write replaces the file atomically through a temp file in the same directory.
func (s *FileStore) write(name string, data []byte) error {
	path := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(name)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName) // Cleanup on error
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

func loadFile[T any](s *FileStore, collection string) ([]T, error) {
	data, err := s.read(collection + ".json")
	if err != nil {
		return nil, err
	}
	items, err := decodeList[T](data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", collection, err)
	}
	return items, nil
}

func saveFile[T any](s *FileStore, collection string, items []T) error {
	data, err := encodeList(items)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", collection, err)
	}
	return s.write(collection+".json", data)
}
