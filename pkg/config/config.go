// Package config loads application settings from the environment, reading a
// .env file first when one is present.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/FACorreiaa/statement-ledger/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	Store         StoreConfig
	Database      DatabaseConfig
	Log           LogConfig
	OCR           OCRConfig
	Export        ExportConfig
	Observability ObservabilityConfig
}

type StoreConfig struct {
	Backend storage.Backend
	DataDir string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type LogConfig struct {
	Level  string
	Format string // text or json
}

type OCRConfig struct {
	Language      string
	DPI           int
	PDFToPPMPath  string
	TesseractPath string
	PDFToTextPath string
}

type ExportConfig struct {
	LayoutsFile string // optional YAML file with extra export layouts
}

type ObservabilityConfig struct {
	MetricsTextfile string // node-exporter textfile written after each run
}

// Load reads configuration from environment variables. envFiles are loaded
// into the environment first without overriding variables already set;
// with no arguments ".env" is tried. Missing files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := &Config{
		Store: StoreConfig{
			Backend: storage.Backend(strings.ToLower(getEnv("STORE_BACKEND", string(storage.BackendFile)))),
			DataDir: getEnv("DATA_DIR", "data"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "statement_ledger"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
		OCR: OCRConfig{
			Language:      getEnv("OCR_LANGUAGE", "por"),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			PDFToPPMPath:  getEnv("PDFTOPPM_PATH", "pdftoppm"),
			TesseractPath: getEnv("TESSERACT_PATH", "tesseract"),
			PDFToTextPath: getEnv("PDFTOTEXT_PATH", "pdftotext"),
		},
		Export: ExportConfig{
			LayoutsFile: getEnv("EXPORT_LAYOUTS_FILE", ""),
		},
		Observability: ObservabilityConfig{
			MetricsTextfile: getEnv("METRICS_TEXTFILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have a closed set of options.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case storage.BackendFile, storage.BackendPostgres:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", storage.BackendFile, storage.BackendPostgres, c.Store.Backend)
	}
	if c.Store.Backend == storage.BackendFile && c.Store.DataDir == "" {
		return errors.New("DATA_DIR is required for the file store")
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}
	if c.OCR.DPI <= 0 {
		return fmt.Errorf("OCR_DPI must be positive, got %d", c.OCR.DPI)
	}
	return nil
}

// Storage returns the store settings.
func (c *Config) Storage() storage.Config {
	return storage.Config{
		Backend:     c.Store.Backend,
		DataDir:     c.Store.DataDir,
		PostgresDSN: c.Database.DSN(),
	}
}

// NewLogger builds the application logger writing to w.
func (c *LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, _ := c.level()
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (c *LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
