package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/FACorreiaa/statement-ledger/internal/domain/categorization"
	"github.com/FACorreiaa/statement-ledger/internal/domain/export"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/parser"
	importservice "github.com/FACorreiaa/statement-ledger/internal/domain/import/service"
	"github.com/FACorreiaa/statement-ledger/internal/domain/ledger"
	"github.com/FACorreiaa/statement-ledger/pkg/config"
	"github.com/FACorreiaa/statement-ledger/pkg/metrics"
	"github.com/FACorreiaa/statement-ledger/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Store   storage.Store

	// Services
	Parser                *parser.Parser
	CategorizationService *categorization.Service
	ImportService         *importservice.ImportService
	LedgerService         *ledger.Service
	Exporter              *export.Exporter
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	if err := deps.initStore(ctx); err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	if err := deps.initServices(); err != nil {
		deps.Store.Close()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	logger.Debug("all dependencies initialized successfully")

	return deps, nil
}

// initStore opens the configured store. Postgres runs migrations on connect.
func (d *Dependencies) initStore(ctx context.Context) error {
	store, err := storage.New(ctx, d.Config.Storage(), d.Logger)
	if err != nil {
		return err
	}
	d.Store = storage.NewObserved(store, d.Metrics)

	d.Logger.Debug("store ready", slog.String("backend", string(d.Config.Store.Backend)))
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	ocr := d.Config.OCR
	d.Parser = parser.NewParser(d.Store, d.Logger,
		parser.WithTextExtractor(parser.NewPDFTextExtractor(ocr.PDFToTextPath, d.Logger)),
		parser.WithOCR(parser.NewTesseractOCR(parser.OCRConfig{
			PDFToPPMPath:  ocr.PDFToPPMPath,
			TesseractPath: ocr.TesseractPath,
			Language:      ocr.Language,
			DPI:           ocr.DPI,
		}, d.Logger)),
	)

	d.CategorizationService = categorization.NewService(d.Store, d.Logger, categorization.WithMetrics(d.Metrics))

	// Import service with categorization wired in
	d.ImportService = importservice.NewImportService(d.Parser, d.Store, d.Logger).
		WithCategorizationService(d.CategorizationService).
		WithMetrics(d.Metrics)

	d.LedgerService = ledger.NewService(d.Store, d.Logger)

	layouts, err := d.loadLayouts()
	if err != nil {
		return err
	}
	d.Exporter = export.NewExporter(d.Logger, layouts...)

	return nil
}

func (d *Dependencies) loadLayouts() ([]export.Layout, error) {
	path := d.Config.Export.LayoutsFile
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening export layouts: %w", err)
	}
	defer f.Close()

	return export.LoadLayouts(f)
}

// Cleanup writes the metrics textfile and closes the store.
func (d *Dependencies) Cleanup() error {
	var errs []error
	if err := d.Metrics.WriteTextfile(d.Config.Observability.MetricsTextfile); err != nil {
		errs = append(errs, err)
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing store: %w", err))
		}
	}
	return errors.Join(errs...)
}
