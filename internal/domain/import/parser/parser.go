// Package parser turns bank statement documents (PDF, CSV, OFX) into canonical
// transactions. PDFs go through an ordered chain of extraction strategies; CSV
// and OFX are read directly.
package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/sniffer"
	"github.com/FACorreiaa/statement-ledger/internal/model"
)

const tracerName = "github.com/FACorreiaa/statement-ledger/internal/domain/import/parser"

// AutoDetect asks Process to recognize the bank from the document itself.
const AutoDetect = "auto"

var (
	// ErrExtractionFailed means every PDF strategy produced zero transactions.
	ErrExtractionFailed = errors.New("could not extract transactions from PDF")

	// ErrOCRUnavailable means the OCR toolchain is not installed.
	ErrOCRUnavailable = errors.New("OCR tools not available")
)

// UnsupportedFormatError is returned for documents whose extension is not
// .pdf, .csv or .ofx.
type UnsupportedFormatError struct {
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Extension == "" {
		return "unsupported file format: missing extension"
	}
	return fmt.Sprintf("unsupported file format: %s", e.Extension)
}

// ParseError represents a parsing error for a specific row
type ParseError struct {
	Row     int
	Column  string
	Message string
	RawData string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("row %d, column %s: %s", e.Row, e.Column, e.Message)
}

// Document is an uploaded statement file.
type Document struct {
	Name string
	Data []byte
}

// Result contains the outcome of processing one document
type Result struct {
	Transactions []model.Transaction
	Errors       []ParseError
	Strategy     string // PDF strategy that produced the transactions, or the format name
	Bank         string
	Template     model.BankTemplate
}

// TemplateSource provides stored bank templates.
type TemplateSource interface {
	LoadBankTemplates(ctx context.Context) ([]model.BankTemplate, error)
}

// TextExtractor returns the plain text of each page of a PDF.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) ([]string, error)
}

// TableExtractor returns the tables found in a PDF as rows of cells.
type TableExtractor interface {
	ExtractTables(ctx context.Context, data []byte) ([][][]string, error)
}

// Parser processes statement documents.
type Parser struct {
	templates TemplateSource
	text      TextExtractor
	ocr       TextExtractor
	tables    TableExtractor
	tracer    trace.Tracer
	logger    *slog.Logger
}

// Option customizes a Parser.
type Option func(*Parser)

// WithTextExtractor replaces the PDF text extractor.
func WithTextExtractor(e TextExtractor) Option {
	return func(p *Parser) { p.text = e }
}

// WithOCR replaces the OCR extractor.
func WithOCR(e TextExtractor) Option {
	return func(p *Parser) { p.ocr = e }
}

// WithTableExtractor replaces the PDF table extractor.
func WithTableExtractor(e TableExtractor) Option {
	return func(p *Parser) { p.tables = e }
}

// NewParser creates a parser. templates may be nil, in which case only the
// generic templates are used.
func NewParser(templates TemplateSource, logger *slog.Logger, opts ...Option) *Parser {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Parser{
		templates: templates,
		tracer:    otel.Tracer(tracerName),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.text == nil {
		p.text = NewPDFTextExtractor("", logger)
	}
	if p.ocr == nil {
		p.ocr = NewTesseractOCR(OCRConfig{}, logger)
	}
	if p.tables == nil {
		p.tables = NewPDFTableExtractor()
	}
	return p
}

// FormatOf derives the document format from the file extension.
func FormatOf(name string) (model.Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".pdf":
		return model.FormatPDF, nil
	case ".csv":
		return model.FormatCSV, nil
	case ".ofx":
		return model.FormatOFX, nil
	}
	return "", &UnsupportedFormatError{Extension: ext}
}

// Process dispatches on the document format and returns the extracted
// transactions. bank selects a stored template by name; empty or AutoDetect
// recognizes the bank from the document.
func (p *Parser) Process(ctx context.Context, doc Document, bank string) (*Result, error) {
	format, err := FormatOf(doc.Name)
	if err != nil {
		return nil, err
	}

	p.logger.Info("processing statement",
		slog.String("file", doc.Name),
		slog.String("format", string(format)),
		slog.String("bank", bank),
	)

	switch format {
	case model.FormatOFX:
		return p.processOFX(doc)
	case model.FormatCSV:
		tmpl := p.resolveTemplate(ctx, bank, format, func() string {
			return sniffer.SampleText(doc.Data, 10)
		})
		return p.processCSV(doc, tmpl)
	default:
		pages := &pageCache{extractor: p.text}
		tmpl := p.resolveTemplate(ctx, bank, format, func() string {
			return pages.first(ctx, doc.Data)
		})
		return p.processPDF(ctx, doc, tmpl, pages)
	}
}

// resolveTemplate finds the template for bank, auto-detecting when asked.
// Anything unresolved falls back to the generic template for the format.
func (p *Parser) resolveTemplate(ctx context.Context, bank string, format model.Format, sample func() string) model.BankTemplate {
	generic := model.GenericPDFTemplate()
	if format == model.FormatCSV {
		generic = model.GenericCSVTemplate()
	}

	var stored []model.BankTemplate
	if p.templates != nil {
		loaded, err := p.templates.LoadBankTemplates(ctx)
		if err != nil {
			p.logger.Error("failed to load bank templates", slog.Any("error", err))
		}
		for _, t := range loaded {
			if err := t.Validate(); err != nil {
				p.logger.Warn("ignoring invalid bank template",
					slog.String("bank", t.Bank),
					slog.Any("error", err),
				)
				continue
			}
			stored = append(stored, t)
		}
	}

	name := strings.TrimSpace(bank)
	if name == "" || strings.EqualFold(name, AutoDetect) {
		names := make([]string, 0, len(stored))
		for _, t := range stored {
			names = append(names, t.Bank)
		}

		detected, ok := sniffer.NewBankDetector(names...).Detect(sample())
		if !ok {
			p.logger.Info("bank not detected, using generic template")
			return generic.WithDefaults()
		}
		p.logger.Info("bank detected", slog.String("bank", detected))
		name = detected
	}

	for _, t := range stored {
		if strings.EqualFold(t.Bank, name) || t.Key() == model.TemplateKey(name) {
			return t.WithDefaults()
		}
	}

	p.logger.Warn("no template for bank, using generic template", slog.String("bank", name))
	return generic.WithDefaults()
}

// compiledTemplate holds a template's regexes, compiled once per document.
type compiledTemplate struct {
	model.BankTemplate
	date        *regexp.Regexp
	amount      *regexp.Regexp
	description *regexp.Regexp
}

func compileTemplate(t model.BankTemplate) (*compiledTemplate, error) {
	t = t.WithDefaults()

	date, err := regexp.Compile(t.DateRegex)
	if err != nil {
		return nil, fmt.Errorf("template %q date regex: %w", t.Bank, err)
	}
	amount, err := regexp.Compile(t.AmountRegex)
	if err != nil {
		return nil, fmt.Errorf("template %q amount regex: %w", t.Bank, err)
	}
	description, err := regexp.Compile(t.DescriptionRegex)
	if err != nil {
		return nil, fmt.Errorf("template %q description regex: %w", t.Bank, err)
	}

	return &compiledTemplate{
		BankTemplate: t,
		date:         date,
		amount:       amount,
		description:  description,
	}, nil
}

func (p *Parser) logParseErrors(errs []ParseError) {
	for _, e := range errs {
		p.logger.Warn("skipping row",
			slog.Int("row", e.Row),
			slog.String("column", e.Column),
			slog.String("message", e.Message),
			slog.String("raw", e.RawData),
		)
	}
}
