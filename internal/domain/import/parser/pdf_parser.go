package parser

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/statement-ledger/internal/model"
)

// Strategy names, in chain order.
const (
	StrategyText  = "text"
	StrategyOCR   = "ocr"
	StrategyTable = "table"
)

// strategy is one way of pulling transactions out of a PDF.
type strategy struct {
	name    string
	extract func(ctx context.Context, data []byte, tmpl *compiledTemplate) ([]model.Transaction, []ParseError, error)
}

// strategies returns the PDF chain in the order it is tried.
func (p *Parser) strategies(pages *pageCache) []strategy {
	return []strategy{
		{name: StrategyText, extract: func(ctx context.Context, data []byte, tmpl *compiledTemplate) ([]model.Transaction, []ParseError, error) {
			return p.extractText(ctx, pages, data, tmpl)
		}},
		{name: StrategyOCR, extract: p.extractOCR},
		{name: StrategyTable, extract: p.extractTable},
	}
}

// pageCache extracts PDF text once per document, so bank detection and the
// text strategy share the result.
type pageCache struct {
	extractor TextExtractor
	done      bool
	pages     []string
	err       error
}

func (c *pageCache) get(ctx context.Context, data []byte) ([]string, error) {
	if !c.done {
		c.done = true
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.pages, c.err = nil, fmt.Errorf("extracting text: %v", r)
				}
			}()
			c.pages, c.err = c.extractor.ExtractText(ctx, data)
		}()
	}
	return c.pages, c.err
}

func (c *pageCache) first(ctx context.Context, data []byte) string {
	pages, err := c.get(ctx, data)
	if err != nil || len(pages) == 0 {
		return ""
	}
	return pages[0]
}

// processPDF runs the strategies in order and keeps the first non-empty
// result. Strategy failures are logged and the chain moves on.
func (p *Parser) processPDF(ctx context.Context, doc Document, tmpl model.BankTemplate, pages *pageCache) (*Result, error) {
	compiled, err := compileTemplate(tmpl)
	if err != nil {
		return nil, err
	}

	for _, s := range p.strategies(pages) {
		txs, errs, err := p.runStrategy(ctx, s, doc.Data, compiled)
		if err != nil {
			p.logger.Warn("PDF strategy failed",
				slog.String("strategy", s.name),
				slog.String("file", doc.Name),
				slog.Any("error", err),
			)
			continue
		}
		p.logParseErrors(errs)

		if len(txs) > 0 {
			p.logger.Info("PDF parsed",
				slog.String("strategy", s.name),
				slog.String("bank", compiled.Bank),
				slog.Int("transactions", len(txs)),
			)
			return &Result{
				Transactions: txs,
				Errors:       errs,
				Strategy:     s.name,
				Bank:         compiled.Bank,
				Template:     compiled.BankTemplate,
			}, nil
		}
		p.logger.Info("PDF strategy found no transactions", slog.String("strategy", s.name))
	}

	return nil, fmt.Errorf("%s: %w", doc.Name, ErrExtractionFailed)
}

func (p *Parser) runStrategy(ctx context.Context, s strategy, data []byte, tmpl *compiledTemplate) (txs []model.Transaction, errs []ParseError, err error) {
	ctx, span := p.tracer.Start(ctx, "parser.pdf."+s.name,
		trace.WithAttributes(
			attribute.String("strategy", s.name),
			attribute.String("bank", tmpl.Bank),
		),
	)
	defer func() {
		// Third-party PDF code may panic on malformed input
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy %s panicked: %v", s.name, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("transactions", len(txs)),
				attribute.Int("row_errors", len(errs)),
			)
		}
		span.End()
	}()

	return s.extract(ctx, data, tmpl)
}

func (p *Parser) extractText(ctx context.Context, cache *pageCache, data []byte, tmpl *compiledTemplate) ([]model.Transaction, []ParseError, error) {
	pages, err := cache.get(ctx, data)
	if err != nil {
		return nil, nil, fmt.Errorf("extracting text: %w", err)
	}
	txs, errs := parseLines(pages, tmpl)
	return txs, errs, nil
}

func (p *Parser) extractOCR(ctx context.Context, data []byte, tmpl *compiledTemplate) ([]model.Transaction, []ParseError, error) {
	pages, err := p.ocr.ExtractText(ctx, data)
	if err != nil {
		return nil, nil, fmt.Errorf("running OCR: %w", err)
	}
	txs, errs := parseLines(pages, tmpl)
	return txs, errs, nil
}

func (p *Parser) extractTable(ctx context.Context, data []byte, tmpl *compiledTemplate) ([]model.Transaction, []ParseError, error) {
	if len(tmpl.ColumnMap) == 0 {
		p.logger.Warn("template has no column map, skipping table extraction", slog.String("bank", tmpl.Bank))
		return nil, nil, nil
	}

	tables, err := p.tables.ExtractTables(ctx, data)
	if err != nil {
		return nil, nil, fmt.Errorf("extracting tables: %w", err)
	}
	txs, errs := parseTable(tables, tmpl)
	return txs, errs, nil
}
