package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// DefaultPDFToTextPath is the poppler binary used when the PDF library fails.
const DefaultPDFToTextPath = "pdftotext"

// minTableCells is the number of cells a row needs to count as a table row.
const minTableCells = 3

var errNoPages = errors.New("PDF has no readable pages")

// PDFTextExtractor reads page text with ledongthuc/pdf and falls back to the
// pdftotext binary when the library cannot read the document.
type PDFTextExtractor struct {
	pdftotextPath string
	logger        *slog.Logger
}

// NewPDFTextExtractor creates an extractor. An empty path means DefaultPDFToTextPath.
func NewPDFTextExtractor(pdftotextPath string, logger *slog.Logger) *PDFTextExtractor {
	if pdftotextPath == "" {
		pdftotextPath = DefaultPDFToTextPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFTextExtractor{pdftotextPath: pdftotextPath, logger: logger}
}

// ExtractText returns one string per page, rows separated by newlines.
func (e *PDFTextExtractor) ExtractText(ctx context.Context, data []byte) ([]string, error) {
	pages, err := readPageRows(data)
	if err == nil {
		text := make([]string, 0, len(pages))
		for _, rows := range pages {
			lines := make([]string, 0, len(rows))
			for _, cells := range rows {
				lines = append(lines, strings.Join(cells, " "))
			}
			text = append(text, strings.Join(lines, "\n"))
		}
		return text, nil
	}

	e.logger.Debug("PDF library failed, trying pdftotext", slog.Any("error", err))
	return runPDFToText(ctx, e.pdftotextPath, data)
}

// runPDFToText extracts layout-preserving text with poppler's pdftotext.
func runPDFToText(ctx context.Context, binary string, data []byte) ([]string, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}

	tmp, err := os.CreateTemp("", "statement-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	// pdftotext ends every page with a form feed
	pages := strings.Split(string(output), "\f")
	if n := len(pages); n > 0 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	if len(pages) == 0 {
		return nil, errNoPages
	}
	return pages, nil
}

// PDFTableExtractor finds tables by grouping consecutive rows that split into
// at least three cells.
type PDFTableExtractor struct{}

// NewPDFTableExtractor creates a table extractor.
func NewPDFTableExtractor() *PDFTableExtractor {
	return &PDFTableExtractor{}
}

// ExtractTables returns every detected table of every page.
func (e *PDFTableExtractor) ExtractTables(_ context.Context, data []byte) ([][][]string, error) {
	pages, err := readPageRows(data)
	if err != nil {
		return nil, err
	}

	var tables [][][]string
	for _, rows := range pages {
		tables = append(tables, groupTables(rows)...)
	}
	return tables, nil
}

// groupTables splits a page's rows into runs of table-like rows.
func groupTables(rows [][]string) [][][]string {
	var tables [][][]string
	var current [][]string

	for _, cells := range rows {
		if len(cells) >= minTableCells {
			current = append(current, cells)
			continue
		}
		if len(current) > 0 {
			tables = append(tables, current)
			current = nil
		}
	}
	if len(current) > 0 {
		tables = append(tables, current)
	}
	return tables
}

// readPageRows returns, per page, the rows of positioned text split into cells.
func readPageRows(data []byte) (pages [][][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("reading page %d: %w", i, err)
		}

		// Top of the page first
		sort.SliceStable(rows, func(a, b int) bool {
			return rows[a].Position > rows[b].Position
		})

		var pageRows [][]string
		for _, row := range rows {
			cells := segmentRow(row.Content)
			if len(cells) > 0 {
				pageRows = append(pageRows, cells)
			}
		}
		pages = append(pages, pageRows)
	}

	if len(pages) == 0 {
		return nil, errNoPages
	}
	return pages, nil
}

// Row segmentation thresholds, in points. GetTextByRow reports only the start
// of each text run, so run widths are estimated from the rune count.
const (
	avgCharWidth = 5.0
	wordGap      = 1.5
	cellGap      = 15.0
)

// segmentRow joins the text runs of one row left to right. A horizontal gap
// wider than cellGap starts a new cell; a smaller visible gap becomes a space.
func segmentRow(texts []pdf.Text) []string {
	runs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t.S) != "" {
			runs = append(runs, t)
		}
	}
	if len(runs) == 0 {
		return nil
	}

	sort.SliceStable(runs, func(a, b int) bool { return runs[a].X < runs[b].X })

	var cells []string
	var cell strings.Builder
	prev := runs[0]
	cell.WriteString(strings.TrimSpace(prev.S))

	for _, run := range runs[1:] {
		gap := run.X - (prev.X + runWidth(prev))
		switch {
		case gap > cellGap:
			cells = append(cells, cell.String())
			cell.Reset()
		case gap > wordGap || strings.HasPrefix(run.S, " ") || strings.HasSuffix(prev.S, " "):
			cell.WriteByte(' ')
		}
		cell.WriteString(strings.TrimSpace(run.S))
		prev = run
	}
	cells = append(cells, cell.String())

	return cells
}

func runWidth(t pdf.Text) float64 {
	if t.W > 0 {
		return t.W
	}
	return float64(utf8.RuneCountInString(t.S)) * avgCharWidth
}
