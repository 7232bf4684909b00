package parser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
)

// OCRConfig locates the rasterizer and OCR engine.
type OCRConfig struct {
	PDFToPPMPath  string // default "pdftoppm"
	TesseractPath string // default "tesseract"
	Language      string // tesseract language, default "por"
	DPI           int    // rasterization resolution, default 300
}

func (c OCRConfig) withDefaults() OCRConfig {
	if c.PDFToPPMPath == "" {
		c.PDFToPPMPath = "pdftoppm"
	}
	if c.TesseractPath == "" {
		c.TesseractPath = "tesseract"
	}
	if c.Language == "" {
		c.Language = "por"
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	return c
}

// TesseractOCR rasterizes PDF pages with pdftoppm and reads them with tesseract.
type TesseractOCR struct {
	cfg    OCRConfig
	logger *slog.Logger
}

// NewTesseractOCR creates an OCR extractor.
func NewTesseractOCR(cfg OCRConfig, logger *slog.Logger) *TesseractOCR {
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractOCR{cfg: cfg.withDefaults(), logger: logger}
}

// ExtractText returns the recognized text of each page. It fails with
// ErrOCRUnavailable when either binary is missing.
func (o *TesseractOCR) ExtractText(ctx context.Context, data []byte) ([]string, error) {
	pdftoppm, err := exec.LookPath(o.cfg.PDFToPPMPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOCRUnavailable, err)
	}
	tesseract, err := exec.LookPath(o.cfg.TesseractPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOCRUnavailable, err)
	}

	dir, err := os.MkdirTemp("", "statement-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	rasterize := exec.CommandContext(ctx, pdftoppm, "-r", strconv.Itoa(o.cfg.DPI), "-png", input, filepath.Join(dir, "page"))
	if out, err := rasterize.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, out)
	}

	images, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, fmt.Errorf("listing page images: %w", err)
	}
	// pdftoppm zero-pads page numbers, so lexical order is page order
	sort.Strings(images)

	pages := make([]string, 0, len(images))
	for _, img := range images {
		cmd := exec.CommandContext(ctx, tesseract, img, "stdout", "-l", o.cfg.Language)
		out, err := cmd.Output()
		if err != nil {
			return nil, fmt.Errorf("tesseract failed on %s: %w", filepath.Base(img), err)
		}
		pages = append(pages, string(out))
	}

	o.logger.Debug("OCR finished", slog.Int("pages", len(pages)))
	return pages, nil
}
