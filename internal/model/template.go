package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Format is the statement document type.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatCSV Format = "csv"
	FormatOFX Format = "ofx"
)

// ReadMode selects how PDF pages are read.
type ReadMode string

const (
	ReadModeText  ReadMode = "text"
	ReadModeTable ReadMode = "table"
)

// Column names used in a template's column map.
const (
	ColumnDate        = "date"
	ColumnDescription = "description"
	ColumnAmount      = "amount"
	ColumnBalance     = "balance"
)

// Template defaults, applied by WithDefaults.
const (
	DefaultDateRegex        = `\d{2}/\d{2}/\d{4}`
	DefaultAmountRegex      = `-?\d{1,3}(?:\.?\d{3})*,\d{2}`
	DefaultDescriptionRegex = `.+`

	// GenericBank names the built-in fallback templates.
	GenericBank = "Genérico"
)

// ErrInvalidTemplate is wrapped by BankTemplate.Validate failures.
var ErrInvalidTemplate = errors.New("invalid bank template")

// defaultColumns is the positional layout assumed when a column is not mapped.
var defaultColumns = map[string]int{
	ColumnDate:        0,
	ColumnDescription: 1,
	ColumnAmount:      2,
}

// BankTemplate describes how to read one bank's statements.
type BankTemplate struct {
	Bank             string         `json:"bank" yaml:"bank"`
	Format           Format         `json:"format" yaml:"format"`
	DateRegex        string         `json:"date_regex,omitempty" yaml:"date_regex,omitempty"`
	AmountRegex      string         `json:"amount_regex,omitempty" yaml:"amount_regex,omitempty"`
	DescriptionRegex string         `json:"description_regex,omitempty" yaml:"description_regex,omitempty"`
	ReadMode         ReadMode       `json:"read_mode,omitempty" yaml:"read_mode,omitempty"`
	ColumnMap        map[string]int `json:"column_map,omitempty" yaml:"column_map,omitempty"`
	SkipTopLines     int            `json:"skip_top_lines" yaml:"skip_top_lines"`
	SkipBottomLines  int            `json:"skip_bottom_lines" yaml:"skip_bottom_lines"`
}

// GenericPDFTemplate is used for PDFs when no bank template resolves.
func GenericPDFTemplate() BankTemplate {
	return BankTemplate{
		Bank:             GenericBank,
		Format:           FormatPDF,
		DateRegex:        DefaultDateRegex,
		AmountRegex:      DefaultAmountRegex,
		DescriptionRegex: DefaultDescriptionRegex,
		ReadMode:         ReadModeText,
	}
}

// GenericCSVTemplate is used for CSVs when no bank template resolves.
func GenericCSVTemplate() BankTemplate {
	return BankTemplate{
		Bank:   GenericBank,
		Format: FormatCSV,
		ColumnMap: map[string]int{
			ColumnDate:        0,
			ColumnDescription: 1,
			ColumnAmount:      2,
			ColumnBalance:     3,
		},
	}
}

// TemplateKey is the storage key for a bank name: lowercased, spaces replaced by "_".
func TemplateKey(bank string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(bank)), " ", "_")
}

// Key returns the template's storage key.
func (t BankTemplate) Key() string {
	return TemplateKey(t.Bank)
}

// WithDefaults returns a copy with empty regexes and read mode filled in.
func (t BankTemplate) WithDefaults() BankTemplate {
	if t.DateRegex == "" {
		t.DateRegex = DefaultDateRegex
	}
	if t.AmountRegex == "" {
		t.AmountRegex = DefaultAmountRegex
	}
	if t.DescriptionRegex == "" {
		t.DescriptionRegex = DefaultDescriptionRegex
	}
	if t.ReadMode == "" {
		t.ReadMode = ReadModeText
	}
	return t
}

// Column returns the index of a named column. Unmapped date, description and
// amount columns fall back to positions 0, 1 and 2.
func (t BankTemplate) Column(name string) (int, bool) {
	if idx, ok := t.ColumnMap[name]; ok {
		return idx, true
	}
	idx, ok := defaultColumns[name]
	return idx, ok
}

// MaxColumn returns the highest mapped column index, or -1 for an empty map.
func (t BankTemplate) MaxColumn() int {
	highest := -1
	for _, idx := range t.ColumnMap {
		if idx > highest {
			highest = idx
		}
	}
	return highest
}

// Validate checks the template before it is stored.
func (t BankTemplate) Validate() error {
	if strings.TrimSpace(t.Bank) == "" {
		return fmt.Errorf("%w: bank name is required", ErrInvalidTemplate)
	}

	switch t.Format {
	case FormatPDF, FormatCSV, FormatOFX:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidTemplate, t.Format)
	}

	switch t.ReadMode {
	case "", ReadModeText, ReadModeTable:
	default:
		return fmt.Errorf("%w: unknown read mode %q", ErrInvalidTemplate, t.ReadMode)
	}

	if t.SkipTopLines < 0 || t.SkipBottomLines < 0 {
		return fmt.Errorf("%w: skip counts must not be negative", ErrInvalidTemplate)
	}

	for name, expr := range map[string]string{
		"date_regex":        t.DateRegex,
		"amount_regex":      t.AmountRegex,
		"description_regex": t.DescriptionRegex,
	} {
		if expr == "" {
			continue
		}
		if _, err := regexp.Compile(expr); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidTemplate, name, err)
		}
	}

	needsColumns := t.Format == FormatCSV || (t.Format == FormatPDF && t.ReadMode == ReadModeTable)
	if needsColumns {
		for _, col := range []string{ColumnDate, ColumnDescription, ColumnAmount} {
			_, ok := t.ColumnMap[col]
			if !ok {
				return fmt.Errorf("%w: column map must define %q", ErrInvalidTemplate, col)
			}
		}
	}
	for col, idx := range t.ColumnMap {
		if idx < 0 {
			return fmt.Errorf("%w: column %q has negative index", ErrInvalidTemplate, col)
		}
	}

	return nil
}
