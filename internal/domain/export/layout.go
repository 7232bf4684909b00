package export

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/FACorreiaa/statement-ledger/internal/model"
	"github.com/FACorreiaa/statement-ledger/pkg/money"
)

// Transaction fields a layout column can reference.
const (
	FieldID                    = "id"
	FieldDate                  = "date"
	FieldRawDescription        = "raw_description"
	FieldNormalizedDescription = "normalized_description"
	FieldAmount                = "amount"
	FieldMovementType          = "movement_type"
	FieldBank                  = "bank"
	FieldLedgerLabel           = "ledger_label"
	FieldDebitAccount          = "debit_account"
	FieldCreditAccount         = "credit_account"
	FieldLedgerMemo            = "ledger_memo"
	FieldManuallyReviewed      = "manually_reviewed"
)

// ColumnType controls how a field value is rendered.
type ColumnType string

const (
	TypeText     ColumnType = "text"
	TypeDate     ColumnType = "date"
	TypeNumber   ColumnType = "number"
	TypeCurrency ColumnType = "currency" // R$1.234,56
)

// Padding for fixed-width columns.
const (
	PadSpaces = "spaces"
	PadZeros  = "zeros"
)

// Built-in layout names.
const (
	DefaultCSVLayout        = "CSV Padrão"
	DefaultTXTLayout        = "TXT Padrão"
	AccountingCSVLayout     = "CSV Contábil"
	defaultDateLayout       = "02/01/2006"
	defaultDecimalSeparator = "."
)

// ErrInvalidLayout is returned for layouts that cannot be rendered.
var ErrInvalidLayout = errors.New("invalid export layout")

// Column is one output column of a layout.
type Column struct {
	Field            string     `yaml:"field"`
	Header           string     `yaml:"header"`
	Type             ColumnType `yaml:"type,omitempty"`
	DateFormat       string     `yaml:"date_format,omitempty"`       // Go time layout
	DecimalSeparator string     `yaml:"decimal_separator,omitempty"` // for TypeNumber
	FixedWidth       int        `yaml:"fixed_width,omitempty"`
	Padding          string     `yaml:"padding,omitempty"`
}

// Layout describes how transactions are written to CSV, TXT or XLSX.
type Layout struct {
	Name      string   `yaml:"name"`
	Format    Format   `yaml:"format"`
	Delimiter string   `yaml:"delimiter,omitempty"`
	Columns   []Column `yaml:"columns"`
}

// DefaultLayouts returns the built-in layouts.
func DefaultLayouts() []Layout {
	return []Layout{
		{
			Name:      DefaultCSVLayout,
			Format:    FormatCSV,
			Delimiter: ",",
			Columns: []Column{
				{Field: FieldDate, Header: "Data", Type: TypeDate},
				{Field: FieldRawDescription, Header: "Descrição"},
				{Field: FieldAmount, Header: "Valor", Type: TypeNumber},
				{Field: FieldMovementType, Header: "Tipo"},
				{Field: FieldBank, Header: "Banco"},
				{Field: FieldLedgerLabel, Header: "Categoria"},
				{Field: FieldDebitAccount, Header: "Conta Débito"},
				{Field: FieldCreditAccount, Header: "Conta Crédito"},
				{Field: FieldLedgerMemo, Header: "Histórico"},
			},
		},
		{
			Name:      DefaultTXTLayout,
			Format:    FormatTXT,
			Delimiter: "|",
			Columns: []Column{
				{Field: FieldDate, Header: "DTLANC", Type: TypeDate, DateFormat: "20060102"},
				{Field: FieldDebitAccount, Header: "CTADEB", FixedWidth: 15},
				{Field: FieldCreditAccount, Header: "CTACRED", FixedWidth: 15},
				{Field: FieldAmount, Header: "VRLANC", Type: TypeNumber},
				{Field: FieldLedgerMemo, Header: "HISTLANC", FixedWidth: 50},
			},
		},
		{
			Name:      AccountingCSVLayout,
			Format:    FormatCSV,
			Delimiter: ";",
			Columns: []Column{
				{Field: FieldDate, Header: "Data", Type: TypeDate},
				{Field: FieldDebitAccount, Header: "Conta Débito"},
				{Field: FieldCreditAccount, Header: "Conta Crédito"},
				{Field: FieldAmount, Header: "Valor", Type: TypeCurrency},
				{Field: FieldLedgerMemo, Header: "Histórico"},
			},
		},
	}
}

// LoadLayouts reads a YAML list of layouts.
func LoadLayouts(r io.Reader) ([]Layout, error) {
	var layouts []Layout
	if err := yaml.NewDecoder(r).Decode(&layouts); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding layouts: %w", err)
	}
	for _, l := range layouts {
		if err := l.Validate(); err != nil {
			return nil, err
		}
	}
	return layouts, nil
}

// Validate checks that the layout can be rendered.
func (l Layout) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLayout)
	}
	switch l.Format {
	case FormatCSV, FormatTXT, FormatXLSX:
	default:
		return fmt.Errorf("%w: %s: format %q has no layout", ErrInvalidLayout, l.Name, l.Format)
	}
	if l.Format == FormatCSV && len([]rune(l.Delimiter)) > 1 {
		return fmt.Errorf("%w: %s: CSV delimiter must be one character", ErrInvalidLayout, l.Name)
	}
	if len(l.Columns) == 0 {
		return fmt.Errorf("%w: %s: no columns", ErrInvalidLayout, l.Name)
	}
	for _, c := range l.Columns {
		if !knownField(c.Field) {
			return fmt.Errorf("%w: %s: unknown field %q", ErrInvalidLayout, l.Name, c.Field)
		}
	}
	return nil
}

// Headers returns the column headers in order.
func (l Layout) Headers() []string {
	headers := make([]string, len(l.Columns))
	for i, c := range l.Columns {
		headers[i] = c.Header
	}
	return headers
}

// Row renders tx through every column.
func (l Layout) Row(tx model.Transaction) []string {
	row := make([]string, len(l.Columns))
	for i, c := range l.Columns {
		row[i] = c.Render(tx)
	}
	return row
}

// Render formats the column's field of tx, applying fixed width last.
func (c Column) Render(tx model.Transaction) string {
	value := c.format(tx)
	if c.FixedWidth > 0 {
		value = fixWidth(value, c.FixedWidth, c.Padding)
	}
	return value
}

func (c Column) format(tx model.Transaction) string {
	switch c.Field {
	case FieldDate:
		layout := c.DateFormat
		if layout == "" {
			layout = defaultDateLayout
		}
		return tx.Date.Format(layout)
	case FieldAmount:
		switch c.Type {
		case TypeCurrency:
			return money.FormatBRL(tx.Amount)
		case TypeText:
			return tx.Amount.String()
		default:
			sep := c.DecimalSeparator
			if sep == "" {
				sep = defaultDecimalSeparator
			}
			return money.FormatPlain(tx.Amount, sep)
		}
	case FieldManuallyReviewed:
		return strconv.FormatBool(tx.ManuallyReviewed)
	}
	return textField(tx, c.Field)
}

func textField(tx model.Transaction, field string) string {
	switch field {
	case FieldID:
		return tx.ID
	case FieldRawDescription:
		return tx.RawDescription
	case FieldNormalizedDescription:
		return tx.NormalizedDescription()
	case FieldMovementType:
		return string(tx.MovementType())
	case FieldBank:
		return tx.Bank
	case FieldLedgerLabel:
		return tx.LedgerLabel
	case FieldDebitAccount:
		return tx.DebitAccount
	case FieldCreditAccount:
		return tx.CreditAccount
	case FieldLedgerMemo:
		return tx.LedgerMemo
	}
	return ""
}

func knownField(field string) bool {
	switch field {
	case FieldID, FieldDate, FieldRawDescription, FieldNormalizedDescription, FieldAmount,
		FieldMovementType, FieldBank, FieldLedgerLabel, FieldDebitAccount, FieldCreditAccount,
		FieldLedgerMemo, FieldManuallyReviewed:
		return true
	}
	return false
}

// fixWidth truncates or pads value to width runes. Zero padding goes after
// a leading minus sign.
func fixWidth(value string, width int, padding string) string {
	runes := []rune(value)
	if len(runes) > width {
		return string(runes[:width])
	}
	if padding == PadZeros {
		zeros := strings.Repeat("0", width-len(runes))
		if sign, rest, ok := strings.Cut(value, "-"); ok && sign == "" {
			return "-" + zeros + rest
		}
		return zeros + value
	}
	return value + strings.Repeat(" ", width-len(runes))
}
