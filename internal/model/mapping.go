package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementFilter restricts a mapping or rule to one movement direction.
type MovementFilter string

const (
	FilterIncoming MovementFilter = "incoming"
	FilterOutgoing MovementFilter = "outgoing"
	FilterEither   MovementFilter = "either"
)

// Allows reports whether a transaction with the given movement type passes.
// An empty filter behaves like FilterEither.
func (f MovementFilter) Allows(m MovementType) bool {
	switch f {
	case FilterIncoming:
		return m == Credit
	case FilterOutgoing:
		return m == Debit
	default:
		return true
	}
}

// FilterFor returns the filter that matches only the given movement type.
func FilterFor(m MovementType) MovementFilter {
	if m == Debit {
		return FilterOutgoing
	}
	return FilterIncoming
}

func (f MovementFilter) valid() bool {
	switch f {
	case "", FilterIncoming, FilterOutgoing, FilterEither:
		return true
	}
	return false
}

var (
	ErrInvalidMapping = errors.New("invalid accounting mapping")
	ErrInvalidRule    = errors.New("invalid custom rule")
)

// SubMapping refines a parent mapping for narrower keywords. Nil fields fall
// back to the parent's values.
type SubMapping struct {
	Keywords          []string `json:"keywords" yaml:"keywords"`
	LedgerLabel       *string  `json:"ledger_label,omitempty" yaml:"ledger_label,omitempty"`
	DebitAccount      *string  `json:"debit_account,omitempty" yaml:"debit_account,omitempty"`
	CreditAccount     *string  `json:"credit_account,omitempty" yaml:"credit_account,omitempty"`
	DefaultLedgerMemo *string  `json:"default_ledger_memo,omitempty" yaml:"default_ledger_memo,omitempty"`
}

// AccountingMapping is a reusable classification pattern.
type AccountingMapping struct {
	ID                 string         `json:"id" yaml:"id,omitempty"`
	LedgerLabel        string         `json:"ledger_label" yaml:"ledger_label"`
	LongDescription    string         `json:"long_description,omitempty" yaml:"long_description,omitempty"`
	MovementTypeFilter MovementFilter `json:"movement_type_filter" yaml:"movement_type_filter"`
	Keywords           []string       `json:"keywords" yaml:"keywords"`
	AdvancedRegex      string         `json:"advanced_regex,omitempty" yaml:"advanced_regex,omitempty"`
	DebitAccount       string         `json:"debit_account" yaml:"debit_account"`
	CreditAccount      string         `json:"credit_account" yaml:"credit_account"`
	DefaultLedgerMemo  string         `json:"default_ledger_memo" yaml:"default_ledger_memo"`
	Exceptions         []string       `json:"exceptions,omitempty" yaml:"exceptions,omitempty"`
	SubMappings        []SubMapping   `json:"sub_mappings,omitempty" yaml:"sub_mappings,omitempty"`
}

// Classification returns the parent-level assignment of the mapping.
func (m AccountingMapping) Classification() Classification {
	return Classification{
		LedgerLabel:   m.LedgerLabel,
		DebitAccount:  m.DebitAccount,
		CreditAccount: m.CreditAccount,
		LedgerMemo:    m.DefaultLedgerMemo,
	}
}

// ClassificationWith overlays a sub-mapping's set fields on the parent's.
func (m AccountingMapping) ClassificationWith(sub SubMapping) Classification {
	c := m.Classification()
	if sub.LedgerLabel != nil {
		c.LedgerLabel = *sub.LedgerLabel
	}
	if sub.DebitAccount != nil {
		c.DebitAccount = *sub.DebitAccount
	}
	if sub.CreditAccount != nil {
		c.CreditAccount = *sub.CreditAccount
	}
	if sub.DefaultLedgerMemo != nil {
		c.LedgerMemo = *sub.DefaultLedgerMemo
	}
	return c
}

// Validate checks required fields and that the advanced regex compiles.
func (m AccountingMapping) Validate() error {
	if strings.TrimSpace(m.LedgerLabel) == "" {
		return fmt.Errorf("%w: ledger label is required", ErrInvalidMapping)
	}
	if !m.MovementTypeFilter.valid() {
		return fmt.Errorf("%w: unknown movement type filter %q", ErrInvalidMapping, m.MovementTypeFilter)
	}
	if m.AdvancedRegex != "" {
		if _, err := regexp.Compile("(?i)" + m.AdvancedRegex); err != nil {
			return fmt.Errorf("%w: advanced regex: %v", ErrInvalidMapping, err)
		}
	}
	return nil
}

// WithID returns the mapping with a fresh ID when it has none.
func (m AccountingMapping) WithID() AccountingMapping {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return m
}

// CustomRule is a user-defined high-priority classification.
type CustomRule struct {
	ID                 string           `json:"id" yaml:"id,omitempty"`
	KeyTerm            string           `json:"key_term" yaml:"key_term"`
	ExactMatch         bool             `json:"exact_match" yaml:"exact_match"`
	ConsiderAmount     bool             `json:"consider_amount" yaml:"consider_amount"`
	ExactAmount        *decimal.Decimal `json:"exact_amount,omitempty" yaml:"exact_amount,omitempty"`
	MinAmount          *decimal.Decimal `json:"min_amount,omitempty" yaml:"min_amount,omitempty"`
	MaxAmount          *decimal.Decimal `json:"max_amount,omitempty" yaml:"max_amount,omitempty"`
	MovementTypeFilter MovementFilter   `json:"movement_type_filter" yaml:"movement_type_filter"`
	LedgerLabel        string           `json:"ledger_label" yaml:"ledger_label"`
	DebitAccount       string           `json:"debit_account" yaml:"debit_account"`
	CreditAccount      string           `json:"credit_account" yaml:"credit_account"`
	LedgerMemo         string           `json:"ledger_memo" yaml:"ledger_memo"`
	CreatedAt          time.Time        `json:"created_at" yaml:"created_at,omitempty"`
}

// Classification returns the fields the rule assigns.
func (r CustomRule) Classification() Classification {
	return Classification{
		LedgerLabel:   r.LedgerLabel,
		DebitAccount:  r.DebitAccount,
		CreditAccount: r.CreditAccount,
		LedgerMemo:    r.LedgerMemo,
	}
}

// Validate checks the rule before it is stored.
func (r CustomRule) Validate() error {
	if strings.TrimSpace(r.KeyTerm) == "" {
		return fmt.Errorf("%w: key term is required", ErrInvalidRule)
	}
	if !r.MovementTypeFilter.valid() {
		return fmt.Errorf("%w: unknown movement type filter %q", ErrInvalidRule, r.MovementTypeFilter)
	}
	if r.ExactAmount != nil && (r.MinAmount != nil || r.MaxAmount != nil) {
		return fmt.Errorf("%w: exact amount and amount range are mutually exclusive", ErrInvalidRule)
	}
	if r.MinAmount != nil && r.MaxAmount != nil && r.MinAmount.GreaterThan(*r.MaxAmount) {
		return fmt.Errorf("%w: min amount is greater than max amount", ErrInvalidRule)
	}
	return nil
}

// Preset is a named snapshot of the mapping list.
type Preset struct {
	Name      string              `json:"name"`
	CreatedAt time.Time           `json:"created_at"`
	Mappings  []AccountingMapping `json:"mappings"`
}
