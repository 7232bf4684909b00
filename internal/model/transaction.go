// Package model holds the canonical records shared by the parser, the
// categorization engine and the stores.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/normalizer"
)

// DateLayout is the ISO calendar date used for storage and comparisons.
const DateLayout = "2006-01-02"

// MovementType is derived from the sign of an amount.
type MovementType string

const (
	Debit  MovementType = "Debit"
	Credit MovementType = "Credit"
)

// MovementTypeOf returns Debit for negative amounts and Credit otherwise.
func MovementTypeOf(amount decimal.Decimal) MovementType {
	if amount.IsNegative() {
		return Debit
	}
	return Credit
}

// Classification is the accounting assignment of a transaction.
type Classification struct {
	LedgerLabel   string
	DebitAccount  string
	CreditAccount string
	LedgerMemo    string
}

// IsZero reports whether no field is set.
func (c Classification) IsZero() bool {
	return c == Classification{}
}

// Transaction is one statement entry in canonical form.
//
// The normalized description is always derived from RawDescription. Use
// SetRawDescription or RefreshNormalized to change it.
type Transaction struct {
	ID             string
	Date           time.Time
	RawDescription string
	Amount         decimal.Decimal
	Bank           string
	Classification
	ManuallyReviewed bool

	normalizedDescription string
}

// NewTransaction builds an unclassified transaction with a fresh ID.
func NewTransaction(date time.Time, rawDescription string, amount decimal.Decimal, bank string) Transaction {
	return Transaction{
		ID:                    uuid.NewString(),
		Date:                  date,
		RawDescription:        rawDescription,
		Amount:                amount,
		Bank:                  bank,
		normalizedDescription: normalizer.Normalize(rawDescription),
	}
}

// NormalizedDescription returns the comparison form of the raw description.
func (t Transaction) NormalizedDescription() string {
	return t.normalizedDescription
}

// MovementType is Debit when the amount is negative, Credit otherwise.
func (t Transaction) MovementType() MovementType {
	return MovementTypeOf(t.Amount)
}

// DateISO returns the date as YYYY-MM-DD.
func (t Transaction) DateISO() string {
	return t.Date.Format(DateLayout)
}

// IsMapped reports whether a ledger label has been assigned.
func (t Transaction) IsMapped() bool {
	return t.LedgerLabel != ""
}

// SetRawDescription replaces the raw description and re-derives the normalized one.
func (t *Transaction) SetRawDescription(raw string) {
	t.RawDescription = raw
	t.normalizedDescription = normalizer.Normalize(raw)
}

// RefreshNormalized re-derives the normalized description from the raw one.
// It reports whether the value changed.
func (t *Transaction) RefreshNormalized() bool {
	next := normalizer.Normalize(t.RawDescription)
	changed := next != t.normalizedDescription
	t.normalizedDescription = next
	return changed
}

// Record is the persisted form of a Transaction.
type Record struct {
	ID                    string          `json:"id"`
	Date                  string          `json:"date"`
	RawDescription        string          `json:"raw_description"`
	NormalizedDescription string          `json:"normalized_description"`
	Amount                decimal.Decimal `json:"amount"`
	MovementType          MovementType    `json:"movement_type"`
	Bank                  string          `json:"bank"`
	LedgerLabel           string          `json:"ledger_label"`
	DebitAccount          string          `json:"debit_account"`
	CreditAccount         string          `json:"credit_account"`
	LedgerMemo            string          `json:"ledger_memo"`
	ManuallyReviewed      bool            `json:"manually_reviewed"`
}

// ToRecord converts the transaction to its persisted form.
func (t Transaction) ToRecord() Record {
	return Record{
		ID:                    t.ID,
		Date:                  t.DateISO(),
		RawDescription:        t.RawDescription,
		NormalizedDescription: t.normalizedDescription,
		Amount:                t.Amount,
		MovementType:          t.MovementType(),
		Bank:                  t.Bank,
		LedgerLabel:           t.LedgerLabel,
		DebitAccount:          t.DebitAccount,
		CreditAccount:         t.CreditAccount,
		LedgerMemo:            t.LedgerMemo,
		ManuallyReviewed:      t.ManuallyReviewed,
	}
}

// FromRecord rebuilds a transaction. A stored normalized description is kept;
// when absent it is derived from the raw description. The stored movement type
// is ignored since it always follows the amount.
func FromRecord(r Record) (Transaction, error) {
	date, err := time.Parse(DateLayout, r.Date)
	if err != nil {
		return Transaction{}, fmt.Errorf("parsing date %q of transaction %s: %w", r.Date, r.ID, err)
	}

	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}

	normalized := r.NormalizedDescription
	if normalized == "" {
		normalized = normalizer.Normalize(r.RawDescription)
	}

	return Transaction{
		ID:             id,
		Date:           date,
		RawDescription: r.RawDescription,
		Amount:         r.Amount,
		Bank:           r.Bank,
		Classification: Classification{
			LedgerLabel:   r.LedgerLabel,
			DebitAccount:  r.DebitAccount,
			CreditAccount: r.CreditAccount,
			LedgerMemo:    r.LedgerMemo,
		},
		ManuallyReviewed:      r.ManuallyReviewed,
		normalizedDescription: normalized,
	}, nil
}

// ToRecords converts a batch for persistence.
func ToRecords(txs []Transaction) []Record {
	out := make([]Record, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.ToRecord())
	}
	return out
}

// FromRecords converts a persisted batch, failing on the first bad record.
func FromRecords(records []Record) ([]Transaction, error) {
	out := make([]Transaction, 0, len(records))
	for _, r := range records {
		tx, err := FromRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}
