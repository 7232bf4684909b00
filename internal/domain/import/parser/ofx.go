package parser

import (
	"bytes"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"

	"github.com/FACorreiaa/statement-ledger/internal/model"
)

const (
	unknownBank          = "Unknown Bank"
	noDescriptionDefault = "No description"
)

var ofxCharsetPattern = regexp.MustCompile(`(?im)^\s*CHARSET:\s*(\S+)`)

// processOFX reads bank and credit card statements from OFX 1.x (SGML) or
// 2.x (XML). OFX carries its own structure, so no template is involved.
func (p *Parser) processOFX(doc Document) (*Result, error) {
	resp, err := ofxgo.ParseResponse(bytes.NewReader(decodeOFX(doc.Data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX %s: %w", doc.Name, err)
	}

	bank := unknownBank
	if org := strings.TrimSpace(resp.Signon.Org.String()); org != "" {
		bank = org
	}

	result := &Result{
		Strategy: string(model.FormatOFX),
		Bank:     bank,
		Template: model.BankTemplate{Bank: bank, Format: model.FormatOFX},
	}

	row := 0
	for _, list := range ofxTransactionLists(resp) {
		for _, tran := range list.Transactions {
			row++
			raw := fmt.Sprintf("%s %s %s", tran.DtPosted.String(), tran.TrnAmt.String(), tran.FiTID)

			if tran.DtPosted.IsZero() {
				result.Errors = append(result.Errors, ParseError{Row: row, Column: model.ColumnDate, Message: "missing DTPOSTED", RawData: raw})
				continue
			}

			description := ofxDescription(tran.Memo.String(), tran.Name.String(), tran.Payee)
			amount := decimal.NewFromBigRat(&tran.TrnAmt.Rat, 2)
			result.Transactions = append(result.Transactions, model.NewTransaction(ofxDate(tran.DtPosted), description, amount, bank))
		}
	}

	p.logParseErrors(result.Errors)
	p.logger.Info("OFX parsed",
		slog.String("bank", bank),
		slog.Int("transactions", len(result.Transactions)),
	)
	return result, nil
}

// ofxTransactionLists collects the transaction lists of every bank and credit
// card statement in the response.
func ofxTransactionLists(resp *ofxgo.Response) []*ofxgo.TransactionList {
	var lists []*ofxgo.TransactionList
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			lists = append(lists, stmt.BankTranList)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			lists = append(lists, stmt.BankTranList)
		}
	}
	return lists
}

// decodeOFX converts Windows-1252 files, common among Brazilian banks, to UTF-8.
func decodeOFX(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	charset := ""
	if m := ofxCharsetPattern.FindSubmatch(data); m != nil {
		charset = strings.ToUpper(string(m[1]))
	}

	decoder := charmap.Windows1252.NewDecoder()
	if charset == "8859-1" || charset == "ISO-8859-1" {
		decoder = charmap.ISO8859_1.NewDecoder()
	}
	out, err := decoder.Bytes(data)
	if err != nil {
		return data
	}
	return out
}

// ofxDescription prefers the memo, then the payee name.
func ofxDescription(memo, name string, payee *ofxgo.Payee) string {
	if memo = strings.TrimSpace(memo); memo != "" {
		return memo
	}
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	if payee != nil {
		if n := strings.TrimSpace(payee.Name.String()); n != "" {
			return n
		}
	}
	return noDescriptionDefault
}

// ofxDate keeps the calendar date as written in the statement's own offset,
// so "20250315120000[-3:BRT]" stays on the 15th.
func ofxDate(d ofxgo.Date) time.Time {
	y, m, day := d.Time.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
