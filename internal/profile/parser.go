// Package profile derives a spending focus from bank and credit-card
// statements. The focus feeds the personalization fields of a
// recommendation request, gated by the same consent rules as extraction.
package profile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
)

// Spend is one statement entry. Amounts are always positive regardless of
// how the statement signed them.
type Spend struct {
	Date     time.Time
	Merchant string
	Account  string
	Amount   float64
}

// Parser reads OFX/QFX statement files.
type Parser struct{}

// NewParser creates an OFX statement parser.
func NewParser() *Parser {
	return &Parser{}
}

// severityFix normalizes the mixed-case SEVERITY values some banks emit.
var severityFix = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)

// openTagFix closes SGML-style tags missing their bracket at end of line.
var openTagFix = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)

// preprocess fixes the formatting quirks real bank exports ship with.
func preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityFix.ReplaceAllStringFunc(content, strings.ToUpper)
	return openTagFix.ReplaceAllString(content, "$1>")
}

// Parse reads every bank and credit-card statement in the file and returns
// the spend entries in statement order. Zero-amount entries are dropped.
func (p *Parser) Parse(ctx context.Context, reader io.Reader) ([]Spend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read statement: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse statement: %w", err)
	}

	var spends []Spend
	var statements int

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		statements++
		account := string(stmt.BankAcctFrom.AcctID)
		for _, txn := range stmt.BankTranList.Transactions {
			spends = appendSpend(spends, txn, account)
		}
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		statements++
		account := string(stmt.CCAcctFrom.AcctID)
		for _, txn := range stmt.BankTranList.Transactions {
			spends = appendSpend(spends, txn, account)
		}
	}

	slog.Debug("Parsed statement",
		"statements", statements,
		"entries", len(spends))

	return spends, nil
}

// appendSpend converts one statement transaction, normalizing the amount to
// positive spend.
func appendSpend(spends []Spend, txn ofxgo.Transaction, account string) []Spend {
	amount, _ := txn.TrnAmt.Float64()
	if amount < 0 {
		amount = -amount
	}
	if amount == 0 {
		return spends
	}

	return append(spends, Spend{
		Date:     txn.DtPosted.Time,
		Merchant: merchantName(txn),
		Account:  account,
		Amount:   amount,
	})
}

// Processor prefixes banks prepend to the actual merchant name.
var merchantPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

// merchantName extracts the cleanest merchant name a transaction offers:
// the payee record when present, otherwise the name field with processor
// prefixes and leading MM/DD stamps stripped.
func merchantName(txn ofxgo.Transaction) string {
	if txn.Payee != nil && txn.Payee.Name != "" {
		return string(txn.Payee.Name)
	}

	name := string(txn.Name)
	if txn.Memo != "" && isGenericName(name) {
		name = string(txn.Memo)
	}
	name = strings.TrimSpace(name)

	for _, prefix := range merchantPrefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

// isGenericName reports whether a name field carries no merchant signal.
func isGenericName(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	default:
		return false
	}
}
