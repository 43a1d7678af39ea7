// Package masterdata holds the reference records a printed document points at
// (taxes, payment methods, banks, carriers, agents, contacts, companies) and the
// lookups used to resolve them during a render.
package masterdata

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/docrender/internal/documents"
)

// Tax describes a tax code.
type Tax struct {
	Code        string
	Description string
	Rate        decimal.Decimal
}

// PaymentMethod describes how a document is settled.
type PaymentMethod struct {
	Code        string
	Description string
	// DirectDebit methods charge the customer's own bank account.
	DirectDebit bool
	BankCode    string
}

// BankAccount is one of the company's accounts.
type BankAccount struct {
	Code  string
	IBAN  string
	Swift string
}

// CustomerBankAccount is the account a direct debit is charged to.
type CustomerBankAccount struct {
	CustomerCode string
	IBAN         string
	Swift        string
	Main         bool
}

// Carrier is a shipping agency.
type Carrier struct {
	Code string
	Name string
}

// Agent is a sales agent.
type Agent struct {
	Code string
	Name string
}

// Contact is an address book entry used for billing or shipping.
type Contact struct {
	ID        int64
	FirstName string
	LastName  string
	Address   documents.Address
	Phone1    string
	Phone2    string
}

// FullName joins first and last name.
func (c Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Company is the issuer printed in the page header.
type Company struct {
	ID        int64
	Name      string
	TaxID     string
	TaxIDType string
	Address   documents.Address
	Phone1    string
	Phone2    string
	Email     string
	Web       string
	LogoURL   string
}

// Country resolves an ISO code to a printable name.
type Country struct {
	Code string
	Name string
}

// LotMovement traces a batch or serial number consumed by a document line.
type LotMovement struct {
	SerialNumber string
	Quantity     decimal.Decimal
	Date         time.Time
}

// MaskIBAN hides the middle of an IBAN, keeping country, check digits and the
// last four characters, and groups the result by four.
func MaskIBAN(iban string) string {
	compact := []rune(strings.ReplaceAll(strings.ToUpper(iban), " ", ""))
	if len(compact) <= 8 {
		return groupBy4(string(compact))
	}
	masked := string(compact[:4]) + strings.Repeat("*", len(compact)-8) + string(compact[len(compact)-4:])
	return groupBy4(masked)
}

// FormatIBAN groups an IBAN by four characters.
func FormatIBAN(iban string) string {
	return groupBy4(strings.ReplaceAll(strings.ToUpper(iban), " ", ""))
}

func groupBy4(s string) string {
	var b strings.Builder
	for i, r := range []rune(s) {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
