// Package documents models the business records that get printed: invoices,
// orders, delivery notes and estimates together with their ordered lines.
package documents

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by a Store when the requested document does not exist.
var ErrNotFound = errors.New("documents: record not found")

// Kind identifies the business document type.
type Kind string

const (
	KindSalesEstimate    Kind = "sales_estimate"
	KindSalesOrder       Kind = "sales_order"
	KindDeliveryNote     Kind = "delivery_note"
	KindSalesInvoice     Kind = "sales_invoice"
	KindPurchaseEstimate Kind = "purchase_estimate"
	KindPurchaseOrder    Kind = "purchase_order"
	KindPurchaseDelivery Kind = "purchase_delivery"
	KindPurchaseInvoice  Kind = "purchase_invoice"
)

var kinds = map[Kind]bool{
	KindSalesEstimate:    true,
	KindSalesOrder:       true,
	KindDeliveryNote:     true,
	KindSalesInvoice:     true,
	KindPurchaseEstimate: true,
	KindPurchaseOrder:    true,
	KindPurchaseDelivery: true,
	KindPurchaseInvoice:  true,
}

// ParseKind validates a kind coming from a URL or task payload.
func ParseKind(raw string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	return k, kinds[k]
}

// IsSales reports whether the document is addressed to a customer.
func (k Kind) IsSales() bool {
	return !strings.HasPrefix(string(k), "purchase_")
}

// IsInvoice reports whether the kind is an invoice of either side.
func (k Kind) IsInvoice() bool {
	return k == KindSalesInvoice || k == KindPurchaseInvoice
}

// Ref addresses one document.
type Ref struct {
	Kind Kind  `json:"kind" validate:"required"`
	ID   int64 `json:"id" validate:"required,gt=0"`
}

// Address groups the postal fields shared by documents, contacts and companies.
type Address struct {
	Street      string
	Box         string
	PostalCode  string
	City        string
	Province    string
	CountryCode string
}

// IsZero reports whether no street line is present.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Street) == ""
}

// Subject is the customer or supplier the document is addressed to.
type Subject struct {
	Code      string
	Name      string
	TaxID     string
	TaxIDType string
	Email     string
	Phone1    string
	Phone2    string
}

// Document is the header of a business record. It is read-only while rendering.
type Document struct {
	ID            int64
	Kind          Kind
	CompanyID     int64
	FormatID      int64
	Code          string
	Number        string
	Number2       string
	Series        string
	Date          time.Time
	RectifiedCode string
	Discount1     decimal.Decimal
	Discount2     decimal.Decimal

	Subject           Subject
	Address           Address
	BillingContactID  int64
	ShippingContactID int64

	CarrierCode   string
	TrackingCode  string
	AgentCode     string
	PaymentMethod string
	Observations  string
	OfferExpiry   *time.Time
	// VehicleRegistration is printed next to the document metadata when set.
	VehicleRegistration string
	// Extra carries free fields a format may reference, e.g. for the QR overlay.
	Extra    map[string]string
	Editable bool
}

// Field returns a header value by name; used by QR overlays.
func (d Document) Field(name string) string {
	switch name {
	case "code":
		return d.Code
	case "number":
		return d.Number
	case "number2":
		return d.Number2
	case "observations":
		return d.Observations
	}
	if d.Extra == nil {
		return ""
	}
	return d.Extra[name]
}

// DisplayCode is the code used for titles and file names.
func (d Document) DisplayCode(preferNumber2 bool) string {
	if preferNumber2 && d.Number2 != "" {
		return d.Number2
	}
	return d.Code
}

// Line is one printed row of a document. Lines are kept in print order.
type Line struct {
	ID              int64
	Reference       string
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	Discount        decimal.Decimal
	Discount2       decimal.Decimal
	Total           decimal.Decimal
	TaxCode         string
	TaxRate         decimal.Decimal
	SurchargeRate   decimal.Decimal
	WithholdingRate decimal.Decimal
	// Supplied marks pass-through reimbursements that carry no discount or tax.
	Supplied     bool
	PageBreak    bool
	HidePrice    bool
	HideQuantity bool
}

var hundred = decimal.NewFromInt(100)

// Recalculate derives Total from quantity, price and line discounts.
func (l Line) Recalculate() Line {
	factor := decimal.NewFromInt(1).Sub(l.Discount.Div(hundred)).
		Mul(decimal.NewFromInt(1).Sub(l.Discount2.Div(hundred)))
	l.Total = l.Quantity.Mul(l.UnitPrice).Mul(factor)
	return l
}

// Receipt is an instalment of a customer invoice.
type Receipt struct {
	ID            int64
	Number        int
	PaymentMethod string
	CustomerCode  string
	Amount        decimal.Decimal
	Expiration    time.Time
	Paid          bool
	PaidAt        *time.Time
	PayURL        string
}
