// Package blocks builds the HTML fragments that templates are composed from.
// Master data is resolved once into a View before the render starts, so the
// builders are pure functions of the View and a Summary.
package blocks

import (
	"context"
	"html/template"
	"strings"

	"github.com/odyssey-erp/docrender/internal/documents"
	"github.com/odyssey-erp/docrender/internal/i18n"
	"github.com/odyssey-erp/docrender/internal/masterdata"
	"github.com/odyssey-erp/docrender/internal/printing/columns"
	"github.com/odyssey-erp/docrender/internal/printing/format"
	"github.com/odyssey-erp/docrender/internal/printing/totals"
)

// Directory resolves the master data a document points at. Every method
// returns the zero record when nothing is found. *masterdata.Lookups
// satisfies it.
type Directory interface {
	PaymentMethod(ctx context.Context, code string) masterdata.PaymentMethod
	BankAccount(ctx context.Context, code string) masterdata.BankAccount
	CustomerBankAccount(ctx context.Context, customerCode string) masterdata.CustomerBankAccount
	Carrier(ctx context.Context, code string) masterdata.Carrier
	Agent(ctx context.Context, code string) masterdata.Agent
	Contact(ctx context.Context, id int64) masterdata.Contact
	Company(ctx context.Context, id int64) masterdata.Company
	CountryName(ctx context.Context, code string) string
	LotMovements(ctx context.Context, docKind string, docID, lineID int64, reference string) []masterdata.LotMovement
}

// Input gathers what NewView needs.
type Input struct {
	Doc        documents.Document
	Lines      []documents.Line
	Receipts   []documents.Receipt
	Config     format.Config
	Translator i18n.Translator
	Numbers    *i18n.Formatter
	Directory  Directory
	// Calculator computes the document summary; nil uses the default
	// precision without tax descriptions.
	Calculator *totals.Calculator
	// QR is the data URI of the overlay image, empty when disabled.
	QR string
	// Images inlines the company logo. Without it only data URIs print.
	Images ImageLoader
}

// ImageLoader turns an image URL into a data URI, or "" when the image
// cannot be loaded. Page headers are rendered without network access, so
// every image they show must be inlined.
type ImageLoader interface {
	Inline(ctx context.Context, src string) string
}

// ReceiptView is a receipt with its printable payment data.
type ReceiptView struct {
	documents.Receipt
	// BankData is empty when the payment method was already printed on the
	// first receipt.
	BankData template.HTML
}

// View is the resolved, read-only input of every block builder.
type View struct {
	Doc      documents.Document
	Lines    []documents.Line
	Receipts []ReceiptView
	Config   format.Config
	T        i18n.Translator
	Numbers  *i18n.Formatter
	Columns  []columns.Spec
	Values   *columns.Formatter

	Company        masterdata.Company
	CompanyAddress template.HTML
	SubjectTitle   string
	BillingAddress template.HTML
	// ShippingAddress is empty when the shipping block must not be printed.
	ShippingAddress template.HTML
	// Carrier is "-" when the carrier code is unknown, empty when unset.
	Carrier     string
	Agent       string
	PaymentData template.HTML
	QR          string
	// Logo is the inlined company logo, empty when unset or unavailable.
	Logo template.URL
	// Summary covers every line of the document.
	Summary Summary
}

// Summary carries the totals of the lines a footer or partial totals block
// covers.
type Summary struct {
	Totals  totals.Result
	Taxes   []totals.TaxRow
	Partial bool
}

// SingleGroup reports whether the breakdown holds exactly one row.
func (s Summary) SingleGroup() bool {
	return len(s.Taxes) == 1
}

// NewView resolves in against its directory.
func NewView(ctx context.Context, in Input) *View {
	dir := in.Directory
	if dir == nil {
		dir = emptyDirectory{}
	}
	tr := in.Translator
	if tr == nil {
		tr = i18n.MapTranslator{}
	}
	doc, cfg := in.Doc, in.Config

	v := &View{
		Doc:     doc,
		Lines:   in.Lines,
		Config:  cfg,
		T:       tr,
		Numbers: in.Numbers,
		QR:      in.QR,
	}
	v.Columns = columns.AutoHide(columns.Resolve(cfg.Columns, tr), in.Lines)
	v.Values = &columns.Formatter{Doc: doc, Numbers: in.Numbers, Translator: tr, Lots: dir}

	v.Company = dir.Company(ctx, doc.CompanyID)
	v.CompanyAddress = v.combineAddress(v.Company.Address, dir.CountryName(ctx, v.Company.Address.CountryCode), "", "")
	v.Logo = inlineLogo(ctx, in.Images, v.LogoSource())

	if doc.Kind.IsSales() {
		v.SubjectTitle = tr.T("customer")
	} else {
		v.SubjectTitle = tr.T("supplier")
	}
	v.BillingAddress = v.combineAddress(doc.Address, dir.CountryName(ctx, doc.Address.CountryCode), "", "")

	if !cfg.HideShipping && doc.ShippingContactID != 0 && doc.ShippingContactID != doc.BillingContactID {
		if c := dir.Contact(ctx, doc.ShippingContactID); c.ID != 0 {
			phones := ""
			if cfg.ShowCustomerPhones {
				phones = Phones(tr, c.Phone1, c.Phone2)
			}
			v.ShippingAddress = v.combineAddress(c.Address, dir.CountryName(ctx, c.Address.CountryCode), c.FullName(), phones)
		}
	}

	if doc.CarrierCode != "" {
		v.Carrier = "-"
		if c := dir.Carrier(ctx, doc.CarrierCode); c.Name != "" {
			v.Carrier = c.Name
		}
	}
	if doc.AgentCode != "" && cfg.ShowAgent {
		v.Agent = dir.Agent(ctx, doc.AgentCode).Name
	}

	if doc.Kind == documents.KindSalesInvoice && !cfg.HideReceipts && !cfg.HideTotals {
		for i, r := range in.Receipts {
			var bank template.HTML
			if i == 0 || !samePaymentMethod(in.Receipts) {
				bank = bankData(ctx, dir, tr, r.PaymentMethod, r.CustomerCode)
			}
			v.Receipts = append(v.Receipts, ReceiptView{Receipt: r, BankData: bank})
		}
	}
	v.PaymentData = bankData(ctx, dir, tr, doc.PaymentMethod, doc.Subject.Code)

	calc := in.Calculator
	if calc == nil {
		calc = totals.NewCalculator(totals.DefaultPrecision, nil, tr)
	}
	v.Summary = Summarize(ctx, calc, doc, in.Lines, false)
	return v
}

// Summarize computes the totals and tax breakdown of lines.
func Summarize(ctx context.Context, calc *totals.Calculator, doc documents.Document, lines []documents.Line, partial bool) Summary {
	return Summary{
		Totals:  calc.Compute(doc, lines),
		Taxes:   calc.Taxes(ctx, doc, lines),
		Partial: partial,
	}
}

// Title is the document title: the format title or the translated kind.
func (v *View) Title() string {
	if v.Config.Title != "" {
		return v.Config.Title
	}
	return v.T.T(string(v.Doc.Kind) + "-min")
}

// HeaderTitle is printed in the company header.
func (v *View) HeaderTitle() string {
	if v.Config.HeaderTitle != "" {
		return v.Config.HeaderTitle
	}
	return v.Title()
}

// Sketch reports whether the draft warning must be printed.
func (v *View) Sketch() bool {
	return v.Config.ShowSketch && v.Doc.Editable && v.Doc.Kind.IsInvoice()
}

// Label translates key.
func (v *View) Label(key string) string {
	return v.T.T(key)
}

// LogoSource is the configured logo URL: the format one, else the company one.
func (v *View) LogoSource() string {
	if v.Config.LogoURL != "" {
		return v.Config.LogoURL
	}
	return v.Company.LogoURL
}

// Observations returns the escaped observations or "" when hidden.
func (v *View) Observations() template.HTML {
	if v.Config.HideObservations || strings.TrimSpace(v.Doc.Observations) == "" {
		return ""
	}
	return NL2BR(v.Doc.Observations)
}

// ShowTotals reports whether money summaries are printed at all.
func (v *View) ShowTotals() bool {
	return !v.Config.HideTotals
}

type address struct {
	documents.Address
	Name     string
	Country  string
	Phones   string
	BoxLabel string
}

func (v *View) combineAddress(a documents.Address, country, name, phones string) template.HTML {
	if a.IsZero() {
		return ""
	}
	if a.CountryCode == "" {
		country = ""
	} else if country == "" {
		country = a.CountryCode
	}
	return execute("address", address{Address: a, Name: name, Country: country, Phones: phones, BoxLabel: v.T.T("box")})
}

// Phones prints one or two phone numbers without inner spaces.
func Phones(tr i18n.Translator, phone1, phone2 string) string {
	phone1 = strings.ReplaceAll(phone1, " ", "")
	phone2 = strings.ReplaceAll(phone2, " ", "")
	switch {
	case phone1 == "" && phone2 == "":
		return ""
	case phone2 == "":
		return tr.T("phone") + ": " + phone1
	case phone1 == "":
		return tr.T("phone") + ": " + phone2
	}
	return tr.T("phones") + ": " + phone1 + " - " + phone2
}

func samePaymentMethod(receipts []documents.Receipt) bool {
	for _, r := range receipts[1:] {
		if r.PaymentMethod != receipts[0].PaymentMethod {
			return false
		}
	}
	return true
}

type bankDetails struct {
	Description string
	// Masked is the customer account of a direct debit.
	Masked     string
	IBAN       string
	Swift      string
	IBANLabel  string
	SwiftLabel string
}

// bankData prints the payment method with the account it is paid into or
// charged from.
func bankData(ctx context.Context, dir Directory, tr i18n.Translator, method, customerCode string) template.HTML {
	pm := dir.PaymentMethod(ctx, method)
	if pm.Code == "" {
		return "-"
	}
	details := bankDetails{Description: pm.Description, IBANLabel: tr.T("iban"), SwiftLabel: tr.T("swift")}
	if pm.DirectDebit {
		if acc := dir.CustomerBankAccount(ctx, customerCode); acc.IBAN != "" {
			details.Masked = masterdata.MaskIBAN(acc.IBAN)
			details.Swift = acc.Swift
			return execute("bank-data", details)
		}
	}
	if bank := dir.BankAccount(ctx, pm.BankCode); bank.IBAN != "" {
		details.IBAN = masterdata.FormatIBAN(bank.IBAN)
		details.Swift = bank.Swift
	}
	return execute("bank-data", details)
}

func inlineLogo(ctx context.Context, images ImageLoader, src string) template.URL {
	if src != "" && images != nil {
		src = images.Inline(ctx, src)
	}
	if strings.HasPrefix(src, "data:image/") {
		return template.URL(src)
	}
	return ""
}

type emptyDirectory struct{}

func (emptyDirectory) PaymentMethod(context.Context, string) masterdata.PaymentMethod {
	return masterdata.PaymentMethod{}
}
func (emptyDirectory) BankAccount(context.Context, string) masterdata.BankAccount {
	return masterdata.BankAccount{}
}
func (emptyDirectory) CustomerBankAccount(context.Context, string) masterdata.CustomerBankAccount {
	return masterdata.CustomerBankAccount{}
}
func (emptyDirectory) Carrier(context.Context, string) masterdata.Carrier { return masterdata.Carrier{} }
func (emptyDirectory) Agent(context.Context, string) masterdata.Agent     { return masterdata.Agent{} }
func (emptyDirectory) Contact(context.Context, int64) masterdata.Contact  { return masterdata.Contact{} }
func (emptyDirectory) Company(context.Context, int64) masterdata.Company  { return masterdata.Company{} }
func (emptyDirectory) CountryName(context.Context, string) string         { return "" }
func (emptyDirectory) LotMovements(context.Context, string, int64, int64, string) []masterdata.LotMovement {
	return nil
}
