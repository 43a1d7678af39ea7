// Package blockstest provides in-memory master data and sample documents for
// tests of the printing packages.
package blockstest

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/docrender/internal/documents"
	"github.com/odyssey-erp/docrender/internal/i18n"
	"github.com/odyssey-erp/docrender/internal/masterdata"
	"github.com/odyssey-erp/docrender/internal/printing/blocks"
	"github.com/odyssey-erp/docrender/internal/printing/format"
	"github.com/odyssey-erp/docrender/internal/printing/totals"
)

// Directory is a map backed blocks.Directory.
type Directory struct {
	Methods   map[string]masterdata.PaymentMethod
	Banks     map[string]masterdata.BankAccount
	Customers map[string]masterdata.CustomerBankAccount
	Carriers  map[string]masterdata.Carrier
	Agents    map[string]masterdata.Agent
	Contacts  map[int64]masterdata.Contact
	Companies map[int64]masterdata.Company
	Countries map[string]string
	Taxes     map[string]masterdata.Tax
	Lots      map[int64][]masterdata.LotMovement
}

func (d *Directory) PaymentMethod(_ context.Context, code string) masterdata.PaymentMethod {
	return d.Methods[code]
}
func (d *Directory) BankAccount(_ context.Context, code string) masterdata.BankAccount {
	return d.Banks[code]
}
func (d *Directory) CustomerBankAccount(_ context.Context, code string) masterdata.CustomerBankAccount {
	return d.Customers[code]
}
func (d *Directory) Carrier(_ context.Context, code string) masterdata.Carrier { return d.Carriers[code] }
func (d *Directory) Agent(_ context.Context, code string) masterdata.Agent     { return d.Agents[code] }
func (d *Directory) Contact(_ context.Context, id int64) masterdata.Contact    { return d.Contacts[id] }
func (d *Directory) Company(_ context.Context, id int64) masterdata.Company    { return d.Companies[id] }
func (d *Directory) CountryName(_ context.Context, code string) string         { return d.Countries[code] }
func (d *Directory) Tax(_ context.Context, code string) masterdata.Tax         { return d.Taxes[code] }
func (d *Directory) LotMovements(_ context.Context, _ string, _, lineID int64, _ string) []masterdata.LotMovement {
	return d.Lots[lineID]
}

// NewDirectory returns master data matching Invoice.
func NewDirectory() *Directory {
	return &Directory{
		Methods: map[string]masterdata.PaymentMethod{
			"TRANS": {Code: "TRANS", Description: "Bank transfer", BankCode: "B1"},
			"DEBIT": {Code: "DEBIT", Description: "Direct debit", DirectDebit: true},
		},
		Banks:     map[string]masterdata.BankAccount{"B1": {Code: "B1", IBAN: "ES9121000418450200051332", Swift: "CAIXESBBXXX"}},
		Customers: map[string]masterdata.CustomerBankAccount{"C001": {CustomerCode: "C001", IBAN: "ES7921000813610123456789", Main: true}},
		Carriers:  map[string]masterdata.Carrier{"SEUR": {Code: "SEUR", Name: "Seur"}},
		Agents:    map[string]masterdata.Agent{"A1": {Code: "A1", Name: "Ann Agent"}},
		Contacts: map[int64]masterdata.Contact{
			7: {ID: 7, FirstName: "Bob", LastName: "Builder", Address: documents.Address{Street: "Dock 4", City: "Valencia", CountryCode: "ES"}},
		},
		Companies: map[int64]masterdata.Company{
			1: {ID: 1, Name: "Acme Ltd", TaxID: "B12345678", TaxIDType: "CIF", Address: documents.Address{Street: "Main St 1", PostalCode: "46001", City: "Valencia", CountryCode: "ES"}, Email: "info@acme.test"},
			2: {ID: 2, Name: "Other Corp", TaxID: "B87654321", TaxIDType: "CIF", Address: documents.Address{Street: "Harbour Rd 9", City: "Bilbao", CountryCode: "ES"}},
		},
		Countries: map[string]string{"ES": "Spain"},
		Taxes: map[string]masterdata.Tax{
			"IVA21": {Code: "IVA21", Description: "VAT 21%", Rate: decimal.NewFromInt(21)},
			"IVA10": {Code: "IVA10", Description: "VAT 10%", Rate: decimal.NewFromInt(10)},
		},
	}
}

// Translator echoes keys, which keeps assertions readable.
func Translator() i18n.Translator {
	return i18n.MapTranslator{}
}

// Numbers formats like en-US with a leading dollar sign.
func Numbers() *i18n.Formatter {
	return i18n.NewFormatter(language.AmericanEnglish, i18n.Currency{Symbol: "$", SymbolFirst: true, Decimals: 2}, 2)
}

// Line builds a 21% line of the given total.
func Line(id int64, total string) documents.Line {
	t := decimal.RequireFromString(total)
	return documents.Line{
		ID:          id,
		Reference:   "REF",
		Description: "Item",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   t,
		Total:       t,
		TaxCode:     "IVA21",
		TaxRate:     decimal.NewFromInt(21),
	}
}

// Invoice is an issued sales invoice paid by bank transfer.
func Invoice() documents.Document {
	return documents.Document{
		ID:        10,
		Kind:      documents.KindSalesInvoice,
		CompanyID: 1,
		Code:      "INV-1",
		Number:    "1",
		Series:    "A",
		Date:      time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Subject: documents.Subject{
			Code: "C001", Name: "Jane Doe", TaxID: "12345678Z", TaxIDType: "NIF",
			Email: "jane@example.test", Phone1: "600 111 222",
		},
		Address:           documents.Address{Street: "High St 5", PostalCode: "28001", City: "Madrid", CountryCode: "ES"},
		BillingContactID:  3,
		ShippingContactID: 7,
		CarrierCode:       "SEUR",
		PaymentMethod:     "TRANS",
		Observations:      "Leave at the door",
	}
}

// Config is the hard default format.
func Config() format.Config {
	return format.Build(format.Defaults())
}

// Input assembles a blocks.Input for doc.
func Input(doc documents.Document, lines []documents.Line, receipts []documents.Receipt, cfg format.Config) blocks.Input {
	dir := NewDirectory()
	return blocks.Input{
		Doc:        doc,
		Lines:      lines,
		Receipts:   receipts,
		Config:     cfg,
		Translator: Translator(),
		Numbers:    Numbers(),
		Directory:  dir,
		Calculator: totals.NewCalculator(totals.DefaultPrecision, dir, Translator()),
	}
}

// View resolves a view for doc.
func View(doc documents.Document, lines []documents.Line, receipts []documents.Receipt, cfg format.Config) *blocks.View {
	return blocks.NewView(context.Background(), Input(doc, lines, receipts, cfg))
}
