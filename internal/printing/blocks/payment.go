package blocks

import (
	"html/template"
)

type receiptRow struct {
	Number     int
	BankData   template.HTML
	PayURL     string
	Amount     template.HTML
	Expiration string
}

type receiptsTable struct {
	*View
	Rows []receiptRow
}

type methodTable struct {
	*View
	ShowExpiration bool
	Expiry         string
}

// Payments prints the receipts table of a sales invoice, or the payment
// method table of other customer documents. It is empty when totals or
// payment methods are hidden.
func Payments(v *View) template.HTML {
	cfg := v.Config
	if len(v.Receipts) > 0 {
		return execute("receipts", receiptRows(v))
	}
	if !v.Doc.Kind.IsSales() || cfg.HideTotals || cfg.HidePaymentMethods {
		return ""
	}
	t := methodTable{View: v, ShowExpiration: !cfg.HideExpiration && !cfg.HideReceipts}
	if v.Doc.OfferExpiry != nil {
		t.Expiry = FormatDate(*v.Doc.OfferExpiry)
	}
	return execute("payment-method", t)
}

func receiptRows(v *View) receiptsTable {
	t := receiptsTable{View: v, Rows: make([]receiptRow, 0, len(v.Receipts))}
	for _, r := range v.Receipts {
		expiration := FormatDate(r.Expiration)
		if r.Paid {
			expiration = v.T.T("paid")
		}
		if v.Config.ShowPaymentDate && r.PaidAt != nil {
			expiration += " " + FormatDate(*r.PaidAt)
		}
		t.Rows = append(t.Rows, receiptRow{
			Number:     r.Number,
			BankData:   r.BankData,
			PayURL:     r.PayURL,
			Amount:     NBSP(v.Numbers.Money(r.Amount)),
			Expiration: expiration,
		})
	}
	return t
}
