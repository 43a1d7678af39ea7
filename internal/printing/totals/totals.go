// Package totals derives the money summary of a document: net, taxes,
// surcharge, withholding and grand total, plus the per-rate tax breakdown.
package totals

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/docrender/internal/documents"
	"github.com/odyssey-erp/docrender/internal/i18n"
	"github.com/odyssey-erp/docrender/internal/masterdata"
)

// DefaultPrecision is the number of decimals money amounts are rounded to.
const DefaultPrecision = 2

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Result is the rounded summary of a line set.
type Result struct {
	NetBeforeDiscount decimal.Decimal
	Net               decimal.Decimal
	TaxTotal          decimal.Decimal
	SurchargeTotal    decimal.Decimal
	WithholdingTotal  decimal.Decimal
	SuppliedTotal     decimal.Decimal
	Total             decimal.Decimal
}

// TaxRow is one group of the tax breakdown.
type TaxRow struct {
	Key           string
	Description   string
	Rate          decimal.Decimal
	Base          decimal.Decimal
	Amount        decimal.Decimal
	SurchargeRate decimal.Decimal
	Surcharge     decimal.Decimal
	Withholding   bool
}

// TaxLookup resolves tax descriptions.
type TaxLookup interface {
	Tax(ctx context.Context, code string) masterdata.Tax
}

// Calculator computes totals at a fixed precision.
type Calculator struct {
	Precision int32

	lookup     TaxLookup
	translator i18n.Translator
}

// NewCalculator returns a calculator; precision < 0 selects DefaultPrecision.
func NewCalculator(precision int, taxes TaxLookup, tr i18n.Translator) *Calculator {
	if precision < 0 {
		precision = DefaultPrecision
	}
	return &Calculator{Precision: int32(precision), lookup: taxes, translator: tr}
}

// DiscountFactor compounds the two document discounts.
func DiscountFactor(doc documents.Document) decimal.Decimal {
	return one.Sub(doc.Discount1.Div(hundred)).Mul(one.Sub(doc.Discount2.Div(hundred)))
}

// Compute sums lines. Rounding happens once, on the accumulated values.
func (c *Calculator) Compute(doc documents.Document, lines []documents.Line) Result {
	factor := DiscountFactor(doc)
	var r Result
	for _, line := range lines {
		if line.Supplied {
			r.SuppliedTotal = r.SuppliedTotal.Add(line.Total)
			continue
		}
		base := line.Total.Mul(factor)
		r.NetBeforeDiscount = r.NetBeforeDiscount.Add(line.Total)
		r.Net = r.Net.Add(base)
		r.TaxTotal = r.TaxTotal.Add(base.Mul(line.TaxRate).Div(hundred))
		r.SurchargeTotal = r.SurchargeTotal.Add(base.Mul(line.SurchargeRate).Div(hundred))
		r.WithholdingTotal = r.WithholdingTotal.Add(base.Mul(line.WithholdingRate).Div(hundred))
	}
	r.Total = r.Net.Add(r.TaxTotal).Add(r.SurchargeTotal).Sub(r.WithholdingTotal).Add(r.SuppliedTotal)

	p := c.precision()
	return Result{
		NetBeforeDiscount: r.NetBeforeDiscount.Round(p),
		Net:               r.Net.Round(p),
		TaxTotal:          r.TaxTotal.Round(p),
		SurchargeTotal:    r.SurchargeTotal.Round(p),
		WithholdingTotal:  r.WithholdingTotal.Round(p),
		SuppliedTotal:     r.SuppliedTotal.Round(p),
		Total:             r.Total.Round(p),
	}
}

// Taxes groups lines by tax code, rate and surcharge rate in first-seen
// order, followed by one withholding group per withholding rate.
func (c *Calculator) Taxes(ctx context.Context, doc documents.Document, lines []documents.Line) []TaxRow {
	factor := DiscountFactor(doc)
	var rows []TaxRow
	index := map[string]int{}

	for _, line := range lines {
		base := line.Total.Mul(factor)
		if base.IsZero() || line.Supplied {
			continue
		}
		key := line.TaxCode + "_" + line.TaxRate.String() + "_" + line.SurchargeRate.String()
		i, ok := index[key]
		if !ok {
			row := TaxRow{Key: key, Description: key, Rate: line.TaxRate, SurchargeRate: line.SurchargeRate}
			if c.lookup != nil && line.TaxCode != "" {
				if tax := c.lookup.Tax(ctx, line.TaxCode); tax.Description != "" {
					row.Description = tax.Description
				}
			}
			rows = append(rows, row)
			i = len(rows) - 1
			index[key] = i
		}
		rows[i].Base = rows[i].Base.Add(base)
		rows[i].Amount = rows[i].Amount.Add(base.Mul(line.TaxRate).Div(hundred))
		rows[i].Surcharge = rows[i].Surcharge.Add(base.Mul(line.SurchargeRate).Div(hundred))
	}

	for _, line := range lines {
		if line.WithholdingRate.IsZero() {
			continue
		}
		key := "irpf_" + line.WithholdingRate.String()
		i, ok := index[key]
		if !ok {
			rows = append(rows, TaxRow{
				Key:         key,
				Description: c.translate("irpf") + " " + line.WithholdingRate.String() + "%",
				Rate:        line.WithholdingRate,
				Withholding: true,
			})
			i = len(rows) - 1
			index[key] = i
		}
		base := line.Total.Mul(factor)
		rows[i].Base = rows[i].Base.Add(base)
		rows[i].Amount = rows[i].Amount.Sub(base.Mul(line.WithholdingRate).Div(hundred))
	}

	p := c.precision()
	for i := range rows {
		rows[i].Base = rows[i].Base.Round(p)
		rows[i].Amount = rows[i].Amount.Round(p)
		rows[i].Surcharge = rows[i].Surcharge.Round(p)
	}
	return rows
}

// TaxGroups counts the non-withholding rows.
func TaxGroups(rows []TaxRow) int {
	n := 0
	for _, r := range rows {
		if !r.Withholding {
			n++
		}
	}
	return n
}

func (c *Calculator) precision() int32 {
	if c == nil || c.Precision < 0 {
		return DefaultPrecision
	}
	return c.Precision
}

func (c *Calculator) translate(key string) string {
	if c.translator == nil {
		return key
	}
	return c.translator.T(key)
}
