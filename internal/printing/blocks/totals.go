package blocks

import (
	"html/template"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Totals row keys.
const (
	RowSubtotal    = "subtotal"
	RowDiscount1   = "global-dto"
	RowDiscount2   = "global-dto-2"
	RowNet         = "net"
	RowTaxes       = "taxes"
	RowSurcharge   = "re"
	RowWithholding = "irpf"
	RowSupplied    = "supplied-amount"
	RowTotal       = "total"
)

// TotalRow is one printed line of the money summary.
type TotalRow struct {
	Key   string
	Label string
	Value template.HTML
}

// IsTotal reports whether r is the grand total.
func (r TotalRow) IsTotal() bool {
	return r.Key == RowTotal
}

// TotalsRows lists the summary rows in print order. Zero amounts are
// skipped, the grand total included, and the subtotal only appears when a
// global discount applies.
func TotalsRows(v *View, s Summary) []TotalRow {
	if !v.ShowTotals() {
		return nil
	}
	t := s.Totals
	var rows []TotalRow
	money := func(key string, d decimal.Decimal) {
		if !d.IsZero() {
			rows = append(rows, TotalRow{Key: key, Label: v.T.T(key), Value: NBSP(v.Numbers.Money(d))})
		}
	}
	percent := func(key string, d decimal.Decimal) {
		if !d.IsZero() {
			rows = append(rows, TotalRow{Key: key, Label: v.T.T(key), Value: NBSP(v.Numbers.Number(d) + "%")})
		}
	}

	if !t.NetBeforeDiscount.Equal(t.Net) {
		money(RowSubtotal, t.NetBeforeDiscount)
	}
	percent(RowDiscount1, v.Doc.Discount1)
	percent(RowDiscount2, v.Doc.Discount2)
	money(RowNet, t.Net)
	money(RowTaxes, t.TaxTotal)
	money(RowSurcharge, t.SurchargeTotal)
	money(RowWithholding, t.WithholdingTotal)
	money(RowSupplied, t.SuppliedTotal)
	money(RowTotal, t.Total)
	return rows
}

// WithoutRows drops the rows whose key is listed.
func WithoutRows(rows []TotalRow, keys ...string) []TotalRow {
	out := rows[:0:0]
	for _, r := range rows {
		if !slices.Contains(keys, r.Key) {
			out = append(out, r)
		}
	}
	return out
}

// TotalsVertical prints rows as a label/value list; the total row is big.
func TotalsVertical(rows []TotalRow) template.HTML {
	if len(rows) == 0 {
		return ""
	}
	return execute("totals-vertical", rows)
}

// TotalsHorizontal prints rows as one header row over one value row.
func TotalsHorizontal(rows []TotalRow, class string) template.HTML {
	if len(rows) == 0 {
		return ""
	}
	return execute("totals-horizontal", struct {
		Class string
		Rows  []TotalRow
	}{class, rows})
}

type taxRow struct {
	Description   string
	Base          template.HTML
	Rate          template.HTML
	Amount        template.HTML
	SurchargeRate template.HTML
	Surcharge     template.HTML
}

type taxTable struct {
	*View
	Class     string
	Surcharge bool
	Rows      []taxRow
}

// TaxTable prints the tax breakdown. It is empty when no tax is due; the
// surcharge columns only appear when some surcharge applies.
func TaxTable(v *View, s Summary, class string) template.HTML {
	if !v.ShowTotals() || s.Totals.TaxTotal.IsZero() {
		return ""
	}
	n := v.Numbers
	percent := func(d decimal.Decimal) template.HTML { return NBSP(n.Number(d) + "%") }
	money := func(d decimal.Decimal) template.HTML { return NBSP(n.Money(d)) }
	t := taxTable{View: v, Class: class, Surcharge: !s.Totals.SurchargeTotal.IsZero()}
	for _, r := range s.Taxes {
		t.Rows = append(t.Rows, taxRow{
			Description:   r.Description,
			Base:          money(r.Base),
			Rate:          percent(r.Rate),
			Amount:        money(r.Amount),
			SurchargeRate: dashIfZero(r.SurchargeRate, percent),
			Surcharge:     dashIfZero(r.Surcharge, money),
		})
	}
	return execute("tax-table", t)
}

type paragraph struct {
	*View
	Class string
	Text  template.HTML
}

// ObservationsParagraph prints the observations with a bold title.
func ObservationsParagraph(v *View, class string) template.HTML {
	obs := v.Observations()
	if obs == "" {
		return ""
	}
	return execute("observations", paragraph{View: v, Class: class, Text: obs})
}

// EndText prints the closing paragraph, or "" when unset.
func EndText(v *View) template.HTML {
	if strings.TrimSpace(v.Config.EndText) == "" {
		return ""
	}
	return execute("end-text", v.Config.EndText)
}

func dashIfZero(d decimal.Decimal, format func(decimal.Decimal) template.HTML) template.HTML {
	if d.IsZero() {
		return "-"
	}
	return format(d)
}
