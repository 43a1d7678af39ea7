package totals

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/docrender/internal/documents"
	"github.com/odyssey-erp/docrender/internal/i18n"
	"github.com/odyssey-erp/docrender/internal/masterdata"
)

type taxTable map[string]string

func (t taxTable) Tax(_ context.Context, code string) masterdata.Tax {
	return masterdata.Tax{Code: code, Description: t[code]}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(total, rate string) documents.Line {
	return documents.Line{Total: d(total), TaxCode: "IVA" + rate, TaxRate: d(rate)}
}

func TestComputeRoundTrip(t *testing.T) {
	calc := NewCalculator(DefaultPrecision, taxTable{"IVA21": "IVA 21%"}, nil)
	lines := []documents.Line{line("60", "21"), line("40", "21")}

	res := calc.Compute(documents.Document{}, lines)
	rows := calc.Taxes(context.Background(), documents.Document{}, lines)

	assert.True(t, res.Net.Equal(d("100")))
	assert.True(t, res.TaxTotal.Equal(d("21")))
	assert.True(t, res.Total.Equal(d("121")))
	require.Len(t, rows, 1)
	assert.Equal(t, "IVA 21%", rows[0].Description)
	assert.True(t, rows[0].Base.Equal(d("100")))
	assert.True(t, rows[0].Amount.Equal(d("21")))
}

func TestComputeDiscountsSuppliedAndWithholding(t *testing.T) {
	calc := NewCalculator(2, nil, nil)
	doc := documents.Document{Discount1: d("10"), Discount2: d("5")}
	lines := []documents.Line{
		{Total: d("200"), TaxRate: d("21"), SurchargeRate: d("5.2"), WithholdingRate: d("15")},
		{Total: d("50"), Supplied: true, TaxRate: d("21")},
	}

	res := calc.Compute(doc, lines)

	// factor = 0.9 * 0.95 = 0.855
	assert.True(t, res.NetBeforeDiscount.Equal(d("200")))
	assert.True(t, res.Net.Equal(d("171")))
	assert.True(t, res.TaxTotal.Equal(d("35.91")))
	assert.True(t, res.SurchargeTotal.Equal(d("8.89")))
	assert.True(t, res.WithholdingTotal.Equal(d("25.65")))
	assert.True(t, res.SuppliedTotal.Equal(d("50")))
	assert.True(t, res.Total.Equal(d("240.15")), res.Total.String())
}

func TestComputeRoundsHalfAwayFromZero(t *testing.T) {
	calc := NewCalculator(2, nil, nil)

	res := calc.Compute(documents.Document{}, []documents.Line{{Total: d("0.125")}, {Total: d("-0.125"), Supplied: true}})

	assert.True(t, res.Net.Equal(d("0.13")))
	assert.True(t, res.SuppliedTotal.Equal(d("-0.13")))
}

func TestTaxesFirstSeenOrder(t *testing.T) {
	calc := NewCalculator(2, taxTable{}, nil)
	lines := []documents.Line{line("10", "10"), line("10", "21"), line("10", "4"), line("10", "10")}

	rows := calc.Taxes(context.Background(), documents.Document{}, lines)

	require.Len(t, rows, 3)
	assert.Equal(t, "IVA10_10_0", rows[0].Key)
	assert.Equal(t, "IVA21_21_0", rows[1].Key)
	assert.Equal(t, "IVA4_4_0", rows[2].Key)
	assert.Equal(t, "IVA10_10_0", rows[0].Description, "unknown tax falls back to the key")
	assert.True(t, rows[0].Base.Equal(d("20")))
}

func TestTaxesSkipsSuppliedAndZeroLines(t *testing.T) {
	calc := NewCalculator(2, nil, i18n.MapTranslator{"irpf": "IRPF"})
	lines := []documents.Line{
		line("0", "21"),
		{Total: d("30"), TaxRate: d("10"), Supplied: true, WithholdingRate: d("15")},
		{Total: d("100"), TaxRate: d("21"), WithholdingRate: d("15")},
	}

	rows := calc.Taxes(context.Background(), documents.Document{}, lines)

	require.Len(t, rows, 2)
	assert.Equal(t, "_21_0", rows[0].Key)
	assert.Equal(t, "irpf_15", rows[1].Key)
	assert.Equal(t, "IRPF 15%", rows[1].Description)
	assert.True(t, rows[1].Withholding)
	// Withholding keeps supplied lines in its base.
	assert.True(t, rows[1].Base.Equal(d("130")))
	assert.True(t, rows[1].Amount.Equal(d("-19.5")))
	assert.Equal(t, 1, TaxGroups(rows))
}

func TestTaxBasesMatchNet(t *testing.T) {
	calc := NewCalculator(2, nil, nil)
	doc := documents.Document{Discount1: d("7.5")}
	var lines []documents.Line
	for i, total := range []string{"19.99", "0.01", "3.33", "100.10", "45.455", "12"} {
		rate := []string{"21", "10", "4"}[i%3]
		l := line(total, rate)
		l.WithholdingRate = d("15")
		lines = append(lines, l)
	}

	res := calc.Compute(doc, lines)
	rows := calc.Taxes(context.Background(), doc, lines)

	sum := decimal.Zero
	for _, r := range rows {
		if r.Withholding {
			assert.True(t, r.Base.LessThanOrEqual(res.Net.Add(d("0.01"))))
			continue
		}
		sum = sum.Add(r.Base)
	}
	tolerance := d("0.01").Mul(decimal.NewFromInt(int64(len(rows))))
	assert.True(t, sum.Sub(res.Net).Abs().LessThanOrEqual(tolerance), "sum %s net %s", sum, res.Net)
}
