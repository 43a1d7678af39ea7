package blocks_test

import (
	"context"
	"html/template"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/docrender/internal/documents"
	"github.com/odyssey-erp/docrender/internal/i18n"
	"github.com/odyssey-erp/docrender/internal/masterdata"
	"github.com/odyssey-erp/docrender/internal/printing/blocks"
	"github.com/odyssey-erp/docrender/internal/printing/blocks/blockstest"
	"github.com/odyssey-erp/docrender/internal/printing/columns"
	"github.com/odyssey-erp/docrender/internal/printing/totals"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNewViewResolvesMasterData(t *testing.T) {
	v := blockstest.View(blockstest.Invoice(), nil, nil, blockstest.Config())

	assert.Equal(t, "Acme Ltd", v.Company.Name)
	assert.Equal(t, template.HTML("Main St 1<br/>46001, Valencia, Spain"), v.CompanyAddress)
	assert.Equal(t, "customer", v.SubjectTitle)
	assert.Equal(t, template.HTML("Bob Builder<br>Dock 4, Valencia, Spain"), v.ShippingAddress)
	assert.Equal(t, "Seur", v.Carrier)
	assert.Empty(t, v.Agent, "agent hidden unless configured")
	assert.Equal(t, template.HTML("Bank transfer<br/>iban: ES91 2100 0418 4502 0005 1332<br/>swift: CAIXESBBXXX"), v.PaymentData)
}

func TestNewViewShippingRules(t *testing.T) {
	doc := blockstest.Invoice()
	doc.ShippingContactID = doc.BillingContactID
	assert.Empty(t, blockstest.View(doc, nil, nil, blockstest.Config()).ShippingAddress)

	doc = blockstest.Invoice()
	doc.ShippingContactID = 99
	assert.Empty(t, blockstest.View(doc, nil, nil, blockstest.Config()).ShippingAddress, "unknown contact")

	cfg := blockstest.Config()
	cfg.HideShipping = true
	assert.Empty(t, blockstest.View(blockstest.Invoice(), nil, nil, cfg).ShippingAddress)
}

func TestNewViewUnknownCarrierAndMethod(t *testing.T) {
	doc := blockstest.Invoice()
	doc.CarrierCode = "NOPE"
	doc.PaymentMethod = "NOPE"
	v := blockstest.View(doc, nil, nil, blockstest.Config())
	assert.Equal(t, "-", v.Carrier)
	assert.Equal(t, template.HTML("-"), v.PaymentData)
}

func TestReceiptsBankDataOnlyOnFirstWhenShared(t *testing.T) {
	due := time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)
	receipts := []documents.Receipt{
		{ID: 1, Number: 1, PaymentMethod: "DEBIT", CustomerCode: "C001", Amount: d("60.50"), Expiration: due},
		{ID: 2, Number: 2, PaymentMethod: "DEBIT", CustomerCode: "C001", Amount: d("60.50"), Expiration: due, Paid: true},
	}
	v := blockstest.View(blockstest.Invoice(), nil, receipts, blockstest.Config())

	require.Len(t, v.Receipts, 2)
	assert.Equal(t, template.HTML("Direct debit<br/>ES79 **** **** **** **** 6789"), v.Receipts[0].BankData)
	assert.Empty(t, v.Receipts[1].BankData)

	html := blocks.Payments(v)
	assert.Contains(t, html, "<th>receipt</th>")
	assert.Contains(t, html, `<td align="right">14-04-2026</td>`)
	assert.Contains(t, html, `<td align="right">paid</td>`)
	assert.Contains(t, html, "$&nbsp;60.50")
}

func TestReceiptsMixedMethodsPrintEach(t *testing.T) {
	receipts := []documents.Receipt{
		{ID: 1, Number: 1, PaymentMethod: "TRANS", Amount: d("10")},
		{ID: 2, Number: 2, PaymentMethod: "DEBIT", CustomerCode: "NOACC", Amount: d("10")},
	}
	v := blockstest.View(blockstest.Invoice(), nil, receipts, blockstest.Config())
	assert.NotEmpty(t, v.Receipts[0].BankData)
	assert.Equal(t, template.HTML("Direct debit"), v.Receipts[1].BankData)
}

func TestPaymentsFallsBackToMethodTable(t *testing.T) {
	doc := blockstest.Invoice()
	doc.Kind = documents.KindSalesEstimate
	expiry := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	doc.OfferExpiry = &expiry
	v := blockstest.View(doc, nil, []documents.Receipt{{Number: 1}}, blockstest.Config())

	assert.Empty(t, v.Receipts, "receipts belong to sales invoices only")
	html := blocks.Payments(v)
	assert.Contains(t, html, `<th align="left">payment-method</th>`)
	assert.Contains(t, html, "01-05-2026")

	doc.Kind = documents.KindPurchaseOrder
	assert.Empty(t, blocks.Payments(blockstest.View(doc, nil, nil, blockstest.Config())))

	cfg := blockstest.Config()
	cfg.HidePaymentMethods = true
	doc.Kind = documents.KindSalesOrder
	assert.Empty(t, blocks.Payments(blockstest.View(doc, nil, nil, cfg)))
}

func TestTotalsRowsOrderAndSkipping(t *testing.T) {
	doc := blockstest.Invoice()
	doc.Discount1 = d("10")
	v := blockstest.View(doc, nil, nil, blockstest.Config())
	s := blocks.Summary{Totals: totals.Result{
		NetBeforeDiscount: d("100"),
		Net:               d("90"),
		TaxTotal:          d("18.90"),
		Total:             d("108.90"),
	}}

	var keys []string
	for _, r := range blocks.TotalsRows(v, s) {
		keys = append(keys, r.Key)
	}
	assert.Equal(t, []string{blocks.RowSubtotal, blocks.RowDiscount1, blocks.RowNet, blocks.RowTaxes, blocks.RowTotal}, keys)

	s.Totals.NetBeforeDiscount = s.Totals.Net
	rows := blocks.TotalsRows(v, s)
	assert.NotEqual(t, blocks.RowSubtotal, rows[0].Key)

	rows = blocks.WithoutRows(rows, blocks.RowNet, blocks.RowTaxes)
	assert.Len(t, rows, 2)

	v.Config.HideTotals = true
	assert.Empty(t, blocks.TotalsRows(v, s))
}

func TestTaxTableSurchargeColumns(t *testing.T) {
	v := blockstest.View(blockstest.Invoice(), nil, nil, blockstest.Config())
	s := blocks.Summary{
		Totals: totals.Result{TaxTotal: d("21")},
		Taxes:  []totals.TaxRow{{Description: "VAT 21%", Rate: d("21"), Base: d("100"), Amount: d("21")}},
	}
	plain := string(blocks.TaxTable(v, s, "table-big"))
	assert.Equal(t, 4, strings.Count(plain, "<th align"))
	assert.Contains(t, plain, "VAT 21%")

	s.Totals.SurchargeTotal = d("5.2")
	s.Taxes[0].SurchargeRate = d("5.2")
	s.Taxes[0].Surcharge = d("5.2")
	assert.Equal(t, 6, strings.Count(string(blocks.TaxTable(v, s, "table-big")), "<th align"))

	s.Totals.TaxTotal = decimal.Zero
	assert.Empty(t, blocks.TaxTable(v, s, "table-big"))
}

func TestLinesTableHeaderOnly(t *testing.T) {
	v := blockstest.View(blockstest.Invoice(), nil, nil, blockstest.Config())
	html := string(blocks.LinesTable(context.Background(), v, nil))
	assert.True(t, strings.HasPrefix(html, `<table class="table-big table-list"><thead>`))
	assert.NotContains(t, html, "<td")
}

func TestLinesTableRows(t *testing.T) {
	lines := []documents.Line{blockstest.Line(1, "60"), blockstest.Line(2, "40")}
	v := blockstest.View(blockstest.Invoice(), lines, nil, blockstest.Config())
	rows := []columns.Row{{Number: 1, Line: lines[0]}, {Number: 2, Line: lines[1]}}

	html := string(blocks.LinesTable(context.Background(), v, rows))

	assert.Equal(t, 2, strings.Count(html, "<tr><td"))
	assert.Contains(t, html, "$&nbsp;60.00")
}

func TestPhones(t *testing.T) {
	tr := i18n.MapTranslator{"phone": "Phone", "phones": "Phones"}
	assert.Empty(t, blocks.Phones(tr, "", " "))
	assert.Equal(t, "Phone: 600111222", blocks.Phones(tr, "600 111 222", ""))
	assert.Equal(t, "Phone: 911", blocks.Phones(tr, "", "911"))
	assert.Equal(t, "Phones: 1 - 2", blocks.Phones(tr, "1", "2"))
}

func TestResumeRows(t *testing.T) {
	doc := blockstest.Invoice()
	doc.RectifiedCode = "INV-0"
	doc.VehicleRegistration = "1234-BCD"
	cfg := blockstest.Config()
	cfg.HideSeries = true
	v := blockstest.View(doc, nil, nil, cfg)

	rows := blocks.ResumeRows(v, blocks.ResumeOptions{Title: true, Date: true})
	var labels []string
	for _, r := range rows {
		labels = append(labels, r.Label)
	}
	assert.Equal(t, []string{"sales_invoice-min", "original", "date", "number", "carrier", "vehicle-registration"}, labels)
	assert.Equal(t, "INV-1", rows[0].Value)
}

func TestSketchWarning(t *testing.T) {
	doc := blockstest.Invoice()
	doc.Editable = true
	cfg := blockstest.Config()
	assert.Empty(t, blocks.SketchWarning(blockstest.View(doc, nil, nil, cfg), ""))

	cfg.ShowSketch = true
	assert.Contains(t, blocks.SketchWarning(blockstest.View(doc, nil, nil, cfg), ""), "invoice-is-sketch")

	doc.Kind = documents.KindSalesOrder
	assert.Empty(t, blocks.SketchWarning(blockstest.View(doc, nil, nil, cfg), ""))
}

func TestGenericTablesEscape(t *testing.T) {
	list := blocks.ListTable([]string{"Name", "Debit"}, []string{"", "right"}, [][]string{{"<b>x</b>", "1"}})
	assert.Contains(t, list, "&lt;b&gt;x&lt;/b&gt;")
	assert.Contains(t, list, `<th align="right">Debit</th>`)
	assert.Contains(t, list, `<th>Name</th>`)

	dual := string(blocks.DualColumnTable([]blocks.Pair{{"a", "1"}, {"b", "2"}, {"c", "3"}}))
	assert.Equal(t, 2, strings.Count(dual, "<tr>"))
}

func TestQROverlay(t *testing.T) {
	v := blockstest.View(blockstest.Invoice(), nil, nil, blockstest.Config())
	assert.Empty(t, blocks.QROverlay(v, 10, 10))

	v.QR = "data:image/png;base64,AAAA"
	html := blocks.QROverlay(v, 10, 10)
	assert.Contains(t, html, "left:170.00mm;top:255.00mm;width:25.00mm")
}

func TestTotalsRowsSkipZeroTotal(t *testing.T) {
	v := blockstest.View(blockstest.Invoice(), nil, nil, blockstest.Config())
	assert.Empty(t, blocks.TotalsRows(v, blocks.Summary{}))

	rows := blocks.TotalsRows(v, blocks.Summary{Totals: totals.Result{Net: d("10"), Total: d("10")}})
	require.Len(t, rows, 2)
	assert.True(t, rows[1].IsTotal())
	assert.Equal(t, template.HTML("$&nbsp;10.00"), rows[1].Value)
}

func TestMasterDataIsEscaped(t *testing.T) {
	in := blockstest.Input(blockstest.Invoice(), nil, nil, blockstest.Config())
	dir := blockstest.NewDirectory()
	dir.Methods["TRANS"] = masterdata.PaymentMethod{Code: "TRANS", Description: "Cash & <Card>", BankCode: "B1"}
	dir.Banks["B1"] = masterdata.BankAccount{Code: "B1", IBAN: "ES91<b>2100", Swift: `"><script>`}
	dir.Companies[1] = masterdata.Company{ID: 1, Name: "Smith & <Sons>", Phone1: "<i>1</i>"}
	in.Directory = dir
	v := blocks.NewView(context.Background(), in)

	payment := string(v.PaymentData)
	assert.Contains(t, payment, "Cash &amp; &lt;Card&gt;")
	assert.NotContains(t, payment, "<B>")
	assert.NotContains(t, payment, "<script>")

	header := string(blocks.CompanyHeader(v, true))
	assert.Contains(t, header, "Smith &amp; &lt;Sons&gt;")
	assert.Contains(t, header, "&lt;i&gt;1&lt;/i&gt;")
}

type imageLoader map[string]string

func (l imageLoader) Inline(_ context.Context, src string) string { return l[src] }

func TestCompanyHeaderInlinesLogo(t *testing.T) {
	cfg := blockstest.Config()
	cfg.LogoURL = "https://cdn.example.test/logo.png"

	in := blockstest.Input(blockstest.Invoice(), nil, nil, cfg)
	in.Images = imageLoader{cfg.LogoURL: "data:image/png;base64,AAAA"}
	v := blocks.NewView(context.Background(), in)
	header := string(blocks.CompanyHeader(v, false))
	assert.Contains(t, header, `<img src="data:image/png;base64,AAAA"`)
	assert.NotContains(t, header, "cdn.example.test")

	in.Images = imageLoader{}
	assert.NotContains(t, string(blocks.CompanyHeader(blocks.NewView(context.Background(), in), false)), "<img")

	in.Images = imageLoader{cfg.LogoURL: "javascript:alert(1)"}
	assert.Empty(t, blocks.NewView(context.Background(), in).Logo, "loader output must be a data URI")

	in.Images = nil
	assert.Empty(t, blocks.NewView(context.Background(), in).Logo, "remote logo without a loader")
}

func TestBaseCSSFiltersFormatValues(t *testing.T) {
	cfg := blockstest.Config()
	cfg.Color1 = "red;}</style><script>alert(1)</script>"
	v := blockstest.View(blockstest.Invoice(), nil, nil, cfg)

	css := string(blocks.BaseCSS(v))
	assert.True(t, strings.HasPrefix(css, "<style>"))
	assert.NotContains(t, css, "<script>")
	assert.Contains(t, css, "ZgotmplZ")
	assert.Contains(t, css, "font-family:'DejaVu Sans',sans-serif;")
}
