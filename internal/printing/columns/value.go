package columns

import (
	"context"
	"html/template"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/docrender/internal/documents"
	"github.com/odyssey-erp/docrender/internal/i18n"
	"github.com/odyssey-erp/docrender/internal/masterdata"
)

// Kind is the family of a value type.
type Kind string

const (
	KindMoney      Kind = "money"
	KindNumber     Kind = "number"
	KindPercentage Kind = "percentage"
	KindText       Kind = "text"
)

// ValueType is a formatting tag such as money, number2 or percentage0.
// Decimals is -1 when the tag carries no explicit precision.
type ValueType struct {
	Kind     Kind
	Decimals int
}

func (t ValueType) String() string {
	if t.Decimals < 0 || t.Kind == KindText {
		return string(t.Kind)
	}
	return string(t.Kind) + strconv.Itoa(t.Decimals)
}

// ParseType accepts money[0-5], number[0-5], percentage[0-5] and text;
// anything else is text.
func ParseType(raw string) ValueType {
	for _, k := range []Kind{KindMoney, KindNumber, KindPercentage} {
		rest, ok := strings.CutPrefix(raw, string(k))
		if !ok {
			continue
		}
		if rest == "" {
			return ValueType{Kind: k, Decimals: -1}
		}
		if len(rest) == 1 && rest[0] >= '0' && rest[0] <= '5' {
			return ValueType{Kind: k, Decimals: int(rest[0] - '0')}
		}
	}
	return ValueType{Kind: KindText, Decimals: -1}
}

// Row is a line with the sequence number printed in the lineNumber column.
type Row struct {
	Number int
	Line   documents.Line
}

// LotLookup lists batch and serial number movements of a line.
type LotLookup interface {
	LotMovements(ctx context.Context, docKind string, docID, lineID int64, reference string) []masterdata.LotMovement
}

// Formatter prints line values for one document.
type Formatter struct {
	Doc        documents.Document
	Numbers    *i18n.Formatter
	Translator i18n.Translator
	Lots       LotLookup
}

var hundred = decimal.NewFromInt(100)

// Value returns the escaped cell markup of row for spec.
func (f *Formatter) Value(ctx context.Context, row Row, spec Spec) template.HTML {
	l := row.Line
	var (
		num    decimal.Decimal
		text   string
		isText bool
	)
	switch spec.Key {
	case KeyLineNumber:
		num = decimal.NewFromInt(int64(row.Number))
	case KeyReference:
		text, isText = l.Reference, true
	case KeyDescription:
		text, isText = string(f.description(ctx, l)), true
	case KeyQuantity:
		if l.HideQuantity {
			return ""
		}
		num = l.Quantity
	case KeyDiscount:
		num = l.Discount
	case KeyDiscount2:
		num = l.Discount2
	case KeyUnitPrice, KeyTaxRate, KeySurchargeRate, KeyWithholdingRate, KeyLineTotal, KeyUnitPriceWithTax, KeyLineTotalWithTax:
		if l.HidePrice {
			return ""
		}
		num = priceValue(spec.Key, l)
	default:
		return ""
	}

	empty := num.IsZero()
	if isText {
		empty = text == ""
	}
	if empty && l.Quantity.IsZero() {
		return "&nbsp;"
	}

	switch spec.Type.Kind {
	case KindMoney:
		return nbsp(f.Numbers.Money(f.asNumber(num, text, isText), spec.Type.Decimals))
	case KindNumber:
		return nbsp(f.Numbers.Number(f.asNumber(num, text, isText), spec.Type.Decimals))
	case KindPercentage:
		return textHTML(f.Numbers.Number(f.asNumber(num, text, isText), spec.Type.Decimals) + "%")
	}
	if !isText {
		return textHTML(num.String())
	}
	if spec.Key == KeyDescription {
		// escaped by description, may carry the lot trace
		return template.HTML(text)
	}
	return textHTML(text)
}

func priceValue(key string, l documents.Line) decimal.Decimal {
	switch key {
	case KeyUnitPrice:
		return l.UnitPrice
	case KeyTaxRate:
		return l.TaxRate
	case KeySurchargeRate:
		return l.SurchargeRate
	case KeyWithholdingRate:
		return l.WithholdingRate
	case KeyLineTotal:
		return l.Total
	case KeyUnitPriceWithTax:
		return l.UnitPrice.Add(l.UnitPrice.Mul(l.TaxRate).Div(hundred))
	case KeyLineTotalWithTax:
		return l.Total.Add(l.Total.Mul(l.TaxRate).Div(hundred))
	}
	return decimal.Zero
}

func (f *Formatter) asNumber(num decimal.Decimal, text string, isText bool) decimal.Decimal {
	if !isText {
		return num
	}
	v, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Zero
	}
	return v
}

var lotTrace = template.Must(template.New("lots").Parse(
	`{{.Description}}<div><br/>{{.Label}}: {{range $i, $lot := .Lots}}{{if $i}},<br />` + "\n" + `{{end}}{{$lot}}{{end}}</div>`))

type lotTraceData struct {
	Description template.HTML
	Label       string
	Lots        []string
}

func (f *Formatter) description(ctx context.Context, l documents.Line) template.HTML {
	desc := textHTML(l.Description)
	if f.Lots == nil {
		return desc
	}
	moves := f.Lots.LotMovements(ctx, string(f.Doc.Kind), f.Doc.ID, l.ID, l.Reference)
	if len(moves) == 0 {
		return desc
	}
	data := lotTraceData{Description: desc, Label: f.translate("batch-serial-numbers")}
	for _, m := range moves {
		entry := m.SerialNumber + " (" + m.Quantity.String() + ")"
		if !m.Date.IsZero() {
			entry += " " + m.Date.Format("02-01-2006")
		}
		data.Lots = append(data.Lots, entry)
	}
	var b strings.Builder
	if err := lotTrace.Execute(&b, data); err != nil {
		return desc
	}
	return template.HTML(b.String())
}

func (f *Formatter) translate(key string) string {
	if f.Translator == nil {
		return key
	}
	return f.Translator.T(key)
}

func nbsp(s string) template.HTML {
	return template.HTML(strings.ReplaceAll(template.HTMLEscapeString(s), " ", "&nbsp;"))
}

// textHTML escapes s and keeps its line breaks.
func textHTML(s string) template.HTML {
	return template.HTML(strings.ReplaceAll(template.HTMLEscapeString(s), "\n", "<br />\n"))
}
