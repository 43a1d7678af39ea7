// Package columns turns the configured line column strings into column specs
// and formats line values for the lines table.
package columns

import (
	"strings"

	"github.com/odyssey-erp/docrender/internal/documents"
	"github.com/odyssey-erp/docrender/internal/i18n"
	"github.com/odyssey-erp/docrender/internal/printing/format"
)

// Column keys understood by the value formatter.
const (
	KeyLineNumber       = "lineNumber"
	KeyReference        = "reference"
	KeyDescription      = "description"
	KeyQuantity         = "quantity"
	KeyUnitPrice        = "unitPrice"
	KeyDiscount         = "discount"
	KeyDiscount2        = "discount2"
	KeyTaxRate          = "taxRate"
	KeySurchargeRate    = "surchargeRate"
	KeyWithholdingRate  = "withholdingRate"
	KeyLineTotal        = "lineTotal"
	KeyUnitPriceWithTax = "unitPriceWithTax"
	KeyLineTotalWithTax = "lineTotalWithTax"
)

var titleKeys = map[string]string{
	KeyLineNumber:       "line",
	KeyReference:        "reference",
	KeyDescription:      "description",
	KeyQuantity:         "quantity-abb",
	KeyUnitPrice:        "price",
	KeyDiscount:         "dto",
	KeyDiscount2:        "dto-2",
	KeyTaxRate:          "tax-abb",
	KeySurchargeRate:    "re",
	KeyWithholdingRate:  "irpf",
	KeyLineTotal:        "net",
	KeyUnitPriceWithTax: "price-tax-abb",
	KeyLineTotalWithTax: "total",
}

// alwaysShown columns survive AutoHide even when every line is empty.
var alwaysShown = map[string]bool{
	KeyLineTotalWithTax: true,
	KeyUnitPriceWithTax: true,
	KeyLineNumber:       true,
}

var alignments = map[string]bool{"left": true, "right": true, "center": true, "justify": true}

// Spec is one visible column of the lines table.
type Spec struct {
	Key       string
	Title     string
	Alignment string
	Type      ValueType
}

// Resolve zips the three comma separated lists by position.
func Resolve(cfg format.Columns, tr i18n.Translator) []Spec {
	keys := split(cfg.Keys)
	aligns := split(cfg.Alignments)
	types := split(cfg.Types)

	specs := make([]Spec, 0, len(keys))
	seen := map[string]bool{}
	for i, key := range keys {
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		spec := Spec{Key: key, Title: Title(key, tr), Alignment: "left", Type: ParseType("")}
		if i < len(aligns) && alignments[aligns[i]] {
			spec.Alignment = aligns[i]
		}
		if i < len(types) {
			spec.Type = ParseType(types[i])
		}
		specs = append(specs, spec)
	}
	return specs
}

// Title translates the header of a column key.
func Title(key string, tr i18n.Translator) string {
	label := key
	if k, ok := titleKeys[key]; ok {
		label = k
	}
	if tr == nil {
		return label
	}
	return tr.T(label)
}

// AutoHide drops columns with no truthy value on any line. The result keeps
// configuration order and is stable under repeated application.
func AutoHide(specs []Spec, lines []documents.Line) []Spec {
	out := make([]Spec, 0, len(specs))
	for _, spec := range specs {
		if alwaysShown[spec.Key] {
			out = append(out, spec)
			continue
		}
		for _, line := range lines {
			if truthy(spec.Key, line) {
				out = append(out, spec)
				break
			}
		}
	}
	return out
}

func truthy(key string, l documents.Line) bool {
	switch key {
	case KeyReference:
		return l.Reference != ""
	case KeyDescription:
		return l.Description != ""
	case KeyQuantity:
		return !l.Quantity.IsZero()
	case KeyUnitPrice:
		return !l.UnitPrice.IsZero()
	case KeyDiscount:
		return !l.Discount.IsZero()
	case KeyDiscount2:
		return !l.Discount2.IsZero()
	case KeyTaxRate:
		return !l.TaxRate.IsZero()
	case KeySurchargeRate:
		return !l.SurchargeRate.IsZero()
	case KeyWithholdingRate:
		return !l.WithholdingRate.IsZero()
	case KeyLineTotal:
		return !l.Total.IsZero()
	}
	return false
}

func split(raw string) []string {
	raw = strings.ReplaceAll(raw, " ", "")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
