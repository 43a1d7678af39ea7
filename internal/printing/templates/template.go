// Package templates holds the layout variants a document can be printed
// with. A variant only composes blocks; streaming and page breaking belong to
// the engine.
package templates

import (
	"embed"
	"html/template"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/docrender/internal/printing/blocks"
)

// Template is one layout variant. Every method returns trusted markup.
type Template interface {
	Name() string
	// CSS returns <style> elements appended after the base stylesheet.
	CSS(v *blocks.View) string
	// PageHeader and PageFooter repeat on every page.
	PageHeader(v *blocks.View) string
	PageFooter(v *blocks.View) string
	// Header opens each document: addresses and metadata.
	Header(v *blocks.View) string
	// Lines wraps one flushed lines table.
	Lines(v *blocks.View, table template.HTML) string
	// PartialTotals is printed before a manual page break.
	PartialTotals(v *blocks.View, s blocks.Summary) string
	// Footer closes the document: totals, observations, payments, end text.
	Footer(v *blocks.View, s blocks.Summary) string
}

// Default is the variant used for unknown names.
const Default = "classic"

// Registry maps variant names to templates.
type Registry struct {
	byName map[string]Template
}

// NewRegistry registers the built-in variants plus extra.
func NewRegistry(extra ...Template) *Registry {
	r := &Registry{byName: map[string]Template{}}
	for _, t := range append([]Template{Classic{}, Banner{}, Boxed{}, Stacked{}}, extra...) {
		r.byName[t.Name()] = t
	}
	return r
}

// Lookup returns the named variant, falling back to Default.
func (r *Registry) Lookup(name string) Template {
	name = strings.ToLower(strings.TrimSpace(name))
	if t, ok := r.byName[name]; ok {
		return t
	}
	if t, ok := legacyNames[name]; ok {
		return r.byName[t]
	}
	return r.byName[Default]
}

// Names lists the registered variants.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// legacyNames accepts the numbered names stored by older format records.
var legacyNames = map[string]string{
	"template1": "classic",
	"template2": "banner",
	"template4": "boxed",
	"template5": "stacked",
}

// CSS is the full stylesheet of t for v.
func CSS(t Template, v *blocks.View) string {
	return string(blocks.BaseCSS(v)) + t.CSS(v)
}

//go:embed layouts/*.html
var layoutFS embed.FS

var layouts = template.Must(template.New("layouts").Funcs(layoutFuncs()).ParseFS(layoutFS, "layouts/*.html"))

// layoutFuncs exposes the blocks to the layout files.
func layoutFuncs() template.FuncMap {
	funcs := blocks.Funcs()
	for name, fn := range map[string]any{
		"billing":       blocks.Billing,
		"shipping":      blocks.Shipping,
		"companyHeader": blocks.CompanyHeader,
		"taxTable":      blocks.TaxTable,
		"totalsRows":    blocks.TotalsRows,
		"observations":  blocks.ObservationsParagraph,
		"payments":      blocks.Payments,
		"endText":       blocks.EndText,
		"footerText":    blocks.FooterText,
		"thanks":        blocks.Thanks,
		"thanksText":    blocks.ThanksText,
		"spacer":        blocks.Spacer,
		"upper":         strings.ToUpper,
		"resumeTable": func(v *blocks.View, title, date, contact bool) template.HTML {
			return blocks.ResumeTable(blocks.ResumeRows(v, blocks.ResumeOptions{Title: title, Date: date, Contact: contact}))
		},
		"resumeLines": func(v *blocks.View) template.HTML {
			return blocks.ResumeLines(blocks.ResumeRows(v, blocks.ResumeOptions{}))
		},
		"totalsVertical": func(v *blocks.View, s blocks.Summary) template.HTML {
			return blocks.TotalsVertical(blocks.TotalsRows(v, s))
		},
		"totalsHorizontal": func(v *blocks.View, s blocks.Summary, class string) template.HTML {
			return blocks.TotalsHorizontal(blocks.TotalsRows(v, s), class)
		},
		"compactRows": compactRows,
		"grandTotal":  grandTotal,
		"money": func(v *blocks.View, d decimal.Decimal) template.HTML {
			return blocks.NBSP(v.Numbers.Money(d))
		},
	} {
		funcs[name] = fn
	}
	return funcs
}

// compactRows drops net and taxes when a single tax row already shows them.
func compactRows(rows []blocks.TotalRow, s blocks.Summary) []blocks.TotalRow {
	if s.SingleGroup() {
		return blocks.WithoutRows(rows, blocks.RowNet, blocks.RowTaxes)
	}
	return rows
}

// grandTotal returns the total row, or the zero row when the total is zero.
func grandTotal(rows []blocks.TotalRow) blocks.TotalRow {
	for _, r := range rows {
		if r.IsTotal() {
			return r
		}
	}
	return blocks.TotalRow{}
}

// section is the data of blocks that print a summary.
type section struct {
	*blocks.View
	Summary blocks.Summary
}

func execute(name string, data any) string {
	return string(blocks.Execute(layouts, name, data))
}
