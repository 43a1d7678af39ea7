package templates

import (
	"html/template"

	"github.com/odyssey-erp/docrender/internal/printing/blocks"
)

// Stacked puts a coloured band behind the company header and prints the
// totals as a horizontal strip above the tax table.
type Stacked struct{}

func (Stacked) Name() string { return "stacked" }

func (Stacked) CSS(v *blocks.View) string {
	return execute("stacked-css", v.Config)
}

func (Stacked) PageHeader(v *blocks.View) string {
	return execute("stacked-page-header", v)
}

func (Stacked) PageFooter(v *blocks.View) string {
	return execute("stacked-page-footer", v)
}

func (Stacked) Header(v *blocks.View) string {
	return execute("stacked-header", v)
}

func (Stacked) Lines(_ *blocks.View, table template.HTML) string {
	return execute("lines-box", table)
}

func (Stacked) PartialTotals(v *blocks.View, s blocks.Summary) string {
	return execute("stacked-totals", section{View: v, Summary: s})
}

func (Stacked) Footer(v *blocks.View, s blocks.Summary) string {
	return execute("stacked-footer", section{View: v, Summary: s})
}
