package templates

import (
	"html/template"

	"github.com/odyssey-erp/docrender/internal/printing/blocks"
)

// Banner opens with coloured boxes holding the title, the date and the
// grand total, and closes with the total in a primary box.
type Banner struct{}

func (Banner) Name() string { return "banner" }

func (Banner) CSS(v *blocks.View) string {
	return execute("banner-css", v.Config)
}

func (Banner) PageHeader(v *blocks.View) string {
	return string(blocks.CompanyHeader(v, false))
}

func (Banner) PageFooter(v *blocks.View) string {
	return execute("banner-page-footer", v)
}

func (Banner) Header(v *blocks.View) string {
	return execute("banner-header", v)
}

func (Banner) Lines(_ *blocks.View, table template.HTML) string {
	return execute("lines-box", table)
}

// PartialTotals hides net and taxes when a single tax row would repeat them.
func (Banner) PartialTotals(v *blocks.View, s blocks.Summary) string {
	return execute("banner-totals", section{View: v, Summary: s})
}

func (Banner) Footer(v *blocks.View, s blocks.Summary) string {
	return execute("banner-footer", section{View: v, Summary: s})
}
