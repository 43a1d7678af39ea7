package templates

import (
	"html/template"

	"github.com/odyssey-erp/docrender/internal/printing/blocks"
)

// Classic prints addresses and metadata side by side under a bordered rule,
// with the tax table and the totals next to each other.
type Classic struct{}

func (Classic) Name() string { return "classic" }

func (Classic) CSS(v *blocks.View) string {
	return execute("classic-css", v.Config)
}

func (Classic) PageHeader(v *blocks.View) string {
	return string(blocks.CompanyHeader(v, v.Config.LogoAlign != "full-size"))
}

func (Classic) PageFooter(v *blocks.View) string {
	return execute("classic-page-footer", v)
}

func (Classic) Header(v *blocks.View) string {
	return execute("classic-header", v)
}

func (Classic) Lines(_ *blocks.View, table template.HTML) string {
	return execute("lines-box", table)
}

func (Classic) PartialTotals(v *blocks.View, s blocks.Summary) string {
	return execute("classic-totals", section{View: v, Summary: s})
}

func (Classic) Footer(v *blocks.View, s blocks.Summary) string {
	return execute("classic-footer", section{View: v, Summary: s})
}
