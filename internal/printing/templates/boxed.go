package templates

import (
	"html/template"

	"github.com/odyssey-erp/docrender/internal/printing/blocks"
)

// Boxed frames the header, the lines and the footer in bordered boxes, with
// the metadata on the left and the recipient on the right.
type Boxed struct{}

func (Boxed) Name() string { return "boxed" }

func (Boxed) CSS(v *blocks.View) string {
	return execute("boxed-css", v.Config)
}

func (Boxed) PageHeader(v *blocks.View) string {
	return string(blocks.CompanyHeader(v, true))
}

func (Boxed) PageFooter(v *blocks.View) string {
	return execute("boxed-page-footer", v)
}

func (Boxed) Header(v *blocks.View) string {
	return execute("boxed-header", v)
}

func (Boxed) Lines(_ *blocks.View, table template.HTML) string {
	return execute("boxed-lines", table)
}

func (Boxed) PartialTotals(v *blocks.View, s blocks.Summary) string {
	if !v.ShowTotals() {
		return ""
	}
	return execute("boxed-partial", section{View: v, Summary: s})
}

// Footer puts the grand total on top of the summary box. The box is left
// out when there is neither a total nor an end text.
func (Boxed) Footer(v *blocks.View, s blocks.Summary) string {
	return execute("boxed-footer", section{View: v, Summary: s})
}
