package blocks

import (
	"html/template"
	"strconv"
	"strings"
)

// BaseCSS is the stylesheet shared by every template, as a <style> element.
// Format values land in CSS context and are filtered by the template
// escaper.
func BaseCSS(v *View) template.HTML {
	return execute("base-css", v.Config)
}

// FooterText prints the configured footer paragraph, or "".
func FooterText(v *View) template.HTML {
	if strings.TrimSpace(v.Config.FooterText) == "" {
		return ""
	}
	return execute("footer-text", v.Config.FooterText)
}

// Thanks reports whether the thanks block applies: customer documents with
// a thanks title.
func Thanks(v *View) bool {
	return v.Doc.Kind.IsSales() && strings.TrimSpace(v.Config.ThanksTitle) != ""
}

// ThanksText is the escaped thanks body.
func ThanksText(v *View) template.HTML {
	return NL2BR(v.Config.ThanksText)
}

type overlay struct {
	Style template.CSS
	Src   template.URL
}

// QROverlay places the QR image at its configured position. left and top
// are the page content origin in millimetres, subtracted so the image lands
// at the absolute page coordinates of the format.
func QROverlay(v *View, left, top float64) template.HTML {
	if v.QR == "" {
		return ""
	}
	q := v.Config.QR
	x := max(q.X-left, 0)
	y := max(q.Y-top, 0)
	style := "left:" + mm(x) + ";top:" + mm(y) + ";width:" + mm(q.Size) + ";height:" + mm(q.Size) + ";"
	return execute("qr-overlay", overlay{Style: template.CSS(style), Src: template.URL(v.QR)})
}

func mm(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "mm"
}
