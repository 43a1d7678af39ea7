package blocks

import (
	"html/template"
	"strings"
)

// Pair is a label and a value, both plain text.
type Pair struct {
	Label string
	Value string
}

// ResumeOptions selects the optional rows of the document metadata block.
type ResumeOptions struct {
	// Title prints "<kind>: <code>" as the first row.
	Title bool
	Date  bool
	// Contact adds the subject tax id, phones and email.
	Contact bool
}

// Billing prints the subject block: title, optional code, name, tax id,
// address and the optional phones and email.
func Billing(v *View) template.HTML {
	return execute("billing", v)
}

// Shipping prints the shipping address block, or "" when not applicable.
func Shipping(v *View) template.HTML {
	if v.ShippingAddress == "" {
		return ""
	}
	return execute("shipping", v)
}

// ResumeRows lists the document metadata in print order.
func ResumeRows(v *View, opts ResumeOptions) []Pair {
	d, cfg := v.Doc, v.Config
	var rows []Pair
	add := func(key, value string) {
		if value != "" {
			rows = append(rows, Pair{Label: v.T.T(key), Value: value})
		}
	}
	if opts.Title {
		rows = append(rows, Pair{Label: v.Title(), Value: d.DisplayCode(cfg.PrimaryNumber2)})
	}
	if opts.Contact {
		if d.Subject.TaxID != "" {
			rows = append(rows, Pair{Label: orDefault(d.Subject.TaxIDType, v.T.T("tax-id")), Value: d.Subject.TaxID})
		}
	}
	add("original", d.RectifiedCode)
	if opts.Date {
		add("date", FormatDate(d.Date))
	}
	if !cfg.HideNumber {
		add("number", d.Number)
	}
	if cfg.ShowNumber2 {
		add("number2", d.Number2)
	}
	if !cfg.HideSeries {
		add("serie", d.Series)
	}
	add("carrier", v.Carrier)
	add("tracking-code", d.TrackingCode)
	add("agent", v.Agent)
	add("vehicle-registration", d.VehicleRegistration)
	if opts.Contact {
		if cfg.ShowCustomerPhones {
			if p := Phones(v.T, d.Subject.Phone1, d.Subject.Phone2); p != "" {
				label, value, _ := strings.Cut(p, ": ")
				rows = append(rows, Pair{Label: label, Value: value})
			}
		}
		if cfg.ShowCustomerEmail {
			add("email", d.Subject.Email)
		}
	}
	return rows
}

// ResumeTable prints rows as a two column label/value table.
func ResumeTable(rows []Pair) template.HTML {
	return execute("resume-table", rows)
}

// ResumeLines prints rows as "<br/><b>label:</b> value" lines.
func ResumeLines(rows []Pair) template.HTML {
	return execute("resume-lines", rows)
}

type sketch struct {
	Class string
	Text  string
}

// SketchWarning is the draft banner, or "" when not applicable.
func SketchWarning(v *View, class string) template.HTML {
	if !v.Sketch() {
		return ""
	}
	return execute("sketch", sketch{Class: class, Text: v.T.T("invoice-is-sketch")})
}

type companyHeader struct {
	*View
	Logo      template.HTML
	ShowTitle bool
	Warning   template.HTML
	Contacts  []string
}

// CompanyHeader prints the issuer block with the logo aligned as configured.
func CompanyHeader(v *View, showTitle bool) template.HTML {
	h := companyHeader{View: v, Logo: Logo(v, ""), ShowTitle: showTitle}
	switch v.Config.LogoAlign {
	case "full-size":
		h.Warning = SketchWarning(v, "mt-5")
		return execute("company-header-full", h)
	case "center":
		h.Warning = SketchWarning(v, "text-center")
		h.Contacts = companyContacts(v, "web", "email", "phone1", "phone2")
		return execute("company-header-center", h)
	}
	h.Warning = SketchWarning(v, "")
	h.Contacts = companyContacts(v, "phone1", "phone2", "email", "web")
	if v.Config.LogoAlign == "right" {
		return execute("company-header-right", h)
	}
	return execute("company-header-left", h)
}

type logo struct {
	Class  string
	Src    template.URL
	Height int
}

// Logo prints the inlined logo image, or "" when there is none.
func Logo(v *View, class string) template.HTML {
	if v.Logo == "" {
		return ""
	}
	return execute("logo", logo{Class: class, Src: v.Logo, Height: v.Config.LogoSize})
}

// Spacer is a small vertical gap.
func Spacer() template.HTML {
	return execute("spacer", nil)
}

func companyContacts(v *View, fields ...string) []string {
	c := v.Company
	var out []string
	for _, f := range fields {
		var value string
		switch f {
		case "phone1":
			value = c.Phone1
		case "phone2":
			value = c.Phone2
		case "email":
			value = c.Email
		case "web":
			value = c.Web
		}
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}

func taxID(kind, id string) string {
	if kind == "" {
		return id
	}
	return kind + ": " + id
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
