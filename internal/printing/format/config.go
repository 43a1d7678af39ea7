// Package format resolves the layout options of a render: per-document format
// record first, then the global print settings, then hard defaults.
package format

import (
	_ "embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Layer is one tier of settings keyed by option name. Empty values do not
// override lower tiers.
type Layer map[string]string

// PartialTotals selects what the intermediate totals block at a manual page
// break covers.
type PartialTotals string

const (
	// PartialTotalsPage sums only the lines printed since the previous break.
	PartialTotalsPage PartialTotals = "page"
	// PartialTotalsRunning sums every line printed so far in the document.
	PartialTotalsRunning PartialTotals = "running"
)

// Columns is the raw line column configuration.
type Columns struct {
	Keys       string
	Alignments string
	Types      string
}

// QR configures the fixed-position code overlay.
type QR struct {
	Field      string
	Color      string
	Background string
	// Size and position are expressed in millimetres.
	Size float64
	X    float64
	Y    float64
}

// Config is the immutable option set of one render.
type Config struct {
	Template    string
	Title       string
	HeaderTitle string

	Color1    string
	Color2    string
	Color3    string
	Font      string
	FontColor string

	FontSize       int
	TitleFontSize  int
	EndFontSize    int
	FooterFontSize int
	EndAlign       string
	FooterAlign    string

	FooterText  string
	EndText     string
	ThanksTitle string
	ThanksText  string

	Columns     Columns
	LinesHeight int

	LogoAlign string
	LogoSize  int
	LogoURL   string

	Paper        PaperSize
	Landscape    bool
	TopMargin    float64
	BottomMargin float64

	HideTotals         bool
	HidePaymentMethods bool
	HideReceipts       bool
	HideExpiration     bool
	ShowPaymentDate    bool
	HideObservations   bool
	HideShipping       bool
	ShowCustomerCode   bool
	ShowCustomerEmail  bool
	ShowCustomerPhones bool
	ShowAgent          bool
	ShowNumber2        bool
	HideNumber         bool
	HideSeries         bool
	ShowSketch         bool
	PrimaryNumber2     bool

	QR            QR
	Password      string
	PartialTotals PartialTotals

	CurrencySymbol      string
	CurrencySymbolFirst bool
}

// Defaults returns the hard default tier.
func Defaults() Layer {
	var layer Layer
	if err := yaml.Unmarshal(defaultsYAML, &layer); err != nil {
		panic(fmt.Sprintf("format: embedded defaults: %v", err))
	}
	return layer
}

// ParseLayer decodes a YAML mapping into a Layer.
func ParseLayer(raw []byte) (Layer, error) {
	var layer Layer
	if err := yaml.Unmarshal(raw, &layer); err != nil {
		return nil, fmt.Errorf("format: parse layer: %w", err)
	}
	return layer, nil
}

// Merge overlays layers left to right; later non-empty values win.
func Merge(layers ...Layer) Layer {
	out := Layer{}
	for _, layer := range layers {
		for k, v := range layer {
			if strings.TrimSpace(v) == "" {
				if _, ok := out[k]; !ok {
					out[k] = ""
				}
				continue
			}
			out[k] = v
		}
	}
	return out
}

// Build converts a merged layer into a Config.
func Build(l Layer) Config {
	cfg := Config{
		Template:    l.str("template"),
		Title:       l.str("title"),
		HeaderTitle: l.str("header_title"),

		Color1:    SanitizeColor(l.str("color1"), "#0a4f8a"),
		Color2:    SanitizeColor(l.str("color2"), "#ffffff"),
		Color3:    SanitizeColor(l.str("color3"), "#eeeeee"),
		Font:      SanitizeFont(l.str("font"), "DejaVu Sans"),
		FontColor: SanitizeColor(l.str("font_color"), "#000000"),

		FontSize:       l.integer("font_size", 10),
		TitleFontSize:  l.integer("title_font_size", 20),
		EndFontSize:    l.integer("end_font_size", 10),
		FooterFontSize: l.integer("footer_font_size", 9),
		EndAlign:       alignment(l.str("end_align")),
		FooterAlign:    alignment(l.str("footer_align")),

		FooterText:  l.str("footer_text"),
		EndText:     l.str("end_text"),
		ThanksTitle: l.str("thanks_title"),
		ThanksText:  l.str("thanks_text"),

		Columns: Columns{
			Keys:       l.str("line_cols"),
			Alignments: l.str("line_col_alignments"),
			Types:      l.str("line_col_types"),
		},
		LinesHeight: l.integer("lines_height", 0),

		LogoAlign: logoAlign(l.str("logo_align")),
		LogoSize:  l.integer("logo_size", 60),
		LogoURL:   l.str("logo_url"),

		Paper:        LookupPaper(l.str("size")),
		Landscape:    strings.HasPrefix(strings.ToLower(l.str("orientation")), "l"),
		TopMargin:    l.float("top_margin", 10),
		BottomMargin: l.float("bottom_margin", 10),

		HideTotals:         l.boolean("hide_totals"),
		HidePaymentMethods: l.boolean("hide_payment_methods"),
		HideReceipts:       l.boolean("hide_receipts"),
		HideExpiration:     l.boolean("hide_expiration_payment"),
		ShowPaymentDate:    l.boolean("show_payment_date"),
		HideObservations:   l.boolean("hide_observations"),
		HideShipping:       l.boolean("hide_shipping"),
		ShowCustomerCode:   l.boolean("show_customer_code"),
		ShowCustomerEmail:  l.boolean("show_customer_email"),
		ShowCustomerPhones: l.boolean("show_customer_phones"),
		ShowAgent:          l.boolean("show_agent"),
		ShowNumber2:        l.boolean("show_number2"),
		HideNumber:         l.boolean("hide_number"),
		HideSeries:         l.boolean("hide_serie"),
		ShowSketch:         l.boolean("show_invoice_sketch"),
		PrimaryNumber2:     l.boolean("primary_number2"),

		QR: QR{
			Field:      l.str("qr_field"),
			Color:      SanitizeColor(l.str("qr_color"), "#000000"),
			Background: SanitizeColor(l.str("qr_bg_color"), "#ffffff"),
			Size:       l.float("qr_size", 25),
			X:          l.float("qr_position_x", 180),
			Y:          l.float("qr_position_y", 265),
		},
		Password:      l.str("password"),
		PartialTotals: PartialTotalsPage,

		CurrencySymbol:      l.str("currency_symbol"),
		CurrencySymbolFirst: l.boolean("currency_symbol_first"),
	}
	if PartialTotals(strings.ToLower(l.str("partial_totals"))) == PartialTotalsRunning {
		cfg.PartialTotals = PartialTotalsRunning
	}
	return cfg
}

// WithOrientation returns a copy with the orientation forced.
func (c Config) WithOrientation(landscape bool) Config {
	c.Landscape = landscape
	return c
}

// PageWidthMM is the printable page width, honouring orientation.
func (c Config) PageWidthMM() float64 {
	if c.Landscape {
		return c.Paper.HeightMM()
	}
	return c.Paper.WidthMM()
}

func (l Layer) str(key string) string {
	return strings.TrimSpace(l[key])
}

func (l Layer) integer(key string, fallback int) int {
	v, err := strconv.Atoi(l.str(key))
	if err != nil {
		return fallback
	}
	return v
}

func (l Layer) float(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(l.str(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func (l Layer) boolean(key string) bool {
	switch strings.ToLower(l.str(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

var (
	hexColorPattern  = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	fontFamilyFilter = regexp.MustCompile(`^[A-Za-z0-9 \-]+$`)
)

// SanitizeColor accepts #rrggbb values only.
func SanitizeColor(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if hexColorPattern.MatchString(trimmed) {
		return trimmed
	}
	return fallback
}

// SanitizeFont accepts plain family names only.
func SanitizeFont(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed != "" && fontFamilyFilter.MatchString(trimmed) {
		return trimmed
	}
	return fallback
}

func alignment(v string) string {
	switch strings.ToLower(v) {
	case "center", "right", "justify":
		return strings.ToLower(v)
	}
	return "left"
}

func logoAlign(v string) string {
	switch strings.ToLower(v) {
	case "center", "right", "full-size":
		return strings.ToLower(v)
	}
	return "left"
}
