package render

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"slices"
	"strconv"
	"strings"

	"github.com/odyssey-erp/docrender/report"
)

//go:embed page.html
var pageFS embed.FS

var pages = template.Must(template.ParseFS(pageFS, "page.html"))

// pageData is the input of page.html. The markup fields were escaped by the
// templates that produced them.
type pageData struct {
	Title    string
	Styles   template.HTML
	Overlays []template.HTML
	Body     []template.HTML
}

// Gotenberg is a Renderer backed by a Gotenberg Chromium route. The body is a
// slice of chunks copied on SpeculativeCopy; every PageCount renders the
// current body and reads the page tree of the result.
type Gotenberg struct {
	conv      Converter
	cache     *PageCache
	count     func([]byte) (int, error)
	setup     PageSetup
	chunks    []string
	finalized bool
}

func newGotenberg(conv Converter, cache *PageCache, setup PageSetup) *Gotenberg {
	return &Gotenberg{conv: conv, cache: cache, count: report.CountPages, setup: setup}
}

// AppendMarkup implements Renderer.
func (g *Gotenberg) AppendMarkup(_ context.Context, markup string) error {
	if g.finalized {
		return ErrFinalized
	}
	g.chunks = append(g.chunks, markup)
	return nil
}

// ForcePageBreak implements Renderer.
func (g *Gotenberg) ForcePageBreak(ctx context.Context) error {
	return g.AppendMarkup(ctx, PageBreak)
}

// SpeculativeCopy implements Renderer.
func (g *Gotenberg) SpeculativeCopy() Renderer {
	cp := *g
	cp.chunks = slices.Clone(g.chunks)
	cp.finalized = false
	return &cp
}

// PageCount implements Renderer. An empty body counts as one page.
func (g *Gotenberg) PageCount(ctx context.Context) (int, error) {
	if len(g.chunks) == 0 {
		return 1, nil
	}
	page := g.page("")
	// Encryption does not change the layout and would block the page tree read.
	page.UserPassword, page.OwnerPassword = "", ""
	return g.cache.Count(ctx, g.cacheKey(page), func(ctx context.Context) (int, error) {
		data, err := g.conv.Convert(ctx, page)
		if err != nil {
			return 0, fmt.Errorf("render: page count: %w", err)
		}
		return g.count(data)
	})
}

// Finalize implements Renderer. It may be called once.
func (g *Gotenberg) Finalize(ctx context.Context, filename string) ([]byte, error) {
	if g.finalized {
		return nil, ErrFinalized
	}
	g.finalized = true
	data, err := g.conv.Convert(ctx, g.page(filename))
	if err != nil {
		return nil, fmt.Errorf("render: finalize: %w", err)
	}
	return data, nil
}

// Markup returns the full HTML document as it would be converted.
func (g *Gotenberg) Markup() string {
	return g.document(g.setup.Title)
}

func (g *Gotenberg) page(filename string) report.Page {
	title := g.setup.Title
	if title == "" {
		title = strings.TrimSuffix(filename, ".pdf")
	}
	s := g.setup
	return report.Page{
		HTML:          g.document(title),
		HeaderHTML:    g.fragment(s.PageHeader),
		FooterHTML:    g.fragment(s.PageFooter),
		Title:         title,
		PaperWidth:    s.Paper.WidthInches(),
		PaperHeight:   s.Paper.HeightInches(),
		MarginTop:     mmToInches(s.MarginTop),
		MarginBottom:  mmToInches(s.MarginBottom),
		MarginLeft:    mmToInches(s.MarginSide),
		MarginRight:   mmToInches(s.MarginSide),
		Landscape:     s.Landscape,
		UserPassword:  s.Password,
		OwnerPassword: s.Password,
	}
}

func (g *Gotenberg) document(title string) string {
	data := pageData{Title: title, Styles: template.HTML(g.setup.Styles)}
	for _, o := range g.setup.Overlays {
		data.Overlays = append(data.Overlays, template.HTML(o))
	}
	for _, c := range g.chunks {
		data.Body = append(data.Body, template.HTML(c))
	}
	return g.execute("document", data)
}

// fragment wraps header and footer markup; Chromium renders them without the
// body stylesheet.
func (g *Gotenberg) fragment(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return g.execute("fragment", pageData{Styles: template.HTML(g.setup.Styles), Body: []template.HTML{template.HTML(body)}})
}

func (g *Gotenberg) execute(name string, data pageData) string {
	var b strings.Builder
	if err := pages.ExecuteTemplate(&b, name, data); err != nil {
		panic(fmt.Sprintf("render: execute %s: %v", name, err))
	}
	return b.String()
}

func (g *Gotenberg) cacheKey(p report.Page) string {
	var b strings.Builder
	for _, f := range []float64{p.PaperWidth, p.PaperHeight, p.MarginTop, p.MarginBottom, p.MarginLeft, p.MarginRight} {
		b.WriteString(strconv.FormatFloat(f, 'f', 4, 64))
		b.WriteByte('|')
	}
	b.WriteString(strconv.FormatBool(p.Landscape))
	b.WriteByte('|')
	b.WriteString(p.HeaderHTML)
	b.WriteByte('|')
	b.WriteString(p.FooterHTML)
	b.WriteByte('|')
	b.WriteString(p.HTML)
	return b.String()
}

func mmToInches(mm float64) float64 {
	return mm / 25.4
}
