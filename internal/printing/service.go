// Package printing turns stored business documents, generic lists and single
// records into PDF files. It resolves the print format, builds the view,
// picks the template variant and drives the pagination engine.
package printing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/odyssey-erp/docrender/internal/documents"
	"github.com/odyssey-erp/docrender/internal/i18n"
	"github.com/odyssey-erp/docrender/internal/masterdata"
	"github.com/odyssey-erp/docrender/internal/printing/blocks"
	"github.com/odyssey-erp/docrender/internal/printing/engine"
	"github.com/odyssey-erp/docrender/internal/printing/format"
	"github.com/odyssey-erp/docrender/internal/printing/render"
	"github.com/odyssey-erp/docrender/internal/printing/templates"
	"github.com/odyssey-erp/docrender/internal/printing/totals"
	"github.com/odyssey-erp/docrender/internal/qr"
)

// ContentType is the media type of every Output.
const ContentType = "application/pdf"

var (
	// ErrNoDocuments is returned by RenderBatch for an empty reference list.
	ErrNoDocuments = errors.New("printing: no documents to render")
	// ErrInvalidRequest is returned for list and model requests without content.
	ErrInvalidRequest = errors.New("printing: invalid request")
)

// RendererFactory creates one renderer per rendered document and merges
// the documents of a batch.
type RendererFactory interface {
	New(setup render.PageSetup) (render.Renderer, error)
	Merge(ctx context.Context, parts [][]byte, password string) ([]byte, error)
}

// Metrics receives render outcomes. *observability.Metrics implements it.
type Metrics interface {
	engine.Observer
	ObserveRender(kind, template string, err error, elapsed time.Duration)
}

// Dependencies wires a Service.
type Dependencies struct {
	Documents documents.Store
	// Finder backs the per render master data lookups; nil prints without
	// master data.
	Finder    masterdata.Finder
	Formats   *format.Resolver
	Templates *templates.Registry
	Locales   *i18n.Bundle
	Renderers RendererFactory
	// Images inlines logos; nil prints only logos already stored as data
	// URIs.
	Images blocks.ImageLoader
	// QR defaults to a PNG generator.
	QR      qr.Generator
	Metrics Metrics
	Logger  *slog.Logger
	// MoneyDecimals is the rounding precision of totals.
	MoneyDecimals int
	// Locale is used when a request does not name one.
	Locale string
}

// Service renders documents, lists and records. It is safe for concurrent
// use; every call owns its renderer.
type Service struct {
	docs      documents.Store
	finder    masterdata.Finder
	formats   *format.Resolver
	templates *templates.Registry
	locales   *i18n.Bundle
	renderers RendererFactory
	images    blocks.ImageLoader
	qr        qr.Generator
	metrics   Metrics
	logger    *slog.Logger
	decimals  int
	locale    string
}

// NewService constructs a printing service.
func NewService(deps Dependencies) *Service {
	s := &Service{
		docs:      deps.Documents,
		finder:    deps.Finder,
		formats:   deps.Formats,
		templates: deps.Templates,
		locales:   deps.Locales,
		renderers: deps.Renderers,
		images:    deps.Images,
		qr:        deps.QR,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		decimals:  deps.MoneyDecimals,
		locale:    deps.Locale,
	}
	if s.formats == nil {
		s.formats = format.NewResolver(nil, nil, deps.Logger)
	}
	if s.templates == nil {
		s.templates = templates.NewRegistry()
	}
	if s.qr == nil {
		s.qr = qr.NewPNG()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.decimals <= 0 {
		s.decimals = totals.DefaultPrecision
	}
	if s.locale == "" {
		s.locale = "en"
	}
	return s
}

// Output is one produced file.
type Output struct {
	Filename string
	Data     []byte
}

// Options tune a document render. Zero values keep the stored format.
type Options struct {
	Locale string `json:"locale" validate:"omitempty,max=64"`
	// FormatID replaces the format stored on the document.
	FormatID  int64  `json:"format_id" validate:"gte=0"`
	Template  string `json:"template" validate:"omitempty,max=32"`
	Title     string `json:"title" validate:"omitempty,max=200"`
	Landscape *bool  `json:"landscape"`
}

func (o Options) layer() format.Layer {
	l := format.Layer{}
	if o.Template != "" {
		l["template"] = o.Template
	}
	if o.Title != "" {
		l["title"] = o.Title
	}
	if o.Landscape != nil {
		l["orientation"] = "portrait"
		if *o.Landscape {
			l["orientation"] = "landscape"
		}
	}
	return l
}

// prepared is a document resolved and ready to stream.
type prepared struct {
	view *blocks.View
	tpl  templates.Template
	calc *totals.Calculator
}

// RenderDocument prints one stored document.
func (s *Service) RenderDocument(ctx context.Context, ref documents.Ref, opts Options) (Output, error) {
	return s.RenderBatch(ctx, []documents.Ref{ref}, opts)
}

// RenderBatch prints refs into one file. Every document is rendered with its
// own page setup and totals, then the parts are merged in order. The file
// name and password come from the first document.
func (s *Service) RenderBatch(ctx context.Context, refs []documents.Ref, opts Options) (out Output, err error) {
	if len(refs) == 0 {
		return Output{}, ErrNoDocuments
	}
	start := time.Now()
	kind, variant := string(refs[0].Kind), ""
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveRender(kind, variant, err, time.Since(start))
		}
	}()

	var first *prepared
	parts := make([][]byte, 0, len(refs))
	for i, ref := range refs {
		p, err := s.prepare(ctx, ref, opts)
		if err != nil {
			return Output{}, err
		}
		if i == 0 {
			first = p
			variant = p.tpl.Name()
		} else if s.metrics != nil {
			s.metrics.ObserveBreak(engine.ReasonDocument)
		}
		part, err := s.renderPart(ctx, ref, p, len(refs) > 1)
		if err != nil {
			return Output{}, err
		}
		parts = append(parts, part)
	}

	filename := Filename(first.view.Title(), first.view.Doc.DisplayCode(first.view.Config.PrimaryNumber2))
	data := parts[0]
	if len(parts) > 1 {
		filename = Filename(first.view.Title(), "batch")
		data, err = s.renderers.Merge(ctx, parts, first.view.Config.Password)
		if err != nil {
			return Output{}, fmt.Errorf("printing: merge: %w", err)
		}
	}
	s.logger.Info("document rendered",
		slog.String("kind", kind),
		slog.Int("documents", len(refs)),
		slog.String("template", variant),
		slog.Int("bytes", len(data)),
		slog.Duration("elapsed", time.Since(start)))
	return Output{Filename: filename, Data: data}, nil
}

// renderPart streams one document through its own renderer. Parts of a batch
// are left unencrypted so they can be merged.
func (s *Service) renderPart(ctx context.Context, ref documents.Ref, p *prepared, batched bool) ([]byte, error) {
	setup := s.documentSetup(p)
	if batched {
		setup.Password = ""
	}
	r, err := s.renderers.New(setup)
	if err != nil {
		return nil, fmt.Errorf("printing: %w", err)
	}
	session := s.session(r, p.calc)
	if err := session.Document(ctx, p.tpl, p.view); err != nil {
		return nil, fmt.Errorf("printing: %s %d: %w", ref.Kind, ref.ID, err)
	}
	data, err := session.Finalize(ctx, Filename(p.view.Title(), p.view.Doc.DisplayCode(p.view.Config.PrimaryNumber2)))
	if err != nil {
		return nil, fmt.Errorf("printing: %w", err)
	}
	return data, nil
}

func (s *Service) prepare(ctx context.Context, ref documents.Ref, opts Options) (*prepared, error) {
	doc, err := s.docs.Load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("printing: load %s %d: %w", ref.Kind, ref.ID, err)
	}
	lines, err := s.docs.Lines(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("printing: lines of %s %d: %w", ref.Kind, ref.ID, err)
	}
	receipts, err := s.docs.Receipts(ctx, doc)
	if err != nil {
		s.logger.Warn("receipts unavailable", slog.String("kind", string(ref.Kind)), slog.Int64("id", ref.ID), slog.Any("error", err))
		receipts = nil
	}

	formatID := doc.FormatID
	if opts.FormatID > 0 {
		formatID = opts.FormatID
	}
	cfg := s.formats.Resolve(ctx, formatID, opts.layer())
	locale := s.localeOf(opts.Locale)
	tr := s.translator(locale)
	lookups := masterdata.NewLookups(s.finder, s.logger)
	calc := totals.NewCalculator(s.decimals, lookups, tr)

	view := blocks.NewView(ctx, blocks.Input{
		Doc:        doc,
		Lines:      lines,
		Receipts:   receipts,
		Config:     cfg,
		Translator: tr,
		Numbers:    s.numbers(locale, cfg),
		Directory:  lookups,
		Calculator: calc,
		QR:         s.qrImage(doc, cfg),
		Images:     s.images,
	})
	return &prepared{view: view, tpl: s.templates.Lookup(cfg.Template), calc: calc}, nil
}

// documentSetup derives the page setup of a document render. The page header
// and footer live in the margins, so the margins grow by their bands.
func (s *Service) documentSetup(p *prepared) render.PageSetup {
	v := p.view
	setup := render.SetupFromConfig(v.Config)
	setup.Title = v.Title() + " " + v.Doc.DisplayCode(v.Config.PrimaryNumber2)
	setup.Styles = templates.CSS(p.tpl, v)
	setup.PageHeader = p.tpl.PageHeader(v)
	setup.PageFooter = p.tpl.PageFooter(v)
	if setup.PageHeader != "" {
		setup.MarginTop += headerBand(v.Config)
	}
	if setup.PageFooter != "" {
		setup.MarginBottom += footerBand
	}
	if overlay := blocks.QROverlay(v, setup.MarginSide, setup.MarginTop); overlay != "" {
		setup.Overlays = append(setup.Overlays, string(overlay))
	}
	return setup
}

const (
	// pxToMM converts CSS pixels at 96 dpi.
	pxToMM = 25.4 / 96
	// footerBand fits the thanks block and the footer text.
	footerBand = 18.0
)

// headerBand is the height reserved for the company header: the logo or four
// lines of company data, whichever is taller.
func headerBand(cfg format.Config) float64 {
	return max(float64(cfg.LogoSize)*pxToMM, 22) + 4
}

func (s *Service) session(r render.Renderer, calc *totals.Calculator) *engine.Session {
	opts := []engine.Option{engine.WithLogger(s.logger)}
	if calc != nil {
		opts = append(opts, engine.WithCalculator(calc))
	}
	if s.metrics != nil {
		opts = append(opts, engine.WithObserver(s.metrics))
	}
	return engine.NewSession(r, opts...)
}

func (s *Service) qrImage(doc documents.Document, cfg format.Config) string {
	if cfg.QR.Field == "" {
		return ""
	}
	value := doc.Field(cfg.QR.Field)
	if value == "" {
		return ""
	}
	uri, err := qr.DataURI(s.qr, value, qr.Style{
		Foreground: cfg.QR.Color,
		Background: cfg.QR.Background,
		Pixels:     qr.PixelsFor(cfg.QR.Size),
	})
	if err != nil {
		s.logger.Warn("qr code skipped", slog.String("field", cfg.QR.Field), slog.Any("error", err))
		return ""
	}
	return uri
}

func (s *Service) localeOf(requested string) string {
	if strings.TrimSpace(requested) != "" {
		return requested
	}
	return s.locale
}

func (s *Service) translator(locale string) i18n.Translator {
	if s.locales == nil {
		return i18n.MapTranslator{}
	}
	return s.locales.For(locale)
}

func (s *Service) numbers(locale string, cfg format.Config) *i18n.Formatter {
	tag := language.English
	if s.locales != nil {
		tag = s.locales.Match(locale)
	}
	return i18n.NewFormatter(tag, i18n.Currency{
		Symbol:      cfg.CurrencySymbol,
		SymbolFirst: cfg.CurrencySymbolFirst,
		Decimals:    s.decimals,
	}, 2)
}

var unsafeName = regexp.MustCompile(`[^\pL\pN._-]+`)

// Filename builds a file system safe PDF name from a title and a code.
func Filename(title, code string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{title, code} {
		p = strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(p), "_"), "_")
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "document.pdf"
	}
	return strings.Join(parts, "_") + ".pdf"
}
