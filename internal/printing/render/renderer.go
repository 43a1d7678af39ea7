// Package render adapts an HTML to PDF backend to the incremental renderer
// contract used by the pagination engine.
package render

import (
	"context"
	"errors"

	"github.com/odyssey-erp/docrender/internal/printing/format"
	"github.com/odyssey-erp/docrender/report"
)

var (
	// ErrFinalized is returned when a renderer is used after Finalize.
	ErrFinalized = errors.New("render: renderer already finalized")
	// ErrRendererInit is returned when a renderer cannot be created.
	ErrRendererInit = errors.New("render: renderer init failed")
)

// Renderer accumulates markup and reports how many pages it currently spans.
// SpeculativeCopy returns an isolated duplicate: appending to the copy never
// changes the original.
type Renderer interface {
	AppendMarkup(ctx context.Context, html string) error
	PageCount(ctx context.Context) (int, error)
	SpeculativeCopy() Renderer
	ForcePageBreak(ctx context.Context) error
	Finalize(ctx context.Context, filename string) ([]byte, error)
}

// PageBreak is the markup emitted for a forced break.
const PageBreak = `<div class="page-break"></div>`

// Converter turns a page into PDF bytes.
type Converter interface {
	Convert(ctx context.Context, page report.Page) ([]byte, error)
}

// Merger joins PDFs in order.
type Merger interface {
	Merge(ctx context.Context, files [][]byte, password string) ([]byte, error)
}

// PageSetup is fixed for the lifetime of a renderer. Styles, PageHeader,
// PageFooter and Overlays are markup produced by the block templates.
type PageSetup struct {
	Title string
	// Styles holds the <style> elements of the document head.
	Styles string
	// PageHeader and PageFooter repeat on every page.
	PageHeader string
	PageFooter string
	// Overlays are fixed-position fragments repeated on every page.
	Overlays []string

	Paper     format.PaperSize
	Landscape bool
	// Margins in millimetres.
	MarginTop    float64
	MarginBottom float64
	MarginSide   float64

	Password string
}

// SetupFromConfig derives the page setup of a format.
func SetupFromConfig(cfg format.Config) PageSetup {
	return PageSetup{
		Title:        cfg.Title,
		Paper:        cfg.Paper,
		Landscape:    cfg.Landscape,
		MarginTop:    cfg.TopMargin,
		MarginBottom: cfg.BottomMargin,
		MarginSide:   10,
		Password:     cfg.Password,
	}
}
