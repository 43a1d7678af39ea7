package printing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/docrender/internal/printing/blocks"
	"github.com/odyssey-erp/docrender/internal/printing/engine"
	"github.com/odyssey-erp/docrender/internal/printing/render"
)

// landscapeColumns is the column count above which lists print landscape.
const landscapeColumns = 5

// rightAligned columns default to right alignment.
var rightAligned = map[string]bool{
	"debit":            true,
	"credit":           true,
	"balance":          true,
	"previous_balance": true,
}

// TableColumn describes one list column.
type TableColumn struct {
	Key string `json:"key" validate:"required,max=64"`
	// Title defaults to the translated key.
	Title string `json:"title" validate:"omitempty,max=200"`
	Align string `json:"align" validate:"omitempty,oneof=left center right"`
}

// TableRequest is a generic list export. Rows map column keys to cells.
type TableRequest struct {
	Title    string              `json:"title" validate:"omitempty,max=200"`
	Columns  []TableColumn       `json:"columns" validate:"required,min=1,max=64,dive"`
	Rows     []map[string]string `json:"rows" validate:"max=100000"`
	Locale   string              `json:"locale" validate:"omitempty,max=64"`
	FormatID int64               `json:"format_id" validate:"gte=0"`
}

// ModelField is one label/value pair of a record page.
type ModelField struct {
	Label string `json:"label" validate:"required,max=200"`
	Value string `json:"value"`
}

// ModelRequest prints a single record.
type ModelRequest struct {
	Title    string       `json:"title" validate:"omitempty,max=200"`
	Fields   []ModelField `json:"fields" validate:"required,min=1,dive"`
	Locale   string       `json:"locale" validate:"omitempty,max=64"`
	FormatID int64        `json:"format_id" validate:"gte=0"`
}

// RenderTable prints a list. Lists wider than five columns print landscape.
func (s *Service) RenderTable(ctx context.Context, req TableRequest) (out Output, err error) {
	if len(req.Columns) == 0 {
		return Output{}, fmt.Errorf("%w: a list needs at least one column", ErrInvalidRequest)
	}
	start := time.Now()
	defer s.observe("list", start, &err)

	tr := s.translator(s.localeOf(req.Locale))
	table := engine.Table{
		Title:      req.Title,
		Titles:     make([]string, len(req.Columns)),
		Alignments: make([]string, len(req.Columns)),
		Rows:       make([][]string, len(req.Rows)),
	}
	for i, c := range req.Columns {
		table.Titles[i] = c.Title
		if table.Titles[i] == "" {
			table.Titles[i] = tr.T(c.Key)
		}
		table.Alignments[i] = c.Align
		if table.Alignments[i] == "" && rightAligned[strings.ToLower(c.Key)] {
			table.Alignments[i] = "right"
		}
	}
	for r, row := range req.Rows {
		cells := make([]string, len(req.Columns))
		for i, c := range req.Columns {
			cells[i] = row[c.Key]
		}
		table.Rows[r] = cells
	}

	setup := s.listSetup(ctx, req.FormatID, req.Title, len(req.Columns) > landscapeColumns)
	session, err := s.listSession(setup)
	if err != nil {
		return Output{}, err
	}
	if err := session.RenderTable(ctx, table); err != nil {
		return Output{}, fmt.Errorf("printing: list: %w", err)
	}
	return s.finalizeList(ctx, session, req.Title, "list", slog.Int("rows", len(req.Rows)))
}

// RenderModel prints one record as a two column key/value page.
func (s *Service) RenderModel(ctx context.Context, req ModelRequest) (out Output, err error) {
	if len(req.Fields) == 0 {
		return Output{}, fmt.Errorf("%w: a record needs at least one field", ErrInvalidRequest)
	}
	start := time.Now()
	defer s.observe("model", start, &err)

	tr := s.translator(s.localeOf(req.Locale))
	pairs := make([]blocks.Pair, len(req.Fields))
	for i, f := range req.Fields {
		pairs[i] = blocks.Pair{Label: tr.T(f.Label), Value: f.Value}
	}

	session, err := s.listSession(s.listSetup(ctx, req.FormatID, req.Title, false))
	if err != nil {
		return Output{}, err
	}
	if err := session.RenderModel(ctx, req.Title, pairs); err != nil {
		return Output{}, fmt.Errorf("printing: model: %w", err)
	}
	return s.finalizeList(ctx, session, req.Title, "record", slog.Int("fields", len(req.Fields)))
}

// listSetup takes paper, margins, colours and password from the format.
func (s *Service) listSetup(ctx context.Context, formatID int64, title string, landscape bool) render.PageSetup {
	cfg := s.formats.Resolve(ctx, formatID, nil).WithOrientation(landscape)
	setup := render.SetupFromConfig(cfg)
	setup.Title = title
	setup.Styles = string(blocks.ListCSS(cfg.Color1, cfg.Color2, cfg.Color3))
	return setup
}

func (s *Service) listSession(setup render.PageSetup) (*engine.Session, error) {
	r, err := s.renderers.New(setup)
	if err != nil {
		return nil, fmt.Errorf("printing: %w", err)
	}
	return s.session(r, nil), nil
}

func (s *Service) finalizeList(ctx context.Context, session *engine.Session, title, fallback string, size slog.Attr) (Output, error) {
	if strings.TrimSpace(title) == "" {
		title = fallback
	}
	filename := Filename(title, "")
	data, err := session.Finalize(ctx, filename)
	if err != nil {
		return Output{}, fmt.Errorf("printing: %w", err)
	}
	s.logger.Info("list rendered", slog.String("filename", filename), size, slog.Int("bytes", len(data)))
	return Output{Filename: filename, Data: data}, nil
}

func (s *Service) observe(kind string, start time.Time, err *error) {
	if s.metrics != nil {
		s.metrics.ObserveRender(kind, "list", *err, time.Since(start))
	}
}
