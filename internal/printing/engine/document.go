package engine

import (
	"context"

	"github.com/odyssey-erp/docrender/internal/documents"
	"github.com/odyssey-erp/docrender/internal/printing/blocks"
	"github.com/odyssey-erp/docrender/internal/printing/columns"
	"github.com/odyssey-erp/docrender/internal/printing/format"
	"github.com/odyssey-erp/docrender/internal/printing/templates"
	"github.com/odyssey-erp/docrender/internal/printing/totals"
)

// Document streams one document composed with tpl. Called again after a
// document, it starts the next one on a new page.
func (s *Session) Document(ctx context.Context, tpl templates.Template, v *blocks.View) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	if err := s.append(ctx, tpl.Header(v)); err != nil {
		return err
	}
	if err := s.to(StateLinesStreaming); err != nil {
		return err
	}

	var batch []columns.Row
	seen := make([]documents.Line, 0, len(v.Lines))
	for i, line := range v.Lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch = append(batch, columns.Row{Number: i + 1, Line: line})
		seen = append(seen, line)
		if !line.PageBreak {
			continue
		}

		if err := s.flush(ctx, tpl, v, batch); err != nil {
			return err
		}
		covered := seen
		if v.Config.PartialTotals != format.PartialTotalsRunning {
			covered = rowLines(batch)
		}
		partial := blocks.Summarize(ctx, s.calculator(v), v.Doc, covered, true)
		if err := s.append(ctx, tpl.PartialTotals(v, partial)); err != nil {
			return err
		}
		batch = batch[:0]

		if err := s.to(StateForcedBreak); err != nil {
			return err
		}
		if err := s.forceBreak(ctx, ReasonManual); err != nil {
			return err
		}
		if err := s.to(StateLinesStreaming); err != nil {
			return err
		}
	}
	if err := s.flush(ctx, tpl, v, batch); err != nil {
		return err
	}

	if err := s.to(StateTotalsProbing); err != nil {
		return err
	}
	return s.probe(ctx, tpl.Footer(v, v.Summary))
}

func (s *Session) flush(ctx context.Context, tpl templates.Template, v *blocks.View, batch []columns.Row) error {
	return s.append(ctx, tpl.Lines(v, blocks.LinesTable(ctx, v, batch)))
}

func (s *Session) calculator(v *blocks.View) *totals.Calculator {
	if s.calc != nil {
		return s.calc
	}
	return totals.NewCalculator(totals.DefaultPrecision, nil, v.T)
}

func rowLines(rows []columns.Row) []documents.Line {
	out := make([]documents.Line, len(rows))
	for i, r := range rows {
		out[i] = r.Line
	}
	return out
}
