package engine

import (
	"context"

	"github.com/odyssey-erp/docrender/internal/printing/blocks"
)

// Table is a generic list: one header row and string cells.
type Table struct {
	Title      string
	Titles     []string
	Alignments []string
	Rows       [][]string
}

// RenderTable appends t in chunks of TableChunk rows. An empty table still
// prints its header row.
func (s *Session) RenderTable(ctx context.Context, t Table) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	if err := s.append(ctx, string(blocks.Title(t.Title))); err != nil {
		return err
	}
	if err := s.to(StateLinesStreaming); err != nil {
		return err
	}
	if len(t.Rows) == 0 {
		if err := s.append(ctx, string(blocks.ListTable(t.Titles, t.Alignments, nil))); err != nil {
			return err
		}
	}
	for start := 0; start < len(t.Rows); start += TableChunk {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+TableChunk, len(t.Rows))
		if err := s.append(ctx, string(blocks.ListTable(t.Titles, t.Alignments, t.Rows[start:end]))); err != nil {
			return err
		}
	}
	return s.to(StateTotalsProbing)
}

// RenderModel appends one record as a two column key/value table.
func (s *Session) RenderModel(ctx context.Context, heading string, pairs []blocks.Pair) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	if err := s.append(ctx, string(blocks.Title(heading))); err != nil {
		return err
	}
	if err := s.to(StateLinesStreaming); err != nil {
		return err
	}
	if err := s.append(ctx, string(blocks.DualColumnTable(pairs))); err != nil {
		return err
	}
	return s.to(StateTotalsProbing)
}
