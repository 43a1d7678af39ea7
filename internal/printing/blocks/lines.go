package blocks

import (
	"context"
	"html/template"

	"github.com/odyssey-erp/docrender/internal/printing/columns"
)

type cell struct {
	Align string
	Value template.HTML
}

type linesTable struct {
	Columns []columns.Spec
	Rows    [][]cell
}

// LinesHead prints the header row of the lines table.
func LinesHead(v *View) template.HTML {
	return execute("lines-head", v.Columns)
}

// LineRow prints one body row.
func LineRow(ctx context.Context, v *View, row columns.Row) template.HTML {
	return execute("line-row", lineCells(ctx, v, row))
}

// LinesTable prints rows under the column header. With no rows it is a
// header-only table.
func LinesTable(ctx context.Context, v *View, rows []columns.Row) template.HTML {
	t := linesTable{Columns: v.Columns, Rows: make([][]cell, 0, len(rows))}
	for _, r := range rows {
		t.Rows = append(t.Rows, lineCells(ctx, v, r))
	}
	return execute("lines-table", t)
}

// lineCells formats the values of row. The column formatter escapes text
// values itself.
func lineCells(ctx context.Context, v *View, row columns.Row) []cell {
	out := make([]cell, len(v.Columns))
	for i, c := range v.Columns {
		out[i] = cell{Align: c.Alignment, Value: v.Values.Value(ctx, row, c)}
	}
	return out
}
