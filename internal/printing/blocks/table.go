package blocks

import (
	"html/template"
)

type listCell struct {
	Align string
	Text  string
}

type listTable struct {
	Head []listCell
	Rows [][]listCell
}

// ListTable prints a generic list. A missing alignment leaves the cell
// unaligned.
func ListTable(titles, alignments []string, rows [][]string) template.HTML {
	align := func(i int) string {
		if i < len(alignments) {
			return alignments[i]
		}
		return ""
	}
	t := listTable{Head: make([]listCell, len(titles)), Rows: make([][]listCell, len(rows))}
	for i, title := range titles {
		t.Head[i] = listCell{Align: align(i), Text: title}
	}
	for r, row := range rows {
		cells := make([]listCell, len(row))
		for i, value := range row {
			cells[i] = listCell{Align: align(i), Text: value}
		}
		t.Rows[r] = cells
	}
	return execute("list-table", t)
}

// DualColumnTable prints pairs two per row.
func DualColumnTable(pairs []Pair) template.HTML {
	var rows [][]Pair
	for start := 0; start < len(pairs); start += 2 {
		rows = append(rows, pairs[start:min(start+2, len(pairs))])
	}
	return execute("dual-table", rows)
}

// ListCSS styles the generic list and model pages.
func ListCSS(color1, color2, color3 string) template.HTML {
	return execute("list-css", struct{ Color1, Color2, Color3 string }{color1, color2, color3})
}
