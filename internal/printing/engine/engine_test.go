package engine_test

import (
	"context"
	"errors"
	"html/template"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/docrender/internal/documents"
	"github.com/odyssey-erp/docrender/internal/printing/blocks"
	"github.com/odyssey-erp/docrender/internal/printing/blocks/blockstest"
	"github.com/odyssey-erp/docrender/internal/printing/engine"
	"github.com/odyssey-erp/docrender/internal/printing/format"
	"github.com/odyssey-erp/docrender/internal/printing/render"
	"github.com/odyssey-erp/docrender/internal/printing/render/rendertest"
	"github.com/odyssey-erp/docrender/internal/printing/templates"
)

// compactTemplate keeps markup small and predictable: the header takes no
// row slot and the footer takes three.
type compactTemplate struct{ templates.Classic }

func (compactTemplate) Header(*blocks.View) string { return "<p>header</p>" }

func (compactTemplate) Lines(_ *blocks.View, table template.HTML) string { return string(table) }

func (compactTemplate) PartialTotals(_ *blocks.View, s blocks.Summary) string {
	return "<p>partial " + s.Totals.Net.String() + "</p>"
}

func (compactTemplate) Footer(_ *blocks.View, s blocks.Summary) string {
	return "<table><tr><td>footer</td></tr><tr><td>" + s.Totals.Total.String() + "</td></tr><tr><td>end</td></tr></table>"
}

type breaks []string

func (b *breaks) ObserveBreak(reason string) { *b = append(*b, reason) }

func lines(totals ...string) []documents.Line {
	out := make([]documents.Line, len(totals))
	for i, t := range totals {
		out[i] = blockstest.Line(int64(i+1), t)
	}
	return out
}

func repeat(n int, total string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = total
	}
	return out
}

func view(ls []documents.Line, cfg format.Config) *blocks.View {
	return blockstest.View(blockstest.Invoice(), ls, nil, cfg)
}

func TestDocumentTotalsFitWithoutBreak(t *testing.T) {
	r := rendertest.New(0)
	s := engine.NewSession(r)

	v := view(lines("100"), blockstest.Config())
	require.NoError(t, s.Document(context.Background(), templates.Classic{}, v))

	assert.Zero(t, r.Breaks)
	assert.Contains(t, r.Markup(), "$&nbsp;121.00")
	assert.Equal(t, engine.StateTotalsProbing, s.State())
}

func TestDocumentBreaksBeforeOverflowingTotals(t *testing.T) {
	ctx := context.Background()

	// Five lines use six slots with the header row: the footer still fits.
	r := rendertest.New(10)
	var seen breaks
	s := engine.NewSession(r, engine.WithObserver(&seen))
	require.NoError(t, s.Document(ctx, compactTemplate{}, view(lines(repeat(5, "10")...), blockstest.Config())))
	assert.Zero(t, r.Breaks)
	assert.Empty(t, seen)

	// Eight lines use nine slots: the footer would spill onto a new page.
	r = rendertest.New(10)
	seen = nil
	s = engine.NewSession(r, engine.WithObserver(&seen))
	require.NoError(t, s.Document(ctx, compactTemplate{}, view(lines(repeat(8, "10")...), blockstest.Config())))

	require.Equal(t, 1, r.Breaks)
	assert.Equal(t, breaks{engine.ReasonOverflow}, seen)
	n := len(r.Chunks)
	assert.Equal(t, render.PageBreak, r.Chunks[n-2])
	assert.Contains(t, r.Chunks[n-1], "footer")
	assert.Contains(t, r.Chunks[n-1], "96.8", "footer carries the full document total")
}

func TestDocumentManualBreakPrintsPartialTotals(t *testing.T) {
	ls := lines("100", "200", "300")
	ls[0].PageBreak = true
	ls[1].PageBreak = true

	cases := []struct {
		policy format.PartialTotals
		want   []string
	}{
		{format.PartialTotalsPage, []string{"partial 100", "partial 200"}},
		{format.PartialTotalsRunning, []string{"partial 100", "partial 300"}},
	}
	for _, tc := range cases {
		t.Run(string(tc.policy), func(t *testing.T) {
			cfg := blockstest.Config()
			cfg.PartialTotals = tc.policy
			r := rendertest.New(0)
			var seen breaks
			s := engine.NewSession(r, engine.WithObserver(&seen))

			require.NoError(t, s.Document(context.Background(), compactTemplate{}, view(ls, cfg)))

			assert.Equal(t, breaks{engine.ReasonManual, engine.ReasonManual}, seen)
			idx := r.BreakIndexes()
			require.Len(t, idx, 2)
			for i, at := range idx {
				assert.Contains(t, r.Chunks[at-1], tc.want[i], "partial totals right before the break")
				assert.Equal(t, 2, strings.Count(r.Chunks[at-2], "<tr"), "one line plus the header row")
			}
			assert.Contains(t, r.Chunks[len(r.Chunks)-1], "726", "footer covers the whole document")
		})
	}
}

func TestDocumentBreakOnLastLineLeavesHeaderOnlyTable(t *testing.T) {
	ls := lines("100")
	ls[0].PageBreak = true
	r := rendertest.New(0)

	require.NoError(t, engine.NewSession(r).Document(context.Background(), compactTemplate{}, view(ls, blockstest.Config())))

	last := r.BreakIndexes()[0]
	assert.Equal(t, 1, strings.Count(r.Chunks[last+1], "<tr"))
}

func TestDocumentWithoutLines(t *testing.T) {
	r := rendertest.New(0)
	require.NoError(t, engine.NewSession(r).Document(context.Background(), templates.Classic{}, view(nil, blockstest.Config())))
	assert.Contains(t, r.Markup(), `<table class="table-big table-list"><thead>`)
	assert.Zero(t, r.Breaks)
}

func TestBatchBreaksBetweenDocuments(t *testing.T) {
	ctx := context.Background()
	r := rendertest.New(0)
	var seen breaks
	s := engine.NewSession(r, engine.WithObserver(&seen))

	require.NoError(t, s.Document(ctx, compactTemplate{}, view(lines("1"), blockstest.Config())))
	require.NoError(t, s.Document(ctx, compactTemplate{}, view(lines("2"), blockstest.Config())))

	assert.Equal(t, breaks{engine.ReasonDocument}, seen)
	assert.Equal(t, 2, strings.Count(r.Markup(), "<p>header</p>"))

	out, err := s.Finalize(ctx, "batch.pdf")
	require.NoError(t, err)
	assert.True(t, r.Finalized)
	assert.NotEmpty(t, out)
}

func TestRenderTableWithoutRows(t *testing.T) {
	r := rendertest.New(0)
	s := engine.NewSession(r)

	require.NoError(t, s.RenderTable(context.Background(), engine.Table{Titles: []string{"code", "name"}}))

	require.Len(t, r.Chunks, 1)
	assert.Contains(t, r.Chunks[0], "<th>code</th><th>name</th>")
	assert.NotContains(t, r.Chunks[0], "<td")
}

func TestRenderTableChunksRows(t *testing.T) {
	rows := make([][]string, 1200)
	for i := range rows {
		rows[i] = []string{strconv.Itoa(i), "row"}
	}
	r := rendertest.New(0)
	s := engine.NewSession(r)

	require.NoError(t, s.RenderTable(context.Background(), engine.Table{Title: "Accounts", Titles: []string{"n", "name"}, Rows: rows}))

	require.Len(t, r.Chunks, 4)
	assert.Equal(t, `<h1 class="title">Accounts</h1>`, r.Chunks[0])
	for i, want := range []int{500, 500, 200} {
		assert.Equal(t, want, strings.Count(r.Chunks[i+1], "<td>")/2, "chunk %d", i)
	}
	assert.Contains(t, r.Chunks[3], "<td>1199</td>")
}

func TestRenderModel(t *testing.T) {
	r := rendertest.New(0)
	s := engine.NewSession(r)

	require.NoError(t, s.RenderModel(context.Background(), "Customer", []blocks.Pair{{Label: "code", Value: "C001"}, {Label: "name", Value: "Jane"}}))

	assert.Contains(t, r.Markup(), "<b>code</b>: C001")
	assert.Contains(t, r.Markup(), `class="table-big table-dual"`)
}

func TestInvalidTransitions(t *testing.T) {
	ctx := context.Background()

	_, err := engine.NewSession(rendertest.New(0)).Finalize(ctx, "x.pdf")
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)

	s := engine.NewSession(rendertest.New(0))
	require.NoError(t, s.RenderTable(ctx, engine.Table{}))
	_, err = s.Finalize(ctx, "x.pdf")
	require.NoError(t, err)
	assert.Equal(t, engine.StateFinalized, s.State())

	err = s.Document(ctx, templates.Classic{}, view(nil, blockstest.Config()))
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)
	_, err = s.Finalize(ctx, "x.pdf")
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)
}

func TestAppendFailureAborts(t *testing.T) {
	boom := errors.New("boom")
	r := rendertest.New(0)
	r.Err = boom

	err := engine.NewSession(r).Document(context.Background(), templates.Classic{}, view(lines("1"), blockstest.Config()))
	assert.ErrorIs(t, err, boom)
}

func TestCancelledContextStopsStreaming(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := engine.NewSession(rendertest.New(0)).Document(ctx, compactTemplate{}, view(lines("1", "2"), blockstest.Config()))
	assert.ErrorIs(t, err, context.Canceled)
}
