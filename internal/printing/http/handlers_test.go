package printhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/docrender/internal/documents"
	"github.com/odyssey-erp/docrender/internal/downloads"
	"github.com/odyssey-erp/docrender/internal/platform/httpx"
	"github.com/odyssey-erp/docrender/internal/printing"
	"github.com/odyssey-erp/docrender/jobs"
	"github.com/odyssey-erp/docrender/report"
)

type stubRenderer struct {
	err   error
	refs  []documents.Ref
	opts  printing.Options
	table printing.TableRequest
	model printing.ModelRequest
}

func (s *stubRenderer) output(name string) (printing.Output, error) {
	if s.err != nil {
		return printing.Output{}, s.err
	}
	return printing.Output{Filename: name, Data: []byte("%PDF-1.7 " + name)}, nil
}

func (s *stubRenderer) RenderDocument(_ context.Context, ref documents.Ref, opts printing.Options) (printing.Output, error) {
	s.refs, s.opts = []documents.Ref{ref}, opts
	return s.output("Invoice_INV-1.pdf")
}

func (s *stubRenderer) RenderBatch(_ context.Context, refs []documents.Ref, opts printing.Options) (printing.Output, error) {
	s.refs, s.opts = refs, opts
	return s.output("Invoice_batch.pdf")
}

func (s *stubRenderer) RenderTable(_ context.Context, req printing.TableRequest) (printing.Output, error) {
	s.table = req
	return s.output("Ledger.pdf")
}

func (s *stubRenderer) RenderModel(_ context.Context, req printing.ModelRequest) (printing.Output, error) {
	s.model = req
	return s.output("Customer.pdf")
}

type stubQueue struct {
	payloads []jobs.BatchExportPayload
	err      error
}

func (q *stubQueue) EnqueueBatchExport(_ context.Context, payload jobs.BatchExportPayload) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.payloads = append(q.payloads, payload)
	return &asynq.TaskInfo{ID: payload.ID, Queue: jobs.QueueDefault}, nil
}

type harness struct {
	router   chi.Router
	renderer *stubRenderer
	queue    *stubQueue
	exports  *jobs.Exports
}

func newHarness(t *testing.T, rate int) *harness {
	t.Helper()
	exports, err := jobs.NewExports(t.TempDir())
	require.NoError(t, err)
	h := &harness{renderer: &stubRenderer{}, queue: &stubQueue{}, exports: exports}
	handler := NewHandler(Config{
		Renderer:      h.renderer,
		Queue:         h.queue,
		Exports:       exports,
		Signer:        downloads.NewSigner("test-secret", time.Hour),
		Timeout:       time.Second,
		RatePerMinute: rate,
	})
	h.router = chi.NewRouter()
	handler.MountRoutes(h.router)
	return h
}

func (h *harness) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func problem(t *testing.T, rr *httptest.ResponseRecorder) httpx.ProblemDetail {
	t.Helper()
	var p httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p), rr.Body.String())
	return p
}

func TestDocumentPDF(t *testing.T) {
	h := newHarness(t, 0)

	rr := h.do(http.MethodGet, "/documents/Sales_Invoice/10/pdf?locale=es_ES&format_id=4&landscape=true&template=banner", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename=Invoice_INV-1.pdf`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.7 Invoice_INV-1.pdf", rr.Body.String())

	assert.Equal(t, []documents.Ref{{Kind: documents.KindSalesInvoice, ID: 10}}, h.renderer.refs)
	assert.Equal(t, "es_ES", h.renderer.opts.Locale)
	assert.Equal(t, int64(4), h.renderer.opts.FormatID)
	assert.Equal(t, "banner", h.renderer.opts.Template)
	require.NotNil(t, h.renderer.opts.Landscape)
	assert.True(t, *h.renderer.opts.Landscape)
}

func TestDocumentPDFAcceptLanguage(t *testing.T) {
	h := newHarness(t, 0)
	req := httptest.NewRequest(http.MethodGet, "/documents/sales_order/3/pdf?download=1", nil)
	req.Header.Set("Accept-Language", "es-ES,es;q=0.9")
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Disposition"), "attachment"))
	assert.Equal(t, "es-ES", h.renderer.opts.Locale)
}

func TestDocumentPDFAcceptLanguagePicksHighestWeight(t *testing.T) {
	cases := map[string]string{
		"fr-CH, fr;q=0.9, en;q=0.8, de;q=0.7, it;q=0.6, pt-BR;q=0.5, *;q=0.1": "fr-CH",
		"en;q=0.4, de-AT":   "de-AT",
		"not a language!!!": "",
	}
	for header, want := range cases {
		h := newHarness(t, 0)
		req := httptest.NewRequest(http.MethodGet, "/documents/sales_order/3/pdf", nil)
		req.Header.Set("Accept-Language", header)
		rr := httptest.NewRecorder()
		h.router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code, header)
		assert.Equal(t, want, h.renderer.opts.Locale, header)
	}
}

func TestDocumentPDFLocaleQueryWins(t *testing.T) {
	h := newHarness(t, 0)
	req := httptest.NewRequest(http.MethodGet, "/documents/sales_order/3/pdf?locale=ca_ES", nil)
	req.Header.Set("Accept-Language", "es-ES")
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ca_ES", h.renderer.opts.Locale)
}

func TestDocumentPDFRejectsBadInput(t *testing.T) {
	h := newHarness(t, 0)

	rr := h.do(http.MethodGet, "/documents/receipt/10/pdf", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = h.do(http.MethodGet, "/documents/sales_invoice/abc/pdf", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = h.do(http.MethodGet, "/documents/sales_invoice/1/pdf?landscape=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, h.renderer.refs)
}

func TestRenderErrorsMapToProblems(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("printing: load: %w", documents.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("engine: probe: %w", report.ErrTimeout), http.StatusGatewayTimeout},
		{fmt.Errorf("engine: finalize: %w", report.ErrTooSmall), http.StatusBadGateway},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := newHarness(t, 0)
		h.renderer.err = tc.err
		rr := h.do(http.MethodGet, "/documents/sales_invoice/1/pdf", "")
		assert.Equal(t, tc.status, rr.Code, tc.err.Error())
		assert.Equal(t, tc.status, problem(t, rr).Status)
	}
}

func TestBatchPDF(t *testing.T) {
	h := newHarness(t, 0)

	rr := h.do(http.MethodPost, "/documents/batch",
		`{"documents":[{"kind":"sales_invoice","id":1},{"kind":"DELIVERY_NOTE","id":2}],"options":{"locale":"en_US"}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Equal(t, `attachment; filename=Invoice_batch.pdf`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, []documents.Ref{
		{Kind: documents.KindSalesInvoice, ID: 1},
		{Kind: documents.KindDeliveryNote, ID: 2},
	}, h.renderer.refs)
}

func TestBatchPDFValidation(t *testing.T) {
	h := newHarness(t, 0)

	for _, body := range []string{
		`{"documents":[]}`,
		`{"documents":[{"kind":"sales_invoice","id":0}]}`,
		`{"documents":[{"kind":"ticket","id":1}]}`,
		`not json`,
	} {
		rr := h.do(http.MethodPost, "/documents/batch", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
	assert.Nil(t, h.renderer.refs)
}

func TestExportLifecycle(t *testing.T) {
	h := newHarness(t, 0)

	rr := h.do(http.MethodPost, "/exports", `{"documents":[{"kind":"sales_invoice","id":1}]}`)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	var resp exportResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, h.queue.payloads, 1)
	assert.Equal(t, resp.ID, h.queue.payloads[0].ID)
	assert.Equal(t, "/exports/"+resp.Token, resp.DownloadURL)
	assert.Equal(t, "/jobs/exports/"+resp.ID, resp.StatusURL)

	rr = h.do(http.MethodGet, resp.DownloadURL, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "5", rr.Header().Get("Retry-After"))

	require.NoError(t, h.exports.Write(resp.ID, []byte("%PDF-1.7 export")))
	rr = h.do(http.MethodGet, resp.DownloadURL, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "%PDF-1.7 export", rr.Body.String())
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
}

func TestExportDownloadRejectsBadToken(t *testing.T) {
	h := newHarness(t, 0)
	rr := h.do(http.MethodGet, "/exports/not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestExportRoutesNeedQueue(t *testing.T) {
	handler := NewHandler(Config{Renderer: &stubRenderer{}})
	r := chi.NewRouter()
	handler.MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/exports", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTablePDF(t *testing.T) {
	h := newHarness(t, 0)

	rr := h.do(http.MethodPost, "/tables/pdf",
		`{"title":"Ledger","columns":[{"key":"date"},{"key":"debit","title":"Debit"}],"rows":[{"date":"2026-03-14","debit":"10"}]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Ledger", h.renderer.table.Title)
	assert.Equal(t, "10", h.renderer.table.Rows[0]["debit"])

	rr = h.do(http.MethodPost, "/tables/pdf", `{"columns":[{"key":"a","align":"justify"}]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, problem(t, rr).Detail, "Align")
}

func TestModelPDF(t *testing.T) {
	h := newHarness(t, 0)

	rr := h.do(http.MethodPost, "/models/pdf", `{"title":"Customer","fields":[{"label":"name","value":"Jane"}]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Jane", h.renderer.model.Fields[0].Value)

	rr = h.do(http.MethodPost, "/models/pdf", `{"title":"Customer","fields":[]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRenderRateLimit(t *testing.T) {
	h := newHarness(t, 1)

	rr := h.do(http.MethodGet, "/documents/sales_invoice/1/pdf", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = h.do(http.MethodGet, "/documents/sales_invoice/1/pdf", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}
