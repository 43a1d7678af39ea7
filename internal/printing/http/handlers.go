package printhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/docrender/internal/documents"
	"github.com/odyssey-erp/docrender/internal/downloads"
	"github.com/odyssey-erp/docrender/internal/platform/httpx"
	"github.com/odyssey-erp/docrender/internal/printing"
	"github.com/odyssey-erp/docrender/internal/printing/render"
	"github.com/odyssey-erp/docrender/jobs"
	"github.com/odyssey-erp/docrender/report"
)

const (
	defaultTimeout = 60 * time.Second
	maxBatch       = 500
	maxBody        = 32 << 20
)

// Renderer is the printing contract used by the handler.
type Renderer interface {
	RenderDocument(ctx context.Context, ref documents.Ref, opts printing.Options) (printing.Output, error)
	RenderBatch(ctx context.Context, refs []documents.Ref, opts printing.Options) (printing.Output, error)
	RenderTable(ctx context.Context, req printing.TableRequest) (printing.Output, error)
	RenderModel(ctx context.Context, req printing.ModelRequest) (printing.Output, error)
}

// ExportQueue schedules asynchronous batch exports.
type ExportQueue interface {
	EnqueueBatchExport(ctx context.Context, payload jobs.BatchExportPayload) (*asynq.TaskInfo, error)
}

// ExportStore hands out export ids and finished files.
type ExportStore interface {
	NewID() string
	Open(id string) (*os.File, error)
}

// Config collects the handler dependencies. Queue, Exports and Signer are
// optional together: without them the export routes are not mounted.
type Config struct {
	Renderer      Renderer
	Queue         ExportQueue
	Exports       ExportStore
	Signer        *downloads.Signer
	Logger        *slog.Logger
	Timeout       time.Duration
	RatePerMinute int
}

// Handler serves the PDF endpoints.
type Handler struct {
	renderer Renderer
	queue    ExportQueue
	exports  ExportStore
	signer   *downloads.Signer
	logger   *slog.Logger
	validate *validator.Validate
	timeout  time.Duration
	rate     int
	now      func() time.Time
}

// NewHandler constructs the printing HTTP handler.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		renderer: cfg.Renderer,
		queue:    cfg.Queue,
		exports:  cfg.Exports,
		signer:   cfg.Signer,
		logger:   cfg.Logger,
		validate: validator.New(),
		timeout:  cfg.Timeout,
		rate:     cfg.RatePerMinute,
		now:      time.Now,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.timeout <= 0 {
		h.timeout = defaultTimeout
	}
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

func (h *Handler) exportsEnabled() bool {
	return h.queue != nil && h.exports != nil && h.signer != nil
}

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	kind, ok := documents.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown document kind")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a positive integer")
		return
	}
	opts, err := optionsFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if !h.valid(w, opts) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	out, err := h.renderer.RenderDocument(ctx, documents.Ref{Kind: kind, ID: id}, opts)
	if err != nil {
		h.respondError(w, "render document", err)
		return
	}
	h.writePDF(w, out, r.URL.Query().Get("download") == "1")
}

type batchRequest struct {
	Refs    []documents.Ref  `json:"documents" validate:"required,min=1,dive"`
	Options printing.Options `json:"options"`
}

func (h *Handler) decodeBatch(w http.ResponseWriter, r *http.Request) (batchRequest, bool) {
	var req batchRequest
	if !h.decode(w, r, &req) {
		return req, false
	}
	if len(req.Refs) > maxBatch {
		httpx.Problem(w, http.StatusRequestEntityTooLarge, "Batch Too Large", fmt.Sprintf("at most %d documents per batch", maxBatch))
		return req, false
	}
	for i, ref := range req.Refs {
		kind, ok := documents.ParseKind(string(ref.Kind))
		if !ok {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fmt.Sprintf("documents[%d]: unknown kind %q", i, ref.Kind))
			return req, false
		}
		req.Refs[i].Kind = kind
	}
	return req, true
}

func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBatch(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	out, err := h.renderer.RenderBatch(ctx, req.Refs, req.Options)
	if err != nil {
		h.respondError(w, "render batch", err)
		return
	}
	h.writePDF(w, out, true)
}

type exportResponse struct {
	ID          string    `json:"id"`
	Token       string    `json:"token"`
	DownloadURL string    `json:"download_url"`
	StatusURL   string    `json:"status_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBatch(w, r)
	if !ok {
		return
	}
	id := h.exports.NewID()
	token, expires, err := h.signer.Issue(id)
	if err != nil {
		h.respondError(w, "sign export", err)
		return
	}
	_, err = h.queue.EnqueueBatchExport(r.Context(), jobs.BatchExportPayload{
		ID:          id,
		Refs:        req.Refs,
		Options:     req.Options,
		RequestedAt: h.now().UTC(),
	})
	if err != nil {
		h.respondError(w, "enqueue export", err)
		return
	}
	h.logger.Info("batch export queued", slog.String("export_id", id), slog.Int("documents", len(req.Refs)))
	httpx.JSON(w, http.StatusAccepted, exportResponse{
		ID:          id,
		Token:       token,
		DownloadURL: "/exports/" + token,
		StatusURL:   "/jobs/exports/" + id,
		ExpiresAt:   expires.UTC(),
	})
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, err := h.signer.Verify(chi.URLParam(r, "token"))
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "download link is invalid or expired")
		return
	}
	f, err := h.exports.Open(id)
	switch {
	case errors.Is(err, jobs.ErrExportNotReady):
		w.Header().Set("Retry-After", "5")
		httpx.Problem(w, http.StatusNotFound, "Not Ready", "the export is still being rendered")
		return
	case err != nil:
		h.respondError(w, "open export", err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		h.respondError(w, "stat export", err)
		return
	}
	name := "export-" + id + ".pdf"
	w.Header().Set("Content-Type", printing.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (h *Handler) handleTable(w http.ResponseWriter, r *http.Request) {
	var req printing.TableRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	out, err := h.renderer.RenderTable(ctx, req)
	if err != nil {
		h.respondError(w, "render table", err)
		return
	}
	h.writePDF(w, out, true)
}

func (h *Handler) handleModel(w http.ResponseWriter, r *http.Request) {
	var req printing.ModelRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	out, err := h.renderer.RenderModel(ctx, req)
	if err != nil {
		h.respondError(w, "render model", err)
		return
	}
	h.writePDF(w, out, true)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	err := httpx.DecodeJSON(w, r, target, maxBody)
	switch {
	case errors.Is(err, httpx.ErrBodyTooLarge):
		httpx.Problem(w, http.StatusRequestEntityTooLarge, "Body Too Large", "request body exceeds the size limit")
		return false
	case err != nil:
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be a single JSON object")
		return false
	}
	return h.valid(w, target)
}

func (h *Handler) valid(w http.ResponseWriter, target any) bool {
	err := h.validate.Struct(target)
	if err == nil {
		return true
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Namespace()+" fails "+fe.Tag())
	}
	httpx.Problem(w, http.StatusBadRequest, "Validation Failed", strings.Join(msgs, "; "))
	return false
}

func (h *Handler) writePDF(w http.ResponseWriter, out printing.Output, attachment bool) {
	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", printing.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": out.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	if _, err := w.Write(out.Data); err != nil {
		h.logger.Warn("stream pdf", slog.Any("error", err))
	}
}

var errorMappings = []httpx.Mapping{
	{Targets: []error{documents.ErrNotFound}, Status: http.StatusNotFound, Title: "Not Found", Detail: "document not found"},
	{Targets: []error{printing.ErrNoDocuments, printing.ErrInvalidRequest}, Status: http.StatusBadRequest, Title: "Validation Failed"},
	{
		Targets: []error{context.DeadlineExceeded, report.ErrTimeout},
		Status:  http.StatusGatewayTimeout,
		Title:   "Render Timeout",
		Detail:  "the renderer did not answer in time",
	},
	{
		Targets: []error{render.ErrRendererInit, report.ErrInvalidResponse, report.ErrTooSmall},
		Status:  http.StatusBadGateway,
		Title:   "Renderer Unavailable",
		Detail:  "the PDF backend failed",
	},
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch status := httpx.RespondError(w, err, errorMappings); {
	case status == http.StatusGatewayTimeout:
		h.logger.Warn(op+" timed out", slog.Any("error", err))
	case status >= http.StatusInternalServerError:
		h.logger.Error(op+" failed", slog.Any("error", err))
	}
}

// optionsFromQuery reads ?locale=&format_id=&template=&title=&landscape=.
func optionsFromQuery(r *http.Request) (printing.Options, error) {
	q := r.URL.Query()
	opts := printing.Options{
		Locale:   firstNonEmpty(q.Get("locale"), preferredLocale(r.Header.Get("Accept-Language"))),
		Template: q.Get("template"),
		Title:    q.Get("title"),
	}
	if raw := q.Get("format_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			return opts, fmt.Errorf("format_id must be a non-negative integer")
		}
		opts.FormatID = id
	}
	if raw := q.Get("landscape"); raw != "" {
		landscape, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, fmt.Errorf("landscape must be a boolean")
		}
		opts.Landscape = &landscape
	}
	return opts, nil
}

// preferredLocale is the highest weighted tag of an Accept-Language header,
// or "" when the header is empty or malformed.
func preferredLocale(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return ""
	}
	for _, tag := range tags {
		if tag != language.Und {
			return tag.String()
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
