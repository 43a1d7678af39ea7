package jobs

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/docrender/internal/platform/httpx"
)

// Inspector is the read side of the queue. *asynq.Inspector implements it.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector Inspector
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints. A nil inspector
// reports an empty queue.
func NewHandler(inspector Inspector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Get("/exports/{id}", h.exportStatus)
}

type queueHealth struct {
	Queue   string `json:"queue"`
	Pending int    `json:"pending"`
	Active  int    `json:"active"`
	Retry   int    `json:"retry"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	out := queueHealth{Queue: QueueDefault}
	if h.inspector != nil {
		info, err := h.inspector.GetQueueInfo(QueueDefault)
		if err != nil {
			h.logger.Warn("jobs health", slog.Any("error", err))
			httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "the job queue cannot be inspected")
			return
		}
		if info != nil {
			out = queueHealth{Queue: info.Queue, Pending: info.Pending, Active: info.Active, Retry: info.Retry}
		}
	}
	httpx.JSON(w, http.StatusOK, out)
}

type exportStatus struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	Retried   int    `json:"retried"`
	LastError string `json:"last_error,omitempty"`
}

// exportStatus reports where a batch export task is. Export ids double as task
// ids.
func (h *Handler) exportStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.inspector == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "export queue is not configured")
		return
	}
	info, err := h.inspector.GetTaskInfo(QueueDefault, id)
	switch {
	case errors.Is(err, asynq.ErrTaskNotFound), errors.Is(err, asynq.ErrQueueNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown export")
		return
	case err != nil:
		h.logger.Warn("export status", slog.String("export_id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "the job queue cannot be inspected")
		return
	}
	httpx.JSON(w, http.StatusOK, exportStatus{
		ID:        info.ID,
		State:     info.State.String(),
		Retried:   info.Retried,
		LastError: info.LastErr,
	})
}
