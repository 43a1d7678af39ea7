// Package printhttp exposes the printing service over HTTP.
package printhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/docrender/internal/platform/httpx"
)

// MountRoutes registers the PDF endpoints onto the router. Rendering routes
// share one per-IP limiter.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Group(func(gr chi.Router) {
		if h.rate > 0 {
			gr.Use(httprate.Limit(h.rate, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "render rate limit exceeded")
				}),
			))
		}
		gr.Get("/documents/{kind}/{id}/pdf", h.handleDocument)
		gr.Post("/documents/batch", h.handleBatch)
		gr.Post("/tables/pdf", h.handleTable)
		gr.Post("/models/pdf", h.handleModel)
		if h.exportsEnabled() {
			gr.Post("/exports", h.handleExport)
		}
	})
	if h.exportsEnabled() {
		r.Get("/exports/{token}", h.handleDownload)
	}
}
