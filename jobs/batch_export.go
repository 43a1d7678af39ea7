package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/docrender/internal/documents"
	jobmetrics "github.com/odyssey-erp/docrender/internal/jobs"
	"github.com/odyssey-erp/docrender/internal/printing"
)

// BatchRenderer renders several documents into one file.
type BatchRenderer interface {
	RenderBatch(ctx context.Context, refs []documents.Ref, opts printing.Options) (printing.Output, error)
}

// BatchExportJob renders TaskBatchExport tasks into the export directory.
type BatchExportJob struct {
	Renderer BatchRenderer
	Exports  *Exports
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewBatchExportJob initialises the batch export handler.
func NewBatchExportJob(renderer BatchRenderer, exports *Exports, logger *slog.Logger, metrics *jobmetrics.Metrics) *BatchExportJob {
	return &BatchExportJob{Renderer: renderer, Exports: exports, Logger: logger, Metrics: metrics}
}

// ProcessTask implements asynq.Handler. Missing documents and malformed
// payloads are not retried.
func (j *BatchExportJob) ProcessTask(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Renderer == nil || j.Exports == nil {
		return errors.New("batch export: handler not configured")
	}
	var payload BatchExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("batch export: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskBatchExport, payload.RequestedAt)
	defer func() { err = tracker.End(err) }()
	start := time.Now()

	out, err := j.Renderer.RenderBatch(ctx, payload.Refs, payload.Options)
	switch {
	case errors.Is(err, documents.ErrNotFound), errors.Is(err, printing.ErrNoDocuments):
		j.logger().Warn("batch export dropped", slog.String("export_id", payload.ID), slog.Any("error", err))
		return fmt.Errorf("batch export %s: %v: %w", payload.ID, err, asynq.SkipRetry)
	case err != nil:
		return fmt.Errorf("batch export %s: %w", payload.ID, err)
	}
	if err := j.Exports.Write(payload.ID, out.Data); err != nil {
		return fmt.Errorf("batch export %s: %w", payload.ID, err)
	}
	j.Metrics.AddDocuments(TaskBatchExport, len(payload.Refs))
	j.logger().Info("batch export stored",
		slog.String("export_id", payload.ID),
		slog.Int("documents", len(payload.Refs)),
		slog.Int("bytes", len(out.Data)),
		slog.Duration("elapsed", time.Since(start)),
		slog.Duration("queued", start.Sub(payload.RequestedAt)))
	return nil
}

func (j *BatchExportJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
