package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/docrender/internal/documents"
	"github.com/odyssey-erp/docrender/internal/printing"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBatchExport renders a list of documents into one stored PDF.
	TaskBatchExport = "documents:batch_export"
)

// BatchExportPayload describes one asynchronous batch export.
type BatchExportPayload struct {
	ID          string           `json:"id"`
	Refs        []documents.Ref  `json:"refs"`
	Options     printing.Options `json:"options"`
	RequestedAt time.Time        `json:"requested_at"`
}

// NewBatchExportTask constructs an Asynq task. The export id doubles as the
// task id so a retried enqueue is rejected as a duplicate.
func NewBatchExportTask(payload BatchExportPayload) (*asynq.Task, error) {
	if payload.ID == "" || len(payload.Refs) == 0 {
		return nil, fmt.Errorf("jobs: batch export needs an id and documents")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBatchExport, data,
		asynq.TaskID(payload.ID),
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}
