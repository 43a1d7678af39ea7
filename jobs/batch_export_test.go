package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/docrender/internal/documents"
	jobmetrics "github.com/odyssey-erp/docrender/internal/jobs"
	"github.com/odyssey-erp/docrender/internal/printing"
)

type stubRenderer struct {
	out  printing.Output
	err  error
	refs []documents.Ref
	opts printing.Options
}

func (s *stubRenderer) RenderBatch(_ context.Context, refs []documents.Ref, opts printing.Options) (printing.Output, error) {
	s.refs, s.opts = refs, opts
	return s.out, s.err
}

func batchTask(t *testing.T, payload BatchExportPayload) *asynq.Task {
	t.Helper()
	task, err := NewBatchExportTask(payload)
	require.NoError(t, err)
	return task
}

func newJob(t *testing.T, renderer BatchRenderer) (*BatchExportJob, *Exports) {
	t.Helper()
	exports, err := NewExports(t.TempDir())
	require.NoError(t, err)
	return NewBatchExportJob(renderer, exports, nil, jobmetrics.NewMetrics(prometheus.NewRegistry())), exports
}

func TestBatchExportStoresFile(t *testing.T) {
	renderer := &stubRenderer{out: printing.Output{Filename: "Invoice_batch.pdf", Data: []byte("%PDF-1.7 batch")}}
	job, exports := newJob(t, renderer)
	id := exports.NewID()
	refs := []documents.Ref{{Kind: documents.KindSalesInvoice, ID: 1}, {Kind: documents.KindSalesInvoice, ID: 2}}

	err := job.ProcessTask(context.Background(), batchTask(t, BatchExportPayload{
		ID:          id,
		Refs:        refs,
		Options:     printing.Options{Locale: "es_ES"},
		RequestedAt: time.Now(),
	}))
	require.NoError(t, err)

	assert.Equal(t, refs, renderer.refs)
	assert.Equal(t, "es_ES", renderer.opts.Locale)

	f, err := exports.Open(id)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 batch", string(data))
	assert.Equal(t, 2.0, testutil.ToFloat64(job.Metrics.Documents(TaskBatchExport)))
}

func TestBatchExportMissingDocumentIsNotRetried(t *testing.T) {
	job, exports := newJob(t, &stubRenderer{err: documents.ErrNotFound})
	id := exports.NewID()

	err := job.ProcessTask(context.Background(), batchTask(t, BatchExportPayload{
		ID:   id,
		Refs: []documents.Ref{{Kind: documents.KindSalesOrder, ID: 9}},
	}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, 1.0, testutil.ToFloat64(job.Metrics.Runs(TaskBatchExport, jobmetrics.OutcomeDropped)))

	_, err = exports.Open(id)
	assert.ErrorIs(t, err, ErrExportNotReady)
}

func TestBatchExportBackendErrorIsRetried(t *testing.T) {
	boom := errors.New("gotenberg down")
	job, exports := newJob(t, &stubRenderer{err: boom})

	err := job.ProcessTask(context.Background(), batchTask(t, BatchExportPayload{
		ID:   exports.NewID(),
		Refs: []documents.Ref{{Kind: documents.KindSalesOrder, ID: 9}},
	}))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, 1.0, testutil.ToFloat64(job.Metrics.Runs(TaskBatchExport, jobmetrics.OutcomeRetry)))
}

func TestBatchExportMalformedPayload(t *testing.T) {
	job, _ := newJob(t, &stubRenderer{})
	err := job.ProcessTask(context.Background(), asynq.NewTask(TaskBatchExport, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNewBatchExportTask(t *testing.T) {
	_, err := NewBatchExportTask(BatchExportPayload{ID: "x"})
	assert.Error(t, err)

	payload := BatchExportPayload{ID: "6f1c", Refs: []documents.Ref{{Kind: documents.KindDeliveryNote, ID: 3}}}
	task := batchTask(t, payload)
	assert.Equal(t, TaskBatchExport, task.Type())

	var decoded BatchExportPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, payload.Refs, decoded.Refs)
}

func TestExportsRejectForeignIDs(t *testing.T) {
	exports, err := NewExports(t.TempDir())
	require.NoError(t, err)

	assert.ErrorIs(t, exports.Write("../etc/passwd", []byte("x")), ErrInvalidExportID)
	_, err = exports.Open("../../secret")
	assert.ErrorIs(t, err, ErrInvalidExportID)
}
