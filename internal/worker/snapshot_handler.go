package worker

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"chatroom/internal/service"
	"chatroom/internal/tasks"
)

// SnapshotExportHandler processes snapshot export tasks by rewriting the
// snapshot file from the current store contents.
type SnapshotExportHandler struct {
	exporter service.Exporter
}

// NewSnapshotExportHandler creates the handler.
func NewSnapshotExportHandler(exporter service.Exporter) *SnapshotExportHandler {
	if exporter == nil {
		panic("Exporter cannot be nil for SnapshotExportHandler")
	}
	return &SnapshotExportHandler{exporter: exporter}
}

// ProcessTask implements asynq.Handler. A returned error makes asynq retry
// the export with backoff.
func (h *SnapshotExportHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.SnapshotExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// A malformed payload is not retryable.
		return asynq.SkipRetry
	}

	logCtx := logrus.WithFields(logrus.Fields{
		"task_type": t.Type(),
		"reason":    payload.Reason,
	})

	if err := h.exporter.Export(ctx); err != nil {
		logCtx.WithError(err).Error("Background snapshot export failed")
		return err
	}
	logCtx.Info("Background snapshot export completed")
	return nil
}
