// Package tasks defines the asynq task types exchanged between the scheduler
// and the worker.
package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// TypeSnapshotExport re-exports the snapshot file from the store. It runs
	// periodically as maintenance so a failed synchronous export after a
	// mutation self-heals on the next tick.
	TypeSnapshotExport = "snapshot:export"
)

// SnapshotExportPayload records why the export was scheduled, for the worker
// logs.
type SnapshotExportPayload struct {
	Reason string `json:"reason"`
}

// NewSnapshotExportTask builds a snapshot export task.
func NewSnapshotExportTask(reason string) (*asynq.Task, error) {
	payload, err := json.Marshal(SnapshotExportPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSnapshotExport, payload), nil
}
