// Package worker runs the asynq background task server.
package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"chatroom/internal/service"
	"chatroom/internal/tasks"
)

// WorkerServer wraps the asynq server lifecycle.
type WorkerServer struct {
	server   *asynq.Server
	exporter service.Exporter
	log      *logrus.Entry
}

// NewWorkerServer creates a WorkerServer sharing the Redis instance the rest
// of the app uses.
func NewWorkerServer(redisOpt asynq.RedisClientOpt, exporter service.Exporter, logger *logrus.Logger) *WorkerServer {
	if exporter == nil {
		panic("Exporter cannot be nil for WorkerServer")
	}
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			"default": 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logEntry.WithFields(logrus.Fields{
				"task_type": task.Type(),
			}).WithError(err).Error("Task processing failed")
		}),
	})

	return &WorkerServer{
		server:   server,
		exporter: exporter,
		log:      logEntry,
	}
}

// Start runs the worker until Shutdown is called. It blocks, so callers run
// it in a goroutine.
func (w *WorkerServer) Start() {
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeSnapshotExport, NewSnapshotExportHandler(w.exporter))

	w.log.Info("Worker server starting")
	if err := w.server.Run(mux); err != nil {
		w.log.WithError(err).Error("Worker server stopped with error")
	}
}

// Shutdown stops the worker gracefully, waiting for in-flight tasks.
func (w *WorkerServer) Shutdown() {
	w.log.Info("Worker server shutting down")
	w.server.Shutdown()
}
