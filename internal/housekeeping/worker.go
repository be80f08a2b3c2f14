// Package housekeeping runs the periodic background chores of the server.
package housekeeping

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Task is one named chore. Run returns a short count of what it did.
type Task struct {
	Name string
	Run  func(ctx context.Context) (int64, error)
}

// Worker runs every task once per interval until its context is cancelled.
type Worker struct {
	tasks    []Task
	interval time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker. If interval is <= 0, it defaults to one minute.
func NewWorker(interval time.Duration, tasks ...Task) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{
		tasks:    tasks,
		interval: interval,
		logger:   slog.Default(),
	}
}

// Run executes the tasks on every tick until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("housekeeping iteration failed", "error", err)
			}
		}
	}
}

// RunOnce executes every task in order. A failing task is logged and does not
// stop the others; the returned error reports how many failed.
func (w *Worker) RunOnce(ctx context.Context) error {
	failed := 0
	for _, task := range w.tasks {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := w.runTask(ctx, task)
		if err != nil {
			failed++
			w.logger.Warn("housekeeping task failed", "task", task.Name, "error", err)
			continue
		}
		if n > 0 {
			w.logger.Debug("housekeeping task done", "task", task.Name, "affected", n)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tasks failed", failed, len(w.tasks))
	}
	return nil
}

func (w *Worker) runTask(ctx context.Context, task Task) (n int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task.Run(ctx)
}
