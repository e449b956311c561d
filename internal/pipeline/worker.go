package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/dgallion1/quizforge/internal/convert"
)

// Worker processes a single conversion job.
type Worker struct {
	runner *Runner
	log    *slog.Logger
}

func NewWorker(runner *Runner, log *slog.Logger) *Worker {
	return &Worker{runner: runner, log: log}
}

// Process runs the full conversion pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	req := job.Request
	req.OnPhase = job.SetStatus

	if data, err := os.ReadFile(req.Source); err == nil {
		job.mu.Lock()
		job.ContentHash = ContentHashHex(data)
		job.mu.Unlock()
	}

	res, err := w.runner.Run(ctx, req)
	job.SetResult(res)
	if err != nil {
		var convErr *convert.ConversionError
		if errors.As(err, &convErr) {
			log.Error("conversion failed", "op", convErr.Op, "error", err)
		} else {
			log.Error("pipeline failed", "error", err)
		}
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, job.Snapshot().Phase)
		return
	}

	switch {
	case req.Zip && res.ZipFile == "":
		job.AddError("package: no archive produced")
		job.SetStatus(StatusFailed, "package")
	case res.Degraded():
		log.Warn("conversion degraded", "warnings", len(res.Warnings), "render_failures", len(res.RenderFailures))
		job.SetStatus(StatusPartial, "done")
	default:
		log.Info("conversion complete", "records", res.Records, "cards", len(res.Cards))
		job.SetStatus(StatusCompleted, "done")
	}
}
