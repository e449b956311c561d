package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/quizforge/internal/config"
	"github.com/dgallion1/quizforge/internal/convert"
)

func TestWorker_Process(t *testing.T) {
	convErr := &convert.ConversionError{Op: "convert html", Path: "x", Err: convert.ErrConverterMissing}
	tests := []struct {
		name   string
		conv   *fakeConverter
		render bool
		want   JobStatus
		phase  string
	}{
		{"completed", &fakeConverter{md: questionsMD, html: questionsHTML}, false, StatusCompleted, "done"},
		{"partial when degraded", &fakeConverter{md: questionsMD, html: questionsHTML}, true, StatusPartial, "done"},
		{"failed on conversion error", &fakeConverter{md: questionsMD, htmlErr: convErr}, false, StatusFailed, "convert-html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(config.Default(), tt.conv, nil, nil, discardLogger())
			job := NewJob(Request{
				Source:       questionsDocx(t),
				OriginalName: "exam.docx",
				Kind:         convert.KindQuestions,
				OutDir:       filepath.Join(t.TempDir(), "exam"),
				Render:       tt.render,
				Zip:          true,
			})
			NewWorker(r, discardLogger()).Process(context.Background(), job)

			snap := job.Snapshot()
			if snap.Status != tt.want || snap.Phase != tt.phase {
				t.Errorf("status = %s/%s, want %s/%s (errors %q)", snap.Status, snap.Phase, tt.want, tt.phase, snap.Progress.Errors)
			}
			if snap.ContentHash == "" {
				t.Error("content hash not recorded")
			}
			if tt.want == StatusFailed {
				if len(snap.Progress.Errors) == 0 {
					t.Error("expected an error to be recorded")
				}
				return
			}
			if _, err := os.Stat(job.Result().ZipFile); err != nil {
				t.Errorf("zip: %v", err)
			}
		})
	}
}

func TestOrchestrator_RunsJobs(t *testing.T) {
	cfg := config.Default()
	cfg.Workers.Count = 1
	cfg.Jobs.WorkDir = t.TempDir()
	r := NewRunner(cfg, &fakeConverter{md: questionsMD, html: questionsHTML}, nil, nil, discardLogger())
	o := NewOrchestrator(cfg, r, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob(Request{Source: questionsDocx(t), OriginalName: "exam.docx", Kind: convert.KindQuestions})
	job.Request.OutDir = filepath.Join(o.JobDir(job.ID), "exam")
	if err := o.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatal("job not registered")
	}

	deadline := time.Now().Add(5 * time.Second)
	for !job.Snapshot().Status.Done() {
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, status %s", job.Snapshot().Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Errorf("status = %s, errors %q", s, job.Snapshot().Progress.Errors)
	}
	if filepath.Dir(job.Result().OutDir) != o.JobDir(job.ID) {
		t.Errorf("out dir %s not under job dir", job.Result().OutDir)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Default()
	cfg.Workers.MaxQueue = 1
	o := NewOrchestrator(cfg, nil, discardLogger())

	first := NewJob(Request{})
	if err := o.Submit(first); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second := NewJob(Request{})
	if err := o.Submit(second); err == nil {
		t.Fatal("expected queue full error")
	}
	if s := second.Snapshot(); s.Status != StatusFailed || s.Phase != "queue_full" {
		t.Errorf("second job = %s/%s", s.Status, s.Phase)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("queue depth = %d, want 1", o.QueueDepth())
	}
}

func TestOrchestrator_EvictRemovesJobDir(t *testing.T) {
	cfg := config.Default()
	cfg.Jobs.WorkDir = t.TempDir()
	cfg.Jobs.TTL = time.Millisecond
	o := NewOrchestrator(cfg, nil, discardLogger())

	job := NewJob(Request{})
	dir := o.JobDir(job.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	job.SetStatus(StatusCompleted, "done")
	o.jobs.Put(job)
	time.Sleep(5 * time.Millisecond)
	o.jobs.Cleanup()

	if o.GetJob(job.ID) != nil {
		t.Error("job not evicted")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("job dir should be removed, stat err = %v", err)
	}
}
