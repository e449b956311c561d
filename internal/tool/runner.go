// Package tool runs external executables and records their latencies.
package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrNotFound reports an executable missing from PATH.
	ErrNotFound = errors.New("tool: executable not found")
	// ErrTimeout reports a run cut short by the runner timeout.
	ErrTimeout = errors.New("tool: timed out")
)

// ExitError reports a non-zero exit status.
type ExitError struct {
	Name   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if len(msg) > 500 {
		msg = msg[:500] + "..."
	}
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Name, e.Code, msg)
}

// Output is the captured result of one run.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Runner executes subprocesses with captured output. A zero Timeout means
// the run is bounded only by the caller's context.
type Runner struct {
	Timeout time.Duration
	Stats   *Stats
	Log     *slog.Logger
}

// NewRunner returns a Runner recording into stats.
func NewRunner(timeout time.Duration, stats *Stats, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{Timeout: timeout, Stats: stats, Log: log}
}

// Run executes name with args. A missing executable returns an error wrapping
// ErrNotFound; a non-zero exit returns *ExitError.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (Output, error) {
	if _, err := exec.LookPath(name); err != nil {
		return Output{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), Duration: time.Since(start)}

	label := filepath.Base(name)
	if r.Stats != nil {
		r.Stats.Record(label, out.Duration, err != nil)
	}
	r.logger().Debug("tool finished",
		"tool", label,
		"duration_ms", out.Duration.Milliseconds(),
		"error", err,
	)

	if err == nil {
		return out, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return out, fmt.Errorf("%w: %s after %s", ErrTimeout, label, r.Timeout)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("run %s: %w", label, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, &ExitError{Name: label, Code: exitErr.ExitCode(), Stderr: stderr.String()}
	}
	return out, fmt.Errorf("run %s: %w", label, err)
}

func (r *Runner) logger() *slog.Logger {
	if r.Log == nil {
		return slog.Default()
	}
	return r.Log
}
