package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/dgallion1/quizforge/internal/tool"
)

// Rasterizer turns a standalone HTML document into a PNG at out.
type Rasterizer interface {
	Rasterize(ctx context.Context, html, out string) error
}

// Wkhtmltoimage rasterizes with the wkhtmltoimage executable. Transient
// failures are retried; a missing executable is not.
type Wkhtmltoimage struct {
	Binary   string
	Width    int
	Quality  int
	Attempts uint
	Delay    time.Duration
	Runner   *tool.Runner
	Log      *slog.Logger
}

func NewWkhtmltoimage(binary string, r *tool.Runner, log *slog.Logger) *Wkhtmltoimage {
	if binary == "" {
		binary = "wkhtmltoimage"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Wkhtmltoimage{
		Binary:   binary,
		Width:    1200,
		Quality:  90,
		Attempts: 3,
		Delay:    500 * time.Millisecond,
		Runner:   r,
		Log:      log,
	}
}

func (w *Wkhtmltoimage) Rasterize(ctx context.Context, html, out string) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create card dir: %w", err)
	}
	src, err := os.CreateTemp(filepath.Dir(out), ".card-*.html")
	if err != nil {
		return fmt.Errorf("create card html: %w", err)
	}
	defer os.Remove(src.Name())
	if _, err := src.WriteString(html); err != nil {
		src.Close()
		return fmt.Errorf("write card html: %w", err)
	}
	if err := src.Close(); err != nil {
		return fmt.Errorf("write card html: %w", err)
	}

	args := []string{
		"--quiet",
		"--width", strconv.Itoa(w.Width),
		"--quality", strconv.Itoa(w.Quality),
		"--enable-local-file-access",
		src.Name(), out,
	}
	attempts := w.Attempts
	if attempts == 0 {
		attempts = 1
	}
	return retry.Do(
		func() error {
			_, err := w.Runner.Run(ctx, w.Binary, args...)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(w.Delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, tool.ErrNotFound)
		}),
		retry.OnRetry(func(n uint, err error) {
			w.Log.Warn("rasterize retry", "attempt", n+1, "out", out, "error", err)
		}),
	)
}
