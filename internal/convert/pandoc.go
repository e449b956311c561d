// Package convert wraps the external DOCX converter and the checks that run
// before it.
package convert

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/quizforge/internal/tool"
)

const (
	MarkdownFile = "content.md"
	HTMLFile     = "content.html"
	MediaDir     = "media"
)

// Options controls one conversion.
type Options struct {
	ExtractMedia  bool
	MathML        bool
	ExcludeHeader bool
}

// Result describes a converted artifact.
type Result struct {
	Path     string
	Content  string
	MediaDir string
	Warnings []string
}

// Converter turns a source document into Markdown and HTML renderings.
type Converter interface {
	ToMarkdown(ctx context.Context, src, outDir string, opts Options) (Result, error)
	ToHTML(ctx context.Context, src, outDir string, opts Options) (Result, error)
}

// Pandoc converts with the pandoc executable.
type Pandoc struct {
	Binary string
	Runner *tool.Runner
	Log    *slog.Logger
}

// NewPandoc returns a converter running binary through r.
func NewPandoc(binary string, r *tool.Runner, log *slog.Logger) *Pandoc {
	if binary == "" {
		binary = "pandoc"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pandoc{Binary: binary, Runner: r, Log: log}
}

// ToMarkdown writes outDir/content.md. With ExcludeHeader set the preamble
// before the first section, directions or question line is dropped and the
// file rewritten.
func (p *Pandoc) ToMarkdown(ctx context.Context, src, outDir string, opts Options) (Result, error) {
	out := filepath.Join(outDir, MarkdownFile)
	args := []string{"-s", src, "-t", "markdown", "-o", out}
	var media string
	if opts.ExtractMedia {
		media = filepath.Join(outDir, MediaDir)
		args = append(args, "--extract-media="+media)
	}
	if opts.MathML {
		args = append(args, "--mathml")
	}

	res, err := p.run(ctx, "convert markdown", src, out, args)
	if err != nil {
		return res, err
	}
	res.MediaDir = media
	if opts.ExcludeHeader {
		res.Content = ExcludeHeader(res.Content)
		if err := os.WriteFile(out, []byte(res.Content), 0o644); err != nil {
			p.Log.Warn("rewrite markdown failed", "path", out, "error", err)
		}
	}
	return res, nil
}

// ToHTML writes outDir/content.html, always extracting media next to it.
func (p *Pandoc) ToHTML(ctx context.Context, src, outDir string, _ Options) (Result, error) {
	out := filepath.Join(outDir, HTMLFile)
	media := filepath.Join(outDir, MediaDir)
	args := []string{"-s", src, "-o", out, "--extract-media=" + media}

	res, err := p.run(ctx, "convert html", src, out, args)
	if err != nil {
		return res, err
	}
	res.MediaDir = media
	return res, nil
}

func (p *Pandoc) run(ctx context.Context, op, src, out string, args []string) (Result, error) {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}
	output, err := p.Runner.Run(ctx, p.Binary, args...)
	warnings := warningLines(output.Stderr)
	for _, w := range warnings {
		p.Log.Warn("converter warning", "op", op, "message", w)
	}
	if err != nil {
		if errors.Is(err, tool.ErrNotFound) {
			return Result{}, conversionError(op, src, ErrConverterMissing, err)
		}
		return Result{}, conversionError(op, src, ErrConverterFailed, err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return Result{}, conversionError(op, out, ErrUnreadableOutput, err)
	}
	p.Log.Info("converted", "op", op, "src", src, "out", out, "bytes", len(data))
	return Result{Path: out, Content: string(data), Warnings: warnings}, nil
}

func warningLines(stderr []byte) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(stderr))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); strings.Contains(line, "[WARNING]") {
			out = append(out, line)
		}
	}
	return out
}
