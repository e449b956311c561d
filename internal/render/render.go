package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dgallion1/quizforge/internal/convert"
	"github.com/dgallion1/quizforge/internal/doctree"
)

// Failure records one asset or card that could not be rendered.
type Failure struct {
	Record string `json:"record" yaml:"record"`
	Asset  string `json:"asset,omitempty" yaml:"asset,omitempty"`
	Err    string `json:"error" yaml:"error"`
}

// Manifest lists the cards written by one render call.
type Manifest struct {
	Files    []string  `json:"files" yaml:"files"`
	Failures []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

func (m *Manifest) fail(record, asset string, err error) {
	m.Failures = append(m.Failures, Failure{Record: record, Asset: asset, Err: err.Error()})
}

// Renderer writes one PNG per record. Cards go through Raster when set and
// fall back to Native when rasterizing fails or no rasterizer is configured.
type Renderer struct {
	Builder *HTMLBuilder
	Raster  Rasterizer
	Native  *Native
	// BaseDir resolves relative image paths.
	BaseDir string
	Log     *slog.Logger
}

// New returns a Renderer. raster may be nil.
func New(raster Rasterizer, native *Native, baseDir string, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{Builder: NewHTMLBuilder(), Raster: raster, Native: native, BaseDir: baseDir, Log: log}
}

// RenderQuestions writes <outDir>/<section-slug>/Q<n>.png for every question.
func (r *Renderer) RenderQuestions(ctx context.Context, doc doctree.Document, outDir string) (Manifest, error) {
	var cards []Card
	for _, sec := range doc.Merged() {
		for _, q := range sec.Questions {
			cards = append(cards, QuestionCard(sec.Label, q))
		}
	}
	return r.render(ctx, cards, outDir)
}

// RenderSolutions writes <outDir>/<section-slug>/S<n>.png for every solution.
func (r *Renderer) RenderSolutions(ctx context.Context, doc doctree.SolutionDocument, outDir string) (Manifest, error) {
	var cards []Card
	for _, sec := range doc.Merged() {
		for _, e := range sec.Entries {
			cards = append(cards, SolutionCard(sec.Label, e))
		}
	}
	return r.render(ctx, cards, outDir)
}

func (r *Renderer) render(ctx context.Context, cards []Card, outDir string) (Manifest, error) {
	m := Manifest{Files: []string{}}
	used := make(map[string]int)
	for _, c := range cards {
		if err := ctx.Err(); err != nil {
			return m, err
		}
		dir := convert.Slug(c.Section)
		if c.Section == "" {
			dir = "cards"
		}
		name := filepath.Join(dir, c.Label)
		used[name]++
		if n := used[name]; n > 1 {
			name += "_" + strconv.Itoa(n)
		}
		out := filepath.Join(outDir, name+".png")

		if err := r.card(ctx, c, out, &m); err != nil {
			r.Log.Error("card failed", "record", c.Label, "section", c.Section, "error", err)
			m.fail(c.Section+"/"+c.Label, "", err)
			continue
		}
		m.Files = append(m.Files, out)
	}
	r.Log.Info("cards rendered", "written", len(m.Files), "failures", len(m.Failures))
	return m, nil
}

// card renders one card. Images that cannot be read or decoded are skipped
// and recorded; the card still renders.
func (r *Renderer) card(ctx context.Context, c Card, out string, m *Manifest) error {
	var paths []string
	var decoded []image.Image
	for _, p := range c.Images {
		path := r.resolve(p)
		img, err := decodeImage(path)
		if err != nil {
			r.Log.Warn("image skipped", "record", c.Label, "image", p, "error", err)
			m.fail(c.Section+"/"+c.Label, p, err)
			continue
		}
		paths = append(paths, path)
		decoded = append(decoded, img)
	}

	if r.Raster != nil {
		page, err := r.Builder.Build(c, paths)
		if err == nil {
			err = r.Raster.Rasterize(ctx, page, out)
		}
		if err == nil {
			return nil
		}
		if r.Native == nil {
			return err
		}
		r.Log.Warn("rasterizer failed, drawing natively", "record", c.Label, "error", err)
	}
	if r.Native == nil {
		return errors.New("no renderer configured")
	}
	failures, err := r.Native.Draw(c, decoded, out)
	for _, f := range failures {
		f.Record = c.Section + "/" + f.Record
		m.Failures = append(m.Failures, f)
	}
	return err
}

// resolve joins p onto BaseDir and makes it absolute.
func (r *Renderer) resolve(p string) string {
	if !filepath.IsAbs(p) && r.BaseDir != "" {
		p = filepath.Join(r.BaseDir, p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
