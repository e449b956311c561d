package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/quizforge/internal/config"
	"github.com/dgallion1/quizforge/internal/convert"
	"github.com/dgallion1/quizforge/internal/doctree"
	"github.com/dgallion1/quizforge/internal/export"
	"github.com/dgallion1/quizforge/internal/markup"
	"github.com/dgallion1/quizforge/internal/render"
	"github.com/dgallion1/quizforge/internal/segment"
	"github.com/dgallion1/quizforge/internal/visuals"
)

// Intermediate artifact names inside a run's output directory.
const (
	VisualsFile = "visuals.json"
	CleanedFile = "cleaned.md"
	CardsDir    = "cards"
)

// Request describes one document conversion.
type Request struct {
	Source       string
	OriginalName string
	Kind         convert.Kind
	Variant      string
	OutDir       string

	Render        bool
	ExtractMedia  bool
	MathML        bool
	ExcludeHeader bool
	XLSX          bool
	Booklet       bool
	Zip           bool

	// OnPhase is called as each phase starts.
	OnPhase func(status JobStatus, phase string)
}

// Result describes the artifacts of a finished run.
type Result struct {
	Kind    convert.Kind `json:"kind" yaml:"kind"`
	Variant string       `json:"variant,omitempty" yaml:"variant,omitempty"`
	Stem    string       `json:"stem" yaml:"stem"`
	OutDir  string       `json:"out_dir" yaml:"out_dir"`

	Probe    convert.ProbeResult `json:"probe" yaml:"probe"`
	Markdown string              `json:"markdown" yaml:"markdown"`
	HTML     string              `json:"html" yaml:"html"`
	Visuals  int                 `json:"visuals" yaml:"visuals"`
	Sections int                 `json:"sections" yaml:"sections"`
	Records  int                 `json:"records" yaml:"records"`

	VisualsFile string `json:"visuals_file" yaml:"visuals_file"`
	CleanedFile string `json:"cleaned_file" yaml:"cleaned_file"`
	JSONFile    string `json:"json_file" yaml:"json_file"`
	XLSXFile    string `json:"xlsx_file,omitempty" yaml:"xlsx_file,omitempty"`
	BookletFile string `json:"booklet_file,omitempty" yaml:"booklet_file,omitempty"`
	ZipFile     string `json:"zip_file,omitempty" yaml:"zip_file,omitempty"`

	Cards          []string         `json:"cards,omitempty" yaml:"cards,omitempty"`
	RenderFailures []render.Failure `json:"render_failures,omitempty" yaml:"render_failures,omitempty"`
	Warnings       []string         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Degraded reports whether the run finished with recorded losses.
func (r Result) Degraded() bool {
	return len(r.Warnings) > 0 || len(r.RenderFailures) > 0
}

func (r *Result) warn(log *slog.Logger, phase string, err error) {
	log.Warn("phase degraded", "phase", phase, "error", err)
	r.Warnings = append(r.Warnings, fmt.Sprintf("%s: %s", phase, err))
}

// Runner converts one document at a time, start to finish, into its own
// output directory. It is safe for concurrent use by several workers.
type Runner struct {
	Converter  convert.Converter
	Normalizer *markup.Normalizer
	Raster     render.Rasterizer
	Native     *render.Native
	Layout     doctree.Layout
	// PrefixWords overrides the policy's context match length when positive.
	PrefixWords int
	Log         *slog.Logger
}

// NewRunner returns a Runner configured from cfg. raster and native may be
// nil; rendering is then skipped with a warning.
func NewRunner(cfg config.Config, conv convert.Converter, raster render.Rasterizer, native *render.Native, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		Converter:   conv,
		Normalizer:  markup.NewNormalizer(log),
		Raster:      raster,
		Native:      native,
		Layout:      doctree.ParseLayout(cfg.Solutions.Layout),
		PrefixWords: cfg.Segment.ContextPrefixWords,
		Log:         log,
	}
}

// Run executes the pipeline. A ConversionError aborts the run; every later
// failure degrades the output and is recorded in Result.Warnings.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	name := req.OriginalName
	if name == "" {
		name = filepath.Base(req.Source)
	}
	stem := convert.Slug(convert.NormalizeFilename(name))
	outDir := req.OutDir
	if outDir == "" {
		outDir = filepath.Join(filepath.Dir(req.Source), stem)
	}
	res := Result{Kind: req.Kind, Stem: stem, OutDir: outDir}
	log := r.Log.With("source", name, "out_dir", outDir)
	phase := func(status JobStatus, p string) {
		log.Debug("phase", "phase", p)
		if req.OnPhase != nil {
			req.OnPhase(status, p)
		}
	}

	if !convert.IsSupportedExtension(name) {
		return res, &convert.ConversionError{Op: "probe", Path: req.Source, Err: fmt.Errorf("%w: unsupported extension %q", convert.ErrUnreadableSource, filepath.Ext(name))}
	}

	// Phase 1: Probe
	phase(StatusProbing, "probe")
	probe, err := convert.Probe(req.Source)
	if err != nil {
		return res, err
	}
	res.Probe = probe
	if res.Kind == "" || res.Kind == convert.KindAuto {
		res.Kind = convert.DetectKind(probe)
		log.Info("detected document kind", "kind", res.Kind, "questions", probe.Questions, "choices", probe.Choices)
	}
	var policy segment.Policy
	if res.Kind == convert.KindQuestions {
		variant := req.Variant
		if variant == "" {
			variant = segment.PolicyMock.Name
		}
		if policy, err = segment.PolicyFor(variant); err != nil {
			return res, err
		}
		if r.PrefixWords > 0 {
			policy.ContextMatchPrefixWords = r.PrefixWords
		}
		res.Variant = policy.Name
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return res, fmt.Errorf("create output dir: %w", err)
	}

	// Phase 2: Convert
	opts := convert.Options{ExtractMedia: req.ExtractMedia, MathML: req.MathML, ExcludeHeader: req.ExcludeHeader}
	phase(StatusConverting, "convert-md")
	md, err := r.Converter.ToMarkdown(ctx, req.Source, outDir, opts)
	if err != nil {
		return res, err
	}
	res.Markdown = md.Path
	phase(StatusConverting, "convert-html")
	page, err := r.Converter.ToHTML(ctx, req.Source, outDir, opts)
	if err != nil {
		return res, err
	}
	res.HTML = page.Path
	for _, w := range append(md.Warnings, page.Warnings...) {
		res.Warnings = append(res.Warnings, "converter: "+w)
	}
	if err := flattenMedia(filepath.Join(outDir, convert.MediaDir)); err != nil {
		res.warn(log, "convert-html", err)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	// Phase 3: Extract visuals
	phase(StatusExtracting, "extract-visuals")
	rel := relativeTo(outDir)
	entries, err := visuals.Extract(strings.NewReader(page.Content), visuals.ExtractOptions{
		Directions: res.Kind == convert.KindQuestions,
		Log:        log,
	})
	if err != nil {
		res.warn(log, "extract-visuals", err)
	}
	idx := visuals.NewIndex(entries).Resolve(rel)
	res.Visuals = idx.Len()
	res.VisualsFile = filepath.Join(outDir, VisualsFile)
	if err := visuals.Save(res.VisualsFile, idx.Entries()); err != nil {
		res.warn(log, "extract-visuals", err)
		res.VisualsFile = ""
	}

	// Phase 4: Normalize
	phase(StatusSegmenting, "normalize")
	cleaned := r.Normalizer.Normalize(md.Content)
	res.CleanedFile = filepath.Join(outDir, CleanedFile)
	if err := os.WriteFile(res.CleanedFile, []byte(cleaned), 0o644); err != nil {
		res.warn(log, "normalize", err)
		res.CleanedFile = ""
	}

	// Phase 5: Segment
	phase(StatusSegmenting, "segment")
	segOpts := []segment.Option{segment.WithImageResolver(rel), segment.WithLogger(log), segment.WithLayout(r.Layout)}
	var (
		doc  doctree.Document
		sdoc doctree.SolutionDocument
		tree any
	)
	if res.Kind == convert.KindSolutions {
		sdoc = segment.NewSolutions(idx, segOpts...).Segment(stem, cleaned)
		res.Sections, res.Records = len(sdoc.Merged()), sdoc.EntryCount()
		tree = sdoc
	} else {
		doc = segment.New(policy, idx, segOpts...).Segment(stem, cleaned)
		res.Sections, res.Records = len(doc.Merged()), doc.QuestionCount()
		tree = doc
	}
	if res.Records == 0 {
		res.warn(log, "segment", errors.New("no records found"))
	}
	res.JSONFile = filepath.Join(outDir, stem+".json")
	if err := writeJSON(res.JSONFile, tree); err != nil {
		res.warn(log, "segment", err)
		res.JSONFile = ""
	}
	log.Info("segmented", "kind", res.Kind, "variant", res.Variant, "sections", res.Sections, "records", res.Records, "visuals", res.Visuals)

	// Phase 6: Export
	if req.XLSX {
		phase(StatusPackaging, "export")
		path := filepath.Join(outDir, stem+".xlsx")
		if res.Kind == convert.KindSolutions {
			err = export.WriteSolutionKey(sdoc, path)
		} else {
			err = export.WriteQuestionBank(doc, path)
		}
		if err != nil {
			res.warn(log, "export", err)
		} else {
			res.XLSXFile = path
		}
	}

	// Phase 7: Render
	if req.Render {
		phase(StatusRendering, "render")
		r.render(ctx, log, &res, doc, sdoc, req.Booklet)
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}

	// Phase 8: Package
	if req.Zip {
		phase(StatusPackaging, "package")
		zipPath := filepath.Clean(outDir) + ".zip"
		if err := ZipDir(outDir, zipPath); err != nil {
			res.warn(log, "package", err)
		} else {
			res.ZipFile = zipPath
		}
	}

	log.Info("conversion finished", "records", res.Records, "cards", len(res.Cards), "warnings", len(res.Warnings))
	return res, nil
}

func (r *Runner) render(ctx context.Context, log *slog.Logger, res *Result, doc doctree.Document, sdoc doctree.SolutionDocument, booklet bool) {
	if r.Raster == nil && r.Native == nil {
		res.warn(log, "render", errors.New("no renderer configured"))
		return
	}
	rd := render.New(r.Raster, r.Native, res.OutDir, log)
	cardsDir := filepath.Join(res.OutDir, CardsDir)
	var (
		m   render.Manifest
		err error
	)
	if res.Kind == convert.KindSolutions {
		m, err = rd.RenderSolutions(ctx, sdoc, cardsDir)
	} else {
		m, err = rd.RenderQuestions(ctx, doc, cardsDir)
	}
	res.Cards = m.Files
	res.RenderFailures = m.Failures
	if err != nil {
		res.warn(log, "render", err)
		return
	}
	if !booklet || len(m.Files) == 0 {
		return
	}
	path := filepath.Join(res.OutDir, res.Stem+".pdf")
	pages, err := render.Booklet(m.Files, path)
	if err != nil {
		res.warn(log, "booklet", err)
		return
	}
	res.BookletFile = path
	log.Info("booklet written", "path", path, "pages", pages)
}

// relativeTo returns an image path resolver that cleans paths and makes
// those inside dir relative to it.
func relativeTo(dir string) func(string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return func(p string) string {
		p = markup.CleanImagePath(p)
		if p == "" || !filepath.IsAbs(p) {
			return p
		}
		rel, err := filepath.Rel(abs, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			return p
		}
		return filepath.ToSlash(rel)
	}
}

// flattenMedia moves files pandoc wrote under media/media/ up one level so
// cleaned image paths point at real files.
func flattenMedia(media string) error {
	nested := filepath.Join(media, convert.MediaDir)
	items, err := os.ReadDir(nested)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, it := range items {
		if err := os.Rename(filepath.Join(nested, it.Name()), filepath.Join(media, it.Name())); err != nil {
			return fmt.Errorf("flatten media: %w", err)
		}
	}
	return os.Remove(nested)
}

func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	if err := doctree.Encode(&buf, v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
