package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/quizforge/internal/doctree"
	"github.com/dgallion1/quizforge/internal/tool"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.Black)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()
}

func sampleDoc() doctree.Document {
	return doctree.Document{
		Filename: "exam.docx",
		Sections: []doctree.Section{{
			Label: "TEST - I",
			Questions: []doctree.Question{
				{
					Number:     1,
					MainCommon: "<em>Directions for questions 1 to 2:</em> Study the chart.",
					Text:       "What is <strong>2+2</strong>?",
					Options:    []string{"(A) 3", "(B) 4"},
					Tables:     []string{"<table><tr><th>x</th><th>y</th></tr><tr><td>1</td><td>2</td></tr></table>"},
					Images:     []string{"media/wide.png", "media/missing.png"},
				},
				{Number: 2, Text: "Second", Options: []string{}, Tables: []string{}, Images: []string{}},
			},
		}},
	}
}

func TestHTMLBuilder_Build(t *testing.T) {
	q := sampleDoc().Sections[0].Questions[0]
	page, err := NewHTMLBuilder().Build(QuestionCard("TEST - I", q), []string{"/tmp/out/media/wide.png"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, want := range []string{
		"TEST - I · Q1",
		"Study the chart.",
		"<strong>2+2</strong>",
		"<li>(A) 3</li>",
		"<td>1</td>",
		`src="file:///tmp/out/media/wide.png"`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("card missing %q", want)
		}
	}
	if strings.Contains(page, "missing.png") {
		t.Error("card embedded an image that was not passed in")
	}
}

func TestHTMLBuilder_MathML(t *testing.T) {
	page, err := NewHTMLBuilder().Build(Card{Section: "S", Label: "Q1", Text: "Solve $x^2 = 4$"}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(page, "<math") {
		t.Errorf("expected MathML output:\n%s", page)
	}
}

func TestHTMLBuilder_Choice(t *testing.T) {
	two := 2
	c := SolutionCard("Solutions", doctree.SolutionEntry{Number: 3, Text: "Because.", Choice: &two})
	page, err := NewHTMLBuilder().Build(c, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(page, "Answer: (2)") || !strings.Contains(page, "S3") {
		t.Errorf("solution card = %s", page)
	}
}

func TestRenderer_NativeFallback(t *testing.T) {
	base := t.TempDir()
	writePNG(t, filepath.Join(base, "media", "wide.png"), 3000, 300)

	native, err := NewNative(1600)
	if err != nil {
		t.Fatalf("NewNative: %v", err)
	}
	r := New(nil, native, base, nil)
	out := t.TempDir()

	m, err := r.RenderQuestions(context.Background(), sampleDoc(), out)
	if err != nil {
		t.Fatalf("RenderQuestions: %v", err)
	}
	want := []string{filepath.Join(out, "test-i", "Q1.png"), filepath.Join(out, "test-i", "Q2.png")}
	if len(m.Files) != 2 || m.Files[0] != want[0] || m.Files[1] != want[1] {
		t.Fatalf("files = %v, want %v", m.Files, want)
	}
	if len(m.Failures) != 1 || m.Failures[0].Asset != "media/missing.png" {
		t.Errorf("failures = %+v", m.Failures)
	}

	f, err := os.Open(m.Files[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode card: %v", err)
	}
	if cfg.Width != 1600 {
		t.Errorf("card width = %d, want 1600", cfg.Width)
	}
	if cfg.Height <= 300 {
		t.Errorf("card height = %d, expected room for text and image", cfg.Height)
	}
}

type fakeRaster struct {
	err   error
	pages []string
}

func (f *fakeRaster) Rasterize(_ context.Context, html, out string) error {
	f.pages = append(f.pages, html)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(out, []byte("png"), 0o644)
}

func TestRenderer_UsesRasterizer(t *testing.T) {
	raster := &fakeRaster{}
	r := New(raster, nil, t.TempDir(), nil)
	out := t.TempDir()
	if err := os.MkdirAll(filepath.Join(out, "test-i"), 0o755); err != nil {
		t.Fatal(err)
	}

	m, err := r.RenderQuestions(context.Background(), sampleDoc(), out)
	if err != nil {
		t.Fatal(err)
	}
	if len(raster.pages) != 2 || len(m.Files) != 2 {
		t.Fatalf("pages = %d, files = %v", len(raster.pages), m.Files)
	}
	// Both images fail to decode under an empty base dir.
	if len(m.Failures) != 2 {
		t.Errorf("failures = %+v", m.Failures)
	}
}

func TestRenderer_RelativeBaseDirEmbedsAbsoluteURL(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)
	writePNG(t, filepath.Join(root, "conversions", "paper", "media", "wide.png"), 40, 20)

	raster := &fakeRaster{}
	r := New(raster, nil, filepath.Join("conversions", "paper"), nil)
	doc := doctree.Document{Sections: []doctree.Section{{
		Label:     "TEST - I",
		Questions: []doctree.Question{{Number: 1, Text: "Look", Images: []string{"media/wide.png"}}},
	}}}
	out := t.TempDir()
	if err := os.MkdirAll(filepath.Join(out, "test-i"), 0o755); err != nil {
		t.Fatal(err)
	}

	m, err := r.RenderQuestions(context.Background(), doc, out)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Failures) != 0 || len(raster.pages) != 1 {
		t.Fatalf("failures = %+v, pages = %d", m.Failures, len(raster.pages))
	}
	page := raster.pages[0]
	if strings.Contains(page, "file://conversions") {
		t.Errorf("relative path used as URL host:\n%s", page)
	}
	abs := filepath.ToSlash(filepath.Join(root, "conversions", "paper", "media", "wide.png"))
	if runtime.GOOS != "windows" && !strings.Contains(page, `src="file://`+abs+`"`) {
		t.Errorf("card missing absolute image URL %q:\n%s", abs, page)
	}
}

func TestFileURL(t *testing.T) {
	if got := fileURL("https://example.com/a.png"); got != "https://example.com/a.png" {
		t.Errorf("remote URL changed: %q", got)
	}
	got := fileURL(filepath.Join("media", "a b.png"))
	if !strings.HasPrefix(got, "file:///") || !strings.HasSuffix(got, "/media/a%20b.png") {
		t.Errorf("fileURL = %q", got)
	}
}

func TestRenderer_RasterFailureFallsBack(t *testing.T) {
	native, err := NewNative(800)
	if err != nil {
		t.Fatal(err)
	}
	raster := &fakeRaster{err: errors.New("wkhtmltoimage crashed")}
	r := New(raster, native, t.TempDir(), nil)

	sdoc := doctree.SolutionDocument{Sections: []doctree.SolutionSection{{
		Label:   "Solutions",
		Entries: []doctree.SolutionEntry{{Number: 1, Text: "Because."}, {Number: 1, Text: "Duplicate."}},
	}}}
	out := t.TempDir()
	m, err := r.RenderSolutions(context.Background(), sdoc, out)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(out, "solutions", "S1.png"), filepath.Join(out, "solutions", "S1_2.png")}
	if len(m.Files) != 2 || m.Files[0] != want[0] || m.Files[1] != want[1] {
		t.Errorf("files = %v, want %v", m.Files, want)
	}
}

func TestRenderer_NoRenderer(t *testing.T) {
	r := New(nil, nil, "", nil)
	m, err := r.RenderQuestions(context.Background(), sampleDoc(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Files) != 0 || len(m.Failures) < 2 {
		t.Errorf("manifest = %+v", m)
	}
}

func TestTableRows(t *testing.T) {
	rows := tableRows("<table><tr><th>Name</th><th>Age</th></tr><tr><td>Ram <b>K</b></td><td>25</td></tr></table>")
	want := []string{"Name | Age", "Ram K | 25"}
	if len(rows) != 2 || rows[0] != want[0] || rows[1] != want[1] {
		t.Errorf("rows = %q, want %q", rows, want)
	}
	if rows := tableRows("<p>not a table</p>"); len(rows) != 0 {
		t.Errorf("rows = %q", rows)
	}
}

func TestWkhtmltoimage_Retries(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	dir := t.TempDir()
	counter := filepath.Join(dir, "count")
	bin := filepath.Join(dir, "wkhtmltoimage")
	script := "#!/bin/sh\necho x >> " + counter + "\nn=$(wc -l < " + counter + ")\n" +
		"if [ \"$n\" -lt 2 ]; then exit 1; fi\n" +
		"for last; do :; done\necho png > \"$last\"\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	w := NewWkhtmltoimage(bin, tool.NewRunner(0, nil, nil), nil)
	w.Delay = time.Millisecond
	out := filepath.Join(dir, "cards", "Q1.png")
	if err := w.Rasterize(context.Background(), "<html></html>", out); err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not written: %v", err)
	}
	data, _ := os.ReadFile(counter)
	if n := strings.Count(string(data), "x"); n != 2 {
		t.Errorf("attempts = %d, want 2", n)
	}
}

func TestWkhtmltoimage_MissingBinaryNotRetried(t *testing.T) {
	w := NewWkhtmltoimage("quizforge-no-wkhtml", tool.NewRunner(0, nil, nil), nil)
	w.Delay = time.Millisecond
	err := w.Rasterize(context.Background(), "<html></html>", filepath.Join(t.TempDir(), "q.png"))
	if !errors.Is(err, tool.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBooklet(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png")
	writePNG(t, a, 200, 100)
	writePNG(t, b, 200, 150)

	pages, err := Booklet([]string{a, b}, filepath.Join(dir, "booklet.pdf"))
	if err != nil {
		t.Fatalf("Booklet: %v", err)
	}
	if pages != 2 {
		t.Errorf("pages = %d, want 2", pages)
	}
	if _, err := Booklet(nil, filepath.Join(dir, "x.pdf")); !errors.Is(err, ErrEmptyBooklet) {
		t.Errorf("expected ErrEmptyBooklet, got %v", err)
	}
}
