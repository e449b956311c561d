package render

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgallion1/quizforge/internal/markup"
)

const (
	nativeMargin   = 48
	nativeGap      = 18
	nativeFontSize = 26
)

var (
	inkColor    = color.RGBA{0x11, 0x11, 0x11, 0xff}
	mutedColor  = color.RGBA{0x66, 0x66, 0x66, 0xff}
	shadeColor  = color.RGBA{0xf4, 0xf6, 0xf8, 0xff}
	accentColor = color.RGBA{0x9a, 0xa5, 0xb1, 0xff}
)

// Native draws cards without any external tool: wrapped Go font text, table
// rows as text and images scaled to the card width.
type Native struct {
	Width   int
	regular font.Face
	bold    font.Face
	small   font.Face
}

// NewNative returns a drawer producing cards width pixels wide.
func NewNative(width int) (*Native, error) {
	if width <= 0 {
		width = 1600
	}
	regular, err := loadFace(goregular.TTF, nativeFontSize)
	if err != nil {
		return nil, err
	}
	bold, err := loadFace(gobold.TTF, nativeFontSize)
	if err != nil {
		return nil, err
	}
	small, err := loadFace(goregular.TTF, nativeFontSize*3/4)
	if err != nil {
		return nil, err
	}
	return &Native{Width: width, regular: regular, bold: bold, small: small}, nil
}

func loadFace(ttf []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("load font face: %w", err)
	}
	return face, nil
}

type blockKind int

const (
	blockText blockKind = iota
	blockShaded
	blockImage
)

type block struct {
	kind  blockKind
	face  font.Face
	ink   color.Color
	lines []string
	img   image.Image
}

// Draw writes the card PNG to out. images are decoded images in card order;
// tables that yield no rows are reported in the returned asset failures.
func (n *Native) Draw(c Card, images []image.Image, out string) ([]Failure, error) {
	var failures []Failure
	inner := n.Width - 2*nativeMargin

	var blocks []block
	text := func(kind blockKind, face font.Face, ink color.Color, s string) {
		s = plainText(s)
		if s == "" {
			return
		}
		blocks = append(blocks, block{kind: kind, face: face, ink: ink, lines: wrap(face, s, inner-2*nativeGap)})
	}

	text(blockText, n.small, mutedColor, c.Section+" · "+c.Label)
	text(blockShaded, n.regular, inkColor, c.MainCommon)
	text(blockShaded, n.regular, inkColor, c.SubCommon)
	text(blockText, n.bold, inkColor, c.Text)
	for i, t := range c.Tables {
		rows := tableRows(t)
		if len(rows) == 0 {
			failures = append(failures, Failure{Record: c.Label, Asset: fmt.Sprintf("table %d", i+1), Err: "no rows"})
			continue
		}
		text(blockShaded, n.regular, inkColor, strings.Join(rows, "\n"))
	}
	for _, img := range images {
		blocks = append(blocks, block{kind: blockImage, img: fitWidth(img, inner)})
	}
	for _, o := range c.Options {
		text(blockText, n.regular, inkColor, o)
	}
	if c.Choice != nil {
		text(blockText, n.bold, inkColor, fmt.Sprintf("Answer: (%d)", *c.Choice))
	}

	height := nativeMargin
	for _, b := range blocks {
		height += b.height() + nativeGap
	}
	height += nativeMargin - nativeGap

	dst := image.NewRGBA(image.Rect(0, 0, n.Width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	y := nativeMargin
	for _, b := range blocks {
		h := b.height()
		switch b.kind {
		case blockImage:
			r := image.Rect(nativeMargin, y, nativeMargin+b.img.Bounds().Dx(), y+h)
			draw.Draw(dst, r, b.img, b.img.Bounds().Min, draw.Over)
		case blockShaded:
			draw.Draw(dst, image.Rect(nativeMargin, y, n.Width-nativeMargin, y+h), image.NewUniform(shadeColor), image.Point{}, draw.Src)
			draw.Draw(dst, image.Rect(nativeMargin, y, nativeMargin+4, y+h), image.NewUniform(accentColor), image.Point{}, draw.Src)
			drawLines(dst, b, nativeMargin+nativeGap, y+nativeGap/2)
		default:
			drawLines(dst, b, nativeMargin, y)
		}
		y += h + nativeGap
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return failures, fmt.Errorf("create card dir: %w", err)
	}
	f, err := os.Create(out)
	if err != nil {
		return failures, fmt.Errorf("create card: %w", err)
	}
	if err := png.Encode(f, dst); err != nil {
		f.Close()
		return failures, fmt.Errorf("encode card: %w", err)
	}
	return failures, f.Close()
}

func (b block) height() int {
	switch b.kind {
	case blockImage:
		return b.img.Bounds().Dy()
	case blockShaded:
		return len(b.lines)*lineHeight(b.face) + nativeGap
	}
	return len(b.lines) * lineHeight(b.face)
}

func lineHeight(face font.Face) int {
	m := face.Metrics()
	return (m.Height + m.Height/4).Ceil()
}

func drawLines(dst draw.Image, b block, x, y int) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(b.ink), Face: b.face}
	lh := lineHeight(b.face)
	ascent := b.face.Metrics().Ascent.Ceil()
	for i, line := range b.lines {
		d.Dot = fixed.P(x, y+i*lh+ascent)
		d.DrawString(line)
	}
}

// wrap breaks s into lines no wider than width pixels. Existing line
// breaks are kept.
func wrap(face font.Face, s string, width int) []string {
	limit := fixed.I(width)
	var out []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			candidate := line + " " + w
			if font.MeasureString(face, candidate) > limit {
				out = append(out, line)
				line = w
				continue
			}
			line = candidate
		}
		out = append(out, line)
	}
	return out
}

// fitWidth scales img down to at most width pixels wide.
func fitWidth(img image.Image, width int) image.Image {
	b := img.Bounds()
	if b.Dx() <= width {
		return img
	}
	h := b.Dy() * width / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func plainText(s string) string {
	return markup.CollapseBlankLines(markup.Unescape(markup.StripTags(s)))
}

// tableRows flattens table HTML into one " | "-joined line per row.
func tableRows(tableHTML string) []string {
	doc, err := html.Parse(strings.NewReader(tableHTML))
	if err != nil {
		return nil
	}
	var rows []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
					cells = append(cells, markup.CollapseSpace(nodeText(c)))
				}
			}
			if len(cells) > 0 {
				rows = append(rows, strings.Join(cells, " | "))
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return rows
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
		sb.WriteByte(' ')
	}
	return sb.String()
}
