// Package render draws each question or solution record as a PNG card.
package render

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	treeblood "github.com/wyatt915/goldmark-treeblood"
	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/dgallion1/quizforge/internal/doctree"
)

// Card is the renderable content of one record.
type Card struct {
	Section    string
	Label      string // "Q12" or "S12"
	MainCommon string
	SubCommon  string
	Text       string
	Options    []string
	Tables     []string
	Images     []string
	Choice     *int
}

// QuestionCard builds the card for q in section.
func QuestionCard(section string, q doctree.Question) Card {
	return Card{
		Section:    section,
		Label:      "Q" + strconv.Itoa(q.Number),
		MainCommon: q.MainCommon,
		SubCommon:  q.SubCommon,
		Text:       q.Text,
		Options:    q.Options,
		Tables:     q.Tables,
		Images:     q.Images,
	}
}

// SolutionCard builds the card for e in section.
func SolutionCard(section string, e doctree.SolutionEntry) Card {
	return Card{
		Section: section,
		Label:   "S" + strconv.Itoa(e.Number),
		Text:    e.Text,
		Tables:  e.Tables,
		Images:  e.Images,
		Choice:  e.Choice,
	}
}

const cardCSS = `body{margin:0;background:#fff;font-family:"Segoe UI",Arial,sans-serif;font-size:22px;color:#111}
.card{padding:32px 40px}
.section{font-size:16px;color:#666;text-transform:uppercase;letter-spacing:.05em}
.common{background:#f4f6f8;border-left:4px solid #9aa5b1;padding:12px 18px;margin:12px 0}
.sub{border-left-color:#c5ccd3}
.question{margin:16px 0;font-weight:500}
ol.options{list-style:none;padding-left:0}
ol.options li{margin:6px 0}
table{border-collapse:collapse;margin:12px 0}
td,th{border:1px solid #888;padding:4px 10px}
img{max-width:100%;margin:12px 0;display:block}
.choice{margin-top:16px;font-weight:600}`

// HTMLBuilder renders cards to standalone HTML. Inline markup is passed
// through and leftover LaTeX is typeset as MathML.
type HTMLBuilder struct {
	md goldmark.Markdown
}

func NewHTMLBuilder() *HTMLBuilder {
	return &HTMLBuilder{md: goldmark.New(
		goldmark.WithExtensions(treeblood.MathML()),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe(), gmhtml.WithHardWraps()),
	)}
}

// Build returns the card document. images are the already-validated image
// paths to embed; the card's own Images field is ignored.
func (b *HTMLBuilder) Build(c Card, images []string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><style>")
	buf.WriteString(cardCSS)
	buf.WriteString("</style></head><body><div class=\"card\">\n")
	fmt.Fprintf(&buf, "<div class=\"section\">%s · %s</div>\n", html.EscapeString(c.Section), html.EscapeString(c.Label))

	if err := b.block(&buf, "common", c.MainCommon); err != nil {
		return "", err
	}
	if err := b.block(&buf, "common sub", c.SubCommon); err != nil {
		return "", err
	}
	if err := b.block(&buf, "question", c.Text); err != nil {
		return "", err
	}
	for _, t := range c.Tables {
		buf.WriteString(t)
		buf.WriteByte('\n')
	}
	for _, img := range images {
		fmt.Fprintf(&buf, "<img src=\"%s\">\n", html.EscapeString(fileURL(img)))
	}
	if len(c.Options) > 0 {
		buf.WriteString("<ol class=\"options\">\n")
		for _, o := range c.Options {
			inner, err := b.inline(o)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&buf, "<li>%s</li>\n", inner)
		}
		buf.WriteString("</ol>\n")
	}
	if c.Choice != nil {
		fmt.Fprintf(&buf, "<div class=\"choice\">Answer: (%d)</div>\n", *c.Choice)
	}
	buf.WriteString("</div></body></html>\n")
	return buf.String(), nil
}

func (b *HTMLBuilder) block(buf *bytes.Buffer, class, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	fmt.Fprintf(buf, "<div class=\"%s\">", class)
	if err := b.md.Convert([]byte(text), buf); err != nil {
		return fmt.Errorf("render %s: %w", class, err)
	}
	buf.WriteString("</div>\n")
	return nil
}

// inline converts text and unwraps the single paragraph goldmark produces.
func (b *HTMLBuilder) inline(text string) (string, error) {
	var buf bytes.Buffer
	if err := b.md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("render option: %w", err)
	}
	s := strings.TrimSpace(buf.String())
	if strings.HasPrefix(s, "<p>") && strings.HasSuffix(s, "</p>") && strings.Count(s, "<p>") == 1 {
		s = s[len("<p>") : len(s)-len("</p>")]
	}
	return s, nil
}

// fileURL returns an absolute file:// URL for p. A relative path would
// otherwise put its first element in the host position.
func fileURL(p string) string {
	if strings.Contains(p, "://") {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}
