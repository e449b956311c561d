// Package markup rewrites converter-emitted markdown into the canonical
// vocabulary the segmenter reads: <strong>, <em> and <u> spans, plain-text
// math, Unicode super/subscripts, cleaned image references and no tables.
package markup

import (
	"log/slog"
	"regexp"
	"strings"
)

var (
	blockquoteRe   = regexp.MustCompile(`^[ \t]*(?:>[ \t]?)+`)
	optionLineRe   = regexp.MustCompile(`^[ \t]*\\?[(\[]([A-Ea-e]|[0-9]{1,3})\\?[)\]][.)]?[ \t]*(.*)$`)
	extraNewlineRe = regexp.MustCompile(`\n{3,}`)
	zeroWidthRe    = regexp.MustCompile("[\u200b-\u200f\u2060-\u206f\ufeff]")
)

// Normalizer converts raw converter output into canonical text. It is safe
// for concurrent use.
type Normalizer struct {
	log   *slog.Logger
	rules map[tokenKind]rule
}

type rule func(n *Normalizer, b *strings.Builder, t token)

// NewNormalizer returns a Normalizer logging through log, or slog.Default when nil.
func NewNormalizer(log *slog.Logger) *Normalizer {
	if log == nil {
		log = slog.Default()
	}
	return &Normalizer{log: log, rules: defaultRules}
}

var defaultRules = map[tokenKind]rule{
	tokText:  writeText,
	tokDelim: writeText,
	tokOpen: func(_ *Normalizer, b *strings.Builder, t token) {
		b.WriteString(openTag[t.style])
	},
	tokClose: func(_ *Normalizer, b *strings.Builder, t token) {
		b.WriteString(closeTag[t.style])
	},
	tokMath: func(n *Normalizer, b *strings.Builder, t token) {
		out, err := LatexToText(t.text)
		if err != nil {
			n.log.Warn("latex conversion failed", "fragment", t.raw, "error", err)
			b.WriteString(t.raw)
			return
		}
		b.WriteString(out)
	},
	tokImage: func(_ *Normalizer, b *strings.Builder, t token) {
		b.WriteString("![](" + CleanImagePath(t.text) + ")")
	},
	tokSup: func(_ *Normalizer, b *strings.Builder, t token) {
		b.WriteString(scriptSpan(t.text, true))
	},
	tokSub: func(_ *Normalizer, b *strings.Builder, t token) {
		b.WriteString(scriptSpan(t.text, false))
	},
	tokAttr: func(*Normalizer, *strings.Builder, token) {},
	tokBreak: func(_ *Normalizer, b *strings.Builder, _ token) {
		b.WriteByte('\n')
	},
}

var openTag = map[style]string{
	styleBold:       "<strong>",
	styleItalic:     "<em>",
	styleBoldItalic: "<strong><em>",
	styleUnderline:  "<u>",
}

var closeTag = map[style]string{
	styleBold:       "</strong>",
	styleItalic:     "</em>",
	styleBoldItalic: "</em></strong>",
	styleUnderline:  "</u>",
}

func writeText(_ *Normalizer, b *strings.Builder, t token) {
	b.WriteString(t.text)
}

// Normalize rewrites raw into canonical text. It never fails: anything it does
// not recognise is passed through unchanged.
func (n *Normalizer) Normalize(raw string) (out string) {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	defer func() {
		if r := recover(); r != nil {
			n.log.Error("normalization aborted, returning input", "panic", r)
			out = canonicalWhitespace(text)
		}
	}()

	text = StripTables(text)
	text = rewriteLines(text)

	toks := pairDelimiters(tokenize(text))
	var b strings.Builder
	b.Grow(len(text))
	for _, t := range toks {
		n.rules[t.kind](n, &b, t)
	}
	return canonicalWhitespace(b.String())
}

// rewriteLines strips blockquote prefixes and pandoc hard-break backslashes and
// rewrites line-start option markers into <strong>(X)</strong>.
func rewriteLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = blockquoteRe.ReplaceAllString(line, "")
		if hardBreak(line) {
			line = strings.TrimSuffix(strings.TrimRight(line, " \t"), `\`)
		}
		if m := optionLineRe.FindStringSubmatch(line); m != nil && !strings.HasPrefix(m[2], "{") {
			line = "<strong>(" + m[1] + ")</strong> " + strings.TrimSpace(m[2])
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// hardBreak reports a line ending in a single backslash, pandoc's line break.
func hardBreak(line string) bool {
	t := strings.TrimRight(line, " \t")
	return strings.HasSuffix(t, `\`) && !strings.HasSuffix(t, `\\`)
}

func canonicalWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	text = strings.Join(lines, "\n")
	text = extraNewlineRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// CleanImagePath normalizes an image reference: quotes, attributes and
// zero-width characters are removed, separators become forward slashes and
// the doubled media/media/ prefix pandoc produces is collapsed.
func CleanImagePath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.Trim(p, `"'<>`)
	p = zeroWidthRe.ReplaceAllString(p, "")
	p = strings.ReplaceAll(p, `\`, "/")
	for strings.Contains(p, "media/media/") {
		p = strings.ReplaceAll(p, "media/media/", "media/")
	}
	return p
}
