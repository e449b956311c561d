// Package segment recovers the section, direction block, question and option
// structure of a normalized exam document.
package segment

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/quizforge/internal/doctree"
	"github.com/dgallion1/quizforge/internal/markup"
	"github.com/dgallion1/quizforge/internal/visuals"
)

var (
	blockquotePrefixRe = regexp.MustCompile(`(?m)^[> \t]+`)
	mdImageRe          = regexp.MustCompile(`!\[[^\]]*\]\(([^)]*)\)`)
	htmlImageRe        = regexp.MustCompile(`(?i)<img\b[^>]*>`)
	barePathRe         = regexp.MustCompile(`(?i)media/[^\s)>"]+`)
)

// Option configures a Segmenter or SolutionsSegmenter.
type Option func(*settings)

type settings struct {
	resolve func(string) string
	log     *slog.Logger
	layout  doctree.Layout
}

func newSettings(opts []Option) settings {
	st := settings{
		resolve: func(p string) string { return p },
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(&st)
	}
	return st
}

// WithImageResolver maps every image path before de-duplication.
func WithImageResolver(fn func(string) string) Option {
	return func(s *settings) {
		if fn != nil {
			s.resolve = fn
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.log = log
		}
	}
}

// WithLayout selects the JSON layout of solutions documents.
func WithLayout(l doctree.Layout) Option {
	return func(s *settings) {
		s.layout = l
	}
}

// Segmenter turns normalized text into a doctree.Document. It holds no
// per-document state and is safe for concurrent use.
type Segmenter struct {
	settings
	policy Policy
	idx    visuals.Index
}

// New returns a Segmenter for policy p that merges visuals from idx.
func New(p Policy, idx visuals.Index, opts ...Option) *Segmenter {
	return &Segmenter{settings: newSettings(opts), policy: p, idx: idx}
}

// Segment builds the document tree. It never fails: input it cannot
// interpret degrades to fewer sections, blocks or questions.
func (s *Segmenter) Segment(filename, normalized string) (doc doctree.Document) {
	doc.Filename = filename
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("segmentation aborted", "file", filename, "panic", r)
		}
	}()

	text := strings.ReplaceAll(normalized, "\r\n", "\n")
	m := newMerger(s.idx, s.policy, s.resolve)
	for _, raw := range splitSections(text, sectionHeaderRe) {
		sec := s.segmentSection(raw)
		for i := range sec.Questions {
			q := &sec.Questions[i]
			m.apply(q, sec.inline[i])
		}
		for i := range sec.Questions {
			sec.Questions[i].Images = nonNil(sec.Questions[i].Images)
			sec.Questions[i].Tables = nonNil(sec.Questions[i].Tables)
		}
		doc.Sections = append(doc.Sections, sec.Section)
		s.log.Debug("section segmented",
			"label", sec.Label,
			"questions", len(sec.Questions),
			"directions", len(sec.Directions),
		)
	}
	return doc
}

// builtSection carries each question's inline image refs, by index, until
// the visuals merge.
type builtSection struct {
	doctree.Section
	inline [][]string
}

func (s *Segmenter) segmentSection(raw rawSection) builtSection {
	body := raw.body
	events := scanMarkers(body, s.policy.PlainQuestionMarkers)
	sp := walk(events, len(body))

	blocks := make([]doctree.DirectionBlock, 0, len(sp.directions))
	headers := make([]string, 0, len(sp.directions))
	for _, d := range sp.directions {
		blocks = append(blocks, doctree.DirectionBlock{
			Start:    d.ev.from,
			End:      d.ev.to,
			FullText: strings.TrimSpace(body[d.start:d.end]),
			Span:     [2]int{d.start, d.end},
			Singular: d.ev.singular,
		})
		headers = append(headers, body[d.ev.start:d.ev.end])
	}
	order := make([]int, len(blocks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ba, bb := blocks[order[a]], blocks[order[b]]
		if ba.Start != bb.Start {
			return ba.Start < bb.Start
		}
		return ba.Span[0] < bb.Span[0]
	})
	sorted := make([]doctree.DirectionBlock, len(blocks))
	for i, j := range order {
		sorted[i] = blocks[j]
	}

	var fallback string
	if len(blocks) == 0 && len(sp.questions) > 0 {
		fallback = ScrubCommon(body[:sp.questions[0].start])
	}

	out := builtSection{Section: doctree.Section{Label: raw.label, Directions: sorted}}
	for _, qs := range sp.questions {
		q := doctree.Question{Number: qs.ev.number}
		q.MainCommon, q.SubCommon = commonFor(q.Number, sorted, fallback)

		qbody := body[qs.ev.end:qs.end]
		for i, b := range blocks {
			if strings.Contains(qbody, headers[i]) {
				qbody = strings.ReplaceAll(qbody, b.FullText, "")
				qbody = strings.ReplaceAll(qbody, headers[i], "")
			}
		}
		var inline []string
		q.Text, q.Options, inline = s.buildQuestion(qbody, qs.ev.header)
		out.Questions = append(out.Questions, q)
		out.inline = append(out.inline, inline)
	}
	return out
}

// commonFor resolves main and sub common text for question n. The first
// covering block (in sorted order) is main; each later one overwrites sub.
func commonFor(n int, sorted []doctree.DirectionBlock, fallback string) (mainText, subText string) {
	found := false
	for _, b := range sorted {
		if !b.Covers(n) {
			continue
		}
		if !found {
			mainText = ScrubCommon(b.FullText)
			found = true
			continue
		}
		subText = ScrubCommon(b.FullText)
	}
	if !found {
		mainText = fallback
	}
	return mainText, subText
}

// buildQuestion splits a question body into text and options and collects
// inline image refs when the policy asks for them.
func (s *Segmenter) buildQuestion(qbody, header string) (text string, options, images []string) {
	qbody = blockquotePrefixRe.ReplaceAllString(qbody, "")
	qbody = markup.StripTables(qbody)

	if s.policy.CollectInlineImages {
		for _, m := range mdImageRe.FindAllStringSubmatch(qbody, -1) {
			images = appendImage(images, markup.CleanImagePath(m[1]))
		}
	}

	lines, opts := splitOptions(qbody)
	if s.policy.InlineNumberedOptions && !hasLetterOption(opts) {
		if l, o, ok := splitInlineNumbered(qbody); ok {
			lines, opts = l, o
		}
	}
	text = strings.Join(lines, "\n")
	text = mdImageRe.ReplaceAllString(text, "")
	text = htmlImageRe.ReplaceAllString(text, "")
	text = barePathRe.ReplaceAllString(text, "")
	text = markup.CollapseBlankLines(text)
	if text == "" {
		text = header
	}
	return text, formatOptions(opts, s.policy), images
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
