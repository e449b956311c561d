package segment

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/quizforge/internal/doctree"
	"github.com/dgallion1/quizforge/internal/markup"
	"github.com/dgallion1/quizforge/internal/visuals"
)

var (
	solutionHeaderRe = regexp.MustCompile(`(?i)<strong>\s*((?:TEST|PASSAGE)\s*[-–—]+\s*(?:[IVXLC]+|\d{1,3})|Solutions?)\s*</strong>`)
	solutionMarkerRe = regexp.MustCompile(`<strong>\s*(\d{1,3})\s*\.\s*</strong>`)
	choiceRe         = regexp.MustCompile(`(?i)(?:<strong>\s*)?\bChoice\s*(?:</strong>\s*)?(?:<strong>\s*)?\(?\s*(\d{1,3})\s*\)?(?:\s*</strong>)*`)
	boilerplateRe    = regexp.MustCompile(`(?i)(?:<strong>\s*)?Solutions?\s+(?:for\s+)?(?:the\s+)?questions?\s+\d{1,3}\s*(?:(?:to|and|-|–)\s*\d{1,3})?\s*:?(?:\s*</strong>)?`)
	solutionsWordRe  = regexp.MustCompile(`(?i)^solutions?$`)
)

// SolutionsSegmenter splits answer-key documents into solution entries.
type SolutionsSegmenter struct {
	settings
	idx visuals.Index
}

// NewSolutions returns a SolutionsSegmenter attaching visuals from idx by
// direct number lookup.
func NewSolutions(idx visuals.Index, opts ...Option) *SolutionsSegmenter {
	return &SolutionsSegmenter{settings: newSettings(opts), idx: idx}
}

// Segment builds the solutions document. It never fails.
func (s *SolutionsSegmenter) Segment(filename, normalized string) (doc doctree.SolutionDocument) {
	doc.Filename = filename
	doc.Layout = s.layout
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("solution segmentation aborted", "file", filename, "panic", r)
		}
	}()

	text := strings.ReplaceAll(normalized, "\r\n", "\n")
	for _, raw := range splitSections(text, solutionHeaderRe) {
		label := raw.label
		if solutionsWordRe.MatchString(label) {
			label = "Solutions"
		}
		sec := doctree.SolutionSection{Label: label, Entries: s.entries(raw.body)}
		doc.Sections = append(doc.Sections, sec)
		s.log.Debug("solutions section segmented", "label", label, "solutions", len(sec.Entries))
	}
	return doc
}

func (s *SolutionsSegmenter) entries(body string) []doctree.SolutionEntry {
	locs := solutionMarkerRe.FindAllStringSubmatchIndex(body, -1)
	out := make([]doctree.SolutionEntry, 0, len(locs))
	for i, loc := range locs {
		end := len(body)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		n, _ := strconv.Atoi(body[loc[2]:loc[3]])
		text, choice := parseSolution(body[loc[1]:end])
		e := doctree.SolutionEntry{Number: n, Text: text, Choice: choice, Tables: []string{}, Images: []string{}}
		if v, ok := s.idx.ByNumber(n); ok {
			e.Tables = append(e.Tables, v.Tables...)
			for _, img := range v.Images {
				e.Images = appendImage(e.Images, s.resolve(img))
			}
		}
		out = append(out, e)
	}
	return out
}

// parseSolution extracts the last Choice marker and cleans the solution text.
func parseSolution(chunk string) (string, *int) {
	var choice *int
	if ms := choiceRe.FindAllStringSubmatch(chunk, -1); len(ms) > 0 {
		if n, err := strconv.Atoi(ms[len(ms)-1][1]); err == nil {
			choice = &n
		}
	}
	text := choiceRe.ReplaceAllString(chunk, "")
	text = boilerplateRe.ReplaceAllString(text, "")
	text = markup.StripTags(text)

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	text = strings.Join(lines, "\n")
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text), choice
}
