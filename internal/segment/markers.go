package segment

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dgallion1/quizforge/internal/markup"
)

var (
	sectionHeaderRe = regexp.MustCompile(`(?i)<strong>\s*((?:TEST|PASSAGE)\s*[-–—]+\s*(?:[IVXLC]+|\d{1,3}))\s*</strong>`)
	dashRunRe       = regexp.MustCompile(`\s*[-–—]+\s*`)

	pluralDirRe   = regexp.MustCompile(`(?i)(?:<(?:em|strong)>\s*){1,2}Directions?\s+for\s+(?:the\s+)?questions?\s+(\d{1,3})\s*(?:to|and|-|–|—)\s*(\d{1,3})[^\n]*?(?:\s*</(?:em|strong)>){1,2}`)
	singularDirRe = regexp.MustCompile(`(?i)(?:<(?:em|strong)>\s*){1,2}Directions?\s+for\s+(?:the\s+)?question\s+(\d{1,3})\b[^\n]*?(?:\s*</(?:em|strong)>){1,2}`)

	boldQuestionRe  = regexp.MustCompile(`(?i)<strong>(?:\s*<(?:em|u)>)*\s*(\d{1,3})\s*\.\s*([^<\n]*?)\s*(?:</(?:em|u)>\s*)*</strong>`)
	plainQuestionRe = regexp.MustCompile(`(?m)^\\?(\d{1,3})\\?\.[ \t]*`)
)

// rawSection is a header-delimited slice of the document.
type rawSection struct {
	label string
	body  string
}

// splitSections cuts text at header matches. With no headers the whole text
// is one section labelled "". Text before the first header is dropped.
func splitSections(text string, re *regexp.Regexp) []rawSection {
	locs := re.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return []rawSection{{body: text}}
	}
	out := make([]rawSection, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out = append(out, rawSection{
			label: sectionLabel(text[loc[2]:loc[3]]),
			body:  text[loc[1]:end],
		})
	}
	return out
}

// sectionLabel strips tags, turns every dash run into " - " and collapses whitespace.
func sectionLabel(header string) string {
	s := markup.StripTags(header)
	s = dashRunRe.ReplaceAllString(s, " - ")
	return markup.CollapseSpace(s)
}

type eventKind int

const (
	evDirection eventKind = iota
	evQuestion
	evEnd
)

// event is one marker in a section body. start..end is the marker match.
type event struct {
	kind       eventKind
	start, end int

	// direction fields
	from, to int
	singular bool

	// question fields
	number int
	header string
	plain  bool
}

// scanMarkers returns the section's marker events in document order.
// Overlapping matches are dropped in favour of the earlier one, a plural
// direction beats a singular one at the same offset, and a bold question
// marker suppresses a plain one on the same line.
func scanMarkers(body string, plain bool) []event {
	var evs []event
	for _, m := range pluralDirRe.FindAllStringSubmatchIndex(body, -1) {
		from, _ := strconv.Atoi(body[m[2]:m[3]])
		to, _ := strconv.Atoi(body[m[4]:m[5]])
		if to < from {
			from, to = to, from
		}
		evs = append(evs, event{kind: evDirection, start: m[0], end: m[1], from: from, to: to})
	}
	for _, m := range singularDirRe.FindAllStringSubmatchIndex(body, -1) {
		n, _ := strconv.Atoi(body[m[2]:m[3]])
		evs = append(evs, event{kind: evDirection, start: m[0], end: m[1], from: n, to: n, singular: true})
	}
	boldLines := make(map[int]bool)
	for _, m := range boldQuestionRe.FindAllStringSubmatchIndex(body, -1) {
		n, _ := strconv.Atoi(body[m[2]:m[3]])
		evs = append(evs, event{
			kind: evQuestion, start: m[0], end: m[1],
			number: n, header: strings.TrimSpace(body[m[4]:m[5]]),
		})
		boldLines[lineStart(body, m[0])] = true
	}
	if plain {
		for _, m := range plainQuestionRe.FindAllStringSubmatchIndex(body, -1) {
			if boldLines[m[0]] {
				continue
			}
			n, _ := strconv.Atoi(body[m[2]:m[3]])
			evs = append(evs, event{kind: evQuestion, start: m[0], end: m[1], number: n, plain: true})
		}
	}

	sort.SliceStable(evs, func(i, j int) bool {
		if evs[i].start != evs[j].start {
			return evs[i].start < evs[j].start
		}
		return rank(evs[i]) < rank(evs[j])
	})

	kept := evs[:0]
	lastEnd := -1
	for _, e := range evs {
		if e.start < lastEnd {
			continue
		}
		kept = append(kept, e)
		lastEnd = e.end
	}
	return kept
}

func rank(e event) int {
	switch {
	case e.kind == evDirection && !e.singular:
		return 0
	case e.kind == evDirection:
		return 1
	case !e.plain:
		return 2
	}
	return 3
}

func lineStart(s string, i int) int {
	return strings.LastIndexByte(s[:i], '\n') + 1
}
