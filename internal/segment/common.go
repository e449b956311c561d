package segment

import (
	"regexp"
	"strings"

	"github.com/dgallion1/quizforge/internal/markup"
)

var (
	optionLineRe     = regexp.MustCompile(`(?mi)^[> \t]*(?:<strong>\s*)?[(\[](?:[A-E]|\d{1,3})[)\]].*$`)
	wideGapLineRe    = regexp.MustCompile(`(?m)^.*[ \t]{3,}.*$`)
	numericLineRe    = regexp.MustCompile(`^[ \d%|.\-]*\d[ \d%|.\-]*$`)
	bareHeaderLineRe = regexp.MustCompile(`(?mi)^[ \t]*(?:<strong>)?\s*(?:TEST|PASSAGE)\s*[-–—]*\s*(?:[IVXLC]+|\d{1,3})?\s*(?:</strong>)?[ \t]*$`)
)

const strongOpen = "<strong>"

// ScrubCommon cleans shared direction or passage text: embedded question
// markers and their bodies, option lines, bare section header lines and
// table-shaped lines are removed, lines are trimmed and blank runs collapsed.
func ScrubCommon(text string) string {
	text = stripEmbeddedQuestions(text)
	text = optionLineRe.ReplaceAllString(text, "")
	text = bareHeaderLineRe.ReplaceAllString(text, "")
	text = wideGapLineRe.ReplaceAllString(text, "")
	text = dropNumericRuns(text)
	return markup.CollapseBlankLines(text)
}

// stripEmbeddedQuestions removes each bold question marker and everything up
// to the next <strong> or the end of text.
func stripEmbeddedQuestions(text string) string {
	for {
		loc := boldQuestionRe.FindStringIndex(text)
		if loc == nil {
			return text
		}
		end := len(text)
		if i := strings.Index(text[loc[1]:], strongOpen); i >= 0 {
			end = loc[1] + i
		}
		text = text[:loc[0]] + text[end:]
	}
}

// dropNumericRuns removes runs of two or more lines holding only digits,
// percent signs, pipes, dashes, dots and spaces.
func dropNumericRuns(text string) string {
	lines := strings.Split(text, "\n")
	drop := make([]bool, len(lines))
	for i := 0; i < len(lines); {
		if !numericLineRe.MatchString(lines[i]) {
			i++
			continue
		}
		j := i
		for j < len(lines) && numericLineRe.MatchString(lines[j]) {
			j++
		}
		if j-i >= 2 {
			for k := i; k < j; k++ {
				drop[k] = true
			}
		}
		i = j
	}
	kept := lines[:0:0]
	for i, l := range lines {
		if !drop[i] {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
