package convert

import (
	"regexp"
	"strings"
)

var (
	headerTestRe       = regexp.MustCompile(`(?im)^[ \t]*(?:\*{0,3}[ \t]*)?TEST`)
	headerDirectionsRe = regexp.MustCompile(`(?im)^[ \t]*(?:\*{0,3}[ \t]*)?Directions`)
	headerQuestionRe   = regexp.MustCompile(`(?m)^[ \t]*(?:\*{0,3}[ \t]*)?(?:Q\.?[ \t]*)?\d{1,3}\\?[.)]`)
	bodyStartRe        = regexp.MustCompile(`(?i)Directions|^[ \t]*(?:\*{0,3}[ \t]*)?(?:Q\.?[ \t]*)?\d{1,3}\\?[.)]`)
)

// ExcludeHeader drops everything before the first TEST header, Directions
// line or question number. When a TEST line comes first it is kept and the
// lines between it and the next Directions or question line are dropped.
func ExcludeHeader(md string) string {
	first, firstRe := -1, (*regexp.Regexp)(nil)
	for _, re := range []*regexp.Regexp{headerTestRe, headerDirectionsRe, headerQuestionRe} {
		if loc := re.FindStringIndex(md); loc != nil && (first < 0 || loc[0] < first) {
			first, firstRe = loc[0], re
		}
	}
	if first < 0 {
		return strings.TrimLeft(md, " \t\r\n")
	}
	if firstRe != headerTestRe {
		return strings.TrimLeft(md[first:], " \t\r\n")
	}

	lines := strings.SplitAfter(md[first:], "\n")
	testLine := lines[0]
	if !strings.HasSuffix(testLine, "\n") {
		testLine += "\n"
	}
	rest := lines[1:]
	for i, line := range rest {
		if bodyStartRe.MatchString(line) {
			rest = rest[i:]
			break
		}
	}
	return testLine + strings.TrimLeft(strings.Join(rest, ""), " \t\r\n")
}
