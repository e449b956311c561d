package markup

import (
	"regexp"
	"strings"
)

type lineKind int

const (
	lineText lineKind = iota
	lineBlank
	lineGridBorder
	linePipeRow
	linePipeSep
	lineDashRule
	lineMultiColumn
	lineRatio
)

var (
	htmlTableRe   = regexp.MustCompile(`(?is)<table\b.*?</table>`)
	gridBorderRe  = regexp.MustCompile(`^\s*\+(?:[-=:]+\+)+\s*$`)
	pipeSepRe     = regexp.MustCompile(`^\s*\|?\s*:?-{3,}:?\s*(?:\|\s*:?-{3,}:?\s*)+\|?\s*$`)
	pipeRowRe     = regexp.MustCompile(`^\s*\|.*\|\s*$`)
	dashRuleRe    = regexp.MustCompile(`^\s*-{3,}(?:[ \t]+-{3,})*\s*$`)
	ratioRowRe    = regexp.MustCompile(`^\s*(?:\*\*|<strong>)[^*<\n]+(?:\*\*|</strong>)\s+.*\d\s*:\s*\d`)
	multiColumnRe = regexp.MustCompile(`\S[ \t]{2,}\S`)
	optionRowRe   = regexp.MustCompile(`^\s*(?:\*\*|<strong>)?\s*\\?[(\[](?:[A-Ea-e]|\d{1,3})\\?[)\]]`)
	listMarkerRe  = regexp.MustCompile(`^(?:\\?\d{1,3}\\?[.)]|[-*+]|\\?[(\[][A-Za-z0-9]{1,3}\\?[)\]])[ \t]+`)
)

// maxBorderedRows bounds how far a dashed top border looks for its bottom border.
const maxBorderedRows = 60

func classifyLine(line string) lineKind {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return lineBlank
	case gridBorderRe.MatchString(line):
		return lineGridBorder
	case pipeSepRe.MatchString(line):
		return linePipeSep
	case pipeRowRe.MatchString(line):
		return linePipeRow
	case dashRuleRe.MatchString(line):
		return lineDashRule
	case optionRowRe.MatchString(line):
		return lineText
	case ratioRowRe.MatchString(line):
		return lineRatio
	case multiColumnRe.MatchString(listMarkerRe.ReplaceAllString(trimmed, "")):
		return lineMultiColumn
	}
	return lineText
}

// StripTables deletes every block that looks like a table: HTML tables, grid and
// pipe tables, dashed-border blocks of tabular rows, runs of fixed-width
// multi-column rows and runs of bold key:value ratio rows. Table content is
// sourced from the HTML side channel instead.
func StripTables(text string) string {
	text = htmlTableRe.ReplaceAllString(text, "\n")
	lines := strings.Split(text, "\n")
	kinds := make([]lineKind, len(lines))
	for i, l := range lines {
		kinds[i] = classifyLine(l)
	}

	drop := make([]bool, len(lines))
	for i, k := range kinds {
		switch k {
		case lineGridBorder, linePipeRow, linePipeSep, lineDashRule:
			drop[i] = true
		}
	}

	for i := 0; i < len(lines); i++ {
		if kinds[i] != lineDashRule {
			continue
		}
		j := nextDashRule(kinds, i+1)
		if j < 0 || !tabular(kinds[i+1:j]) {
			continue
		}
		for k := i; k <= j; k++ {
			drop[k] = true
		}
		i = j
	}

	dropRuns(kinds, drop, lineMultiColumn, 2)
	dropRuns(kinds, drop, lineRatio, 2)

	kept := lines[:0:0]
	for i, l := range lines {
		if !drop[i] {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

func nextDashRule(kinds []lineKind, from int) int {
	for j := from; j < len(kinds) && j-from < maxBorderedRows; j++ {
		if kinds[j] == lineDashRule {
			return j
		}
	}
	return -1
}

// tabular reports whether every non-blank line between two borders is a table row.
func tabular(kinds []lineKind) bool {
	rows := 0
	for _, k := range kinds {
		switch k {
		case lineBlank:
		case lineMultiColumn, lineRatio, linePipeRow, linePipeSep, lineGridBorder:
			rows++
		default:
			return false
		}
	}
	return rows > 0
}

func dropRuns(kinds []lineKind, drop []bool, kind lineKind, minRun int) {
	for i := 0; i < len(kinds); {
		if kinds[i] != kind {
			i++
			continue
		}
		j := i
		for j < len(kinds) && kinds[j] == kind {
			j++
		}
		if j-i >= minRun {
			for k := i; k < j; k++ {
				drop[k] = true
			}
		}
		i = j
	}
}
