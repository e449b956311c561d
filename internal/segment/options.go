package segment

import (
	"regexp"
	"strings"
)

var (
	optionMarkerRe = regexp.MustCompile(`(?i)^[> \t]*(<strong>\s*)?[(\[]([A-E]|\d{1,3})[)\]](\s*</strong>)?[ \t.)]*(.*)$`)
	inlineNumberRe = regexp.MustCompile(`(?:<strong>\s*)?\((\d{1,3})\)(?:\s*</strong>)?`)
	blankLineRe    = regexp.MustCompile(`\n[ \t]*\n`)
)

type lineState int

const (
	inQuestionText lineState = iota
	inOptionBlock
	afterOptions
)

type option struct {
	marker string
	lines  []string
}

// splitOptions separates question text lines from option blocks. An option
// runs to the next option line, a blank line or the end of the body; text
// after a closed option block is dropped.
func splitOptions(body string) (text []string, opts []option) {
	st := inQuestionText
	var cur *option
	flush := func() {
		if cur != nil {
			opts = append(opts, *cur)
			cur = nil
		}
	}
	for _, line := range strings.Split(body, "\n") {
		marker, rest, isOption := parseOptionLine(line)
		blank := strings.TrimSpace(line) == ""
		switch {
		case isOption:
			flush()
			cur = &option{marker: marker}
			if rest != "" {
				cur.lines = append(cur.lines, rest)
			}
			st = inOptionBlock
		case st == inQuestionText:
			text = append(text, line)
		case st == inOptionBlock && blank:
			flush()
			st = afterOptions
		case st == inOptionBlock:
			cur.lines = append(cur.lines, strings.TrimSpace(line))
		}
	}
	flush()
	return text, opts
}

// splitInlineNumbered cuts body at "(n)" markers when there are two or more
// and at least one does not start its line. Each option runs to the next
// marker or a blank line; whitespace inside it collapses.
func splitInlineNumbered(body string) (text []string, opts []option, ok bool) {
	locs := inlineNumberRe.FindAllStringSubmatchIndex(body, -1)
	if len(locs) < 2 {
		return nil, nil, false
	}
	midLine := false
	for _, loc := range locs {
		lineStart := strings.LastIndexByte(body[:loc[0]], '\n') + 1
		if strings.TrimSpace(body[lineStart:loc[0]]) != "" {
			midLine = true
			break
		}
	}
	if !midLine {
		return nil, nil, false
	}
	for i, loc := range locs {
		end := len(body)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		rest := body[loc[1]:end]
		if b := blankLineRe.FindStringIndex(rest); b != nil {
			rest = rest[:b[0]]
		}
		o := option{marker: body[loc[2]:loc[3]]}
		if rest = strings.Join(strings.Fields(rest), " "); rest != "" {
			o.lines = []string{rest}
		}
		opts = append(opts, o)
	}
	return strings.Split(body[:locs[0][0]], "\n"), opts, true
}

func hasLetterOption(opts []option) bool {
	for _, o := range opts {
		if o.marker >= "A" && o.marker <= "E" {
			return true
		}
	}
	return false
}

func parseOptionLine(line string) (marker, rest string, ok bool) {
	m := optionMarkerRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	rest = strings.TrimSpace(m[4])
	if m[1] != "" && m[3] == "" {
		rest = strings.TrimSpace(strings.TrimSuffix(rest, "</strong>"))
	}
	return strings.ToUpper(m[2]), rest, true
}

// formatOptions renders options as "(X) text" under policy p.
func formatOptions(opts []option, p Policy) []string {
	out := make([]string, 0, len(opts))
	seen := make(map[string]bool)
	for _, o := range opts {
		if p.DedupeOptions {
			if seen[o.marker] {
				continue
			}
			seen[o.marker] = true
		}
		var body string
		if p.PreserveOptionLinebreaks {
			var kept []string
			for _, l := range o.lines {
				if l = strings.TrimSpace(l); l != "" {
					kept = append(kept, l)
				}
			}
			body = strings.Join(kept, "\n")
		} else {
			body = strings.Join(strings.Fields(strings.Join(o.lines, " ")), " ")
		}
		out = append(out, strings.TrimSpace("("+o.marker+") "+body))
	}
	return out
}
