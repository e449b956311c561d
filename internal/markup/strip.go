package markup

import (
	"regexp"
	"strings"
)

var tagRe = regexp.MustCompile(`</?[A-Za-z][^<>]*>`)

// StripTags removes HTML-style tags, leaving their text content. A tag
// whose < is backslash-escaped is text and stays.
func StripTags(s string) string {
	locs := tagRe.FindAllStringIndex(s, -1)
	if locs == nil {
		return s
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		if loc[0] > 0 && s[loc[0]-1] == '\\' {
			continue
		}
		b.WriteString(s[last:loc[0]])
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// Unescape drops the backslash Normalize keeps in front of markup
// characters, for plain-text consumers.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && strings.IndexByte(tokenStarts, s[i+1]) >= 0 {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// CollapseSpace replaces every whitespace run with a single space and trims the ends.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CollapseBlankLines trims each line and reduces 3+ consecutive newlines to two.
func CollapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(extraNewlineRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
