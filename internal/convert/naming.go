package convert

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	uploadPrefixRe = regexp.MustCompile(`^\d{8,}-`)
	slugInvalidRe  = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashesRe   = regexp.MustCompile(`-+`)
)

// NormalizeFilename returns the stem of name without directory, extension or
// the numeric upload prefix ("1752257752115-QWHO25.docx" becomes "QWHO25").
func NormalizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return uploadPrefixRe.ReplaceAllString(base, "")
}

// Slug converts a string to a path-safe slug. An empty result becomes "untitled".
func Slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalidRe.ReplaceAllString(s, "-")
	s = slugDashesRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 80 {
		s = strings.TrimRight(s[:80], "-")
	}
	if s == "" {
		return "untitled"
	}
	return s
}

// IsSupportedExtension reports whether name is a DOCX file.
func IsSupportedExtension(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".docx")
}
