package markup

import (
	"strings"
	"unicode"
)

var superscripts = map[rune]rune{
	'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴',
	'5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹',
	'+': '⁺', '-': '⁻', '−': '⁻', '=': '⁼', '(': '⁽', ')': '⁾',
	'n': 'ⁿ', 'i': 'ⁱ',
}

var subscripts = map[rune]rune{
	'0': '₀', '1': '₁', '2': '₂', '3': '₃', '4': '₄',
	'5': '₅', '6': '₆', '7': '₇', '8': '₈', '9': '₉',
	'+': '₊', '-': '₋', '−': '₋', '=': '₌', '(': '₍', ')': '₎',
	'a': 'ₐ', 'e': 'ₑ', 'o': 'ₒ', 'x': 'ₓ', 'i': 'ᵢ', 'r': 'ᵣ',
	'u': 'ᵤ', 'v': 'ᵥ', 's': 'ₛ', 't': 'ₜ', 'n': 'ₙ',
}

var unicodeFractions = map[string]string{
	"1/2": "½", "1/3": "⅓", "2/3": "⅔", "1/4": "¼", "3/4": "¾",
	"1/5": "⅕", "2/5": "⅖", "3/5": "⅗", "4/5": "⅘", "1/6": "⅙",
	"5/6": "⅚", "1/8": "⅛", "3/8": "⅜", "5/8": "⅝", "7/8": "⅞",
}

// scriptText maps every rune found in table and passes the rest through unchanged.
func scriptText(s string, table map[rune]rune) string {
	var b strings.Builder
	for _, r := range s {
		if m, ok := table[r]; ok {
			b.WriteRune(m)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// mapAll maps s through table and reports whether every rune had a mapping.
func mapAll(s string, table map[rune]rune) (string, bool) {
	if s == "" {
		return "", false
	}
	var b strings.Builder
	for _, r := range s {
		m, ok := table[r]
		if !ok {
			return "", false
		}
		b.WriteRune(m)
	}
	return b.String(), true
}

// scriptSpan renders the content of a ^sup^ or ~sub~ span.
func scriptSpan(content string, sup bool) string {
	content = strings.ReplaceAll(content, `\ `, " ")
	if f, ok := unicodeFractions[content]; ok {
		return f
	}
	if sup && isOrdinalSuffix(content) {
		return content
	}
	if sup {
		return scriptText(content, superscripts)
	}
	return scriptText(content, subscripts)
}

// isOrdinalSuffix reports the "st", "nd", "th" style superscripts that stay plain.
func isOrdinalSuffix(s string) bool {
	if len([]rune(s)) < 2 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
