package markup

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrMalformedLatex is returned by LatexToText when a fragment cannot be parsed.
var ErrMalformedLatex = errors.New("markup: malformed latex")

var latexSymbols = map[string]string{
	"times":      "×",
	"div":        "÷",
	"cdot":       "·",
	"pi":         "π",
	"degree":     "°",
	"circ":       "°",
	"leq":        "≤",
	"le":         "≤",
	"geq":        "≥",
	"ge":         "≥",
	"neq":        "≠",
	"ne":         "≠",
	"approx":     "≈",
	"pm":         "±",
	"mp":         "∓",
	"infty":      "∞",
	"cong":       "≅",
	"sim":        "∼",
	"equiv":      "≡",
	"propto":     "∝",
	"Delta":      "Δ",
	"delta":      "δ",
	"alpha":      "α",
	"beta":       "β",
	"gamma":      "γ",
	"theta":      "θ",
	"lambda":     "λ",
	"mu":         "μ",
	"sigma":      "σ",
	"Sigma":      "Σ",
	"phi":        "φ",
	"omega":      "ω",
	"Omega":      "Ω",
	"angle":      "∠",
	"triangle":   "△",
	"perp":       "⊥",
	"parallel":   "∥",
	"therefore":  "∴",
	"because":    "∵",
	"ldots":      "…",
	"dots":       "…",
	"cdots":      "⋯",
	"rightarrow": "→",
	"to":         "→",
	"leftarrow":  "←",
	"Rightarrow": "⇒",
	"Leftarrow":  "⇐",
	"cup":        "∪",
	"cap":        "∩",
	"subset":     "⊂",
	"supset":     "⊃",
	"subseteq":   "⊆",
	"supseteq":   "⊇",
	"forall":     "∀",
	"exists":     "∃",
	"in":         "∈",
	"notin":      "∉",
	"prime":      "′",
	"percent":    "%",
}

// Commands whose argument is kept as plain text.
var latexPassthrough = map[string]bool{
	"mathrm":       true,
	"text":         true,
	"textrm":       true,
	"mathbf":       true,
	"mathit":       true,
	"mathsf":       true,
	"textbf":       true,
	"textit":       true,
	"operatorname": true,
	"overline":     true,
	"underline":    true,
	"bar":          true,
	"hat":          true,
	"vec":          true,
	"boxed":        true,
}

// Sizing and delimiter commands that are dropped entirely.
var latexElided = map[string]bool{
	"left":         true,
	"right":        true,
	"big":          true,
	"Big":          true,
	"bigl":         true,
	"bigr":         true,
	"Bigl":         true,
	"Bigr":         true,
	"displaystyle": true,
	"limits":       true,
}

// LatexToText converts a LaTeX math fragment into a linear plain-text form:
// fractions become a/b, symbol macros become their Unicode character and
// formatting commands keep only their argument.
func LatexToText(src string) (string, error) {
	p := &latexParser{src: src}
	out, err := p.parseSeq(false)
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(out), " "), nil
}

type latexParser struct {
	src string
	pos int
}

func (p *latexParser) parseSeq(inGroup bool) (string, error) {
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '}':
			if !inGroup {
				return "", fmt.Errorf("%w: unexpected } at offset %d", ErrMalformedLatex, p.pos)
			}
			p.pos++
			return b.String(), nil
		case '{':
			p.pos++
			s, err := p.parseSeq(true)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case '\\':
			s, err := p.parseCommand()
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case '^', '_':
			p.pos++
			arg, err := p.parseArg()
			if err != nil {
				return "", err
			}
			b.WriteString(latexScript(arg, c == '^'))
		case '~':
			b.WriteByte(' ')
			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	if inGroup {
		return "", fmt.Errorf("%w: unclosed {", ErrMalformedLatex)
	}
	return b.String(), nil
}

// parseArg reads a single macro argument: a braced group, a command, or one character.
func (p *latexParser) parseArg() (string, error) {
	p.skipSpaces()
	if p.pos >= len(p.src) {
		return "", fmt.Errorf("%w: missing argument", ErrMalformedLatex)
	}
	switch p.src[p.pos] {
	case '{':
		p.pos++
		return p.parseSeq(true)
	case '\\':
		return p.parseCommand()
	case '}':
		return "", fmt.Errorf("%w: missing argument at offset %d", ErrMalformedLatex, p.pos)
	}
	r, size := utf8.DecodeRuneInString(p.src[p.pos:])
	p.pos += size
	return string(r), nil
}

func (p *latexParser) parseCommand() (string, error) {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return "", fmt.Errorf("%w: trailing backslash", ErrMalformedLatex)
	}
	start := p.pos
	for p.pos < len(p.src) && isASCIILetter(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		// Single-character control symbol.
		c := p.src[p.pos]
		p.pos++
		switch c {
		case ',', ';', ':', ' ':
			return " ", nil
		case '!':
			return "", nil
		case '\\':
			return " ", nil
		}
		return string(c), nil
	}
	name := p.src[start:p.pos]

	switch {
	case name == "frac" || name == "dfrac" || name == "tfrac":
		num, err := p.parseArg()
		if err != nil {
			return "", err
		}
		den, err := p.parseArg()
		if err != nil {
			return "", err
		}
		return wrapOperand(num) + "/" + wrapOperand(den), nil
	case name == "sqrt":
		var index string
		p.skipSpaces()
		if p.pos < len(p.src) && p.src[p.pos] == '[' {
			end := strings.IndexByte(p.src[p.pos:], ']')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed [ in \\sqrt", ErrMalformedLatex)
			}
			index = p.src[p.pos+1 : p.pos+end]
			p.pos += end + 1
		}
		arg, err := p.parseArg()
		if err != nil {
			return "", err
		}
		prefix := ""
		if index != "" {
			prefix = scriptText(strings.TrimSpace(index), superscripts)
		}
		return prefix + "√" + wrapOperand(arg), nil
	case name == "quad" || name == "qquad":
		return " ", nil
	case latexPassthrough[name]:
		return p.parseArg()
	case latexElided[name]:
		p.skipSpaces()
		if p.pos < len(p.src) && p.src[p.pos] == '.' {
			p.pos++
		}
		return "", nil
	}
	if sym, ok := latexSymbols[name]; ok {
		return sym, nil
	}
	return name, nil
}

func (p *latexParser) skipSpaces() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

const latexOperators = "+-−×÷*/·±="

// wrapOperand parenthesizes a fraction operand or radicand that itself contains an operator.
func wrapOperand(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return s
	}
	if strings.ContainsAny(s, latexOperators) && !isParenthesized(s) {
		return "(" + s + ")"
	}
	return s
}

func isParenthesized(s string) bool {
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return false
	}
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}

// latexScript renders a ^ or _ argument. Unlike pandoc ^x^ spans, an argument with
// characters outside the script table keeps an explicit marker.
func latexScript(arg string, sup bool) string {
	table := subscripts
	marker := "_"
	if sup {
		table = superscripts
		marker = "^"
	}
	if mapped, ok := mapAll(arg, table); ok {
		return mapped
	}
	if sup && (arg == "°" || arg == "′") {
		return arg
	}
	if utf8.RuneCountInString(arg) == 1 {
		return marker + arg
	}
	return marker + "(" + arg + ")"
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
