package markup

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokText tokenKind = iota
	tokOpen
	tokClose
	tokDelim
	tokMath
	tokImage
	tokSup
	tokSub
	tokAttr
	tokBreak
)

type style int

const (
	styleBold style = iota
	styleItalic
	styleBoldItalic
	styleUnderline
)

// token is one element of the inline stream. Unresolved emphasis delimiters are
// carried as tokDelim until pairDelimiters turns them into styles or text.
type token struct {
	kind  tokenKind
	text  string
	raw   string
	style style

	delim    byte
	n        int
	canOpen  bool
	canClose bool
}

var (
	imageRe         = regexp.MustCompile(`^!\[([^\]\n]*)\]\(([^)\s]*)(?:\s+"[^"\n]*")?\)(?:\{[^}\n]*\})?`)
	styleTagRe      = regexp.MustCompile(`(?i)^<(/?)(strong|b|em|i|u|ins)\s*>`)
	otherTagRe      = regexp.MustCompile(`(?i)^<(/?)(span|img|sup|sub|br)\b([^>\n]*)>`)
	srcAttrRe       = regexp.MustCompile(`(?i)\bsrc\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>]+))`)
	attrSpanRe      = regexp.MustCompile(`^\[([^\[\]\n]*)\]\{([^}\n]*)\}`)
	underlineAttrRe = regexp.MustCompile(`^\{\s*\.?underline\s*\}`)
	scriptFracRe    = regexp.MustCompile(`^\^(\d{1,2})\^/~(\d{1,2})~`)
)

var bareMathCommands = map[string]bool{
	"frac":  true,
	"dfrac": true,
	"tfrac": true,
	"sqrt":  true,
}

const asciiPunct = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// tokenStarts are the characters with markup meaning when bare. Their
// escapes are kept so that a second pass still reads them as text.
const tokenStarts = "\\$!<>[{*_^~"

type lexer struct {
	src   string
	pos   int
	toks  []token
	text  strings.Builder
	spans []bool // open <span> elements; true when the span underlines
}

// tokenize scans text once into the inline token stream.
func tokenize(src string) []token {
	lx := &lexer{src: src}
	lx.run()
	return lx.toks
}

func (lx *lexer) run() {
	for lx.pos < len(lx.src) {
		switch c := lx.src[lx.pos]; c {
		case '\\':
			lx.lexBackslash()
		case '$':
			lx.lexDollar()
		case '!':
			if !lx.lexImage() {
				lx.literal(1)
			}
		case '<':
			if !lx.lexTag() {
				lx.literal(1)
			}
		case '[':
			if !lx.lexAttrSpan() {
				lx.literal(1)
			}
		case '{':
			if m := underlineAttrRe.FindString(lx.src[lx.pos:]); m != "" {
				lx.emit(token{kind: tokAttr, text: "underline"})
				lx.pos += len(m)
			} else {
				lx.literal(1)
			}
		case '*', '_':
			lx.lexDelim(c)
		case '^':
			lx.lexScript('^')
		case '~':
			lx.lexScript('~')
		case '\n':
			lx.emit(token{kind: tokBreak})
			lx.pos++
		default:
			lx.text.WriteByte(c)
			lx.pos++
		}
	}
	lx.flush()
}

func (lx *lexer) flush() {
	if lx.text.Len() > 0 {
		lx.toks = append(lx.toks, token{kind: tokText, text: lx.text.String()})
		lx.text.Reset()
	}
}

func (lx *lexer) emit(t token) {
	lx.flush()
	lx.toks = append(lx.toks, t)
}

func (lx *lexer) literal(n int) {
	end := min(lx.pos+n, len(lx.src))
	lx.text.WriteString(lx.src[lx.pos:end])
	lx.pos = end
}

// inner tokenizes a nested span and splices its tokens into the stream.
func (lx *lexer) inner(s string) {
	lx.flush()
	lx.toks = append(lx.toks, tokenize(s)...)
}

func (lx *lexer) lexBackslash() {
	rest := lx.src[lx.pos+1:]
	if rest == "" {
		lx.literal(1)
		return
	}
	next := rest[0]
	if isASCIILetter(next) {
		n := 0
		for n < len(rest) && isASCIILetter(rest[n]) {
			n++
		}
		name := rest[:n]
		if bareMathCommands[name] {
			end := scanBareMath(lx.src, lx.pos+1+n, name == "sqrt")
			raw := lx.src[lx.pos:end]
			lx.emit(token{kind: tokMath, text: raw, raw: raw})
			lx.pos = end
			return
		}
		if sym, ok := latexSymbols[name]; ok {
			lx.text.WriteString(sym)
			lx.pos += 1 + n
			return
		}
		lx.literal(1 + n)
		return
	}
	if next == '\n' {
		lx.pos++
		return
	}
	if strings.IndexByte(asciiPunct, next) >= 0 {
		if strings.IndexByte(tokenStarts, next) >= 0 && !lx.inertEscape(next) {
			lx.literal(2)
			return
		}
		lx.text.WriteByte(next)
		lx.pos += 2
		return
	}
	lx.literal(1)
}

// inertEscape reports an escaped * or _ with whitespace or an edge on both
// sides. Bare, it can neither open nor close emphasis.
func (lx *lexer) inertEscape(c byte) bool {
	if c != '*' && c != '_' {
		return false
	}
	before := lx.pos == 0 || isSpaceByte(lx.src[lx.pos-1])
	after := lx.pos+2 >= len(lx.src) || isSpaceByte(lx.src[lx.pos+2])
	return before && after
}

// scanBareMath returns the end of a bare \frac{..}{..} or \sqrt[..]{..} outside $ delimiters.
func scanBareMath(s string, i int, allowIndex bool) int {
	for {
		j := i
		for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
			j++
		}
		if j >= len(s) {
			return i
		}
		switch {
		case s[j] == '{':
			end := matchBrace(s, j)
			if end < 0 {
				return i
			}
			i = end + 1
		case s[j] == '[' && allowIndex:
			end := strings.IndexByte(s[j:], ']')
			if end < 0 {
				return i
			}
			i = j + end + 1
			allowIndex = false
		default:
			return i
		}
	}
}

// matchBrace returns the index of the brace closing the one at open, or -1.
func matchBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		case '\n':
			if i+1 < len(s) && s[i+1] == '\n' {
				return -1
			}
		}
	}
	return -1
}

func (lx *lexer) lexDollar() {
	s := lx.src
	if strings.HasPrefix(s[lx.pos:], "$$") {
		end := strings.Index(s[lx.pos+2:], "$$")
		if end > 0 && strings.TrimSpace(s[lx.pos+2:lx.pos+2+end]) != "" {
			raw := s[lx.pos : lx.pos+4+end]
			lx.emit(token{kind: tokMath, text: s[lx.pos+2 : lx.pos+2+end], raw: raw})
			lx.pos += 4 + end
			return
		}
		lx.literal(2)
		return
	}
	// Inline math stays on one line, has no space just inside either
	// delimiter and is not closed by a $ that starts a number.
	start := lx.pos + 1
	if start >= len(s) || isSpaceByte(s[start]) {
		lx.literal(1)
		return
	}
	for j := start; j < len(s); j++ {
		switch s[j] {
		case '\n':
			lx.literal(1)
			return
		case '\\':
			j++
		case '$':
			if isSpaceByte(s[j-1]) || (j+1 < len(s) && s[j+1] >= '0' && s[j+1] <= '9') {
				continue
			}
			lx.emit(token{kind: tokMath, text: s[start:j], raw: s[lx.pos : j+1]})
			lx.pos = j + 1
			return
		}
	}
	lx.literal(1)
}

func (lx *lexer) lexImage() bool {
	m := imageRe.FindStringSubmatch(lx.src[lx.pos:])
	if m == nil {
		return false
	}
	lx.emit(token{kind: tokImage, text: m[2], raw: m[0]})
	lx.pos += len(m[0])
	return true
}

func (lx *lexer) lexTag() bool {
	rest := lx.src[lx.pos:]
	if m := styleTagRe.FindStringSubmatch(rest); m != nil {
		kind := tokOpen
		if m[1] == "/" {
			kind = tokClose
		}
		st := styleBold
		switch strings.ToLower(m[2]) {
		case "em", "i":
			st = styleItalic
		case "u", "ins":
			st = styleUnderline
		}
		lx.emit(token{kind: kind, style: st})
		lx.pos += len(m[0])
		return true
	}
	m := otherTagRe.FindStringSubmatch(rest)
	if m == nil {
		return false
	}
	closing := m[1] == "/"
	name := strings.ToLower(m[2])
	lx.pos += len(m[0])
	switch name {
	case "br":
		lx.emit(token{kind: tokBreak})
	case "img":
		if closing {
			return true
		}
		if src := srcAttr(m[3]); src != "" {
			lx.emit(token{kind: tokImage, text: src, raw: m[0]})
		}
	case "span":
		if closing {
			if n := len(lx.spans); n > 0 {
				underline := lx.spans[n-1]
				lx.spans = lx.spans[:n-1]
				if underline {
					lx.emit(token{kind: tokClose, style: styleUnderline})
				}
			}
			return true
		}
		underline := strings.Contains(strings.ToLower(m[3]), "underline")
		lx.spans = append(lx.spans, underline)
		if underline {
			lx.emit(token{kind: tokOpen, style: styleUnderline})
		}
	case "sup", "sub":
		if closing {
			return true
		}
		closer := "</" + name + ">"
		end := strings.Index(strings.ToLower(lx.src[lx.pos:]), closer)
		if end < 0 {
			return true
		}
		kind := tokSup
		if name == "sub" {
			kind = tokSub
		}
		lx.emit(token{kind: kind, text: lx.src[lx.pos : lx.pos+end]})
		lx.pos += end + len(closer)
	}
	return true
}

func srcAttr(attrs string) string {
	m := srcAttrRe.FindStringSubmatch(attrs)
	if m == nil {
		return ""
	}
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

func (lx *lexer) lexAttrSpan() bool {
	m := attrSpanRe.FindStringSubmatch(lx.src[lx.pos:])
	if m == nil {
		return false
	}
	lx.pos += len(m[0])
	underline := strings.Contains(m[2], "underline")
	if underline {
		lx.emit(token{kind: tokOpen, style: styleUnderline})
	}
	lx.inner(m[1])
	if underline {
		lx.emit(token{kind: tokClose, style: styleUnderline})
	}
	return true
}

func (lx *lexer) lexDelim(c byte) {
	start := lx.pos
	end := start
	for end < len(lx.src) && lx.src[end] == c {
		end++
	}
	lx.pos = end
	n := end - start
	run := lx.src[start:end]
	if n > 3 || (c == '_' && n >= 3) {
		lx.text.WriteString(run)
		return
	}

	prev, next := ' ', ' '
	if start > 0 {
		prev, _ = utf8.DecodeLastRuneInString(lx.src[:start])
	}
	if end < len(lx.src) {
		next, _ = utf8.DecodeRuneInString(lx.src[end:])
	}
	left := !unicode.IsSpace(next)
	right := !unicode.IsSpace(prev)
	d := token{kind: tokDelim, text: run, delim: c, n: n, canOpen: left, canClose: right}
	if c == '_' {
		d.canOpen = left && !isWordRune(prev)
		d.canClose = right && !isWordRune(next)
	}
	lx.emit(d)
}

// lexScript handles ^sup^, ~sub~, ~~strike~~ and the ^1^/~2~ fraction spelling.
func (lx *lexer) lexScript(c byte) {
	rest := lx.src[lx.pos:]
	if c == '^' {
		if m := scriptFracRe.FindStringSubmatch(rest); m != nil {
			if f, ok := unicodeFractions[m[1]+"/"+m[2]]; ok {
				lx.text.WriteString(f)
				lx.pos += len(m[0])
				return
			}
		}
	}
	if c == '~' && strings.HasPrefix(rest, "~~") {
		line := rest[2:]
		if nl := strings.IndexByte(line, '\n'); nl >= 0 {
			line = line[:nl]
		}
		if end := strings.Index(line, "~~"); end > 0 {
			lx.pos += 4 + end
			lx.inner(line[:end])
			return
		}
		lx.literal(2)
		return
	}
	end := -1
	for j := 1; j < len(rest); j++ {
		if rest[j] == '\\' && j+1 < len(rest) && rest[j+1] == ' ' {
			j++
			continue
		}
		if rest[j] == ' ' || rest[j] == '\t' || rest[j] == '\n' {
			break
		}
		if rest[j] == c {
			end = j
			break
		}
	}
	if end <= 1 {
		lx.literal(1)
		return
	}
	kind := tokSup
	if c == '~' {
		kind = tokSub
	}
	lx.emit(token{kind: kind, text: rest[1:end], raw: rest[:end+1]})
	lx.pos += end + 1
}

// pairDelimiters resolves emphasis delimiter runs into style tokens. A closer
// matches the nearest opener with the same character and run length; anything
// left unmatched becomes literal text. Pairs never cross a blank line.
func pairDelimiters(toks []token) []token {
	var stack []int
	literal := func(i int) {
		toks[i] = token{kind: tokText, text: toks[i].text}
	}
	for i := range toks {
		t := toks[i]
		if t.kind == tokBreak && i > 0 && toks[i-1].kind == tokBreak {
			for _, j := range stack {
				literal(j)
			}
			stack = stack[:0]
			continue
		}
		if t.kind != tokDelim {
			continue
		}
		matched := false
		if t.canClose {
			for k := len(stack) - 1; k >= 0; k-- {
				o := toks[stack[k]]
				if o.delim != t.delim || o.n != t.n || stack[k] == i-1 {
					continue
				}
				st := runStyle(t.n)
				if t.n == 1 && i+1 < len(toks) && toks[i+1].kind == tokAttr {
					st = styleUnderline
					toks[i+1] = token{kind: tokText}
				}
				for _, j := range stack[k+1:] {
					literal(j)
				}
				toks[stack[k]] = token{kind: tokOpen, style: st}
				toks[i] = token{kind: tokClose, style: st}
				stack = stack[:k]
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if t.canOpen {
			stack = append(stack, i)
		} else {
			literal(i)
		}
	}
	for _, j := range stack {
		literal(j)
	}
	return toks
}

func runStyle(n int) style {
	switch n {
	case 1:
		return styleItalic
	case 2:
		return styleBold
	}
	return styleBoldItalic
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n'
}
