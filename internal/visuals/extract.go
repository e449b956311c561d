package visuals

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var questionMarkerRe = regexp.MustCompile(`^(\d+)\s*\.`)

// ExtractOptions controls attribution.
type ExtractOptions struct {
	// Directions enables attribution to italic "Directions" paragraphs.
	// Answer-key documents run without it.
	Directions bool
	Log        *slog.Logger
}

// key is the attribution of one visual.
type key struct {
	number  int
	context *string
}

// Extract reads an HTML document and returns its visuals grouped by
// attribution: question entries by ascending number, then context entries in
// first-seen order, then the unattributed bucket when it is non-empty. Only a
// failing reader produces an error.
func Extract(r io.Reader, opts ExtractOptions) ([]Entry, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	root := findBody(doc)
	if root == nil {
		root = doc
	}

	x := &extractor{
		opts:       opts,
		log:        log,
		questions:  make(map[int]*Entry),
		contextPos: make(map[string]int),
		orphan:     CommonEntry(nil),
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Table:
				x.addTable(n)
			case atom.Img:
				x.addImage(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return x.entries(), nil
}

type extractor struct {
	opts       ExtractOptions
	log        *slog.Logger
	questions  map[int]*Entry
	contexts   []*Entry
	contextPos map[string]int
	orphan     Entry
}

func (x *extractor) addTable(n *html.Node) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		x.log.Debug("table render failed, skipping", "error", err)
		return
	}
	e := x.bucket(x.attributeSafe(n))
	e.Tables = append(e.Tables, buf.String())
}

func (x *extractor) addImage(n *html.Node) {
	src := strings.TrimSpace(attr(n, "src"))
	if src == "" {
		x.log.Debug("img without src skipped")
		return
	}
	e := x.bucket(x.attributeSafe(n))
	for _, have := range e.Images {
		if have == src {
			return
		}
	}
	e.Images = append(e.Images, src)
}

// attributeSafe degrades a failed attribution to the unattributed bucket.
func (x *extractor) attributeSafe(n *html.Node) (k key) {
	defer func() {
		if r := recover(); r != nil {
			x.log.Debug("visual attribution failed", "panic", r)
			k = key{}
		}
	}()
	return x.attribute(n)
}

// attribute walks back through previous siblings for the nearest marker
// paragraph, climbing one ancestor at a time when the siblings run out.
func (x *extractor) attribute(n *html.Node) key {
	for cur := n; cur != nil && cur.Type != html.DocumentNode; cur = cur.Parent {
		for sib := prevElement(cur); sib != nil; sib = prevElement(sib) {
			if k, ok := x.classify(sib); ok {
				return k
			}
		}
		if p := cur.Parent; p != nil && p.DataAtom == atom.P {
			if k, ok := x.classify(p); ok {
				return k
			}
		}
	}
	return key{}
}

// classify recognises a question-marker or directions paragraph.
func (x *extractor) classify(n *html.Node) (key, bool) {
	if n.DataAtom != atom.P {
		return key{}, false
	}
	if strong := findFirst(n, atom.Strong, atom.B); strong != nil {
		if m := questionMarkerRe.FindStringSubmatch(textContent(strong)); m != nil {
			if num, err := strconv.Atoi(m[1]); err == nil && num > 0 {
				return key{number: num}, true
			}
		}
	}
	if x.opts.Directions {
		if em := findFirst(n, atom.Em, atom.I); em != nil {
			if t := textContent(em); strings.Contains(t, "Directions") {
				ctx := strings.Join(strings.Fields(t), " ")
				return key{context: &ctx}, true
			}
		}
	}
	return key{}, false
}

func (x *extractor) bucket(k key) *Entry {
	switch {
	case k.number > 0:
		e, ok := x.questions[k.number]
		if !ok {
			q := QuestionEntry(k.number)
			e = &q
			x.questions[k.number] = e
		}
		return e
	case k.context != nil:
		if i, ok := x.contextPos[*k.context]; ok {
			return x.contexts[i]
		}
		x.contextPos[*k.context] = len(x.contexts)
		c := CommonEntry(k.context)
		x.contexts = append(x.contexts, &c)
		return &c
	}
	return &x.orphan
}

func (x *extractor) entries() []Entry {
	nums := make([]int, 0, len(x.questions))
	for n := range x.questions {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	out := make([]Entry, 0, len(nums)+len(x.contexts)+1)
	for _, n := range nums {
		out = append(out, x.questions[n].clone())
	}
	for _, e := range x.contexts {
		out = append(out, e.clone())
	}
	if !x.orphan.Empty() {
		out = append(out, x.orphan.clone())
	}
	return out
}

func prevElement(n *html.Node) *html.Node {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// findFirst returns the first descendant of n, in document order, with one of the given tags.
func findFirst(n *html.Node, tags ...atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			for _, t := range tags {
				if c.DataAtom == t {
					return c
				}
			}
		}
		if f := findFirst(c, tags...); f != nil {
			return f
		}
	}
	return nil
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
