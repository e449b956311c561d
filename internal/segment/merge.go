package segment

import (
	"strings"

	"github.com/dgallion1/quizforge/internal/doctree"
	"github.com/dgallion1/quizforge/internal/markup"
	"github.com/dgallion1/quizforge/internal/visuals"
)

// contextKey is a visuals context reduced to its comparison prefix.
type contextKey struct {
	prefix string
	entry  visuals.Entry
}

// merger folds the visuals index into finished question records.
type merger struct {
	idx      visuals.Index
	contexts []contextKey
	words    int
	inline   bool
	resolve  func(string) string
}

func newMerger(idx visuals.Index, p Policy, resolve func(string) string) *merger {
	m := &merger{idx: idx, words: p.prefixWords(), inline: p.CollectInlineImages, resolve: resolve}
	for _, e := range idx.Contexts() {
		prefix := firstWords(strings.ToLower(strings.TrimSpace(*e.Context)), m.words)
		if prefix == "" {
			continue
		}
		m.contexts = append(m.contexts, contextKey{prefix: prefix, entry: e})
	}
	return m
}

// apply attaches visuals to q: direct number lookup, then context-text
// affinity, then inline body images. Images are de-duplicated across routes.
func (m *merger) apply(q *doctree.Question, inlineImages []string) {
	add := func(tables, images []string) {
		q.Tables = append(q.Tables, tables...)
		for _, img := range images {
			q.Images = appendImage(q.Images, m.resolve(img))
		}
	}

	if e, ok := m.idx.ByNumber(q.Number); ok {
		add(e.Tables, e.Images)
	}

	if len(m.contexts) > 0 {
		common := strings.ToLower(markup.CollapseSpace(markup.StripTags(q.MainCommon)))
		commonPrefix := firstWords(common, m.words)
		for _, c := range m.contexts {
			if strings.Contains(common, c.prefix) || commonPrefix == c.prefix {
				add(c.entry.Tables, c.entry.Images)
			}
		}
	}

	if m.inline {
		add(nil, inlineImages)
	}
}

func appendImage(images []string, img string) []string {
	if img == "" {
		return images
	}
	for _, have := range images {
		if have == img {
			return images
		}
	}
	return append(images, img)
}

func firstWords(s string, n int) string {
	f := strings.Fields(s)
	if len(f) > n {
		f = f[:n]
	}
	return strings.Join(f, " ")
}
