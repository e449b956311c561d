package visuals

// Index is an immutable lookup over extracted entries.
type Index struct {
	entries  []Entry
	byNumber map[int]Entry
	contexts []Entry
}

// NewIndex builds an Index. Entries sharing a question number are combined
// in order; images stay de-duplicated.
func NewIndex(entries []Entry) Index {
	ix := Index{byNumber: make(map[int]Entry)}
	for _, e := range entries {
		e = e.clone()
		ix.entries = append(ix.entries, e)
		if e.Common {
			if e.Context != nil {
				ix.contexts = append(ix.contexts, e)
			}
			continue
		}
		have, ok := ix.byNumber[e.Number]
		if !ok {
			ix.byNumber[e.Number] = e
			continue
		}
		have.Tables = append(have.Tables, e.Tables...)
		have.Images = appendUnique(have.Images, e.Images...)
		ix.byNumber[e.Number] = have
	}
	return ix
}

// ByNumber returns a copy of the entry for question n.
func (ix Index) ByNumber(n int) (Entry, bool) {
	e, ok := ix.byNumber[n]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Contexts returns copies of the entries keyed by a non-null context, in order.
func (ix Index) Contexts() []Entry {
	out := make([]Entry, len(ix.contexts))
	for i, e := range ix.contexts {
		out[i] = e.clone()
	}
	return out
}

// Entries returns a copy of every entry in input order.
func (ix Index) Entries() []Entry {
	out := make([]Entry, len(ix.entries))
	for i, e := range ix.entries {
		out[i] = e.clone()
	}
	return out
}

// Len returns the number of entries.
func (ix Index) Len() int {
	return len(ix.entries)
}

// Resolve returns a new Index with every image path mapped through fn.
func (ix Index) Resolve(fn func(string) string) Index {
	entries := ix.Entries()
	for i := range entries {
		for j, img := range entries[i].Images {
			entries[i].Images[j] = fn(img)
		}
		entries[i].Images = appendUnique(nil, entries[i].Images...)
	}
	return NewIndex(entries)
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		dup := false
		for _, have := range dst {
			if have == it {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, it)
		}
	}
	return dst
}
