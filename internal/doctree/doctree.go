// Package doctree holds the structured records produced by segmentation and
// their JSON wire shapes.
package doctree

// Document is the segmented form of a questions document.
type Document struct {
	Filename string
	Sections []Section
}

// Section is a named partition of a document. The default section has an empty label.
type Section struct {
	Label      string
	Questions  []Question
	Directions []DirectionBlock // not serialized
}

// DirectionBlock is shared instructional text governing questions Start..End inclusive.
type DirectionBlock struct {
	Start, End int
	FullText   string
	Span       [2]int // byte offsets within the section body
	Singular   bool
}

// Covers reports whether question n falls inside the block's range.
func (b DirectionBlock) Covers(n int) bool {
	return n >= b.Start && n <= b.End
}

// Question is one segmented question record.
type Question struct {
	Number     int
	MainCommon string
	SubCommon  string
	Text       string
	Options    []string
	Tables     []string // raw table HTML
	Images     []string // image paths, first-seen order, no duplicates
}

// QuestionCount returns the number of questions across all sections.
func (d Document) QuestionCount() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Questions)
	}
	return n
}

// Merged returns the sections with duplicate labels folded into the first
// occurrence, questions appended in document order.
func (d Document) Merged() []Section {
	out := make([]Section, 0, len(d.Sections))
	pos := make(map[string]int, len(d.Sections))
	for _, s := range d.Sections {
		if i, ok := pos[s.Label]; ok {
			out[i].Questions = append(out[i].Questions, s.Questions...)
			out[i].Directions = append(out[i].Directions, s.Directions...)
			continue
		}
		pos[s.Label] = len(out)
		s.Questions = append([]Question(nil), s.Questions...)
		out = append(out, s)
	}
	return out
}

// Layout selects the top-level JSON shape of a solutions document.
type Layout int

const (
	// LayoutLegacy writes {"filename": ..., <label>: [entries]}.
	LayoutLegacy Layout = iota
	// LayoutUnified writes the questions-style Content/Data wrapper with schema_version 2.
	LayoutUnified
)

// ParseLayout maps a config value to a Layout. Unknown values select LayoutLegacy.
func ParseLayout(s string) Layout {
	if s == "unified" {
		return LayoutUnified
	}
	return LayoutLegacy
}

func (l Layout) String() string {
	if l == LayoutUnified {
		return "unified"
	}
	return "legacy"
}

// SolutionDocument is the segmented form of an answer-key document.
type SolutionDocument struct {
	Filename string
	Layout   Layout
	Sections []SolutionSection
}

// SolutionSection groups the solutions under one header.
type SolutionSection struct {
	Label   string
	Entries []SolutionEntry
}

// SolutionEntry is one worked solution.
type SolutionEntry struct {
	Number int
	Text   string
	Choice *int // nil when the solution states no choice
	Tables []string
	Images []string
}

// EntryCount returns the number of solutions across all sections.
func (d SolutionDocument) EntryCount() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Entries)
	}
	return n
}

// Merged folds sections with duplicate labels into their first occurrence.
func (d SolutionDocument) Merged() []SolutionSection {
	out := make([]SolutionSection, 0, len(d.Sections))
	pos := make(map[string]int, len(d.Sections))
	for _, s := range d.Sections {
		if i, ok := pos[s.Label]; ok {
			out[i].Entries = append(out[i].Entries, s.Entries...)
			continue
		}
		pos[s.Label] = len(out)
		s.Entries = append([]SolutionEntry(nil), s.Entries...)
		out = append(out, s)
	}
	return out
}
