package segment

import (
	"fmt"
	"sort"
	"strings"
)

// Policy holds the knobs that distinguish document variants.
type Policy struct {
	Name string

	// DedupeOptions keeps only the first option per marker within a question.
	DedupeOptions bool
	// PreserveOptionLinebreaks keeps internal line breaks of multi-line options.
	PreserveOptionLinebreaks bool
	// ContextMatchPrefixWords is how many leading words of a visuals context
	// must match a question's main common text.
	ContextMatchPrefixWords int
	// PlainQuestionMarkers also accepts unbolded "N." line starts as question markers.
	PlainQuestionMarkers bool
	// CollectInlineImages adds images referenced in the question body to Image.
	CollectInlineImages bool
	// InlineNumberedOptions splits "(1) a (2) b" runs on one line into
	// separate options when the body has no lettered options.
	InlineNumberedOptions bool
}

const defaultPrefixWords = 5

var (
	PolicyMCQ = Policy{
		Name:                    "mcq",
		ContextMatchPrefixWords: defaultPrefixWords,
		CollectInlineImages:     true,
		InlineNumberedOptions:   true,
	}
	PolicyMock = Policy{
		Name:                    "mock",
		ContextMatchPrefixWords: defaultPrefixWords,
	}
	PolicyPassage = Policy{
		Name:                     "passage",
		DedupeOptions:            true,
		PreserveOptionLinebreaks: true,
		ContextMatchPrefixWords:  defaultPrefixWords,
		PlainQuestionMarkers:     true,
	}
)

var policies = map[string]Policy{
	PolicyMCQ.Name:     PolicyMCQ,
	PolicyMock.Name:    PolicyMock,
	PolicyPassage.Name: PolicyPassage,
}

// PolicyFor returns the preset named kind (case-insensitive).
func PolicyFor(kind string) (Policy, error) {
	p, ok := policies[strings.ToLower(strings.TrimSpace(kind))]
	if !ok {
		return Policy{}, fmt.Errorf("unknown segmentation variant %q (want one of %s)", kind, strings.Join(PolicyNames(), ", "))
	}
	return p, nil
}

// PolicyNames lists the preset names in sorted order.
func PolicyNames() []string {
	names := make([]string, 0, len(policies))
	for n := range policies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (p Policy) prefixWords() int {
	if p.ContextMatchPrefixWords <= 0 {
		return defaultPrefixWords
	}
	return p.ContextMatchPrefixWords
}
