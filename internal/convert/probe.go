package convert

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/fumiama/go-docx"
)

// Kind is the type of exam document.
type Kind string

const (
	KindAuto      Kind = "auto"
	KindQuestions Kind = "questions"
	KindSolutions Kind = "solutions"
)

// ParseKind maps a user-supplied value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", KindAuto:
		return KindAuto, nil
	case KindQuestions, "question":
		return KindQuestions, nil
	case KindSolutions, "solution":
		return KindSolutions, nil
	}
	return "", fmt.Errorf("unknown document kind %q (want questions, solutions or auto)", s)
}

var (
	probeQuestionRe   = regexp.MustCompile(`^\s*(?:Q\.?\s*)?\d{1,3}\s*[.)]`)
	probeDirectionsRe = regexp.MustCompile(`(?i)^\s*directions?\b`)
	probeChoiceRe     = regexp.MustCompile(`(?i)\bchoice\s*\(?\s*\d`)
	probeSolutionsRe  = regexp.MustCompile(`(?i)^\s*solutions?\b`)
)

// ProbeResult summarizes the paragraphs of a DOCX file.
type ProbeResult struct {
	Paragraphs int `json:"paragraphs"`
	Headings   int `json:"headings"`
	Tables     int `json:"tables"`
	Questions  int `json:"questions"`
	Directions int `json:"directions"`
	Choices    int `json:"choices"`
	Solutions  int `json:"solutions"`
}

// Probe opens the DOCX at path and counts its structural markers. A file
// that cannot be parsed yields a ConversionError wrapping ErrUnreadableSource.
func Probe(path string) (ProbeResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ProbeResult{}, conversionError("probe", path, ErrUnreadableSource, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return ProbeResult{}, conversionError("probe", path, ErrUnreadableSource, err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return ProbeResult{}, conversionError("probe", path, ErrUnreadableSource, err)
	}

	var res ProbeResult
	for _, item := range doc.Document.Body.Items {
		switch v := item.(type) {
		case *docx.Table:
			res.Tables++
		case *docx.Paragraph:
			text := paragraphText(v)
			if text == "" {
				continue
			}
			res.Paragraphs++
			if isHeading(v) {
				res.Headings++
			}
			if probeQuestionRe.MatchString(text) {
				res.Questions++
			}
			if probeDirectionsRe.MatchString(text) {
				res.Directions++
			}
			if probeChoiceRe.MatchString(text) {
				res.Choices++
			}
			if probeSolutionsRe.MatchString(text) {
				res.Solutions++
			}
		}
	}
	return res, nil
}

// DetectKind guesses whether the probed document is a question paper or an
// answer key. Answer keys carry a Choice marker for most numbered entries
// and no Directions.
func DetectKind(p ProbeResult) Kind {
	if p.Choices > 0 && p.Directions == 0 && p.Choices*2 >= p.Questions {
		return KindSolutions
	}
	if p.Solutions > 0 && p.Directions == 0 && p.Choices > 0 {
		return KindSolutions
	}
	return KindQuestions
}

func isHeading(para *docx.Paragraph) bool {
	if para.Properties == nil || para.Properties.Style == nil {
		return false
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	return strings.HasPrefix(style, "heading") || style == "title"
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
