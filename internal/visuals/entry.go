// Package visuals extracts tables and images from the HTML rendering of a
// document and attributes each to a question number or a directions context.
package visuals

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entry groups the visuals attributed to one key: a question number, or a
// shared context. A common entry with a nil Context holds unattributed visuals.
type Entry struct {
	Number  int
	Common  bool
	Context *string
	Tables  []string // raw table HTML
	Images  []string // image src values
}

// QuestionEntry returns an entry keyed by question number n.
func QuestionEntry(n int) Entry {
	return Entry{Number: n}
}

// CommonEntry returns a shared entry. A nil ctx marks the unattributed bucket.
func CommonEntry(ctx *string) Entry {
	return Entry{Common: true, Context: ctx}
}

// Empty reports whether the entry holds no visuals.
func (e Entry) Empty() bool {
	return len(e.Tables) == 0 && len(e.Images) == 0
}

func (e Entry) clone() Entry {
	c := e
	c.Tables = append([]string{}, e.Tables...)
	c.Images = append([]string{}, e.Images...)
	if e.Context != nil {
		s := *e.Context
		c.Context = &s
	}
	return c
}

type questionEntryJSON struct {
	Number int      `json:"question_number"`
	Tables []string `json:"tables"`
	Images []string `json:"images"`
}

type commonEntryJSON struct {
	Number  string   `json:"question_number"`
	Context *string  `json:"context_text"`
	Tables  []string `json:"tables"`
	Images  []string `json:"images"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	tables, images := nonNil(e.Tables), nonNil(e.Images)
	if e.Common {
		return marshal(commonEntryJSON{Number: "common", Context: e.Context, Tables: tables, Images: images})
	}
	return marshal(questionEntryJSON{Number: e.Number, Tables: tables, Images: images})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var probe struct {
		Number json.RawMessage `json:"question_number"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if len(probe.Number) > 0 && probe.Number[0] == '"' {
		var in commonEntryJSON
		if err := json.Unmarshal(data, &in); err != nil {
			return err
		}
		if in.Number != "common" {
			return fmt.Errorf("question_number: unexpected string %q", in.Number)
		}
		*e = Entry{Common: true, Context: in.Context, Tables: nonNil(in.Tables), Images: nonNil(in.Images)}
		return nil
	}
	var in questionEntryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*e = Entry{Number: in.Number, Tables: nonNil(in.Tables), Images: nonNil(in.Images)}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// marshal encodes v without escaping <, > and &, which are common in table HTML.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
