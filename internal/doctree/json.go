package doctree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type questionJSON struct {
	MainCommon string   `json:"main_common_data"`
	SubCommon  string   `json:"sub_common_data"`
	Number     string   `json:"Question Number"`
	Text       string   `json:"Question"`
	Options    []string `json:"Options"`
	Tables     []string `json:"Table"`
	Images     []string `json:"Image"`
}

type questionInJSON struct {
	questionJSON
	Number json.RawMessage `json:"Question Number"`
}

// MarshalJSON writes the question with its number as a decimal string.
func (q Question) MarshalJSON() ([]byte, error) {
	return marshal(questionJSON{
		MainCommon: q.MainCommon,
		SubCommon:  q.SubCommon,
		Number:     strconv.Itoa(q.Number),
		Text:       q.Text,
		Options:    nonNil(q.Options),
		Tables:     nonNil(q.Tables),
		Images:     nonNil(q.Images),
	})
}

// UnmarshalJSON accepts "Question Number" as either a string or a number.
func (q *Question) UnmarshalJSON(data []byte) error {
	var in questionInJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	n, err := looseInt(in.Number)
	if err != nil {
		return fmt.Errorf("question number: %w", err)
	}
	*q = Question{
		Number:     n,
		MainCommon: in.MainCommon,
		SubCommon:  in.SubCommon,
		Text:       in.Text,
		Options:    nonNil(in.Options),
		Tables:     nonNil(in.Tables),
		Images:     nonNil(in.Images),
	}
	return nil
}

type solutionJSON struct {
	Number int      `json:"solution_number"`
	Text   string   `json:"Solution"`
	Choice *int     `json:"Choice"`
	Tables []string `json:"Table"`
	Images []string `json:"Image"`
}

func (e SolutionEntry) MarshalJSON() ([]byte, error) {
	return marshal(solutionJSON{
		Number: e.Number,
		Text:   e.Text,
		Choice: e.Choice,
		Tables: nonNil(e.Tables),
		Images: nonNil(e.Images),
	})
}

func (e *SolutionEntry) UnmarshalJSON(data []byte) error {
	var in solutionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*e = SolutionEntry{
		Number: in.Number,
		Text:   in.Text,
		Choice: in.Choice,
		Tables: nonNil(in.Tables),
		Images: nonNil(in.Images),
	}
	return nil
}

// MarshalJSON writes {"filename", "Content": {label: {"Data": {"questions": [...]}}}}
// with sections in document order.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"filename":`)
	if err := writeJSON(&buf, d.Filename); err != nil {
		return nil, err
	}
	buf.WriteString(`,"Content":{`)
	for i, s := range d.Merged() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, s.Label); err != nil {
			return nil, err
		}
		buf.WriteString(`:{"Data":{"questions":`)
		if err := writeJSON(&buf, nonNilQuestions(s.Questions)); err != nil {
			return nil, err
		}
		buf.WriteString(`}}`)
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the questions shape, keeping section order.
func (d *Document) UnmarshalJSON(data []byte) error {
	*d = Document{}
	return eachKey(data, func(key string, raw json.RawMessage) error {
		switch key {
		case "filename":
			return json.Unmarshal(raw, &d.Filename)
		case "Content":
			return eachKey(raw, func(label string, raw json.RawMessage) error {
				var wrapper struct {
					Data struct {
						Questions []Question `json:"questions"`
					} `json:"Data"`
				}
				if err := json.Unmarshal(raw, &wrapper); err != nil {
					return fmt.Errorf("section %q: %w", label, err)
				}
				d.Sections = append(d.Sections, Section{Label: label, Questions: wrapper.Data.Questions})
				return nil
			})
		}
		return nil
	})
}

// MarshalJSON writes the legacy or unified layout according to d.Layout.
func (d SolutionDocument) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"filename":`)
	if err := writeJSON(&buf, d.Filename); err != nil {
		return nil, err
	}
	sections := d.Merged()
	if d.Layout == LayoutUnified {
		buf.WriteString(`,"schema_version":2,"Content":{`)
		for i, s := range sections {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(&buf, s.Label); err != nil {
				return nil, err
			}
			buf.WriteString(`:{"Data":{"solutions":`)
			if err := writeJSON(&buf, nonNilEntries(s.Entries)); err != nil {
				return nil, err
			}
			buf.WriteString(`}}`)
		}
		buf.WriteString(`}}`)
		return buf.Bytes(), nil
	}
	for _, s := range sections {
		buf.WriteByte(',')
		if err := writeJSON(&buf, s.Label); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(&buf, nonNilEntries(s.Entries)); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads either layout. A schema_version key selects the unified one.
func (d *SolutionDocument) UnmarshalJSON(data []byte) error {
	*d = SolutionDocument{}
	return eachKey(data, func(key string, raw json.RawMessage) error {
		switch key {
		case "filename":
			return json.Unmarshal(raw, &d.Filename)
		case "schema_version":
			d.Layout = LayoutUnified
			return nil
		case "Content":
			d.Layout = LayoutUnified
			return eachKey(raw, func(label string, raw json.RawMessage) error {
				var wrapper struct {
					Data struct {
						Solutions []SolutionEntry `json:"solutions"`
					} `json:"Data"`
				}
				if err := json.Unmarshal(raw, &wrapper); err != nil {
					return fmt.Errorf("section %q: %w", label, err)
				}
				d.Sections = append(d.Sections, SolutionSection{Label: label, Entries: wrapper.Data.Solutions})
				return nil
			})
		}
		var entries []SolutionEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return fmt.Errorf("section %q: %w", key, err)
		}
		d.Sections = append(d.Sections, SolutionSection{Label: key, Entries: entries})
		return nil
	})
}

// eachKey calls fn for every member of the JSON object in data, in source order.
func eachKey(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	return nil
}

// Encode writes v as indented JSON with HTML characters left unescaped, so
// markup in question text stays readable.
func Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	b, err := marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func looseInt(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(s))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilQuestions(q []Question) []Question {
	if q == nil {
		return []Question{}
	}
	return q
}

func nonNilEntries(e []SolutionEntry) []SolutionEntry {
	if e == nil {
		return []SolutionEntry{}
	}
	return e
}
