package doctree

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func sampleDocument() Document {
	return Document{
		Filename: "mock1",
		Sections: []Section{
			{Label: "TEST - II", Questions: []Question{{Number: 1, Text: "Second test <strong>first</strong>"}}},
			{Label: "TEST - I", Questions: []Question{{Number: 1, Text: "First test", Options: []string{"(A) 3", "(B) 4"}}}},
		},
	}
}

func TestDocument_MarshalKeepsSectionOrder(t *testing.T) {
	b, err := json.Marshal(sampleDocument())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	i2 := strings.Index(s, `"TEST - II"`)
	i1 := strings.Index(s, `"TEST - I"`)
	if i2 < 0 || i1 < 0 || i2 > i1 {
		t.Errorf("expected TEST - II before TEST - I, got %s", s)
	}
	if !strings.HasPrefix(s, `{"filename":"mock1","Content":{`) {
		t.Errorf("unexpected prefix: %s", s)
	}
}

func TestQuestion_MarshalShape(t *testing.T) {
	b, err := marshal(Question{Number: 7, Text: "<em>x</em>"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"main_common_data":"","sub_common_data":"","Question Number":"7","Question":"<em>x</em>","Options":[],"Table":[],"Image":[]}`
	if string(b) != want {
		t.Errorf("expected\n%s\ngot\n%s", want, b)
	}
}

func TestQuestion_UnmarshalNumberForms(t *testing.T) {
	for _, in := range []string{`{"Question Number":"12"}`, `{"Question Number":12}`} {
		var q Question
		if err := json.Unmarshal([]byte(in), &q); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if q.Number != 12 {
			t.Errorf("%s: expected 12, got %d", in, q.Number)
		}
		if q.Options == nil || q.Images == nil || q.Tables == nil {
			t.Errorf("%s: expected non-nil slices", in)
		}
	}
}

func TestDocument_RoundTrip(t *testing.T) {
	doc := sampleDocument()
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Document
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Filename != "mock1" {
		t.Errorf("expected filename mock1, got %q", got.Filename)
	}
	if len(got.Sections) != 2 || got.Sections[0].Label != "TEST - II" {
		t.Fatalf("unexpected sections: %+v", got.Sections)
	}
	if opts := got.Sections[1].Questions[0].Options; len(opts) != 2 || opts[1] != "(B) 4" {
		t.Errorf("unexpected options: %v", opts)
	}
}

func TestDocument_DuplicateLabelsMerge(t *testing.T) {
	doc := Document{Sections: []Section{
		{Label: "TEST - I", Questions: []Question{{Number: 1}}},
		{Label: "TEST - II", Questions: []Question{{Number: 1}}},
		{Label: "TEST - I", Questions: []Question{{Number: 2}}},
	}}
	merged := doc.Merged()
	if len(merged) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(merged))
	}
	if n := len(merged[0].Questions); n != 2 {
		t.Errorf("expected 2 questions in TEST - I, got %d", n)
	}
	if len(doc.Sections[0].Questions) != 1 {
		t.Error("Merged must not modify the document")
	}
	if doc.QuestionCount() != 3 {
		t.Errorf("expected 3 questions, got %d", doc.QuestionCount())
	}
}

func TestSolutionDocument_Layouts(t *testing.T) {
	two := 2
	sdoc := SolutionDocument{
		Filename: "sol",
		Sections: []SolutionSection{{Label: "Solutions", Entries: []SolutionEntry{
			{Number: 1, Text: "Because.", Choice: &two},
			{Number: 2, Text: "No choice."},
		}}},
	}

	legacy, err := json.Marshal(sdoc)
	if err != nil {
		t.Fatalf("marshal legacy: %v", err)
	}
	if !strings.HasPrefix(string(legacy), `{"filename":"sol","Solutions":[`) {
		t.Errorf("unexpected legacy shape: %s", legacy)
	}
	if !strings.Contains(string(legacy), `"Choice":null`) {
		t.Errorf("expected null choice in %s", legacy)
	}

	sdoc.Layout = LayoutUnified
	unified, err := json.Marshal(sdoc)
	if err != nil {
		t.Fatalf("marshal unified: %v", err)
	}
	if !strings.Contains(string(unified), `"schema_version":2,"Content":{"Solutions":{"Data":{"solutions":[`) {
		t.Errorf("unexpected unified shape: %s", unified)
	}

	for _, b := range [][]byte{legacy, unified} {
		var got SolutionDocument
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.EntryCount() != 2 {
			t.Fatalf("expected 2 entries, got %d", got.EntryCount())
		}
		e := got.Sections[0].Entries[0]
		if e.Choice == nil || *e.Choice != 2 {
			t.Errorf("expected choice 2, got %v", e.Choice)
		}
		if got.Sections[0].Entries[1].Choice != nil {
			t.Error("expected nil choice for second entry")
		}
	}
}

func TestEncode_NoHTMLEscape(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleDocument()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(buf.String(), "<strong>first</strong>") {
		t.Errorf("expected unescaped markup, got %s", buf.String())
	}
}

func TestParseLayout(t *testing.T) {
	if ParseLayout("unified") != LayoutUnified {
		t.Error("expected unified")
	}
	if ParseLayout("") != LayoutLegacy || ParseLayout("other") != LayoutLegacy {
		t.Error("expected legacy default")
	}
}
