package export

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/dgallion1/quizforge/internal/doctree"
)

func readSheets(t *testing.T, path string) map[string][][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	out := make(map[string][][]string)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			t.Fatalf("rows %s: %v", sheet, err)
		}
		out[sheet] = rows
	}
	return out
}

func TestWriteQuestionBank(t *testing.T) {
	doc := doctree.Document{Sections: []doctree.Section{
		{Label: "TEST - I", Questions: []doctree.Question{{
			Number:     1,
			MainCommon: "<em>Read</em> this.",
			Text:       "What is <strong>2+2</strong>?",
			Options:    []string{"(A) 3", "(B) 4", "(D) 6"},
			Tables:     []string{"<table></table>"},
			Images:     []string{"media/a.png", "media/b.png"},
		}}},
		{Label: "TEST: II/III", Questions: []doctree.Question{{Number: 7, Text: "Next", Options: []string{"(1) one", "(2) two"}}}},
	}}
	path := filepath.Join(t.TempDir(), "bank.xlsx")
	if err := WriteQuestionBank(doc, path); err != nil {
		t.Fatalf("WriteQuestionBank: %v", err)
	}

	sheets := readSheets(t, path)
	first, ok := sheets["TEST - I"]
	if !ok {
		t.Fatalf("sheets = %v", sheets)
	}
	if first[0][0] != "Number" || first[0][3] != "Question" {
		t.Errorf("header = %v", first[0])
	}
	want := []string{"1", "Read this.", "", "What is 2+2?", "3", "4", "", "6", "", "1", "media/a.png\nmedia/b.png"}
	if !reflect.DeepEqual(first[1], want) {
		t.Errorf("row = %q, want %q", first[1], want)
	}

	second, ok := sheets["TEST- II-III"]
	if !ok {
		t.Fatalf("sanitized sheet missing: %v", sheets)
	}
	if second[1][4] != "one" || second[1][5] != "two" {
		t.Errorf("numeric options = %q", second[1])
	}
}

func TestWriteSolutionKey(t *testing.T) {
	two := 2
	doc := doctree.SolutionDocument{Sections: []doctree.SolutionSection{{
		Label: "Solutions",
		Entries: []doctree.SolutionEntry{
			{Number: 1, Text: "Because <strong>so</strong>.", Choice: &two},
			{Number: 2, Text: "No key."},
		},
	}}}
	path := filepath.Join(t.TempDir(), "key.xlsx")
	if err := WriteSolutionKey(doc, path); err != nil {
		t.Fatalf("WriteSolutionKey: %v", err)
	}
	rows := readSheets(t, path)["Solutions"]
	if len(rows) != 3 {
		t.Fatalf("rows = %q", rows)
	}
	if rows[1][0] != "1" || rows[1][1] != "2" || rows[1][2] != "Because so." {
		t.Errorf("row 1 = %q", rows[1])
	}
	if rows[2][1] != "" {
		t.Errorf("row 2 choice = %q", rows[2][1])
	}
}

func TestSheetNames(t *testing.T) {
	n := newSheetNames()
	got := []string{n.next("", "Questions"), n.next("questions", "x"), n.next("A very long section label that exceeds the limit", "x")}
	want := []string{"Questions", "questions (2)", "A very long section label that"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("names = %q, want %q", got, want)
	}
}

func TestCellText_DropsMarkupEscapes(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`Cost is \$5 for 2\*3`, "Cost is $5 for 2*3"},
		{`<strong>Fill</strong> \_\_ here`, "Fill __ here"},
		{`\<b\> is a tag`, "<b> is a tag"},
	}
	for _, tt := range tests {
		if got := cellText(tt.in); got != tt.want {
			t.Errorf("cellText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
