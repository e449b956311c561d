// Package export writes segmented documents as spreadsheets.
package export

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dgallion1/quizforge/internal/doctree"
	"github.com/dgallion1/quizforge/internal/markup"
)

var (
	questionHeader = []any{"Number", "Main Common", "Sub Common", "Question", "Option A", "Option B", "Option C", "Option D", "Option E", "Tables", "Images"}
	solutionHeader = []any{"Number", "Choice", "Solution", "Tables", "Images"}

	sheetInvalidRe = regexp.MustCompile(`[\[\]:*?/\\]`)
	optionPrefixRe = regexp.MustCompile(`^\(([A-Za-z]|\d{1,3})\)\s*`)
)

const maxOptionColumns = 5

// WriteQuestionBank writes one sheet per section with one row per question.
func WriteQuestionBank(doc doctree.Document, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	names := newSheetNames()
	for i, sec := range doc.Merged() {
		sheet, err := addSheet(f, i, names.next(sec.Label, "Questions"))
		if err != nil {
			return err
		}
		if err := writeHeader(f, sheet, questionHeader); err != nil {
			return err
		}
		for r, q := range sec.Questions {
			row := []any{
				q.Number,
				cellText(q.MainCommon),
				cellText(q.SubCommon),
				cellText(q.Text),
			}
			row = append(row, optionCells(q.Options)...)
			row = append(row, len(q.Tables), strings.Join(q.Images, "\n"))
			if err := setRow(f, sheet, r+2, row); err != nil {
				return err
			}
		}
	}
	if len(doc.Sections) == 0 {
		if _, err := addSheet(f, 0, "Questions"); err != nil {
			return err
		}
		if err := writeHeader(f, "Questions", questionHeader); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save question bank: %w", err)
	}
	return nil
}

// WriteSolutionKey writes one sheet per section with one row per solution.
func WriteSolutionKey(doc doctree.SolutionDocument, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	names := newSheetNames()
	sections := doc.Merged()
	if len(sections) == 0 {
		sections = []doctree.SolutionSection{{Label: "Solutions"}}
	}
	for i, sec := range sections {
		sheet, err := addSheet(f, i, names.next(sec.Label, "Solutions"))
		if err != nil {
			return err
		}
		if err := writeHeader(f, sheet, solutionHeader); err != nil {
			return err
		}
		for r, e := range sec.Entries {
			var choice any = ""
			if e.Choice != nil {
				choice = *e.Choice
			}
			row := []any{e.Number, choice, cellText(e.Text), len(e.Tables), strings.Join(e.Images, "\n")}
			if err := setRow(f, sheet, r+2, row); err != nil {
				return err
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save solution key: %w", err)
	}
	return nil
}

// addSheet renames the default sheet for the first section and creates the rest.
func addSheet(f *excelize.File, i int, name string) (string, error) {
	if i == 0 {
		if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
			return "", fmt.Errorf("rename sheet: %w", err)
		}
		return name, nil
	}
	if _, err := f.NewSheet(name); err != nil {
		return "", fmt.Errorf("add sheet %q: %w", name, err)
	}
	return name, nil
}

func writeHeader(f *excelize.File, sheet string, header []any) error {
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

// optionCells places options into the A–E columns by marker, falling back
// to position for markers outside that range.
func optionCells(options []string) []any {
	cells := make([]any, maxOptionColumns)
	for i := range cells {
		cells[i] = ""
	}
	for i, o := range options {
		col := i
		text := o
		if m := optionPrefixRe.FindStringSubmatch(o); m != nil {
			text = o[len(m[0]):]
			if c, ok := markerColumn(m[1]); ok {
				col = c
			}
		}
		if col >= maxOptionColumns || cells[col] != "" {
			continue
		}
		cells[col] = cellText(text)
	}
	return cells
}

func markerColumn(marker string) (int, bool) {
	if n, err := strconv.Atoi(marker); err == nil {
		return n - 1, n >= 1 && n <= maxOptionColumns
	}
	c := strings.ToUpper(marker)[0]
	return int(c - 'A'), c >= 'A' && c <= 'E'
}

func cellText(s string) string {
	return markup.CollapseBlankLines(markup.Unescape(markup.StripTags(s)))
}

// sheetNames hands out unique, valid sheet names.
type sheetNames map[string]int

func newSheetNames() sheetNames { return make(sheetNames) }

func (s sheetNames) next(label, fallback string) string {
	name := strings.TrimSpace(sheetInvalidRe.ReplaceAllString(label, "-"))
	if name == "" {
		name = fallback
	}
	if r := []rune(name); len(r) > 31 {
		name = strings.TrimSpace(string(r[:31]))
	}
	key := strings.ToLower(name)
	s[key]++
	if n := s[key]; n > 1 {
		suffix := " (" + strconv.Itoa(n) + ")"
		r := []rune(name)
		if len(r)+len(suffix) > 31 {
			r = r[:31-len(suffix)]
		}
		name = string(r) + suffix
	}
	return name
}
