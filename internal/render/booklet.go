package render

import (
	"errors"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrEmptyBooklet is returned when there are no cards to combine.
var ErrEmptyBooklet = errors.New("render: no cards for booklet")

// Booklet combines PNG cards into a PDF at out, one card per page, and
// returns the page count read back from the written file.
func Booklet(pngs []string, out string) (int, error) {
	if len(pngs) == 0 {
		return 0, ErrEmptyBooklet
	}
	if err := os.Remove(out); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove old booklet: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ImportImagesFile(pngs, out, pdfcpu.DefaultImportConfig(), conf); err != nil {
		return 0, fmt.Errorf("import cards: %w", err)
	}

	f, err := os.Open(out)
	if err != nil {
		return 0, fmt.Errorf("open booklet: %w", err)
	}
	defer f.Close()
	pages, err := api.PageCount(f, conf)
	if err != nil {
		return 0, fmt.Errorf("count booklet pages: %w", err)
	}
	if pages != len(pngs) {
		return pages, fmt.Errorf("booklet has %d pages, want %d", pages, len(pngs))
	}
	return pages, nil
}
