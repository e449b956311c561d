package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/quizforge/internal/convert"
	"github.com/dgallion1/quizforge/internal/doctree"
	"github.com/dgallion1/quizforge/internal/render"
	"github.com/dgallion1/quizforge/internal/tool"
)

var renderFlags struct {
	out     string
	kind    string
	base    string
	booklet string
}

var renderCmd = &cobra.Command{
	Use:   "render <structured.json>",
	Short: "Render question or solution cards from structured JSON",
	Long: `Render one PNG card per record of a structured JSON file. Relative
image paths resolve against --base, which defaults to the JSON file's
directory.

Examples:
  quizforge render out/exam.json --out out/cards
  quizforge render out/key.json --kind solutions --out cards --booklet key.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := cfgMgr.Get()
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		kind, err := convert.ParseKind(renderFlags.kind)
		if err != nil {
			return err
		}
		base := renderFlags.base
		if base == "" {
			base = filepath.Dir(args[0])
		}

		tr := tool.NewRunner(cfg.Tools.Timeout, tool.NewStats(time.Hour), logger)
		raster, native, err := buildRenderers(cfg, tr, logger)
		if err != nil {
			return err
		}
		r := render.New(raster, native, base, logger)

		var m render.Manifest
		if kind == convert.KindSolutions {
			var doc doctree.SolutionDocument
			if err := json.Unmarshal(data, &doc); err != nil {
				return err
			}
			m, err = r.RenderSolutions(cmd.Context(), doc, renderFlags.out)
		} else {
			var doc doctree.Document
			if err := json.Unmarshal(data, &doc); err != nil {
				return err
			}
			m, err = r.RenderQuestions(cmd.Context(), doc, renderFlags.out)
		}
		if err != nil {
			return err
		}
		if renderFlags.booklet != "" && len(m.Files) > 0 {
			pages, err := render.Booklet(m.Files, renderFlags.booklet)
			if err != nil {
				return err
			}
			logger.Info("booklet written", "path", renderFlags.booklet, "pages", pages)
		}
		return printOutput(m)
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderFlags.out, "out", "cards", "output directory for PNG cards")
	renderCmd.Flags().StringVar(&renderFlags.kind, "kind", "questions", "document kind: questions or solutions")
	renderCmd.Flags().StringVar(&renderFlags.base, "base", "", "directory relative image paths resolve against")
	renderCmd.Flags().StringVar(&renderFlags.booklet, "booklet", "", "also write the cards into this PDF")

	rootCmd.AddCommand(renderCmd)
}
