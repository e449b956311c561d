package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/quizforge/internal/convert"
	"github.com/dgallion1/quizforge/internal/pipeline"
)

var convertFlags struct {
	kind       string
	variant    string
	out        string
	render     bool
	mathml     bool
	noMedia    bool
	keepHeader bool
	xlsx       bool
	booklet    bool
	zip        bool
}

var convertCmd = &cobra.Command{
	Use:   "convert <file.docx>",
	Short: "Run the full pipeline on one document",
	Long: `Convert a DOCX exam into Markdown, HTML, visuals.json, cleaned.md and
structured JSON, optionally with PNG cards, an XLSX sheet, a PDF booklet
and a zip archive.

Examples:
  quizforge convert exam.docx
  quizforge convert key.docx --kind solutions --zip
  quizforge convert passage.docx --variant passage --render --booklet`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := cfgMgr.Get()
		kind, err := convert.ParseKind(convertFlags.kind)
		if err != nil {
			return err
		}
		variant := convertFlags.variant
		if variant == "" {
			variant = cfg.Segment.Variant
		}

		runner, _, err := buildRunner(cfg, logger)
		if err != nil {
			return err
		}
		src := args[0]
		out := convertFlags.out
		if out == "" {
			out = filepath.Join(cfg.Jobs.WorkDir, convert.Slug(convert.NormalizeFilename(filepath.Base(src))))
		}

		render := cfg.Render.Enabled
		if cmd.Flags().Changed("render") {
			render = convertFlags.render
		}
		xlsx := cfg.Export.XLSX
		if cmd.Flags().Changed("xlsx") {
			xlsx = convertFlags.xlsx
		}
		booklet := cfg.Render.Booklet
		if cmd.Flags().Changed("booklet") {
			booklet = convertFlags.booklet
		}

		res, err := runner.Run(cmd.Context(), pipeline.Request{
			Source:        src,
			OriginalName:  filepath.Base(src),
			Kind:          kind,
			Variant:       variant,
			OutDir:        out,
			Render:        render,
			ExtractMedia:  !convertFlags.noMedia,
			MathML:        convertFlags.mathml,
			ExcludeHeader: !convertFlags.keepHeader,
			XLSX:          xlsx,
			Booklet:       booklet,
			Zip:           convertFlags.zip,
		})
		if err != nil {
			return fmt.Errorf("convert %s: %w", src, err)
		}
		return printOutput(res)
	},
}

func init() {
	f := convertCmd.Flags()
	f.StringVar(&convertFlags.kind, "kind", "auto", "document kind: questions, solutions or auto")
	f.StringVar(&convertFlags.variant, "variant", "", "question variant: mcq, mock or passage (default from config)")
	f.StringVar(&convertFlags.out, "out", "", "output directory (default: <jobs.work_dir>/<name>)")
	f.BoolVar(&convertFlags.render, "render", false, "render PNG question cards (default from config)")
	f.BoolVar(&convertFlags.mathml, "mathml", true, "ask pandoc for MathML")
	f.BoolVar(&convertFlags.noMedia, "no-media", false, "do not extract embedded media into the markdown")
	f.BoolVar(&convertFlags.keepHeader, "keep-header", false, "keep the document preamble")
	f.BoolVar(&convertFlags.xlsx, "xlsx", false, "write an XLSX export (default from config)")
	f.BoolVar(&convertFlags.booklet, "booklet", false, "combine cards into a PDF booklet (default from config)")
	f.BoolVar(&convertFlags.zip, "zip", false, "zip the output directory")

	rootCmd.AddCommand(convertCmd)
}
