package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/quizforge/internal/convert"
	"github.com/dgallion1/quizforge/internal/doctree"
	"github.com/dgallion1/quizforge/internal/markup"
	"github.com/dgallion1/quizforge/internal/segment"
	"github.com/dgallion1/quizforge/internal/visuals"
)

var segmentFlags struct {
	visuals string
	kind    string
	variant string
	layout  string
}

var segmentCmd = &cobra.Command{
	Use:   "segment <cleaned.md>",
	Short: "Segment normalized text into structured JSON",
	Long: `Segment an already normalized document (cleaned.md) and print the
structured JSON. Visuals from a visuals.json file are merged when given.

Examples:
  quizforge segment out/cleaned.md --visuals out/visuals.json
  quizforge segment key.md --kind solutions --layout unified`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := cfgMgr.Get()
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var idx visuals.Index
		if segmentFlags.visuals != "" {
			entries, err := visuals.Load(segmentFlags.visuals)
			if err != nil {
				return err
			}
			idx = visuals.NewIndex(entries)
		}
		kind, err := convert.ParseKind(segmentFlags.kind)
		if err != nil {
			return err
		}
		layout := cfg.Solutions.Layout
		if segmentFlags.layout != "" {
			layout = segmentFlags.layout
		}
		opts := []segment.Option{segment.WithLogger(logger), segment.WithLayout(doctree.ParseLayout(layout))}
		name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))

		if kind == convert.KindSolutions {
			doc := segment.NewSolutions(idx, opts...).Segment(name, string(data))
			return doctree.Encode(os.Stdout, doc)
		}
		variant := segmentFlags.variant
		if variant == "" {
			variant = cfg.Segment.Variant
		}
		policy, err := segment.PolicyFor(variant)
		if err != nil {
			return err
		}
		policy.ContextMatchPrefixWords = cfg.Segment.ContextPrefixWords
		doc := segment.New(policy, idx, opts...).Segment(name, string(data))
		logger.Info("segmented", "sections", len(doc.Merged()), "questions", doc.QuestionCount())
		return doctree.Encode(os.Stdout, doc)
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <raw.md>",
	Short: "Print the normalized form of converter Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(os.Stdout, markup.NewNormalizer(logger).Normalize(string(data)))
		return err
	},
}

var visualsSolutions bool

var visualsCmd = &cobra.Command{
	Use:   "visuals <content.html>",
	Short: "Extract tables and images from converter HTML as visuals.json",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		entries, err := visuals.Extract(f, visuals.ExtractOptions{Directions: !visualsSolutions, Log: logger})
		if err != nil {
			return err
		}
		return visuals.Encode(os.Stdout, entries)
	},
}

func init() {
	segmentCmd.Flags().StringVar(&segmentFlags.visuals, "visuals", "", "visuals.json to merge")
	segmentCmd.Flags().StringVar(&segmentFlags.kind, "kind", "questions", "document kind: questions or solutions")
	segmentCmd.Flags().StringVar(&segmentFlags.variant, "variant", "", "question variant: mcq, mock or passage (default from config)")
	segmentCmd.Flags().StringVar(&segmentFlags.layout, "layout", "", "solutions JSON layout: legacy or unified (default from config)")
	visualsCmd.Flags().BoolVar(&visualsSolutions, "solutions", false, "answer-key document: skip Directions attribution")

	rootCmd.AddCommand(segmentCmd, normalizeCmd, visualsCmd)
}
