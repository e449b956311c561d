package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/quizforge/internal/api"
	"github.com/dgallion1/quizforge/internal/config"
	"github.com/dgallion1/quizforge/internal/convert"
	"github.com/dgallion1/quizforge/internal/pipeline"
	"github.com/dgallion1/quizforge/internal/render"
	"github.com/dgallion1/quizforge/internal/tool"
)

var (
	cfgFile      string
	logLevel     string
	outputFormat string

	cfgMgr      *config.Manager
	output      api.OutputFormat
	logger      *slog.Logger
	logLevelVar = new(slog.LevelVar)
)

var rootCmd = &cobra.Command{
	Use:   "quizforge",
	Short: "Convert exam DOCX files into structured JSON and question cards",
	Long: `Quizforge converts exam documents into structured data.

The pipeline includes:
  - DOCX to Markdown and HTML conversion (pandoc)
  - Table and image attribution to questions
  - Markup normalization (LaTeX, scripts, emphasis)
  - Segmentation into sections, directions, questions and options
  - Solutions parsing with chosen answers
  - PNG question cards, XLSX export, PDF booklet and zip packaging`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if output, err = api.ParseOutputFormat(outputFormat); err != nil {
			return err
		}
		if cfgMgr, err = config.NewManager(cfgFile); err != nil {
			return err
		}
		if logLevel != "" {
			if err := cfgMgr.Set("log.level", logLevel); err != nil {
				return err
			}
		}
		logger = newLogger(cfgMgr.Get().Log)
		if f := cfgMgr.ConfigFile(); f != "" {
			logger.Debug("config loaded", "file", f)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./quizforge.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
}

// newLogger writes to stderr so stdout carries only command output. The
// level stays adjustable through logLevelVar.
func newLogger(c config.LogConfig) *slog.Logger {
	logLevelVar.Set(parseLevel(c.Level))
	opts := &slog.HandlerOptions{Level: logLevelVar}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// printOutput writes data to stdout in the --output format.
func printOutput(data any) error {
	return api.OutputTo(os.Stdout, output, data)
}

// buildRunner wires the subprocess tools and renderers from cfg.
func buildRunner(cfg config.Config, log *slog.Logger) (*pipeline.Runner, *tool.Stats, error) {
	stats := tool.NewStats(time.Hour)
	tr := tool.NewRunner(cfg.Tools.Timeout, stats, log)
	conv := convert.NewPandoc(cfg.Tools.Pandoc, tr, log)
	raster, native, err := buildRenderers(cfg, tr, log)
	if err != nil {
		return nil, nil, err
	}
	return pipeline.NewRunner(cfg, conv, raster, native, log), stats, nil
}

func buildRenderers(cfg config.Config, tr *tool.Runner, log *slog.Logger) (render.Rasterizer, *render.Native, error) {
	native, err := render.NewNative(cfg.Render.CardWidth)
	if err != nil {
		return nil, nil, fmt.Errorf("load card fonts: %w", err)
	}
	w := render.NewWkhtmltoimage(cfg.Tools.Wkhtmltoimage, tr, log)
	w.Width = cfg.Render.Width
	w.Quality = cfg.Render.Quality
	w.Attempts = cfg.Tools.RetryAttempts
	w.Delay = cfg.Tools.RetryDelay
	return w, native, nil
}
