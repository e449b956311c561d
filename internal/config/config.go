// Package config loads quizforge settings from defaults, environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server" json:"server"`
	API       APIConfig       `mapstructure:"api" yaml:"api" json:"api"`
	Workers   WorkersConfig   `mapstructure:"workers" yaml:"workers" json:"workers"`
	Upload    UploadConfig    `mapstructure:"upload" yaml:"upload" json:"upload"`
	Jobs      JobsConfig      `mapstructure:"jobs" yaml:"jobs" json:"jobs"`
	Tools     ToolsConfig     `mapstructure:"tools" yaml:"tools" json:"tools"`
	Render    RenderConfig    `mapstructure:"render" yaml:"render" json:"render"`
	Segment   SegmentConfig   `mapstructure:"segment" yaml:"segment" json:"segment"`
	Solutions SolutionsConfig `mapstructure:"solutions" yaml:"solutions" json:"solutions"`
	Export    ExportConfig    `mapstructure:"export" yaml:"export" json:"export"`
	Log       LogConfig       `mapstructure:"log" yaml:"log" json:"log"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port" yaml:"port" json:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" json:"write_timeout"`
}

type APIConfig struct {
	// Key enables bearer auth on /api routes when set.
	Key string `mapstructure:"key" yaml:"key" json:"-"`
}

type WorkersConfig struct {
	Count    int `mapstructure:"count" yaml:"count" json:"count"`
	MaxQueue int `mapstructure:"max_queue" yaml:"max_queue" json:"max_queue"`
}

type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes" yaml:"max_bytes" json:"max_bytes"`
}

type JobsConfig struct {
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`
	WorkDir string        `mapstructure:"work_dir" yaml:"work_dir" json:"work_dir"`
}

type ToolsConfig struct {
	Pandoc        string        `mapstructure:"pandoc" yaml:"pandoc" json:"pandoc"`
	Wkhtmltoimage string        `mapstructure:"wkhtmltoimage" yaml:"wkhtmltoimage" json:"wkhtmltoimage"`
	// Timeout bounds each subprocess run. Zero means no timeout.
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	RetryAttempts uint          `mapstructure:"retry_attempts" yaml:"retry_attempts" json:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" yaml:"retry_delay" json:"retry_delay"`
}

type RenderConfig struct {
	Enabled   bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Width     int  `mapstructure:"width" yaml:"width" json:"width"`
	Quality   int  `mapstructure:"quality" yaml:"quality" json:"quality"`
	CardWidth int  `mapstructure:"card_width" yaml:"card_width" json:"card_width"`
	Booklet   bool `mapstructure:"booklet" yaml:"booklet" json:"booklet"`
}

type SegmentConfig struct {
	Variant            string `mapstructure:"variant" yaml:"variant" json:"variant"`
	ContextPrefixWords int    `mapstructure:"context_prefix_words" yaml:"context_prefix_words" json:"context_prefix_words"`
}

type SolutionsConfig struct {
	// Layout is "legacy" or "unified".
	Layout string `mapstructure:"layout" yaml:"layout" json:"layout"`
}

type ExportConfig struct {
	XLSX bool `mapstructure:"xlsx" yaml:"xlsx" json:"xlsx"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: "8090", ReadTimeout: 30 * time.Second, WriteTimeout: 5 * time.Minute},
		Workers: WorkersConfig{
			Count:    2,
			MaxQueue: 50,
		},
		Upload: UploadConfig{MaxBytes: 52428800}, // 50MB
		Jobs:   JobsConfig{TTL: time.Hour, WorkDir: "conversions"},
		Tools: ToolsConfig{
			Pandoc:        "pandoc",
			Wkhtmltoimage: "wkhtmltoimage",
			RetryAttempts: 3,
			RetryDelay:    500 * time.Millisecond,
		},
		Render:    RenderConfig{Enabled: true, Width: 1200, Quality: 90, CardWidth: 1600},
		Segment:   SegmentConfig{Variant: "mock", ContextPrefixWords: 5},
		Solutions: SolutionsConfig{Layout: "legacy"},
		Log:       LogConfig{Level: "info", Format: "json"},
	}
}

// normalize clamps non-positive values back to their defaults.
func (c *Config) normalize() {
	d := Default()
	if c.Server.Port == "" {
		c.Server.Port = d.Server.Port
	}
	if c.Workers.Count <= 0 {
		c.Workers.Count = d.Workers.Count
	}
	if c.Workers.MaxQueue <= 0 {
		c.Workers.MaxQueue = d.Workers.MaxQueue
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = d.Upload.MaxBytes
	}
	if c.Jobs.TTL <= 0 {
		c.Jobs.TTL = d.Jobs.TTL
	}
	if c.Jobs.WorkDir == "" {
		c.Jobs.WorkDir = d.Jobs.WorkDir
	}
	if c.Tools.Timeout < 0 {
		c.Tools.Timeout = 0
	}
	if c.Tools.RetryAttempts == 0 {
		c.Tools.RetryAttempts = 1
	}
	if c.Render.Width <= 0 {
		c.Render.Width = d.Render.Width
	}
	if c.Render.Quality <= 0 || c.Render.Quality > 100 {
		c.Render.Quality = d.Render.Quality
	}
	if c.Render.CardWidth <= 0 {
		c.Render.CardWidth = d.Render.CardWidth
	}
	if c.Segment.ContextPrefixWords <= 0 {
		c.Segment.ContextPrefixWords = d.Segment.ContextPrefixWords
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
}

func (c Config) Validate() error {
	var errs []error
	switch c.Segment.Variant {
	case "mcq", "mock", "passage":
	default:
		errs = append(errs, fmt.Errorf("segment.variant %q must be mcq, mock or passage", c.Segment.Variant))
	}
	switch c.Solutions.Layout {
	case "legacy", "unified":
	default:
		errs = append(errs, fmt.Errorf("solutions.layout %q must be legacy or unified", c.Solutions.Layout))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or text", c.Log.Format))
	}
	if c.Tools.Pandoc == "" {
		errs = append(errs, errors.New("tools.pandoc is required"))
	}
	return errors.Join(errs...)
}
