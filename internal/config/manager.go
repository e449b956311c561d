package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. QUIZFORGE_WORKERS_COUNT.
const EnvPrefix = "QUIZFORGE"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v *viper.Viper

	mu        sync.RWMutex
	config    Config
	callbacks []func(Config)
}

// NewManager loads defaults, environment and the config file. An empty
// cfgFile looks for ./quizforge.yaml; a missing file is not an error.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{v: viper.New()}
	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}
	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg
	return cm, nil
}

func (cm *Manager) initViper(cfgFile string) error {
	v := cm.v
	d := Default()
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("api.key", d.API.Key)
	v.SetDefault("workers.count", d.Workers.Count)
	v.SetDefault("workers.max_queue", d.Workers.MaxQueue)
	v.SetDefault("upload.max_bytes", d.Upload.MaxBytes)
	v.SetDefault("jobs.ttl", d.Jobs.TTL)
	v.SetDefault("jobs.work_dir", d.Jobs.WorkDir)
	v.SetDefault("tools.pandoc", d.Tools.Pandoc)
	v.SetDefault("tools.wkhtmltoimage", d.Tools.Wkhtmltoimage)
	v.SetDefault("tools.timeout", d.Tools.Timeout)
	v.SetDefault("tools.retry_attempts", d.Tools.RetryAttempts)
	v.SetDefault("tools.retry_delay", d.Tools.RetryDelay)
	v.SetDefault("render.enabled", d.Render.Enabled)
	v.SetDefault("render.width", d.Render.Width)
	v.SetDefault("render.quality", d.Render.Quality)
	v.SetDefault("render.card_width", d.Render.CardWidth)
	v.SetDefault("render.booklet", d.Render.Booklet)
	v.SetDefault("segment.variant", d.Segment.Variant)
	v.SetDefault("segment.context_prefix_words", d.Segment.ContextPrefixWords)
	v.SetDefault("solutions.layout", d.Solutions.Layout)
	v.SetDefault("export.xlsx", d.Export.XLSX)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("quizforge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func (cm *Manager) load() (Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Get returns the current configuration.
func (cm *Manager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// Set overrides one key, as a command-line flag would, and reloads.
func (cm *Manager) Set(key string, value any) error {
	cm.v.Set(key, value)
	cfg, err := cm.load()
	if err != nil {
		return err
	}
	cm.mu.Lock()
	cm.config = cfg
	cm.mu.Unlock()
	return nil
}

// ConfigFile returns the file in use, or "" when running on defaults.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading. An invalid edit is reported to onErr
// and the previous configuration stays in effect.
func (cm *Manager) WatchConfig(onErr func(error)) {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			if onErr != nil {
				onErr(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}
