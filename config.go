package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ========================================
// Configuration
// ========================================

// Config is the bridge configuration (config.yaml).
type Config struct {
	// Listen is the TCP transport address; empty disables the TCP server.
	Listen string `yaml:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`
	// LogFile enables file logging when non-empty.
	LogFile string `yaml:"logFile"`

	// CommandTimeoutMs bounds interactive commands end to end.
	CommandTimeoutMs int `yaml:"commandTimeoutMs"`

	// RateLimitPerSec caps inbound commands per TCP connection.
	RateLimitPerSec int `yaml:"rateLimitPerSec"`

	// Audit controls the SQLite command history.
	Audit AuditConfig `yaml:"audit"`
}

// AuditConfig controls command history persistence.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Listen:           "127.0.0.1:7633",
		LogLevel:         "info",
		CommandTimeoutMs: 30000,
		RateLimitPerSec:  20,
		Audit: AuditConfig{
			Enabled: true,
			Dir:     defaultDataDir(),
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tether"
	}
	return filepath.Join(home, ".tether")
}

// LoadConfig reads the YAML config at path, filling unset fields from the
// defaults. A missing file is not an error: defaults apply.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config: %w", err)
	}
	if cfg.CommandTimeoutMs <= 0 {
		cfg.CommandTimeoutMs = 30000
	}
	if cfg.RateLimitPerSec <= 0 {
		cfg.RateLimitPerSec = 20
	}
	return cfg, nil
}

// CommandTimeout returns the interactive command bound as a duration.
func (c Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutMs) * time.Millisecond
}

// ========================================
// ConfigWatcher - hot reload
// ========================================

// ConfigWatcher monitors the config file and re-applies reloadable settings
// (log level, rate limit) when it changes from outside.
type ConfigWatcher struct {
	path     string
	onChange func(Config)
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	mu       sync.Mutex
}

// NewConfigWatcher creates a watcher for the config file at path. onChange
// runs on every successful reload.
func NewConfigWatcher(path string, onChange func(Config)) *ConfigWatcher {
	return &ConfigWatcher{
		path:     path,
		onChange: onChange,
		stopCh:   make(chan struct{}),
	}
}

// Start begins watching. Watching the parent directory survives the
// rename-then-write dance editors do.
func (w *ConfigWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}

	LogInfo("config").Str("path", w.path).Msg("watching config file")
	go w.watch()
	return nil
}

// Stop stops watching.
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		close(w.stopCh)
		w.watcher.Close()
		w.watcher = nil
	}
}

func (w *ConfigWatcher) watch() {
	// Debounce: editors emit bursts of events per save.
	var debounce *time.Timer
	const debounceDelay = 300 * time.Millisecond

	reload := func() {
		cfg, err := LoadConfig(w.path)
		if err != nil {
			LogWarn("config").Err(err).Msg("config reload failed, keeping previous settings")
			return
		}
		LogInfo("config").Str("logLevel", cfg.LogLevel).Msg("config reloaded")
		w.onChange(cfg)
	}

	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			switch {
			case event.Op&fsnotify.Write == fsnotify.Write,
				event.Op&fsnotify.Create == fsnotify.Create,
				event.Op&fsnotify.Rename == fsnotify.Rename:
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDelay, reload)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			LogWarn("config").Err(err).Msg("config watcher error")
		}
	}
}
