package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("A missing file is not an error: %v", err)
	}
	def := DefaultConfig()
	if cfg.Listen != def.Listen || cfg.LogLevel != def.LogLevel {
		t.Errorf("got %+v", cfg)
	}
	if cfg.CommandTimeout() != 30*time.Second {
		t.Errorf("got timeout %v", cfg.CommandTimeout())
	}
}

func TestLoadConfig_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tether.yaml")
	content := `
listen: "0.0.0.0:9000"
logLevel: debug
commandTimeoutMs: 5000
rateLimitPerSec: 5
audit:
  enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != "0.0.0.0:9000" || cfg.LogLevel != "debug" {
		t.Errorf("got %+v", cfg)
	}
	if cfg.CommandTimeout() != 5*time.Second {
		t.Errorf("got timeout %v", cfg.CommandTimeout())
	}
	if cfg.RateLimitPerSec != 5 {
		t.Errorf("got rate %d", cfg.RateLimitPerSec)
	}
	if cfg.Audit.Enabled {
		t.Error("Audit should be disabled")
	}
}

func TestLoadConfig_InvalidYAMLFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("listen: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err == nil {
		t.Error("A broken file should report the parse error")
	}
	if cfg.Listen != DefaultConfig().Listen {
		t.Errorf("Broken config must fall back to defaults, got %+v", cfg)
	}
}

func TestLoadConfig_ZeroTimeoutCorrected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tether.yaml")
	if err := os.WriteFile(path, []byte("commandTimeoutMs: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CommandTimeoutMs != 30000 {
		t.Errorf("Zero timeout must be corrected to the default, got %d", cfg.CommandTimeoutMs)
	}
}

func TestConfigWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tether.yaml")
	if err := os.WriteFile(path, []byte("logLevel: info\n"), 0644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan Config, 4)
	w := NewConfigWatcher(path, func(cfg Config) {
		reloaded <- cfg
	})
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// Let the watcher settle before changing the file
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("logLevel: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.LogLevel != "debug" {
			t.Errorf("got %+v", cfg)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Watcher did not report the change")
	}
}

func TestConfigWatcher_StopIsIdempotent(t *testing.T) {
	w := NewConfigWatcher(filepath.Join(t.TempDir(), "x.yaml"), func(Config) {})
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}
