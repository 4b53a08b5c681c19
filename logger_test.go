package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultLogConfig(t *testing.T) {
	config := DefaultLogConfig()
	if config.Level != LogLevelInfo {
		t.Errorf("Expected default level Info, got %d", config.Level)
	}
	if !config.Console {
		t.Error("Expected console output enabled by default")
	}
	if config.FilePath != "" {
		t.Error("Expected file output disabled by default")
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LogLevelDebug},
		{"info", LogLevelInfo},
		{"warn", LogLevelWarn},
		{"error", LogLevelError},
		{"bogus", LogLevelInfo},
		{"", LogLevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLogLevel(tc.in); got != tc.want {
			t.Errorf("%q: got %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	old := Logger
	defer func() { Logger = old }()
	Logger = zerolog.New(&buf).Level(zerolog.WarnLevel)

	LogDebug("test").Msg("debug message")
	LogInfo("test").Msg("info message")
	LogWarn("test").Msg("warn message")
	LogError("test").Msg("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Error("Messages below the level must be dropped")
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Error("Messages at or above the level must be emitted")
	}
}

func TestLoggerModuleField(t *testing.T) {
	var buf bytes.Buffer
	old := Logger
	defer func() { Logger = old }()
	Logger = zerolog.New(&buf)

	LogInfo("router").Str("command", "click").Msg("handled")

	out := buf.String()
	if !strings.Contains(out, `"module":"router"`) {
		t.Errorf("Expected module field, got %s", out)
	}
	if !strings.Contains(out, `"command":"click"`) {
		t.Errorf("Expected structured field, got %s", out)
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	old := Logger
	defer func() { Logger = old }()
	Logger = zerolog.New(&buf).Level(zerolog.InfoLevel)

	SetLogLevel(LogLevelError)
	LogWarn("test").Msg("suppressed")
	SetLogLevel(LogLevelDebug)
	LogDebug("test").Msg("visible")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Error("Raising the level must drop lower messages")
	}
	if !strings.Contains(out, "visible") {
		t.Error("Lowering the level must let messages through")
	}
}

func TestFileLoggerWritesAndRotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tether.log")

	fl, err := NewFileLogger(path, 1)
	if err != nil {
		t.Fatal(err)
	}

	line := []byte(strings.Repeat("x", 1024) + "\n")
	// Push past 1MB to force a rotation
	for i := 0; i < 1100; i++ {
		if _, err := fl.Write(line); err != nil {
			t.Fatal(err)
		}
	}
	if err := fl.Close(); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) < 2 {
		t.Errorf("Expected the live file plus a rotated file, got %d entries", len(entries))
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Live log file missing after rotation: %v", err)
	}
}

func TestInitLoggerWithFile(t *testing.T) {
	old := Logger
	defer func() {
		CloseLogger()
		Logger = old
	}()

	path := filepath.Join(t.TempDir(), "out.log")
	config := LogConfig{
		Level:     LogLevelDebug,
		Console:   false,
		FilePath:  path,
		MaxSizeMB: 10,
	}
	if err := InitLogger(config); err != nil {
		t.Fatal(err)
	}

	LogInfo("test").Msg("hello file")
	CloseLogger()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Errorf("Expected log line in file, got %s", data)
	}
}
