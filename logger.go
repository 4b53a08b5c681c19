package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ========================================
// Structured Logger
// ========================================

// Logger is the process-wide log instance.
var Logger zerolog.Logger

var fileLogger *FileLogger

// LogLevel selects the minimum severity emitted.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// ParseLogLevel maps a config string to a LogLevel; unknown values fall back
// to info.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LogLevelDebug
	case "warn":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// LogConfig configures log output.
type LogConfig struct {
	Level     LogLevel
	Console   bool   // write to stderr
	FilePath  string // write to this file when non-empty
	MaxSizeMB int    // rotate the file when it grows past this
}

// DefaultLogConfig returns the default logging setup: console only, info.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:     LogLevelInfo,
		Console:   true,
		MaxSizeMB: 10,
	}
}

// ========================================
// FileLogger - size-rotated log file writer
// ========================================

// FileLogger writes log output to a file and rotates it by size.
type FileLogger struct {
	mu          sync.Mutex
	path        string
	maxSize     int64
	currentFile *os.File
	currentSize int64
}

// NewFileLogger opens (or creates) the log file at path.
func NewFileLogger(path string, maxSizeMB int) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	fl := &FileLogger{path: path, maxSize: int64(maxSizeMB) * 1024 * 1024}
	if err := fl.openFile(); err != nil {
		return nil, err
	}
	return fl, nil
}

// Write implements io.Writer.
func (fl *FileLogger) Write(p []byte) (int, error) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.maxSize > 0 && fl.currentSize+int64(len(p)) > fl.maxSize {
		if err := fl.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := fl.currentFile.Write(p)
	fl.currentSize += int64(n)
	return n, err
}

func (fl *FileLogger) openFile() error {
	file, err := os.OpenFile(fl.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	fl.currentFile = file
	fl.currentSize = info.Size()
	return nil
}

func (fl *FileLogger) rotate() error {
	if fl.currentFile != nil {
		fl.currentFile.Close()
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	ext := filepath.Ext(fl.path)
	rotated := fl.path[:len(fl.path)-len(ext)] + "_" + timestamp + ext
	if err := os.Rename(fl.path, rotated); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	return fl.openFile()
}

// Close closes the underlying file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.currentFile != nil {
		return fl.currentFile.Close()
	}
	return nil
}

// ========================================
// Initialization
// ========================================

// InitLogger initializes the process-wide logger.
func InitLogger(config LogConfig) error {
	var writers []io.Writer

	if config.Console {
		// Stderr so the stdio MCP transport keeps stdout to itself.
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}

	if config.FilePath != "" {
		fl, err := NewFileLogger(config.FilePath, config.MaxSizeMB)
		if err != nil {
			return err
		}
		fileLogger = fl
		writers = append(writers, fl)
	}

	if len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}

	multi := zerolog.MultiLevelWriter(writers...)

	var level zerolog.Level
	switch config.Level {
	case LogLevelDebug:
		level = zerolog.DebugLevel
	case LogLevelWarn:
		level = zerolog.WarnLevel
	case LogLevelError:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	Logger = zerolog.New(multi).
		Level(level).
		With().
		Timestamp().
		Logger()

	return nil
}

// SetLogLevel adjusts the minimum severity at runtime (config hot-reload).
func SetLogLevel(level LogLevel) {
	switch level {
	case LogLevelDebug:
		Logger = Logger.Level(zerolog.DebugLevel)
	case LogLevelWarn:
		Logger = Logger.Level(zerolog.WarnLevel)
	case LogLevelError:
		Logger = Logger.Level(zerolog.ErrorLevel)
	default:
		Logger = Logger.Level(zerolog.InfoLevel)
	}
}

// CloseLogger flushes and closes the file writer, if any.
func CloseLogger() {
	if fileLogger != nil {
		fileLogger.Close()
	}
}

// ========================================
// Convenience helpers
// ========================================

// LogDebug logs at debug level for the given module.
func LogDebug(module string) *zerolog.Event {
	return Logger.Debug().Str("module", module)
}

// LogInfo logs at info level for the given module.
func LogInfo(module string) *zerolog.Event {
	return Logger.Info().Str("module", module)
}

// LogWarn logs at warn level for the given module.
func LogWarn(module string) *zerolog.Event {
	return Logger.Warn().Str("module", module)
}

// LogError logs at error level for the given module.
func LogError(module string) *zerolog.Event {
	return Logger.Error().Str("module", module)
}
