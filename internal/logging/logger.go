package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"stemsplit/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Writer receives output. When nil, File is used, then stderr.
	Writer io.Writer
	// File is a log file path written through a rotating writer.
	File     string
	Rotation Rotation
}

// Rotation controls size based rotation for file outputs.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	handler, err := newHandler(opts)
	if err != nil {
		return nil, err
	}
	return slog.New(handler), nil
}

func newHandler(opts Options) (slog.Handler, error) {
	level := ParseLevel(opts.Level)
	w := opts.Writer
	if w == nil && strings.TrimSpace(opts.File) != "" {
		path := strings.TrimSpace(opts.File)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		w = rotatorFor(path, opts.Rotation)
	}
	if w == nil {
		w = os.Stderr
	}

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		return newConsoleHandler(w, level, level <= slog.LevelDebug), nil
	case "json":
		return newJSONHandler(w, level), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewFromConfig builds the process logger. The terminal gets the configured
// format on stderr; the status log in log_dir is always JSON lines and rotates
// through lumberjack.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info"})
	}

	terminal, err := newHandler(Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return slog.New(terminal), nil
	}

	file, err := newHandler(Options{
		Level:  cfg.Logging.Level,
		Format: "json",
		File:   cfg.LogFilePath(),
		Rotation: Rotation{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.RetentionDays,
		},
	})
	if err != nil {
		return nil, err
	}
	return slog.New(teeHandler{terminal: terminal, file: file}), nil
}

// ParseLevel maps a config level name to a slog level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var (
	rotatorsMu sync.Mutex
	rotators   = map[string]*lumberjack.Logger{}
)

// rotatorFor shares one lumberjack writer per path within a process; two
// writers on the same file would rotate it out from under each other.
func rotatorFor(path string, rotation Rotation) *lumberjack.Logger {
	rotatorsMu.Lock()
	defer rotatorsMu.Unlock()
	if existing, ok := rotators[path]; ok {
		return existing
	}
	maxSize := rotation.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: rotation.MaxBackups,
		MaxAge:     rotation.MaxAgeDays,
	}
	rotators[path] = writer
	return writer
}
