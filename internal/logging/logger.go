package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"autotrans/internal/config"
)

// LogFileName is the JSON log written under paths.log_dir.
const LogFileName = "autotrans.log"

// Options describes logger construction parameters.
type Options struct {
	Level  string // debug, info, warn or error
	Format string // console or json
	// Output is "stdout", "stderr" or a file path. Empty means stdout.
	Output string
}

// New builds a single-sink logger. Source locations are attached only at
// debug level.
func New(opts Options) (*slog.Logger, error) {
	w, err := openOutput(opts.Output)
	if err != nil {
		return nil, err
	}
	handler, err := newHandler(w, opts.Format, parseLevel(opts.Level))
	if err != nil {
		return nil, err
	}
	return slog.New(handler), nil
}

func newHandler(w io.Writer, format string, level slog.Level) (slog.Handler, error) {
	debug := level <= slog.LevelDebug
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		return newConsoleHandler(w, level, debug), nil
	case "json":
		return newJSONHandler(w, level, debug), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", format)
	}
}

// NewFromConfig creates the process logger. A non-empty levelOverride
// (from --verbose) wins over logging.level. Console output follows
// logging.format; when paths.log_dir is set every record is also appended
// as JSON to LogFileName so runs can be grepped by run_id or item_id.
func NewFromConfig(cfg *config.Config, levelOverride string) (*slog.Logger, error) {
	level := strings.TrimSpace(levelOverride)
	format := "console"
	logDir := ""
	if cfg != nil {
		if level == "" {
			level = cfg.Logging.Level
		}
		format = cfg.Logging.Format
		logDir = cfg.Paths.LogDir
	}

	console, err := New(Options{Level: level, Format: format})
	if err != nil || logDir == "" {
		return console, err
	}

	file, err := openOutput(filepath.Join(logDir, LogFileName))
	if err != nil {
		return nil, err
	}
	return TeeLogger(console, newJSONHandler(file, parseLevel(level), true)), nil
}

func parseLevel(level string) slog.Level {
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

func openOutput(target string) (io.Writer, error) {
	switch target = strings.TrimSpace(target); target {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", target, err)
	}
	return file, nil
}
