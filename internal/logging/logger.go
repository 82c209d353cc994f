package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ytscribe/internal/config"
)

// RunLogPrefix is the filename prefix for per-run log files.
const RunLogPrefix = "run_"

// New builds a single-destination logger. format is "console" or "json";
// debug level also records the caller.
func New(w io.Writer, format, level string) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl := parseLevel(level)
	handler, err := newHandler(format, w, lvl, lvl <= slog.LevelDebug)
	if err != nil {
		return nil, err
	}
	return slog.New(handler), nil
}

// RunLogger is the logger for one invocation plus the file it mirrors into.
type RunLogger struct {
	*slog.Logger
	Path string
	file *os.File
}

// Close releases the per-run log file.
func (r *RunLogger) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// NewFromConfig creates the process logger. Console output goes to stderr at
// the configured level and format. When a log directory is configured every
// record, debug included, is also written as JSON to
// <log_dir>/run_<timestamp>.log, and run logs older than the retention window
// are pruned.
func NewFromConfig(cfg *config.Config, runID string, now time.Time) (*RunLogger, error) {
	if cfg == nil {
		logger, err := New(os.Stderr, "console", "info")
		if err != nil {
			return nil, err
		}
		return &RunLogger{Logger: logger}, nil
	}

	lvl := parseLevel(cfg.Logging.Level)
	console, err := newHandler(cfg.Logging.Format, os.Stderr, lvl, lvl <= slog.LevelDebug)
	if err != nil {
		return nil, err
	}

	result := &RunLogger{}
	var file slog.Handler
	dir := strings.TrimSpace(cfg.Paths.LogDir)
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		path := RunLogPath(dir, now)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open run log %s: %w", path, err)
		}
		file = newJSONHandler(f, slog.LevelDebug, true)
		result.Path = path
		result.file = f
	}

	handler := newTeeHandler(console, file)
	if strings.TrimSpace(runID) != "" {
		handler = newRunIDHandler(handler, runID)
	}
	result.Logger = slog.New(handler)

	PruneRunLogs(result.Logger, dir, cfg.Logging.RetentionDays, result.Path)
	return result, nil
}

// RunLogPath returns the per-run log file location for a run started at now.
func RunLogPath(dir string, now time.Time) string {
	return filepath.Join(dir, RunLogPrefix+now.Format("20060102_150405")+".log")
}

func newHandler(format string, w io.Writer, lvl slog.Level, addSource bool) (slog.Handler, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		return newPrettyHandler(w, lvl, addSource), nil
	case "json":
		return newJSONHandler(w, lvl, addSource), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", format)
	}
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
