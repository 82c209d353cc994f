package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PruneRunLogs deletes run_*.log files in dir last modified more than keepDays
// ago, never touching current. keepDays <= 0 keeps everything. It returns the
// number of files removed; removal errors are logged and skipped.
func PruneRunLogs(logger *slog.Logger, dir string, keepDays int, current string) int {
	dir = strings.TrimSpace(dir)
	if keepDays <= 0 || dir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, RunLogPrefix+"*.log"))
	if err != nil {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -keepDays)
	current = filepath.Clean(current)

	removed := 0
	for _, path := range matches {
		if filepath.Clean(path) == current {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "could not prune old run log", "run_log_prune_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions on log_dir"),
				String(FieldImpact, "old run log stays on disk"))
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Debug("pruned old run logs",
			Int("removed", removed),
			Int("keep_days", keepDays),
			String(FieldEventType, "run_logs_pruned"))
	}
	return removed
}
