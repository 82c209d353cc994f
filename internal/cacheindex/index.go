package cacheindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"ytscribe/internal/fileutil"
	"ytscribe/internal/logging"
	"ytscribe/internal/services"
)

const stageCache = "cache"

// Options tunes how an index is opened.
type Options struct {
	// ReadOnly skips the writer lock and interrupted-record recovery. All
	// mutations fail. Used by inspection commands while a run may be active.
	ReadOnly bool
	// Clock overrides time.Now for record timestamps.
	Clock func() time.Time
}

// Index is the processed-state index for one cache file.
type Index struct {
	path     string
	logger   *slog.Logger
	now      func() time.Time
	readOnly bool
	lock     *flock.Flock

	mu      sync.RWMutex
	records map[string]Record
	closed  bool
}

// Open loads the index at path, creating an empty one if the file does not
// exist yet. Writable indexes take the exclusive writer lock first.
func Open(path string, logger *slog.Logger, opts Options) (*Index, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageCache, "open", "cache index path is empty", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	idx := &Index{
		path:     path,
		logger:   logging.NewComponentLogger(logger, "cacheindex"),
		now:      now,
		readOnly: opts.ReadOnly,
		records:  make(map[string]Record),
	}

	if !idx.readOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, services.Wrap(services.ErrCacheIO, stageCache, "open", "create index directory", err)
		}
		idx.lock = flock.New(path + ".lock")
		locked, err := idx.lock.TryLock()
		if err != nil {
			return nil, services.Wrap(services.ErrCacheIO, stageCache, "lock", "acquire index lock", err)
		}
		if !locked {
			return nil, services.Wrap(services.ErrCacheIO, stageCache, "lock",
				fmt.Sprintf("index %s is in use by another ytscribe run", path), nil)
		}
	}

	if err := idx.load(); err != nil {
		idx.release()
		return nil, err
	}
	if !idx.readOnly {
		if err := idx.recoverInterrupted(); err != nil {
			idx.release()
			return nil, err
		}
	}
	return idx, nil
}

// Path returns the index file location.
func (x *Index) Path() string {
	return x.path
}

// ShouldProcess reports whether contentID still needs work: false iff a done
// record exists.
func (x *Index) ShouldProcess(contentID string) bool {
	contentID = strings.TrimSpace(contentID)
	x.mu.RLock()
	defer x.mu.RUnlock()
	rec, ok := x.records[contentID]
	return !ok || rec.Status != StatusDone
}

// MarkPending records that work on contentID has started. Calling it again
// for a pending or failed record refreshes the timestamp and bumps Attempts.
func (x *Index) MarkPending(contentID string, meta Meta) error {
	return x.mutate(contentID, "mark_pending", func(rec Record, exists bool) (Record, error) {
		ts := x.timestamp()
		if !exists {
			rec = Record{ContentID: contentID, FirstSeenAt: ts}
		}
		if rec.Status != StatusPending {
			rec.Attempts++
		}
		rec.Status = StatusPending
		rec.UpdatedAt = ts
		rec.FailureReason = ""
		if meta.SourceURL != "" {
			rec.SourceURL = meta.SourceURL
		}
		if meta.Title != "" {
			rec.Title = meta.Title
		}
		if meta.PromptName != "" {
			rec.PromptName = meta.PromptName
		}
		return rec, nil
	})
}

// MarkDone moves a pending record to done and stores its output path.
func (x *Index) MarkDone(contentID, outputPath string) error {
	return x.mutate(contentID, "mark_done", func(rec Record, exists bool) (Record, error) {
		if !exists || rec.Status != StatusPending {
			current := "missing"
			if exists {
				current = string(rec.Status)
			}
			return rec, services.Wrap(services.ErrInvalidState, stageCache, "mark_done",
				fmt.Sprintf("%s has no pending record (current: %s)", contentID, current), nil)
		}
		rec.Status = StatusDone
		rec.OutputPath = outputPath
		rec.FailureReason = ""
		rec.UpdatedAt = x.timestamp()
		return rec, nil
	})
}

// MarkFailed records a failed attempt. Failed records do not block retries.
func (x *Index) MarkFailed(contentID, reason string) error {
	return x.mutate(contentID, "mark_failed", func(rec Record, exists bool) (Record, error) {
		ts := x.timestamp()
		if !exists {
			rec = Record{ContentID: contentID, FirstSeenAt: ts, Attempts: 1}
		}
		rec.Status = StatusFailed
		rec.FailureReason = strings.TrimSpace(reason)
		rec.UpdatedAt = ts
		return rec, nil
	})
}

// Lookup returns the record for contentID.
func (x *Index) Lookup(contentID string) (Record, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	rec, ok := x.records[strings.TrimSpace(contentID)]
	return rec, ok
}

// List returns all records sorted by UpdatedAt descending (newest first).
func (x *Index) List() []Record {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.sortedLocked()
}

// Stats counts records by status.
func (x *Index) Stats() Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	stats := Stats{Total: len(x.records)}
	for _, rec := range x.records {
		switch rec.Status {
		case StatusDone:
			stats.Done++
		case StatusPending:
			stats.Pending++
		case StatusFailed:
			stats.Failed++
		}
	}
	return stats
}

// Forget removes the record for contentID so the next run processes it again.
func (x *Index) Forget(contentID string) error {
	contentID = strings.TrimSpace(contentID)
	if err := x.writable(contentID, "forget"); err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	prev, ok := x.records[contentID]
	if !ok {
		return services.Wrap(services.ErrNotFound, stageCache, "forget",
			fmt.Sprintf("%s is not in the cache index", contentID), nil)
	}
	delete(x.records, contentID)
	if err := x.saveLocked(); err != nil {
		x.records[contentID] = prev
		return err
	}
	x.logger.Info("cache record forgotten",
		logging.String(logging.FieldContentID, contentID),
		logging.String("previous_status", string(prev.Status)),
		logging.String(logging.FieldEventType, "cache_record_forgotten"))
	return nil
}

// Close releases the writer lock. The index is unusable afterwards.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return nil
	}
	x.closed = true
	if x.lock == nil {
		return nil
	}
	if err := x.lock.Unlock(); err != nil {
		return services.Wrap(services.ErrCacheIO, stageCache, "close", "release index lock", err)
	}
	return nil
}

func (x *Index) release() {
	if x.lock != nil {
		_ = x.lock.Unlock()
	}
}

func (x *Index) timestamp() time.Time {
	return x.now().UTC()
}

func (x *Index) writable(contentID, op string) error {
	if contentID == "" {
		return services.Wrap(services.ErrValidation, stageCache, op, "content identifier is empty", nil)
	}
	if x.readOnly {
		return services.Wrap(services.ErrInvalidState, stageCache, op, "index opened read-only", nil)
	}
	x.mu.RLock()
	closed := x.closed
	x.mu.RUnlock()
	if closed {
		return services.Wrap(services.ErrInvalidState, stageCache, op, "index is closed", nil)
	}
	return nil
}

// mutate applies fn to the current record and flushes the index. The
// in-memory state is rolled back if the flush fails.
func (x *Index) mutate(contentID, op string, fn func(Record, bool) (Record, error)) error {
	contentID = strings.TrimSpace(contentID)
	if err := x.writable(contentID, op); err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	prev, exists := x.records[contentID]
	next, err := fn(prev, exists)
	if err != nil {
		return err
	}
	x.records[contentID] = next
	if err := x.saveLocked(); err != nil {
		if exists {
			x.records[contentID] = prev
		} else {
			delete(x.records, contentID)
		}
		return err
	}

	x.logger.Debug("cache record updated",
		logging.String(logging.FieldContentID, contentID),
		logging.String("status", string(next.Status)),
		logging.Int("attempts", next.Attempts),
		logging.String(logging.FieldEventType, "cache_"+op))
	return nil
}

func (x *Index) recoverInterrupted() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	var recovered []string
	ts := x.timestamp()
	for id, rec := range x.records {
		if rec.Status != StatusPending {
			continue
		}
		rec.Status = StatusFailed
		rec.FailureReason = InterruptedReason
		rec.UpdatedAt = ts
		x.records[id] = rec
		recovered = append(recovered, id)
	}
	if len(recovered) == 0 {
		return nil
	}
	if err := x.saveLocked(); err != nil {
		return err
	}
	sort.Strings(recovered)
	logging.WarnWithContext(x.logger, "recovered interrupted cache records", "cache_interrupted_recovered",
		logging.Int("count", len(recovered)),
		logging.String("content_ids", strings.Join(recovered, ",")),
		logging.String(logging.FieldErrorHint, "a previous run stopped mid-item; these videos will be retried"),
		logging.String(logging.FieldImpact, "interrupted items are marked failed and reprocessed"))
	return nil
}

func (x *Index) load() error {
	data, err := os.ReadFile(x.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return services.Wrap(services.ErrCacheIO, stageCache, "load", "read index file", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return services.Wrap(services.ErrCacheIO, stageCache, "load",
			fmt.Sprintf("parse index file %s (fix or move it aside; it is not replaced automatically)", x.path), err)
	}
	for i, rec := range records {
		id := strings.TrimSpace(rec.ContentID)
		if id == "" {
			return services.Wrap(services.ErrCacheIO, stageCache, "load",
				fmt.Sprintf("record %d has an empty content_id", i), nil)
		}
		if !rec.Status.Valid() {
			return services.Wrap(services.ErrCacheIO, stageCache, "load",
				fmt.Sprintf("record %s has unknown status %q", id, rec.Status), nil)
		}
		if _, dup := x.records[id]; dup {
			return services.Wrap(services.ErrCacheIO, stageCache, "load",
				fmt.Sprintf("duplicate record for %s", id), nil)
		}
		rec.ContentID = id
		x.records[id] = rec
	}

	x.logger.Debug("loaded cache index",
		logging.Int("record_count", len(x.records)),
		logging.String("path", x.path))
	return nil
}

func (x *Index) saveLocked() error {
	data, err := json.MarshalIndent(x.sortedLocked(), "", "  ")
	if err != nil {
		return services.Wrap(services.ErrCacheIO, stageCache, "save", "marshal index", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(x.path, data, 0o644); err != nil {
		return services.Wrap(services.ErrCacheIO, stageCache, "save", "write index file", err)
	}
	return nil
}

func (x *Index) sortedLocked() []Record {
	records := make([]Record, 0, len(x.records))
	for _, rec := range x.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].UpdatedAt.Equal(records[j].UpdatedAt) {
			return records[i].UpdatedAt.After(records[j].UpdatedAt)
		}
		return records[i].ContentID < records[j].ContentID
	})
	return records
}
