package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"ytscribe/internal/archive"
	"ytscribe/internal/cacheindex"
	"ytscribe/internal/history"
	"ytscribe/internal/pipeline"
	"ytscribe/internal/services"
	"ytscribe/internal/services/ytdlp"
	"ytscribe/internal/transcript"
	"ytscribe/internal/transcription"
)

const (
	vidA = "aaaaaaaaaaa"
	vidB = "bbbbbbbbbbb"
	vidC = "ccccccccccc"
)

type fakeDownloader struct {
	mu        sync.Mutex
	audioDir  string
	titles    map[string]string
	failIDs   map[string]error
	failed    []ytdlp.InputFailure
	downloads []string
}

func (f *fakeDownloader) Expand(_ context.Context, inputs []string) (ytdlp.Expansion, error) {
	var exp ytdlp.Expansion
	seen := map[string]bool{}
	for _, in := range inputs {
		if seen[in] {
			continue
		}
		seen[in] = true
		exp.Entries = append(exp.Entries, ytdlp.Entry{
			VideoID: in,
			URL:     "https://www.youtube.com/watch?v=" + in,
			Title:   f.titles[in],
			Input:   in,
		})
	}
	exp.Failed = f.failed
	return exp, nil
}

func (f *fakeDownloader) Download(ctx context.Context, url string) (ytdlp.Result, error) {
	if err := ctx.Err(); err != nil {
		return ytdlp.Result{}, err
	}
	id := url[strings.LastIndex(url, "=")+1:]
	f.mu.Lock()
	f.downloads = append(f.downloads, id)
	f.mu.Unlock()
	if err := f.failIDs[id]; err != nil {
		return ytdlp.Result{}, err
	}
	path := filepath.Join(f.audioDir, id+".mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		return ytdlp.Result{}, err
	}
	return ytdlp.Result{VideoID: id, Title: f.titles[id], DurationSeconds: 42, AudioPath: path}, nil
}

type fakeTranscriber struct {
	calls  int
	onCall func(req transcription.Request) (string, error)
}

func (f *fakeTranscriber) Transcribe(_ context.Context, req transcription.Request) (string, error) {
	f.calls++
	if f.onCall != nil {
		return f.onCall(req)
	}
	return "transcript for " + filepath.Base(req.AudioPath), nil
}

type countingArchiver struct {
	inner *archive.Manager
	calls int
}

func (c *countingArchiver) ArchiveExisting(root string) (archive.Snapshot, error) {
	c.calls++
	return c.inner.ArchiveExisting(root)
}

// brokenIndex fails MarkDone with a persistence error.
type brokenIndex struct {
	*cacheindex.Index
}

func (b brokenIndex) MarkDone(string, string) error {
	return services.Wrap(services.ErrCacheIO, "cache", "save", "disk full", errors.New("no space left on device"))
}

type recordingHistory struct {
	starts []history.RunStart
	items  []history.Item
	totals []history.RunTotals
}

func (h *recordingHistory) BeginRun(_ context.Context, run history.RunStart) error {
	h.starts = append(h.starts, run)
	return nil
}

func (h *recordingHistory) RecordItem(_ context.Context, item history.Item) error {
	h.items = append(h.items, item)
	return nil
}

func (h *recordingHistory) FinishRun(_ context.Context, _ string, totals history.RunTotals) error {
	h.totals = append(h.totals, totals)
	return nil
}

type env struct {
	root       string
	outputDir  string
	archiveDir string
	indexPath  string
	downloader *fakeDownloader
	tx         *fakeTranscriber
	archiver   *countingArchiver
	history    *recordingHistory
	clock      time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	e := &env{
		root:       root,
		outputDir:  filepath.Join(root, "output"),
		archiveDir: filepath.Join(root, "archive"),
		indexPath:  filepath.Join(root, "state", "processed_videos.json"),
		tx:         &fakeTranscriber{},
		history:    &recordingHistory{},
		clock:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	audioDir := filepath.Join(root, "audio")
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	e.downloader = &fakeDownloader{
		audioDir: audioDir,
		titles:   map[string]string{vidA: "Swami Ji | First Talk", vidB: "Second Talk"},
		failIDs:  map[string]error{},
	}
	e.archiver = &countingArchiver{inner: archive.New(e.archiveDir, nil, e.now)}
	return e
}

func (e *env) now() time.Time {
	e.clock = e.clock.Add(time.Second)
	return e.clock
}

func (e *env) openIndex(t *testing.T) *cacheindex.Index {
	t.Helper()
	idx, err := cacheindex.Open(e.indexPath, nil, cacheindex.Options{})
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func (e *env) runner(t *testing.T, idx pipeline.Index, force bool) *pipeline.Runner {
	t.Helper()
	writer, err := transcript.NewWriter(e.outputDir, transcript.FormatText)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	r, err := pipeline.New(pipeline.Dependencies{
		Downloader:  e.downloader,
		Transcriber: e.tx,
		Index:       idx,
		Archiver:    e.archiver,
		Writer:      writer,
		History:     e.history,
	}, pipeline.Options{
		RunID:      "run-test",
		OutputRoot: e.outputDir,
		PromptName: "verbatim",
		Prompt:     "Transcribe verbatim.",
		Provider:   "gemini",
		Force:      force,
		Clock:      e.now,
	})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	return r
}

func TestRunProcessesAllVideos(t *testing.T) {
	e := newEnv(t)
	idx := e.openIndex(t)

	summary, err := e.runner(t, idx, false).Run(context.Background(), []string{vidA, vidB})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := summary.Processed(); len(got) != 2 || got[0] != vidA || got[1] != vidB {
		t.Fatalf("unexpected processed list: %v", got)
	}
	if summary.HasFailures() {
		t.Fatalf("unexpected failures: %+v", summary)
	}
	for _, id := range []string{vidA, vidB} {
		rec, ok := idx.Lookup(id)
		if !ok || rec.Status != cacheindex.StatusDone {
			t.Fatalf("expected done record for %s, got %+v", id, rec)
		}
		data, err := os.ReadFile(rec.OutputPath)
		if err != nil {
			t.Fatalf("read transcript: %v", err)
		}
		if !strings.Contains(string(data), "transcript for "+id+".mp3") {
			t.Fatalf("transcript body missing in %s:\n%s", rec.OutputPath, data)
		}
		if filepath.Dir(rec.OutputPath) != e.outputDir {
			t.Fatalf("transcript written outside output dir: %s", rec.OutputPath)
		}
	}
	if e.archiver.calls != 1 {
		t.Fatalf("expected one archive call, got %d", e.archiver.calls)
	}
	if summary.Archive.Path != "" {
		t.Fatalf("empty output dir should not be archived, got %+v", summary.Archive)
	}

	if len(e.history.starts) != 1 || e.history.starts[0].InputCount != 2 {
		t.Fatalf("unexpected history start: %+v", e.history.starts)
	}
	if len(e.history.items) != 2 || len(e.history.totals) != 1 || e.history.totals[0].Processed != 2 {
		t.Fatalf("unexpected history: items=%+v totals=%+v", e.history.items, e.history.totals)
	}
}

func TestSecondRunSkipsDoneAndArchivesOutput(t *testing.T) {
	e := newEnv(t)
	idx := e.openIndex(t)
	if _, err := e.runner(t, idx, false).Run(context.Background(), []string{vidA, vidB}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstCalls := e.tx.calls

	summary, err := e.runner(t, idx, false).Run(context.Background(), []string{vidA, vidB, vidC})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := summary.Skipped(); len(got) != 2 {
		t.Fatalf("expected 2 skipped, got %v", got)
	}
	if got := summary.Processed(); len(got) != 1 || got[0] != vidC {
		t.Fatalf("expected only %s processed, got %v", vidC, got)
	}
	if e.tx.calls != firstCalls+1 {
		t.Fatalf("expected one new transcription, got %d", e.tx.calls-firstCalls)
	}
	if summary.Archive.Entries != 2 {
		t.Fatalf("expected previous two transcripts archived, got %+v", summary.Archive)
	}
	archived, err := os.ReadDir(summary.Archive.Path)
	if err != nil || len(archived) != 2 {
		t.Fatalf("archive snapshot contents: %v %v", archived, err)
	}
}

func TestForceReprocessesDoneVideos(t *testing.T) {
	e := newEnv(t)
	idx := e.openIndex(t)
	if _, err := e.runner(t, idx, false).Run(context.Background(), []string{vidA}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	summary, err := e.runner(t, idx, true).Run(context.Background(), []string{vidA})
	if err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if got := summary.Processed(); len(got) != 1 {
		t.Fatalf("expected forced reprocess, got %+v", summary.Items)
	}
	rec, _ := idx.Lookup(vidA)
	if rec.Status != cacheindex.StatusDone || rec.Attempts != 2 {
		t.Fatalf("unexpected record after force: %+v", rec)
	}
}

func TestItemFailureContinuesBatch(t *testing.T) {
	e := newEnv(t)
	e.downloader.failIDs[vidA] = services.Wrap(services.ErrDownload, "download", "download", "video unavailable", nil)
	idx := e.openIndex(t)

	summary, err := e.runner(t, idx, false).Run(context.Background(), []string{vidA, vidB})
	if err != nil {
		t.Fatalf("Run should not abort on item failure: %v", err)
	}
	if got := summary.Failed(); len(got) != 1 || got[0] != vidA {
		t.Fatalf("unexpected failed list: %v", got)
	}
	if got := summary.Processed(); len(got) != 1 || got[0] != vidB {
		t.Fatalf("unexpected processed list: %v", got)
	}
	if !summary.HasFailures() {
		t.Fatal("expected HasFailures")
	}
	rec, _ := idx.Lookup(vidA)
	if rec.Status != cacheindex.StatusFailed || !strings.Contains(rec.FailureReason, "video unavailable") {
		t.Fatalf("unexpected failed record: %+v", rec)
	}
	if !idx.ShouldProcess(vidA) {
		t.Fatal("failed video must be retried on the next run")
	}
	var failedItem history.Item
	for _, item := range e.history.items {
		if item.ContentID == vidA {
			failedItem = item
		}
	}
	if failedItem.ErrorKind != "download" || failedItem.Outcome != history.OutcomeFailed {
		t.Fatalf("unexpected history item: %+v", failedItem)
	}
}

func TestEmptyTranscriptFailsItem(t *testing.T) {
	e := newEnv(t)
	e.tx.onCall = func(transcription.Request) (string, error) { return "  \n", nil }
	idx := e.openIndex(t)

	summary, err := e.runner(t, idx, false).Run(context.Background(), []string{vidA})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Failed()) != 1 {
		t.Fatalf("expected failure, got %+v", summary.Items)
	}
	if !errors.Is(summary.Items[0].Err, services.ErrTranscription) {
		t.Fatalf("expected transcription error, got %v", summary.Items[0].Err)
	}
}

func TestCacheWriteFailureAbortsRun(t *testing.T) {
	e := newEnv(t)
	idx := e.openIndex(t)

	summary, err := e.runner(t, brokenIndex{idx}, false).Run(context.Background(), []string{vidA, vidB})
	if !services.IsFatal(err) {
		t.Fatalf("expected fatal cache error, got %v", err)
	}
	if len(summary.Items) != 1 {
		t.Fatalf("run should stop after the first item, got %+v", summary.Items)
	}
	if e.tx.calls != 1 {
		t.Fatalf("expected no further transcriptions, got %d", e.tx.calls)
	}
	if !summary.HasFailures() || summary.Aborted == nil {
		t.Fatal("aborted run must report failures")
	}
	if len(e.history.totals) != 1 || e.history.totals[0].AbortReason == "" {
		t.Fatalf("expected abort reason in history, got %+v", e.history.totals)
	}
}

func TestCancellationMarksItemInterrupted(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.tx.onCall = func(transcription.Request) (string, error) {
		cancel()
		return "", context.Canceled
	}
	idx := e.openIndex(t)

	summary, err := e.runner(t, idx, false).Run(ctx, []string{vidA, vidB})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(summary.Items) != 1 {
		t.Fatalf("expected only the interrupted item, got %+v", summary.Items)
	}
	rec, _ := idx.Lookup(vidA)
	if rec.Status != cacheindex.StatusFailed || rec.FailureReason != cacheindex.InterruptedReason {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if _, ok := idx.Lookup(vidB); ok {
		t.Fatal("second video must not be touched after cancellation")
	}
	if len(e.history.totals) != 1 || e.history.totals[0].AbortReason != "canceled" {
		t.Fatalf("unexpected history totals: %+v", e.history.totals)
	}
}

func TestInputFailuresCountAsFailures(t *testing.T) {
	e := newEnv(t)
	e.downloader.failed = []ytdlp.InputFailure{{Input: "https://example.com/bad", Err: errors.New("unsupported URL")}}
	idx := e.openIndex(t)

	summary, err := e.runner(t, idx, false).Run(context.Background(), []string{vidA})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Processed()) != 1 || !summary.HasFailures() {
		t.Fatalf("expected processed item plus input failure, got %+v", summary)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := pipeline.New(pipeline.Dependencies{}, pipeline.Options{OutputRoot: "/tmp/out", Prompt: "x"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
