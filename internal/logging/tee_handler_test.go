package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewTeeHandlerCollapses(t *testing.T) {
	if _, ok := newTeeHandler(nil, nil).(NoopHandler); !ok {
		t.Error("expected NoopHandler when both sides are nil")
	}
	var buf bytes.Buffer
	console := slog.NewTextHandler(&buf, nil)
	if h := newTeeHandler(console, nil); h != console {
		t.Error("expected console handler to be returned as-is")
	}
}

func TestTeeHandlerLevelsAreIndependent(t *testing.T) {
	var console, file bytes.Buffer
	h := newTeeHandler(
		slog.NewJSONHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug to be enabled through the file side")
	}

	logger := slog.New(h).With("video_id", "abc").WithGroup("ytdlp")
	logger.Debug("format selected", "format", "251")
	logger.Warn("retrying download")

	if strings.Contains(console.String(), "format selected") {
		t.Errorf("console got a debug record: %s", console.String())
	}
	if !strings.Contains(console.String(), "retrying download") {
		t.Errorf("console missing warn record: %s", console.String())
	}
	out := file.String()
	if !strings.Contains(out, "format selected") || !strings.Contains(out, "retrying download") {
		t.Errorf("file should get both records: %s", out)
	}
	if !strings.Contains(out, `"video_id":"abc"`) || !strings.Contains(out, `"ytdlp":{"format":"251"}`) {
		t.Errorf("attrs and group not propagated: %s", out)
	}
}

func TestFieldTextShortensAndQuotes(t *testing.T) {
	long := strings.Repeat("a", maxConsoleValue+10)
	got := fieldText(slog.StringValue(long))
	if !strings.HasSuffix(got, "(310 chars)") {
		t.Fatalf("expected shortened value, got %q", got)
	}
	if got := fieldText(slog.StringValue("two\nlines")); got != `"two\nlines"` {
		t.Fatalf("expected quoted value, got %q", got)
	}
	if got := fieldText(slog.StringValue("/tmp/a.mp3")); got != "/tmp/a.mp3" {
		t.Fatalf("expected plain path, got %q", got)
	}
}
