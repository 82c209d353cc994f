package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	videoOne = "dQw4w9WgXcQ"
	videoTwo = "9bZkp7q19f0"
)

func TestRunTranscribesThenSkips(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "run", videoOne, "https://youtu.be/"+videoTwo)
	if err != nil {
		t.Fatalf("first run: %v\n%s", err, out)
	}
	requireContains(t, out, "Processed: 2  Skipped: 0  Failed: 0")
	entries, err := os.ReadDir(env.outputDir)
	if err != nil || len(entries) != 2 {
		t.Fatalf("expected two transcripts, got %v (%v)", entries, err)
	}
	data, err := os.ReadFile(filepath.Join(env.outputDir, entries[0].Name()))
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	requireContains(t, string(data), "Spoken words.")

	out, _, err = runCLI(t, env, "--json", "run", videoOne, videoTwo)
	if err != nil {
		t.Fatalf("second run: %v\n%s", err, out)
	}
	var report runReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if len(report.Skipped) != 2 || len(report.Processed) != 0 {
		t.Fatalf("expected both skipped, got %+v", report)
	}
	if report.ArchivePath == "" || !strings.HasPrefix(report.ArchivePath, env.archiveDir) {
		t.Fatalf("expected previous transcripts archived, got %q", report.ArchivePath)
	}
	if hits := env.geminiHits.Load(); hits != 2 {
		t.Fatalf("expected 2 transcription calls, got %d", hits)
	}
}

func TestRunReadsURLFile(t *testing.T) {
	env := setupCLITestEnv(t)
	list := filepath.Join(env.baseDir, "urls.txt")
	content := "# talks\n\nhttps://www.youtube.com/watch?v=" + videoOne + "\n  \n"
	if err := os.WriteFile(list, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	out, _, err := runCLI(t, env, "run", list)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	requireContains(t, out, "Processed: 1")
}

func TestRunFailureExitsNonZero(t *testing.T) {
	env := setupCLITestEnv(t)
	env.geminiFail.Store(true)

	out, _, err := runCLI(t, env, "run", videoOne)
	if err == nil {
		t.Fatalf("expected error for failed transcription\n%s", out)
	}
	requireContains(t, err.Error(), "1 failed video")
	requireContains(t, out, "Failed: 1")

	out, _, err = runCLI(t, env, "cache", "show", videoOne)
	if err != nil {
		t.Fatalf("cache show: %v", err)
	}
	requireContains(t, out, "Status:      failed")

	env.geminiFail.Store(false)
	out, _, err = runCLI(t, env, "run", videoOne)
	if err != nil {
		t.Fatalf("retry run: %v\n%s", err, out)
	}
	requireContains(t, out, "Processed: 1")
}

func TestRunRequiresInputs(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "run"); err == nil {
		t.Fatal("expected error without inputs")
	}
}

func TestCollectInputs(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "list.txt")
	if err := os.WriteFile(list, []byte("a\n# skip\n\nb\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := collectInputs([]string{"x", " ", list}, nil)
	if err != nil {
		t.Fatalf("collectInputs: %v", err)
	}
	if strings.Join(got, ",") != "x,a,b" {
		t.Fatalf("unexpected inputs: %v", got)
	}
	if _, err := collectInputs(nil, []string{filepath.Join(dir, "missing.txt")}); err == nil {
		t.Fatal("expected error for missing list file")
	}
}
