package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ytscribe/internal/config"
)

func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := writeStub(t, binDir, "present", "echo 'present 2026.03.01'\necho extra")
	reqs := []Requirement{
		{Name: "Present", Command: present, VersionArgs: []string{"--version"}},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(context.Background(), reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Version != "present 2026.03.01" {
		t.Fatalf("unexpected version %q", results[0].Version)
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank command status: %#v", results[2])
	}
}

func TestVersionProbeFailureLeavesVersionEmpty(t *testing.T) {
	failing := writeStub(t, t.TempDir(), "failing", "exit 3")
	results := CheckBinaries(context.Background(), []Requirement{{Name: "Failing", Command: failing, VersionArgs: []string{"--version"}}})
	if !results[0].Available || results[0].Version != "" {
		t.Fatalf("unexpected status: %#v", results[0])
	}
}

func TestMissingSkipsOptional(t *testing.T) {
	statuses := []Status{
		{Name: "a", Available: true},
		{Name: "b"},
		{Name: "c", Optional: true},
	}
	missing := Missing(statuses)
	if len(missing) != 1 || missing[0].Name != "b" {
		t.Fatalf("unexpected missing: %#v", missing)
	}
}

func TestDownloadRequirementsFollowConfig(t *testing.T) {
	cfg := config.Default().Download
	cfg.YTDLPBinary = "/opt/yt-dlp"
	reqs := DownloadRequirements(cfg)
	if len(reqs) != 2 || reqs[0].Command != "/opt/yt-dlp" || reqs[1].Command != "ffmpeg" {
		t.Fatalf("unexpected requirements: %#v", reqs)
	}
}
