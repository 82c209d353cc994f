package transcript

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"ytscribe/internal/services"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trim", "  hello\n\n", "hello"},
		{"crlf", "line1\r\nline2\rline3", "line1\nline2\nline3"},
		{"fence", "```text\nनमस्ते\nदुनिया\n```", "नमस्ते\nदुनिया"},
		{"bare fence", "```\nbody\n```\n", "body"},
		{"inner fence kept", "intro\n```\ncode\n```", "intro\n```\ncode\n```"},
		{"nfc", "cafe\u0301", "caf\u00e9"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Clean(tc.in)
			if err != nil {
				t.Fatalf("Clean returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCleanEmptyIsTranscriptionError(t *testing.T) {
	for _, in := range []string{"", "   \n", "```\n```"} {
		if _, err := Clean(in); !errors.Is(err, services.ErrTranscription) {
			t.Errorf("Clean(%q): expected ErrTranscription, got %v", in, err)
		}
	}
}

func TestFileName(t *testing.T) {
	got := FileName("dQw4w9WgXcQ", "प्रवचन: भाग 1?", "hindi_verbatim", FormatText)
	want := "dQw4w9WgXcQ__प्रवचन__भाग_1_hindi_verbatim.txt"
	if got != want {
		t.Fatalf("FileName = %q, want %q", got, want)
	}
	if got := FileName("abc", "", "p", FormatJSON); got != "abc__abc_p.json" {
		t.Fatalf("empty title fallback = %q", got)
	}
}

func TestLongDevanagariTitleFitsFileNameLimit(t *testing.T) {
	title := strings.Repeat("प्रवचन ", 14)
	name := FileName("aaaaaaaaaaa", title, "verbatim", FormatText)
	if len(name) > MaxFileNameBytes {
		t.Fatalf("file name is %d bytes, limit %d: %q", len(name), MaxFileNameBytes, name)
	}
	if !utf8.ValidString(name) {
		t.Fatalf("file name split a rune: %q", name)
	}
	if !strings.HasPrefix(name, "aaaaaaaaaaa__प्रवचन") || !strings.HasSuffix(name, "_verbatim.txt") {
		t.Fatalf("id or prompt segment lost: %q", name)
	}

	w, err := NewWriter(t.TempDir(), "text")
	if err != nil {
		t.Fatal(err)
	}
	path, err := w.Write(Document{
		Title:      title,
		VideoID:    "aaaaaaaaaaa",
		SourceURL:  "https://www.youtube.com/watch?v=aaaaaaaaaaa",
		PromptName: "verbatim",
		Transcript: "पाठ",
	})
	if err != nil {
		t.Fatalf("Write with long title: %v", err)
	}
	if filepath.Base(path) != name {
		t.Fatalf("written name %q, want %q", filepath.Base(path), name)
	}
}

func TestWriteText(t *testing.T) {
	root := t.TempDir()
	w, err := NewWriter(root, "text")
	if err != nil {
		t.Fatal(err)
	}
	ts := time.Date(2026, 2, 3, 4, 5, 6, 0, time.Local)
	path, err := w.Write(Document{
		Title:      "मुनि श्री क्षमासागर | प्रवचन",
		SourceURL:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		VideoID:    "dQw4w9WgXcQ",
		PromptName: "hindi_verbatim",
		Timestamp:  ts,
		Transcript: "पहली पंक्ति",
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Dir(path) != root {
		t.Fatalf("transcript written outside output root: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{
		"वीडियो शीर्षक: मुनि श्री क्षमासागर | प्रवचन\n",
		"वक्ता (महाराज जी): क्षमासागर\n",
		"वीडियो URL: https://www.youtube.com/watch?v=dQw4w9WgXcQ\n",
		"प्रॉम्प्ट: hindi_verbatim\n",
		"तिथि: 2026-02-03 04:05:06\n",
		"\n" + strings.Repeat("-", 50) + "\n\n",
		"पहली पंक्ति\n",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("expected %q in transcript:\n%s", want, content)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	w, err := NewWriter(t.TempDir(), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	path, err := w.Write(Document{
		Title:           "Talk <one> & two",
		SourceURL:       "https://youtu.be/dQw4w9WgXcQ",
		VideoID:         "dQw4w9WgXcQ",
		PromptName:      "p",
		DurationSeconds: 12.5,
		Transcript:      "text",
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.HasSuffix(path, ".json") {
		t.Fatalf("expected .json path, got %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `\u003c`) {
		t.Fatalf("expected HTML characters unescaped: %s", data)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Title != "Talk <one> & two" || doc.Speaker == "" || doc.Timestamp.IsZero() || doc.DurationSeconds != 12.5 {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestNewWriterRejectsUnknownFormat(t *testing.T) {
	if _, err := NewWriter(t.TempDir(), "xml"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
