package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"ytscribe/internal/fileutil"
	"ytscribe/internal/services"
	"ytscribe/internal/textutil"
)

// Supported output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

const separatorWidth = 50

// Document is everything written for one transcribed video.
type Document struct {
	Title           string    `json:"title"`
	SourceURL       string    `json:"source_url"`
	VideoID         string    `json:"video_id"`
	Speaker         string    `json:"speaker"`
	PromptName      string    `json:"prompt_name"`
	Timestamp       time.Time `json:"timestamp"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	Transcript      string    `json:"transcript"`
}

// Clean normalizes raw model output. Empty output is a transcription error.
func Clean(raw string) (string, error) {
	text := norm.NFC.String(raw)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = stripCodeFence(strings.TrimSpace(text))
	text = strings.TrimSpace(text)
	if text == "" {
		return "", services.Wrap(services.ErrTranscription, "transcript", "clean", "model returned an empty transcript", nil)
	}
	return text, nil
}

// stripCodeFence removes a single ``` fence wrapping the whole text.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}
	inner := strings.TrimSuffix(text, "```")
	newline := strings.IndexByte(inner, '\n')
	if newline < 0 {
		return text
	}
	return inner[newline+1:]
}

// Writer writes transcript files under an output root.
type Writer struct {
	outputRoot string
	format     string
}

// NewWriter validates the format and returns a Writer.
func NewWriter(outputRoot, format string) (*Writer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatText
	}
	if format != FormatText && format != FormatJSON {
		return nil, services.Wrap(services.ErrConfiguration, "transcript", "new_writer",
			fmt.Sprintf("unsupported output format %q", format), nil)
	}
	return &Writer{outputRoot: outputRoot, format: format}, nil
}

// Format returns the configured output format.
func (w *Writer) Format() string {
	return w.format
}

// Path returns the output location for a video without writing anything.
func (w *Writer) Path(videoID, title, promptName string) string {
	return filepath.Join(w.outputRoot, FileName(videoID, title, promptName, w.format))
}

// MaxFileNameBytes caps transcript file names. Temp files used by atomic
// writes add about 16 bytes, which must still fit NAME_MAX (255).
const MaxFileNameBytes = 200

const maxPromptSegmentBytes = 48

// FileName builds "<videoID>__<sanitized title>_<prompt>.<ext>". The title is
// shortened on a rune boundary so the whole name fits MaxFileNameBytes.
func FileName(videoID, title, promptName, format string) string {
	ext := ".txt"
	if format == FormatJSON {
		ext = ".json"
	}
	prefix := videoID + "__"
	suffix := "_" + textutil.TruncateBytes(textutil.SanitizeFileName(promptName), maxPromptSegmentBytes) + ext
	safeTitle := textutil.TruncateBytes(textutil.SanitizeFileName(title), MaxFileNameBytes-len(prefix)-len(suffix))
	if safeTitle == "" {
		safeTitle = videoID
	}
	return prefix + safeTitle + suffix
}

// Write renders doc and writes it atomically, returning the file path.
func (w *Writer) Write(doc Document) (string, error) {
	if strings.TrimSpace(doc.VideoID) == "" {
		return "", services.Wrap(services.ErrValidation, "transcript", "write", "video id is empty", nil)
	}
	if doc.Speaker == "" {
		doc.Speaker = textutil.ExtractSpeaker(doc.Title)
	}
	if doc.Timestamp.IsZero() {
		doc.Timestamp = time.Now()
	}

	var (
		data []byte
		err  error
	)
	switch w.format {
	case FormatJSON:
		data, err = renderJSON(doc)
	default:
		data = renderText(doc)
	}
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "transcript", "render", "encode transcript", err)
	}

	path := w.Path(doc.VideoID, doc.Title, doc.PromptName)
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", services.Wrap(services.ErrTransient, "transcript", "write", "write transcript file", err)
	}
	return path, nil
}

func renderText(doc Document) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "वीडियो शीर्षक: %s\n", doc.Title)
	fmt.Fprintf(&buf, "वक्ता (महाराज जी): %s\n", doc.Speaker)
	fmt.Fprintf(&buf, "वीडियो URL: %s\n", doc.SourceURL)
	fmt.Fprintf(&buf, "प्रॉम्प्ट: %s\n", doc.PromptName)
	fmt.Fprintf(&buf, "तिथि: %s\n", doc.Timestamp.Format("2006-01-02 15:04:05"))
	buf.WriteString("\n")
	buf.WriteString(strings.Repeat("-", separatorWidth))
	buf.WriteString("\n\n")
	buf.WriteString(doc.Transcript)
	if !strings.HasSuffix(doc.Transcript, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func renderJSON(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
