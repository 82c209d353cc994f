package vertex_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/vertexai/genai"

	"ytscribe/internal/services"
	"ytscribe/internal/services/vertex"
)

type fakeGenerator struct {
	parts       []genai.Part
	temperature float32
	resp        *genai.GenerateContentResponse
	err         error
	closed      bool
}

func (f *fakeGenerator) Generate(_ context.Context, temperature float32, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.temperature = temperature
	f.parts = parts
	return f.resp, f.err
}

func (f *fakeGenerator) Close() error {
	f.closed = true
	return nil
}

type fakeStager struct {
	uploaded []string
	deleted  []string
	err      error
}

func (f *fakeStager) Upload(_ context.Context, bucket, object, _, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.uploaded = append(f.uploaded, bucket+"/"+object)
	return nil
}

func (f *fakeStager) Delete(_ context.Context, bucket, object string) error {
	f.deleted = append(f.deleted, bucket+"/"+object)
	return nil
}

func (f *fakeStager) Close() error { return nil }

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: parts},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "abcdefghijk.mp3")
	if err := os.WriteFile(path, []byte("ID3audio"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestTranscribeInlineBlob(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(genai.Text("पहला "), genai.Text("भाग"))}
	client, err := vertex.NewClient(context.Background(), vertex.Config{Model: "gemini-2.5-flash"}, vertex.WithGenerator(gen))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	text, err := client.Transcribe(context.Background(), writeAudio(t), "audio/mpeg", "prompt", 0.1)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "पहला भाग" {
		t.Fatalf("unexpected text %q", text)
	}
	blob, ok := gen.parts[0].(genai.Blob)
	if !ok || blob.MIMEType != "audio/mpeg" || string(blob.Data) != "ID3audio" {
		t.Fatalf("expected inline blob, got %#v", gen.parts[0])
	}
	if gen.parts[1] != genai.Text("prompt") {
		t.Fatalf("unexpected prompt part %#v", gen.parts[1])
	}
	if gen.temperature != float32(0.1) {
		t.Fatalf("unexpected temperature %v", gen.temperature)
	}
	if err := client.Close(); err != nil || !gen.closed {
		t.Fatalf("expected generator closed, err=%v", err)
	}
}

func TestTranscribeStagesThroughBucket(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(genai.Text("ok"))}
	stager := &fakeStager{}
	client, err := vertex.NewClient(context.Background(), vertex.Config{
		StagingBucket: "gs://audio",
		StagingPrefix: "/runs/",
	}, vertex.WithGenerator(gen), vertex.WithStager(stager))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Transcribe(context.Background(), writeAudio(t), "audio/mpeg", "prompt", 0.1); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	fd, ok := gen.parts[0].(genai.FileData)
	if !ok || fd.FileURI != "gs://audio/runs/abcdefghijk.mp3" {
		t.Fatalf("expected gs:// file data, got %#v", gen.parts[0])
	}
	if len(stager.uploaded) != 1 || len(stager.deleted) != 1 || stager.deleted[0] != "audio/runs/abcdefghijk.mp3" {
		t.Fatalf("unexpected staging calls: %+v", stager)
	}
}

func TestTranscribeFailuresAreTranscriptionErrors(t *testing.T) {
	cases := []struct {
		name string
		gen  *fakeGenerator
		want string
	}{
		{"api error", &fakeGenerator{err: errors.New("rpc error: code = ResourceExhausted")}, "ResourceExhausted"},
		{"blocked", &fakeGenerator{resp: &genai.GenerateContentResponse{PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockedReasonSafety}}}, "blocked"},
		{"empty", &fakeGenerator{resp: textResponse()}, "empty response"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := vertex.NewClient(context.Background(), vertex.Config{}, vertex.WithGenerator(tc.gen))
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			_, err = client.Transcribe(context.Background(), writeAudio(t), "audio/mpeg", "prompt", 0.1)
			if !errors.Is(err, services.ErrTranscription) {
				t.Fatalf("expected transcription error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %v", tc.want, err)
			}
		})
	}
}

func TestStagingFailureSkipsGeneration(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(genai.Text("ok"))}
	stager := &fakeStager{err: errors.New("permission denied")}
	client, err := vertex.NewClient(context.Background(), vertex.Config{StagingBucket: "audio"},
		vertex.WithGenerator(gen), vertex.WithStager(stager))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.Transcribe(context.Background(), writeAudio(t), "audio/mpeg", "prompt", 0.1)
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected transcription error, got %v", err)
	}
	if gen.parts != nil {
		t.Fatal("generator must not be called when staging fails")
	}
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := vertex.NewClient(context.Background(), vertex.Config{Region: "us-central1"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
