// Package prompt loads named transcription prompts from a prompt file.
//
// A prompt file holds any number of sections:
//
//	### PROMPT: hindi_verbatim
//	Transcribe the audio verbatim in Devanagari...
//	=== END PROMPT ===
//
// Text outside sections is ignored, so the file can carry notes.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"ytscribe/internal/services"
)

const (
	headerPrefix = "### PROMPT:"
	endMarker    = "=== END PROMPT ==="
)

// Prompt is one named section of a prompt file.
type Prompt struct {
	Name string
	Body string
}

// Parse reads every prompt section from r in file order. A section without
// an end marker runs until the next header or the end of input.
func Parse(r io.Reader) ([]Prompt, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var (
		prompts []Prompt
		current *Prompt
		body    strings.Builder
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(body.String())
		prompts = append(prompts, *current)
		current = nil
		body.Reset()
	}

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, headerPrefix):
			flush()
			current = &Prompt{Name: strings.TrimSpace(strings.TrimPrefix(trimmed, headerPrefix))}
		case trimmed == endMarker:
			flush()
		case current != nil:
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return prompts, nil
}

// Load returns the trimmed body of the named prompt. A missing file, a
// missing section, or an empty body is a configuration error.
func Load(path, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", services.Wrap(services.ErrConfiguration, "prompt", "load", "prompt name is empty", nil)
	}
	prompts, err := readFile(path)
	if err != nil {
		return "", err
	}
	for _, p := range prompts {
		if p.Name != name {
			continue
		}
		if p.Body == "" {
			return "", services.Wrap(services.ErrConfiguration, "prompt", "load",
				fmt.Sprintf("prompt %q in %s is empty", name, path), nil)
		}
		return p.Body, nil
	}
	return "", services.Wrap(services.ErrConfiguration, "prompt", "load",
		fmt.Sprintf("prompt %q not found in %s", name, path), nil)
}

// Names lists the prompt names defined in path, in file order.
func Names(path string) ([]string, error) {
	prompts, err := readFile(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(prompts))
	for _, p := range prompts {
		names = append(names, p.Name)
	}
	return names, nil
}

func readFile(path string) ([]Prompt, error) {
	if strings.TrimSpace(path) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "prompt", "read", "prompt file is not configured", nil)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "prompt", "read", "open prompt file", err)
	}
	defer file.Close()
	prompts, err := Parse(file)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "prompt", "read", "parse prompt file "+path, err)
	}
	return prompts, nil
}
