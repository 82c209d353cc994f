package preflight

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"ytscribe/internal/config"
	"ytscribe/internal/deps"
	"ytscribe/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Options selects the optional checks.
type Options struct {
	// Network verifies the transcription endpoint with a live request.
	Network bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	for _, status := range deps.CheckBinaries(ctx, deps.DownloadRequirements(cfg.Download)) {
		results = append(results, fromStatus(status))
	}

	results = append(results,
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Audio cache", cfg.Paths.AudioCacheDir),
		CheckFreeSpace("Audio cache free space", cfg.Paths.AudioCacheDir, cfg.Download.MinFreeGiB),
		CheckCacheIndex(cfg.Paths.CacheIndex),
		CheckPrompt(cfg.Transcription.PromptFile, cfg.Transcription.PromptName),
		CheckCredentials(cfg),
	)

	if opts.Network && cfg.Transcription.Provider == config.ProviderGemini && cfg.Gemini.APIKey != "" {
		results = append(results, CheckGemini(ctx, cfg.Gemini.BaseURL, cfg.Gemini.APIKey))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Err folds failed results into one configuration error, or nil.
func Err(results []Result) error {
	failed := Failed(results)
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "run_all",
		fmt.Sprintf("%d check(s) failed: %s", len(failed), strings.Join(parts, "; ")), nil)
}

func fromStatus(status deps.Status) Result {
	if !status.Available {
		return Result{Name: status.Name, Passed: status.Optional, Detail: status.Detail}
	}
	detail := filepath.Clean(status.Path)
	if status.Version != "" {
		detail = fmt.Sprintf("%s (%s)", detail, status.Version)
	}
	return Result{Name: status.Name, Passed: true, Detail: detail}
}
