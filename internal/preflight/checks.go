package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"ytscribe/internal/cacheindex"
	"ytscribe/internal/config"
	"ytscribe/internal/prompt"
)

const bytesPerGiB = 1 << 30

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minGiB available. A non-positive minimum disables the check.
func CheckFreeSpace(name, path string, minGiB int) Result {
	if minGiB <= 0 {
		return Result{Name: name, Passed: true, Detail: "disabled"}
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := float64(stat.Bavail) * float64(stat.Bsize) / bytesPerGiB
	if free < float64(minGiB) {
		return Result{Name: name, Detail: fmt.Sprintf("%.1f GiB free, need %d GiB", free, minGiB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%.1f GiB free", free)}
}

// CheckCacheIndex verifies the cache index parses. A missing file passes;
// the first run creates it.
func CheckCacheIndex(path string) Result {
	const name = "Cache index"
	idx, err := cacheindex.Open(path, nil, cacheindex.Options{ReadOnly: true})
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer idx.Close()
	stats := idx.Stats()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d records, %d done)", path, stats.Total, stats.Done)}
}

// CheckPrompt verifies the named prompt exists in the prompt file.
func CheckPrompt(file, name string) Result {
	const label = "Prompt"
	if strings.TrimSpace(file) == "" || strings.TrimSpace(name) == "" {
		return Result{Name: label, Detail: "prompt file and prompt name are required"}
	}
	text, err := prompt.Load(file, name)
	if err != nil {
		return Result{Name: label, Detail: err.Error()}
	}
	return Result{Name: label, Passed: true, Detail: fmt.Sprintf("%q (%d chars)", name, len([]rune(text)))}
}

// CheckCredentials verifies the selected provider has what it needs to
// authenticate.
func CheckCredentials(cfg *config.Config) Result {
	const name = "Credentials"
	switch cfg.Transcription.Provider {
	case config.ProviderGemini:
		if strings.TrimSpace(cfg.Gemini.APIKey) == "" {
			return Result{Name: name, Detail: "gemini API key missing (set GEMINI_API_KEY)"}
		}
		return Result{Name: name, Passed: true, Detail: "gemini API key set"}
	case config.ProviderVertex:
		if strings.TrimSpace(cfg.Vertex.Project) == "" {
			return Result{Name: name, Detail: "vertex project missing (set GOOGLE_CLOUD_PROJECT)"}
		}
		detail := fmt.Sprintf("vertex project %s in %s", cfg.Vertex.Project, cfg.Vertex.Region)
		if cfg.Vertex.StagingBucket != "" {
			detail += fmt.Sprintf(", staging via gs://%s", cfg.Vertex.StagingBucket)
		}
		return Result{Name: name, Passed: true, Detail: detail}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("unknown provider %q", cfg.Transcription.Provider)}
	}
}

// CheckGemini verifies the Gemini API is reachable and the key is accepted.
// It uses a single request with a 30-second timeout.
func CheckGemini(ctx context.Context, baseURL, apiKey string) Result {
	const name = "Gemini API"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/v1beta/models?pageSize=1", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	req.Header.Set("x-goog-api-key", strings.TrimSpace(apiKey))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "API reachable"}
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: fmt.Sprintf("auth failed (%d, check the API key)", resp.StatusCode)}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%d)", resp.StatusCode)}
	}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	return err.Error()
}
