package testsupport

import (
	"testing"

	"ytscribe/internal/cacheindex"
	"ytscribe/internal/config"
	"ytscribe/internal/history"
)

// MustOpenHistory opens the run history database for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenIndex opens the writable cache index for tests and registers cleanup.
func MustOpenIndex(t testing.TB, cfg *config.Config) *cacheindex.Index {
	t.Helper()

	idx, err := cacheindex.Open(cfg.Paths.CacheIndex, nil, cacheindex.Options{})
	if err != nil {
		t.Fatalf("cacheindex.Open: %v", err)
	}
	t.Cleanup(func() {
		idx.Close()
	})
	return idx
}
