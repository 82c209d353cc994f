// Package cacheindex records which videos ytscribe has already transcribed so
// repeated runs skip them.
//
// The index maps a content identifier (the resolved platform video ID) to a
// Record whose status moves pending -> done or pending -> failed. Only a done
// record satisfies the skip check; failed records are retried on the next run.
//
// # Storage
//
// Records are persisted as a human-readable JSON array. Every mutation
// rewrites the file through a temp file, fsync, and rename, so a crash never
// leaves a half-written index and items completed before the crash stay done.
// Pending records found on load belong to an interrupted run and are resolved
// to failed with reason "interrupted".
//
// A writable Index holds an exclusive lock on "<index>.lock" for its lifetime;
// a second concurrent run fails fast. Read, parse, write, and lock failures
// are reported as services.ErrCacheIO, which callers treat as fatal. A corrupt
// index file is never replaced silently.
//
// CLI commands for inspection and management:
//
//	ytscribe cache list           # List records, newest first
//	ytscribe cache show <id>      # Show one record
//	ytscribe cache forget <id>    # Remove a record so the video is reprocessed
//	ytscribe cache stats          # Counts by status
package cacheindex
