// Package history records what each ytscribe run did in a SQLite database at
// <state_dir>/history.db.
//
// The cache index stays the source of truth for whether a video still needs
// work; history is an append-only audit trail used by `ytscribe history` and
// `ytscribe cache show`. Callers treat write failures here as warnings.
//
// The database runs in WAL mode with a busy timeout, and writes are retried on
// SQLITE_BUSY with a short exponential backoff. A schema version mismatch is
// reported as ErrSchemaMismatch; delete the database to start over.
package history
