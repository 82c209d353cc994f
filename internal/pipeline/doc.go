// Package pipeline runs one batch: archive the previous output tree, expand
// the inputs into a work list, and drive each video through download,
// transcription, and transcript writing under the cache index.
//
// Processing is sequential. Per-item failures (download, transcription,
// transcript write) are recorded as failed in the index and the batch moves
// on; a cache index persistence error (services.ErrCacheIO) or context
// cancellation stops the run immediately. Run history is best effort: its
// failures are logged and never change an item's outcome.
package pipeline
