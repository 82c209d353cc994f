// Package archive rotates the previous run's transcripts out of the output
// directory before a new run writes fresh ones.
//
// Each rotation moves the full prior output tree into a new directory named
// after the wall-clock second it happened in (2006-01-02_15-04-05) under the
// archive root. A directory is claimed with an exclusive mkdir; when the name
// is already taken a numeric suffix (_1, _2, ...) is appended, so an existing
// snapshot is never merged into or overwritten.
package archive
