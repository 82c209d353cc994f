// Package preflight provides readiness checks for the programs, credentials,
// and filesystem paths a transcription run depends on.
//
// These checks run in two contexts:
//   - The run command calls RunAll before touching the archive or the cache
//     index. A failed check stops the run before any work starts.
//   - The doctor command calls RunAll with Network enabled to also verify
//     the configured transcription endpoint.
package preflight
