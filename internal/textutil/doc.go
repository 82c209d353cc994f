// Package textutil provides text helpers for transcript file naming and
// title metadata.
//
// The primary use cases are:
//   - Sanitizing video titles into filesystem-safe name segments
//   - Extracting the speaker from Hindi discourse titles
//
// All helpers normalize input with Unicode NFKC first so visually identical
// titles produce identical output.
package textutil
