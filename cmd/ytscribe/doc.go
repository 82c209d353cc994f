// Package main hosts the ytscribe CLI entrypoint and command graph.
//
// The Cobra command tree wires configuration, logging, and the internal
// packages together: `run` drives one transcription batch, while the cache,
// archive, history, and prompts commands inspect local state without
// touching the network. Keep this package lean; behaviour belongs in the
// internal packages and is surfaced here through commands and flags.
package main
