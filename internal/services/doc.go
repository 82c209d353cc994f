// Package services defines shared utilities consumed by the batch runner and
// the external integrations (yt-dlp, Gemini, Vertex AI).
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, content identifiers, and stage
//     names for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into per-item errors (download, transcription) and fatal ones
//     (cache persistence).
//
// Use these helpers when wiring new integrations so failure handling and
// observability stay uniform across the pipeline.
package services
