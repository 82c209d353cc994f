// Package transcript turns raw model output into the transcript file written
// for each video.
//
// Clean normalizes the text (NFC, LF line endings, surrounding code fences
// removed). Writer renders either the plain-text layout (a Hindi metadata
// header, a separator line, then the transcript) or a JSON document, and
// writes it atomically under the output root as
// "<videoID>__<sanitized title>_<prompt>.<ext>".
package transcript
