// Package gemini provides an HTTP client for the Gemini Developer API used to
// transcribe audio files.
//
// # Upload Strategy
//
// Audio at or below the inline limit (15 MiB by default) is base64-encoded
// into the generateContent request. Larger files go through the resumable
// Files API: the upload session is started, the bytes are sent with a single
// upload+finalize command, and the file is polled until it becomes ACTIVE.
// Uploaded files are deleted once the transcript is returned.
//
// # Retry Behaviour
//
// Requests are retried on HTTP 408/429/5xx and network timeouts with
// exponential backoff (base 2s, max 60s, up to 5 attempts by default). A
// Retry-After header overrides the computed delay. Authentication failures
// and other 4xx responses fail immediately. Context cancellation aborts
// retries.
//
// All failures returned from Transcribe are tagged services.ErrTranscription.
package gemini
