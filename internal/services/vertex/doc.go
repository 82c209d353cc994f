// Package vertex transcribes audio with Gemini models served by Vertex AI.
//
// Credentials come from application default credentials; the project and
// region are taken from the [vertex] config section. When a staging bucket is
// configured, audio is copied to gs://<bucket>/<prefix>/<file> and passed to
// the model as FileData, then removed after the call. Without a bucket the
// audio is sent inline as a Blob, which is limited by the request size cap.
package vertex
