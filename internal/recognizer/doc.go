// Package recognizer is the thin client for the external speech recognition
// backend: one multipart upload per chunk, a JSON envelope back, SRT payload
// parsed into chunk-local cues. The backend is stateless per request; retry
// decisions belong to the caller, informed by Classify.
package recognizer
