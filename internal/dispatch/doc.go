// Package dispatch drives the bounded worker pool that sends chunks to the
// recognizer. Each chunk gets pre-flight validation, the shared retry
// policy, and exactly one result; the batch as a whole fails only when the
// configured failure threshold is crossed.
package dispatch
