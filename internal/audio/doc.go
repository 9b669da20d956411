// Package audio owns the in-memory representation of the source track: WAV
// decode into a normalized mono sample buffer, chunk WAV encode, and the
// level math (RMS, dBFS) the segmentation stack is built on.
//
// Buffers are read-only after load; every downstream consumer slices, never
// mutates.
package audio
