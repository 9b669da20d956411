// Package timeline stitches per-chunk recognition results into one global
// subtitle timeline. A running offset accumulates each chunk's true span so
// cue timestamps stay aligned with the source audio; a validation pass then
// guarantees the final sequence is monotonic and overlap-free.
package timeline
