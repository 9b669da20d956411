// Package srt renders subtitle cue sequences to SubRip text and parses them
// back. The parser tolerates what real-world subtitle files throw at it:
// byte order marks, legacy 8-bit encodings, CRLF line endings, and
// multi-line cue bodies. Rendering then parsing a well-formed cue sequence
// yields the same sequence.
package srt
