package srt

import (
	"bytes"
	"fmt"
	"math"
)

// Render serializes cues as 1-indexed SubRip blocks. Hours are unbounded and
// milliseconds are rounded to the nearest value, so parsing the output
// recovers the same cue times.
func Render(cues []Cue) []byte {
	var buf bytes.Buffer
	for i, cue := range cues {
		fmt.Fprintf(&buf, "%d\n%s --> %s\n%s\n\n",
			i+1,
			FormatTimestamp(cue.Start),
			FormatTimestamp(cue.End),
			cue.Text,
		)
	}
	return buf.Bytes()
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm with zero padding.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int64(math.Round(seconds * 1000))
	ms := totalMs % 1000
	totalSec := totalMs / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d",
		totalSec/3600,
		(totalSec%3600)/60,
		totalSec%60,
		ms,
	)
}
