package srt

import (
	"fmt"
	"math"
	"os"
)

// durationMismatchToleranceSec is how far the last cue may end before the
// known media duration before the file is flagged.
const durationMismatchToleranceSec = 120.0

// ValidateContent checks an SRT file for format issues. Returns a list of
// issues found; empty slice means validation passed. mediaSeconds of zero
// skips the duration alignment check.
func ValidateContent(path string, mediaSeconds float64) []string {
	var issues []string

	data, err := os.ReadFile(path)
	if err != nil {
		issues = append(issues, fmt.Sprintf("read_error: %v", err))
		return issues
	}

	cues, err := Parse(data)
	if err != nil {
		issues = append(issues, fmt.Sprintf("parse_error: %v", err))
		return issues
	}
	if len(cues) == 0 {
		issues = append(issues, "empty_subtitle_file")
		return issues
	}

	first := math.Inf(1)
	var last float64
	for _, cue := range cues {
		if cue.Start < first {
			first = cue.Start
		}
		if cue.End > last {
			last = cue.End
		}
	}
	if last == 0 {
		issues = append(issues, "no_valid_timestamps")
	}

	if mediaSeconds > 0 {
		delta := mediaSeconds - last
		if delta > durationMismatchToleranceSec || delta < -1 {
			issues = append(issues, fmt.Sprintf("duration_mismatch: delta=%.1fs", delta))
		}
	}

	return issues
}
