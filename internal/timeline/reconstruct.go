package timeline

import (
	"log/slog"
	"sort"

	"stitcher/internal/logging"
	"stitcher/internal/srt"
)

// ChunkResult is the outcome of recognizing one chunk. Cue times are local
// to the chunk. MeasuredDurationSec is the real artifact length probed from
// the produced audio; zero means unknown. A populated Err means recognition
// failed after exhausting retries; such results carry no cues but still
// occupy their span of the timeline.
type ChunkResult struct {
	Index               int
	Cues                []srt.Cue
	MeasuredDurationSec float64
	Attempts            int
	Err                 error
}

// Reconstructor merges per-chunk results into one monotonic global timeline.
// It is the only component with cross-chunk state: the running time offset.
type Reconstructor struct {
	initialOffsetSec float64
	logger           *slog.Logger
}

// NewReconstructor returns a reconstructor starting at the given offset
// (normally zero).
func NewReconstructor(initialOffsetSec float64, logger *slog.Logger) *Reconstructor {
	return &Reconstructor{
		initialOffsetSec: initialOffsetSec,
		logger:           logging.NewComponentLogger(logger, "reconstructor"),
	}
}

// Reconstruct sorts results by chunk index, shifts each chunk's cues by the
// accumulated offset, and validates the merged sequence. Results may arrive
// in any completion order; output is deterministic.
func (r *Reconstructor) Reconstruct(results []ChunkResult) []srt.Cue {
	sorted := make([]ChunkResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	var cues []srt.Cue
	offset := r.initialOffsetSec
	for _, result := range sorted {
		if result.Err != nil {
			r.logger.Warn("chunk failed, its span will have no subtitles",
				logging.Int("chunk", result.Index),
				logging.Error(result.Err))
		} else {
			for _, cue := range result.Cues {
				cues = append(cues, srt.Cue{
					Start: cue.Start + offset,
					End:   cue.End + offset,
					Text:  cue.Text,
				})
			}
		}
		offset += r.chunkSpan(result)
	}

	return r.validate(cues)
}

// chunkSpan decides how much timeline one chunk occupies. The measured
// artifact duration wins because it includes trailing silence the recognizer
// never transcribes. Without it, the last cue's end is the best estimate.
// With neither, the chunk contributes nothing and the drift is surfaced.
func (r *Reconstructor) chunkSpan(result ChunkResult) float64 {
	if result.MeasuredDurationSec > 0 {
		return result.MeasuredDurationSec
	}
	if len(result.Cues) > 0 {
		return result.Cues[len(result.Cues)-1].End
	}
	r.logger.Warn("chunk has no measured duration and no cues, timeline may drift",
		logging.Int("chunk", result.Index))
	return 0
}

// validate drops degenerate cues and clamps start times forward so the
// sequence is non-overlapping. End times are never moved backward and cues
// are never reordered or merged.
func (r *Reconstructor) validate(cues []srt.Cue) []srt.Cue {
	valid := make([]srt.Cue, 0, len(cues))
	for i, cue := range cues {
		if cue.Text == "" || cue.Start >= cue.End {
			r.logger.Warn("dropping invalid cue",
				logging.Int("position", i),
				logging.Float64("start", cue.Start),
				logging.Float64("end", cue.End))
			continue
		}
		if n := len(valid); n > 0 && cue.Start < valid[n-1].End {
			r.logger.Warn("clamping overlapping cue",
				logging.Int("position", i),
				logging.Float64("start", cue.Start),
				logging.Float64("clamped_to", valid[n-1].End))
			cue.Start = valid[n-1].End
			if cue.Start >= cue.End {
				continue
			}
		}
		valid = append(valid, cue)
	}
	return valid
}
