package segmentation

import (
	"log/slog"

	"stitcher/internal/audio"
	"stitcher/internal/logging"
)

const (
	// Distance decay per millisecond from the target position. Pauses
	// within a sentence count for less per unit distance, so their decay
	// is steeper.
	boundaryDistanceWeight = 0.0005
	withinDistanceWeight   = 0.002
	// expandedWindowBonus rewards landing on a real sentence boundary even
	// when that means accepting a longer-than-ideal chunk.
	expandedWindowBonus = 1.5
	// Energy scan parameters for the last-resort RMS minimum search.
	energyScanRadiusMs = 2000
	energyScanStepMs   = 100
	energyWindowMs     = 150
)

// SplitPointPlanner walks the timeline emitting cut positions that respect
// the segment length bounds and prefer natural pause boundaries.
type SplitPointPlanner struct {
	opts   Options
	logger *slog.Logger
}

// NewSplitPointPlanner returns a planner for the given options.
func NewSplitPointPlanner(opts Options, logger *slog.Logger) *SplitPointPlanner {
	return &SplitPointPlanner{opts: opts, logger: logging.NewComponentLogger(logger, "split-planner")}
}

// Plan returns the ordered cut positions [0, ..., totalMs]. Every interior
// interval lies in [MinSegmentLenMs, StrictMaxLenMs]; only the final interval
// may be shorter than the minimum.
func (p *SplitPointPlanner) Plan(buf *audio.Buffer, pauses []ClassifiedPause) []int64 {
	totalMs := buf.DurationMs()
	points := []int64{0}

	current := int64(0)
	for current < totalMs {
		target := current + p.opts.MaxSegmentLenMs
		if target >= totalMs {
			points = append(points, totalMs)
			break
		}

		pos := p.pickCut(buf, pauses, current, target, totalMs)
		if pos <= current || pos > current+p.opts.StrictMaxLenMs {
			// Tier results are pre-filtered; this guards forward progress
			// against degenerate inputs.
			pos = target
		}
		points = append(points, pos)
		if pos >= totalMs {
			break
		}
		current = pos
	}
	return points
}

func (p *SplitPointPlanner) pickCut(buf *audio.Buffer, pauses []ClassifiedPause, current, target, totalMs int64) int64 {
	lo := current + p.opts.MinSegmentLenMs
	if windowLo := target - p.opts.SearchWindowMs; windowLo > lo {
		lo = windowLo
	}
	hi := minInt64(totalMs, target+p.opts.SearchWindowMs)
	if strictHi := current + p.opts.StrictMaxLenMs; hi > strictHi {
		hi = strictHi
	}

	if pos, ok := bestPause(pauses, SentenceBoundary, lo, hi, target, boundaryDistanceWeight, 1); ok {
		return pos
	}
	if pos, ok := bestPause(pauses, WithinSentence, lo, hi, target, withinDistanceWeight, 1); ok {
		return pos
	}

	expandedHi := minInt64(totalMs, current+p.opts.StrictMaxLenMs)
	if pos, ok := bestPause(pauses, SentenceBoundary, lo, expandedHi, target, boundaryDistanceWeight, expandedWindowBonus); ok {
		p.logger.Debug("accepted boundary in expanded window",
			logging.Int64("position_ms", pos),
			logging.Int64("target_ms", target))
		return pos
	}

	if pos, ok := energyMinimum(buf, target, lo, expandedHi); ok {
		p.logger.Debug("cut at local energy minimum",
			logging.Int64("position_ms", pos),
			logging.Int64("target_ms", target))
		return pos
	}

	p.logger.Debug("hard cut at target", logging.Int64("target_ms", target))
	return target
}

// bestPause scores the pauses of one class inside [lo, hi] and returns the
// winner's midpoint. Longer pauses closer to the target win.
func bestPause(pauses []ClassifiedPause, class PauseClass, lo, hi, target int64, distanceWeight, bonus float64) (int64, bool) {
	var bestPos int64
	bestScore := -1.0
	for _, pause := range pauses {
		if pause.Class != class {
			continue
		}
		pos := pause.Midpoint()
		if pos < lo || pos > hi {
			continue
		}
		distance := float64(absInt64(pos - target))
		score := bonus * float64(pause.LengthMs) / (1 + distance*distanceWeight)
		if score > bestScore {
			bestScore = score
			bestPos = pos
		}
	}
	return bestPos, bestScore >= 0
}

// energyMinimum scans short RMS windows around the target and returns the
// quietest position. It only considers positions inside [lo, hi].
func energyMinimum(buf *audio.Buffer, target, lo, hi int64) (int64, bool) {
	scanLo := maxInt64(lo, target-energyScanRadiusMs)
	scanHi := minInt64(hi, target+energyScanRadiusMs)
	if scanHi <= scanLo {
		return 0, false
	}

	var bestPos int64
	bestLevel := 0.0
	found := false
	for pos := scanLo; pos <= scanHi; pos += energyScanStepMs {
		level := audio.RMS(buf.Slice(pos-energyWindowMs/2, pos+energyWindowMs/2))
		if !found || level < bestLevel {
			found = true
			bestLevel = level
			bestPos = pos
		}
	}
	return bestPos, found
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
