package segmentation

import (
	"log/slog"

	"stitcher/internal/audio"
	"stitcher/internal/logging"
)

// frameMs is the analysis granularity for level measurement.
const frameMs = 10

// SilenceDetector finds quiet intervals in a buffer, relaxing its own
// parameters step by step when the track yields nothing at the configured
// threshold. It never fails: uniformly loud or quiet input produces an empty
// list and the planner copes.
type SilenceDetector struct {
	logger *slog.Logger
}

// NewSilenceDetector returns a detector logging through the given logger.
func NewSilenceDetector(logger *slog.Logger) *SilenceDetector {
	return &SilenceDetector{logger: logging.NewComponentLogger(logger, "silence-detector")}
}

// Detect returns the ordered silence intervals of the buffer. The escalation
// ladder: the configured threshold first, then +5/+10/+15 dB, then half the
// minimum length at +15 dB, and finally inversion of the non-silent regions
// at +20 dB.
func (d *SilenceDetector) Detect(buf *audio.Buffer, minSilenceLenMs int64, thresholdDb float64) []SilenceInterval {
	intervals := detectAt(buf, minSilenceLenMs, thresholdDb)
	if len(intervals) > 0 {
		return intervals
	}

	for _, bump := range []float64{5, 10, 15} {
		relaxed := thresholdDb + bump
		intervals = detectAt(buf, minSilenceLenMs, relaxed)
		if len(intervals) > 0 {
			d.logger.Debug("silence found at relaxed threshold",
				logging.Float64("threshold_db", relaxed),
				logging.Int("intervals", len(intervals)))
			return intervals
		}
	}

	halved := minSilenceLenMs / 2
	if halved > 0 {
		intervals = detectAt(buf, halved, thresholdDb+15)
		if len(intervals) > 0 {
			d.logger.Debug("silence found with halved minimum length",
				logging.Int64("min_silence_ms", halved),
				logging.Int("intervals", len(intervals)))
			return intervals
		}
	}

	intervals = invertNonSilent(detectNonSilentAt(buf, thresholdDb+20), buf.DurationMs())
	if len(intervals) > 0 {
		d.logger.Debug("silence inferred by inverting non-silent regions",
			logging.Int("intervals", len(intervals)))
	} else {
		d.logger.Warn("no silence detectable at any escalation step")
	}
	return intervals
}

// detectAt finds runs of frames below thresholdDb lasting at least
// minSilenceLenMs.
func detectAt(buf *audio.Buffer, minSilenceLenMs int64, thresholdDb float64) []SilenceInterval {
	var intervals []SilenceInterval
	total := buf.DurationMs()

	var runStart int64 = -1
	for pos := int64(0); pos < total; pos += frameMs {
		end := pos + frameMs
		if end > total {
			end = total
		}
		quiet := audio.WindowDbFS(buf, pos, end) < thresholdDb
		if quiet && runStart < 0 {
			runStart = pos
		}
		if !quiet && runStart >= 0 {
			intervals = appendIfLongEnough(intervals, runStart, pos, minSilenceLenMs)
			runStart = -1
		}
	}
	if runStart >= 0 {
		intervals = appendIfLongEnough(intervals, runStart, total, minSilenceLenMs)
	}
	return intervals
}

// detectNonSilentAt is the mirror of detectAt: runs of frames at or above the
// threshold. No minimum length applies; any audible region counts.
func detectNonSilentAt(buf *audio.Buffer, thresholdDb float64) []SilenceInterval {
	var regions []SilenceInterval
	total := buf.DurationMs()

	var runStart int64 = -1
	for pos := int64(0); pos < total; pos += frameMs {
		end := pos + frameMs
		if end > total {
			end = total
		}
		loud := audio.WindowDbFS(buf, pos, end) >= thresholdDb
		if loud && runStart < 0 {
			runStart = pos
		}
		if !loud && runStart >= 0 {
			regions = append(regions, SilenceInterval{StartMs: runStart, EndMs: pos, LengthMs: pos - runStart})
			runStart = -1
		}
	}
	if runStart >= 0 {
		regions = append(regions, SilenceInterval{StartMs: runStart, EndMs: total, LengthMs: total - runStart})
	}
	return regions
}

// invertNonSilent turns audible regions into the silence gaps around them:
// before the first region, between consecutive regions, and after the last.
func invertNonSilent(regions []SilenceInterval, totalMs int64) []SilenceInterval {
	if len(regions) == 0 {
		return nil
	}
	var intervals []SilenceInterval
	cursor := int64(0)
	for _, region := range regions {
		if region.StartMs > cursor {
			intervals = append(intervals, SilenceInterval{StartMs: cursor, EndMs: region.StartMs, LengthMs: region.StartMs - cursor})
		}
		cursor = region.EndMs
	}
	if cursor < totalMs {
		intervals = append(intervals, SilenceInterval{StartMs: cursor, EndMs: totalMs, LengthMs: totalMs - cursor})
	}
	return intervals
}

func appendIfLongEnough(intervals []SilenceInterval, startMs, endMs, minLenMs int64) []SilenceInterval {
	if endMs-startMs < minLenMs {
		return intervals
	}
	return append(intervals, SilenceInterval{StartMs: startMs, EndMs: endMs, LengthMs: endMs - startMs})
}
