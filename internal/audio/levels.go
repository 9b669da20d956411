package audio

import "math"

// silenceFloorDb is reported for windows with no measurable energy.
const silenceFloorDb = -120.0

// RMS returns the root-mean-square level of the samples.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// DbFS converts a normalized RMS level to decibels relative to full scale.
func DbFS(rms float64) float64 {
	if rms <= 0 {
		return silenceFloorDb
	}
	db := 20 * math.Log10(rms)
	if db < silenceFloorDb {
		return silenceFloorDb
	}
	return db
}

// WindowDbFS measures the level of the window [startMs, endMs) in a buffer.
func WindowDbFS(buf *Buffer, startMs, endMs int64) float64 {
	return DbFS(RMS(buf.Slice(startMs, endMs)))
}
