// Package testsupport synthesizes audio fixtures for tests: tone and silence
// sample runs, speech-like alternating patterns, and WAV files on disk.
package testsupport

import (
	"math"
	"path/filepath"
	"testing"

	"stitcher/internal/audio"
)

// TestSampleRate keeps fixtures small while staying a realistic rate.
const TestSampleRate = 8000

// Tone returns durationMs of a 440 Hz sine at the given amplitude.
func Tone(durationMs int, amplitude float64) []float64 {
	n := durationMs * TestSampleRate / 1000
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = amplitude * math.Sin(2*math.Pi*440*float64(i)/TestSampleRate)
	}
	return samples
}

// Silence returns durationMs of zero samples.
func Silence(durationMs int) []float64 {
	return make([]float64, durationMs*TestSampleRate/1000)
}

// Concat joins sample runs into one track.
func Concat(runs ...[]float64) []float64 {
	var out []float64
	for _, run := range runs {
		out = append(out, run...)
	}
	return out
}

// Buffer wraps samples in an audio.Buffer at the test sample rate.
func Buffer(samples []float64) *audio.Buffer {
	return &audio.Buffer{Samples: samples, SampleRate: TestSampleRate}
}

// SpeechPattern builds a track alternating loud speech-like bursts and
// pauses: count bursts of burstMs separated by pauses of pauseMs.
func SpeechPattern(count, burstMs, pauseMs int) []float64 {
	var runs [][]float64
	for i := 0; i < count; i++ {
		runs = append(runs, Tone(burstMs, 0.5))
		if i < count-1 {
			runs = append(runs, Silence(pauseMs))
		}
	}
	return Concat(runs...)
}

// WriteWAV writes samples as a WAV file under dir and returns its path.
func WriteWAV(t testing.TB, dir, name string, samples []float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := audio.WriteWAV(path, samples, TestSampleRate); err != nil {
		t.Fatalf("write test wav %s: %v", path, err)
	}
	return path
}
