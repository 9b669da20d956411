package audio

import (
	"fmt"
	"os"

	wav "github.com/youpy/go-wav"
)

const chunkBitsPerSample = 16

// WriteWAV encodes mono samples as 16-bit PCM WAV at the given rate.
func WriteWAV(path string, samples []float64, sampleRate int) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer file.Close()

	writer := wav.NewWriter(file, uint32(len(samples)), 1, uint32(sampleRate), chunkBitsPerSample)

	out := make([]wav.Sample, len(samples))
	for i, value := range samples {
		if value > 1 {
			value = 1
		} else if value < -1 {
			value = -1
		}
		out[i] = wav.Sample{Values: [2]int{int(value * 32767), 0}}
	}
	if err := writer.WriteSamples(out); err != nil {
		return fmt.Errorf("write wav samples: %w", err)
	}
	return file.Close()
}

// ProbeDurationSeconds reads the real duration of a WAV artifact from its
// header. This is the preferred chunk-length source when stitching timelines:
// it includes trailing silence the recognizer never transcribes.
func ProbeDurationSeconds(path string) (float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open wav: %w", err)
	}
	defer file.Close()

	reader := wav.NewReader(file)
	duration, err := reader.Duration()
	if err != nil {
		return 0, fmt.Errorf("probe wav duration: %w", err)
	}
	return duration.Seconds(), nil
}
