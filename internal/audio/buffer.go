package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	wav "github.com/youpy/go-wav"
)

// ErrEmptyAudio marks input with no decodable samples. Segmentation treats
// this as fatal for the whole run.
var ErrEmptyAudio = errors.New("audio: no samples")

// Buffer holds the decoded source track: mono samples normalized to [-1, 1]
// plus the sample rate. Read-only after load.
type Buffer struct {
	Samples    []float64
	SampleRate int
}

// LoadWAV decodes a PCM WAV file into a mono Buffer. Multi-channel input is
// downmixed by averaging.
func LoadWAV(path string) (*Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer file.Close()

	reader := wav.NewReader(file)
	format, err := reader.Format()
	if err != nil {
		return nil, fmt.Errorf("read wav format: %w", err)
	}
	if format.SampleRate == 0 {
		return nil, fmt.Errorf("read wav format: zero sample rate")
	}

	channels := int(format.NumChannels)
	if channels < 1 {
		channels = 1
	}

	buf := &Buffer{SampleRate: int(format.SampleRate)}
	for {
		samples, err := reader.ReadSamples()
		if len(samples) > 0 {
			for _, sample := range samples {
				var sum float64
				for ch := 0; ch < channels; ch++ {
					sum += reader.FloatValue(sample, uint(ch))
				}
				buf.Samples = append(buf.Samples, sum/float64(channels))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read wav samples: %w", err)
		}
	}

	if len(buf.Samples) == 0 {
		return nil, ErrEmptyAudio
	}
	return buf, nil
}

// DurationMs returns the total length of the buffer in milliseconds.
func (b *Buffer) DurationMs() int64 {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return int64(len(b.Samples)) * 1000 / int64(b.SampleRate)
}

// SampleIndex converts a millisecond position to a sample index, clamped to
// the buffer bounds.
func (b *Buffer) SampleIndex(ms int64) int {
	idx := int(ms * int64(b.SampleRate) / 1000)
	if idx < 0 {
		return 0
	}
	if idx > len(b.Samples) {
		return len(b.Samples)
	}
	return idx
}

// Slice returns the samples covering [startMs, endMs). The returned slice
// aliases the buffer; callers must not mutate it.
func (b *Buffer) Slice(startMs, endMs int64) []float64 {
	start := b.SampleIndex(startMs)
	end := b.SampleIndex(endMs)
	if end < start {
		end = start
	}
	return b.Samples[start:end]
}
