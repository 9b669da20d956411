package segmentation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"stitcher/internal/audio"
	"stitcher/internal/logging"
)

// Segmenter materializes a split plan as independent WAV artifacts in a
// working directory. The returned chunks are owned by the caller (in
// practice the dispatcher), which removes the files when done.
type Segmenter struct {
	logger *slog.Logger
}

// NewSegmenter returns a segmenter logging through the given logger.
func NewSegmenter(logger *slog.Logger) *Segmenter {
	return &Segmenter{logger: logging.NewComponentLogger(logger, "segmenter")}
}

// Segment writes one WAV file per plan interval into dir and returns the
// chunk descriptors in timeline order.
func (s *Segmenter) Segment(buf *audio.Buffer, plan []int64, dir string) ([]Chunk, error) {
	if len(plan) < 2 {
		return nil, fmt.Errorf("segment: plan needs at least two points, have %d", len(plan))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("segment: ensure chunk dir: %w", err)
	}

	chunks := make([]Chunk, 0, len(plan)-1)
	for i := 0; i < len(plan)-1; i++ {
		startMs, endMs := plan[i], plan[i+1]
		path := filepath.Join(dir, fmt.Sprintf("chunk_%03d.wav", i))
		if err := audio.WriteWAV(path, buf.Slice(startMs, endMs), buf.SampleRate); err != nil {
			return nil, fmt.Errorf("segment: write chunk %d: %w", i, err)
		}
		chunks = append(chunks, Chunk{
			Index:           i,
			StartOffsetMs:   startMs,
			NominalLengthMs: endMs - startMs,
			FilePath:        path,
		})
	}

	s.logger.Info("chunks materialized",
		logging.Int("count", len(chunks)),
		logging.String("dir", dir))
	return chunks, nil
}
