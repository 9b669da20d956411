package segmentation_test

import (
	"os"
	"path/filepath"
	"testing"

	"stitcher/internal/audio"
	"stitcher/internal/logging"
	"stitcher/internal/segmentation"
	"stitcher/internal/testsupport"
)

func TestSegmentWritesOneChunkPerInterval(t *testing.T) {
	buf := testsupport.Buffer(testsupport.Tone(3000, 0.5))
	dir := t.TempDir()

	seg := segmentation.NewSegmenter(logging.NewNop())
	chunks, err := seg.Segment(buf, []int64{0, 1000, 2500, 3000}, dir)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	wantStarts := []int64{0, 1000, 2500}
	wantLengths := []int64{1000, 1500, 500}
	for i, c := range chunks {
		if c.Index != i {
			t.Fatalf("chunk %d: index %d", i, c.Index)
		}
		if c.StartOffsetMs != wantStarts[i] {
			t.Fatalf("chunk %d: start %d, want %d", i, c.StartOffsetMs, wantStarts[i])
		}
		if c.NominalLengthMs != wantLengths[i] {
			t.Fatalf("chunk %d: length %d, want %d", i, c.NominalLengthMs, wantLengths[i])
		}
		loaded, err := audio.LoadWAV(c.FilePath)
		if err != nil {
			t.Fatalf("chunk %d: load %s: %v", i, c.FilePath, err)
		}
		if got := loaded.DurationMs(); got < wantLengths[i]-5 || got > wantLengths[i]+5 {
			t.Fatalf("chunk %d: file duration %dms, want ~%dms", i, got, wantLengths[i])
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 files in chunk dir, got %d", len(entries))
	}
	if name := entries[0].Name(); name != "chunk_000.wav" {
		t.Fatalf("unexpected first chunk name %q", name)
	}
}

func TestSegmentRejectsDegeneratePlan(t *testing.T) {
	buf := testsupport.Buffer(testsupport.Tone(500, 0.5))
	seg := segmentation.NewSegmenter(logging.NewNop())
	if _, err := seg.Segment(buf, []int64{0}, t.TempDir()); err == nil {
		t.Fatal("expected error for single-point plan")
	}
}

func TestSegmentCreatesMissingDir(t *testing.T) {
	buf := testsupport.Buffer(testsupport.Tone(1000, 0.5))
	dir := filepath.Join(t.TempDir(), "nested", "chunks")

	seg := segmentation.NewSegmenter(logging.NewNop())
	chunks, err := seg.Segment(buf, []int64{0, 1000}, dir)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if _, err := os.Stat(chunks[0].FilePath); err != nil {
		t.Fatalf("chunk file: %v", err)
	}
}
