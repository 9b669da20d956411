package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stitcher/internal/dispatch"
	"stitcher/internal/logging"
	"stitcher/internal/progress"
	"stitcher/internal/recognizer"
	"stitcher/internal/segmentation"
	"stitcher/internal/srt"
	"stitcher/internal/testsupport"
	"stitcher/internal/transcache"
)

// stubClient answers Transcribe from a function, tracking call counts per
// file.
type stubClient struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(req recognizer.Request) (recognizer.Response, error)
}

func newStubClient(fn func(req recognizer.Request) (recognizer.Response, error)) *stubClient {
	return &stubClient{calls: make(map[string]int), fn: fn}
}

func (s *stubClient) Transcribe(_ context.Context, req recognizer.Request) (recognizer.Response, error) {
	s.mu.Lock()
	s.calls[filepath.Base(req.FilePath)]++
	s.mu.Unlock()
	return s.fn(req)
}

func srtFor(text string) string {
	return fmt.Sprintf("1\n00:00:00,500 --> 00:00:02,000\n%s\n", text)
}

func makeChunks(t *testing.T, n int) []segmentation.Chunk {
	t.Helper()
	dir := t.TempDir()
	chunks := make([]segmentation.Chunk, n)
	for i := range chunks {
		name := fmt.Sprintf("chunk_%03d.wav", i)
		path := testsupport.WriteWAV(t, dir, name, testsupport.Tone(2000, 0.5))
		chunks[i] = segmentation.Chunk{
			Index:           i,
			StartOffsetMs:   int64(i) * 2000,
			NominalLengthMs: 2000,
			FilePath:        path,
		}
	}
	return chunks
}

func testOptions() dispatch.Options {
	return dispatch.Options{
		Workers:           3,
		MaxRetries:        3,
		BaseDelay:         time.Millisecond,
		MaxFailurePercent: 50,
	}
}

func TestDispatchOrdersResultsByChunkIndex(t *testing.T) {
	chunks := makeChunks(t, 5)
	client := newStubClient(func(req recognizer.Request) (recognizer.Response, error) {
		raw := srtFor(filepath.Base(req.FilePath))
		cues, _ := srt.Parse([]byte(raw))
		return recognizer.Response{Cues: cues, RawSRT: raw}, nil
	})

	d := dispatch.New(client, testOptions(), logging.NewNop())
	results, err := d.Dispatch(context.Background(), chunks)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for i, result := range results {
		if result.Index != i {
			t.Fatalf("result %d: index %d", i, result.Index)
		}
		if result.Err != nil {
			t.Fatalf("result %d: %v", i, result.Err)
		}
		if result.Attempts != 1 {
			t.Fatalf("result %d: attempts %d", i, result.Attempts)
		}
		if result.MeasuredDurationSec < 1.9 || result.MeasuredDurationSec > 2.1 {
			t.Fatalf("result %d: measured %v", i, result.MeasuredDurationSec)
		}
		want := fmt.Sprintf("chunk_%03d.wav", i)
		if len(result.Cues) != 1 || result.Cues[0].Text != want {
			t.Fatalf("result %d: cues %+v", i, result.Cues)
		}
	}
}

func TestDispatchRetriesThenRecordsFailure(t *testing.T) {
	chunks := makeChunks(t, 2)
	client := newStubClient(func(req recognizer.Request) (recognizer.Response, error) {
		if filepath.Base(req.FilePath) == "chunk_001.wav" {
			return recognizer.Response{}, errors.New("connection reset")
		}
		raw := srtFor("fine")
		cues, _ := srt.Parse([]byte(raw))
		return recognizer.Response{Cues: cues, RawSRT: raw}, nil
	})

	d := dispatch.New(client, testOptions(), logging.NewNop())
	results, err := d.Dispatch(context.Background(), chunks)
	if err != nil {
		t.Fatalf("one failure of two is within the 50%% threshold: %v", err)
	}
	if results[0].Err != nil {
		t.Fatalf("healthy chunk failed: %v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Fatal("expected failure recorded for chunk 1")
	}
	if results[1].Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", results[1].Attempts)
	}
	// The failed chunk still carries its measured span for reconstruction.
	if results[1].MeasuredDurationSec <= 0 {
		t.Fatal("failed chunk lost its measured duration")
	}
}

func TestDispatchFatalErrorSkipsRetries(t *testing.T) {
	chunks := makeChunks(t, 2)
	client := newStubClient(func(req recognizer.Request) (recognizer.Response, error) {
		if filepath.Base(req.FilePath) == "chunk_000.wav" {
			return recognizer.Response{}, &recognizer.BackendError{
				StatusCode: http.StatusUnsupportedMediaType,
				Message:    "bad container",
			}
		}
		raw := srtFor("fine")
		cues, _ := srt.Parse([]byte(raw))
		return recognizer.Response{Cues: cues, RawSRT: raw}, nil
	})

	d := dispatch.New(client, testOptions(), logging.NewNop())
	results, err := d.Dispatch(context.Background(), chunks)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if results[0].Err == nil {
		t.Fatal("expected fatal failure recorded")
	}
	if results[0].Attempts != 1 {
		t.Fatalf("fatal error should not retry, got %d attempts", results[0].Attempts)
	}
}

func TestDispatchAllFailedIsBatchFailure(t *testing.T) {
	chunks := makeChunks(t, 3)
	client := newStubClient(func(recognizer.Request) (recognizer.Response, error) {
		return recognizer.Response{}, errors.New("backend down")
	})

	d := dispatch.New(client, testOptions(), logging.NewNop())
	_, err := d.Dispatch(context.Background(), chunks)
	if !errors.Is(err, dispatch.ErrBatchFailed) {
		t.Fatalf("expected ErrBatchFailed, got %v", err)
	}
}

func TestDispatchFailureThresholdPercent(t *testing.T) {
	chunks := makeChunks(t, 3)
	client := newStubClient(func(req recognizer.Request) (recognizer.Response, error) {
		if filepath.Base(req.FilePath) == "chunk_000.wav" {
			raw := srtFor("only survivor")
			cues, _ := srt.Parse([]byte(raw))
			return recognizer.Response{Cues: cues, RawSRT: raw}, nil
		}
		return recognizer.Response{}, errors.New("backend flaky")
	})

	// Two of three failed: 66% over a 50% threshold.
	d := dispatch.New(client, testOptions(), logging.NewNop())
	results, err := d.Dispatch(context.Background(), chunks)
	if !errors.Is(err, dispatch.ErrBatchFailed) {
		t.Fatalf("expected ErrBatchFailed, got %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results must still be returned, got %d", len(results))
	}
}

func TestDispatchRejectsUndersizedChunk(t *testing.T) {
	chunks := makeChunks(t, 2)
	client := newStubClient(func(req recognizer.Request) (recognizer.Response, error) {
		raw := srtFor("fine")
		cues, _ := srt.Parse([]byte(raw))
		return recognizer.Response{Cues: cues, RawSRT: raw}, nil
	})

	opts := testOptions()
	opts.MinChunkBytes = 1 << 30
	d := dispatch.New(client, opts, logging.NewNop())
	results, _ := d.Dispatch(context.Background(), chunks[:1])
	if !errors.Is(results[0].Err, dispatch.ErrChunkTooSmall) {
		t.Fatalf("expected ErrChunkTooSmall, got %v", results[0].Err)
	}
	if results[0].Attempts != 0 {
		t.Fatalf("undersized chunk must not be uploaded, got %d attempts", results[0].Attempts)
	}
	if client.calls[filepath.Base(chunks[0].FilePath)] != 0 {
		t.Fatal("undersized chunk reached the client")
	}
}

func TestDispatchCleanupRemovesChunks(t *testing.T) {
	chunks := makeChunks(t, 2)
	client := newStubClient(func(recognizer.Request) (recognizer.Response, error) {
		raw := srtFor("fine")
		cues, _ := srt.Parse([]byte(raw))
		return recognizer.Response{Cues: cues, RawSRT: raw}, nil
	})

	opts := testOptions()
	opts.CleanupChunks = true
	d := dispatch.New(client, opts, logging.NewNop())
	if _, err := d.Dispatch(context.Background(), chunks); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	for _, chunk := range chunks {
		if _, err := os.Stat(chunk.FilePath); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("chunk %s not cleaned up", chunk.FilePath)
		}
	}
}

func TestDispatchKeepsChunksWithoutCleanup(t *testing.T) {
	chunks := makeChunks(t, 1)
	client := newStubClient(func(recognizer.Request) (recognizer.Response, error) {
		raw := srtFor("fine")
		cues, _ := srt.Parse([]byte(raw))
		return recognizer.Response{Cues: cues, RawSRT: raw}, nil
	})

	d := dispatch.New(client, testOptions(), logging.NewNop())
	if _, err := d.Dispatch(context.Background(), chunks); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if _, err := os.Stat(chunks[0].FilePath); err != nil {
		t.Fatalf("chunk removed despite CleanupChunks=false: %v", err)
	}
}

func TestDispatchCacheHitSkipsClient(t *testing.T) {
	chunks := makeChunks(t, 1)

	cache, err := transcache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer cache.Close()

	hash, err := transcache.HashFile(chunks[0].FilePath)
	if err != nil {
		t.Fatalf("hash chunk: %v", err)
	}
	if err := cache.Save(context.Background(), hash, srtFor("cached line")); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	client := newStubClient(func(recognizer.Request) (recognizer.Response, error) {
		return recognizer.Response{}, errors.New("must not be called")
	})

	d := dispatch.New(client, testOptions(), logging.NewNop(), dispatch.WithCache(cache))
	results, err := d.Dispatch(context.Background(), chunks)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if results[0].Err != nil {
		t.Fatalf("cache hit should succeed: %v", results[0].Err)
	}
	if len(results[0].Cues) != 1 || results[0].Cues[0].Text != "cached line" {
		t.Fatalf("unexpected cues %+v", results[0].Cues)
	}
	if client.calls[filepath.Base(chunks[0].FilePath)] != 0 {
		t.Fatal("client called despite cache hit")
	}
}

func TestDispatchReportsProgress(t *testing.T) {
	chunks := makeChunks(t, 4)
	client := newStubClient(func(recognizer.Request) (recognizer.Response, error) {
		raw := srtFor("fine")
		cues, _ := srt.Parse([]byte(raw))
		return recognizer.Response{Cues: cues, RawSRT: raw}, nil
	})

	var updates atomic.Int64
	var final atomic.Value
	reporter := progress.Func(func(_ context.Context, update progress.Update) {
		updates.Add(1)
		if update.Percent >= 100 {
			final.Store(update.Stage)
		}
	})

	d := dispatch.New(client, testOptions(), logging.NewNop(), dispatch.WithReporter(reporter))
	if _, err := d.Dispatch(context.Background(), chunks); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got := updates.Load(); got != 4 {
		t.Fatalf("expected 4 progress updates, got %d", got)
	}
	if stage, _ := final.Load().(string); stage != "transcribe" {
		t.Fatalf("final update stage %q", stage)
	}
}
