package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"stitcher/internal/audio"
	"stitcher/internal/logging"
	"stitcher/internal/progress"
	"stitcher/internal/recognizer"
	"stitcher/internal/retrypolicy"
	"stitcher/internal/segmentation"
	"stitcher/internal/srt"
	"stitcher/internal/timeline"
	"stitcher/internal/transcache"
)

var (
	// ErrChunkTooSmall marks a pre-flight rejection: a near-empty file is
	// not a transient error and never reaches the network.
	ErrChunkTooSmall = errors.New("chunk below minimum size")
	// ErrBatchFailed reports that too many chunks failed for the batch to
	// count as degraded rather than broken.
	ErrBatchFailed = errors.New("batch failure threshold exceeded")
)

// Options tunes the dispatcher.
type Options struct {
	Workers           int
	MaxRetries        int
	BaseDelay         time.Duration
	MinChunkBytes     int64
	MaxFailurePercent int
	Model             string
	Language          string
	// CleanupChunks removes chunk files once dispatch completes. Batch
	// mode leaves caller-supplied files alone.
	CleanupChunks bool
}

// Dispatcher owns the concurrent, retrying transmission of chunks to the
// recognizer. One chunk's failure never affects its siblings; every chunk
// yields exactly one result.
type Dispatcher struct {
	client   recognizer.Client
	cache    *transcache.Store
	reporter progress.Reporter
	opts     Options
	logger   *slog.Logger
}

// Option customizes a dispatcher.
type Option func(*Dispatcher)

// WithCache enables transcript cache lookups before uploading.
func WithCache(cache *transcache.Store) Option {
	return func(d *Dispatcher) { d.cache = cache }
}

// WithReporter sets the progress reporter.
func WithReporter(reporter progress.Reporter) Option {
	return func(d *Dispatcher) {
		if reporter != nil {
			d.reporter = reporter
		}
	}
}

// New builds a dispatcher around a recognizer client.
func New(client recognizer.Client, opts Options, logger *slog.Logger, options ...Option) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = retrypolicy.DefaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = retrypolicy.DefaultBaseDelay
	}
	d := &Dispatcher{
		client:   client,
		reporter: progress.NewReporter("", 0, nil),
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "dispatcher"),
	}
	for _, option := range options {
		option(d)
	}
	return d
}

// Dispatch sends every chunk through the worker pool and collects one result
// per chunk, indexed by the chunk's original position. Completion order is
// unspecified; the result slice is not. The returned error is non-nil only
// when the configured failure threshold is crossed — individual failures are
// represented as data in the results.
func (d *Dispatcher) Dispatch(ctx context.Context, chunks []segmentation.Chunk) ([]timeline.ChunkResult, error) {
	results := make([]timeline.ChunkResult, len(chunks))
	var completed atomic.Int64

	pool := new(errgroup.Group)
	pool.SetLimit(d.opts.Workers)
	for slot, chunk := range chunks {
		slot, chunk := slot, chunk
		pool.Go(func() error {
			results[slot] = d.processChunk(ctx, chunk)
			done := completed.Add(1)
			d.reporter.Report(ctx, progress.Update{
				Stage:   "transcribe",
				Percent: float64(done) / float64(len(chunks)) * 100,
				Message: filepath.Base(chunk.FilePath),
			})
			return nil
		})
	}
	// Workers never return errors; failures live in the results.
	_ = pool.Wait()

	if d.opts.CleanupChunks {
		d.cleanup(chunks)
	}

	return results, d.checkFailureThreshold(results)
}

// processChunk produces exactly one result, success or exhausted-retry
// failure. Nothing raises past this boundary.
func (d *Dispatcher) processChunk(ctx context.Context, chunk segmentation.Chunk) timeline.ChunkResult {
	result := timeline.ChunkResult{Index: chunk.Index}

	// The artifact's real duration anchors timeline reconstruction; probe
	// it up front so even failed chunks keep their span.
	if measured, err := audio.ProbeDurationSeconds(chunk.FilePath); err == nil {
		result.MeasuredDurationSec = measured
	} else {
		d.logger.Warn("could not probe chunk duration",
			logging.Int("chunk", chunk.Index),
			logging.Error(err))
	}

	info, err := os.Stat(chunk.FilePath)
	if err != nil {
		result.Err = fmt.Errorf("stat chunk: %w", err)
		return result
	}
	if info.Size() < d.opts.MinChunkBytes {
		result.Err = fmt.Errorf("%w: %d bytes", ErrChunkTooSmall, info.Size())
		return result
	}

	if cues, ok := d.lookupCache(ctx, chunk); ok {
		result.Cues = cues
		return result
	}

	policy := retrypolicy.Policy{
		MaxAttempts: d.opts.MaxRetries,
		BaseDelay:   d.opts.BaseDelay,
		Classify:    recognizer.Classify,
	}

	var response recognizer.Response
	err = policy.Do(ctx, func() error {
		result.Attempts++
		var callErr error
		response, callErr = d.client.Transcribe(ctx, recognizer.Request{
			FilePath: chunk.FilePath,
			Language: d.opts.Language,
			Model:    d.opts.Model,
		})
		if callErr != nil {
			d.logger.Warn("chunk transcription attempt failed",
				logging.Int("chunk", chunk.Index),
				logging.Int("attempt", result.Attempts),
				logging.Int("max_attempts", d.opts.MaxRetries),
				logging.Error(callErr))
		}
		return callErr
	})
	if err != nil {
		result.Err = err
		return result
	}

	result.Cues = response.Cues
	d.saveCache(ctx, chunk, response.RawSRT)
	return result
}

func (d *Dispatcher) lookupCache(ctx context.Context, chunk segmentation.Chunk) ([]srt.Cue, bool) {
	if d.cache == nil {
		return nil, false
	}
	hash, err := transcache.HashFile(chunk.FilePath)
	if err != nil {
		return nil, false
	}
	payload, found, err := d.cache.Lookup(ctx, hash)
	if err != nil || !found {
		return nil, false
	}
	cues, err := srt.Parse([]byte(payload))
	if err != nil || len(cues) == 0 {
		return nil, false
	}
	d.logger.Info("transcript cache hit", logging.Int("chunk", chunk.Index))
	return cues, true
}

func (d *Dispatcher) saveCache(ctx context.Context, chunk segmentation.Chunk, rawSRT string) {
	if d.cache == nil || rawSRT == "" {
		return
	}
	hash, err := transcache.HashFile(chunk.FilePath)
	if err != nil {
		return
	}
	if err := d.cache.Save(ctx, hash, rawSRT); err != nil {
		d.logger.Warn("transcript cache save failed",
			logging.Int("chunk", chunk.Index),
			logging.Error(err))
	}
}

func (d *Dispatcher) cleanup(chunks []segmentation.Chunk) {
	for _, chunk := range chunks {
		if err := os.Remove(chunk.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("chunk cleanup failed",
				logging.String("path", chunk.FilePath),
				logging.Error(err))
		}
	}
}

func (d *Dispatcher) checkFailureThreshold(results []timeline.ChunkResult) error {
	if len(results) == 0 {
		return nil
	}
	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
		}
	}
	if failed == len(results) {
		return fmt.Errorf("%w: all %d chunks failed", ErrBatchFailed, failed)
	}
	if failed*100 > len(results)*d.opts.MaxFailurePercent {
		return fmt.Errorf("%w: %d of %d chunks failed", ErrBatchFailed, failed, len(results))
	}
	return nil
}
