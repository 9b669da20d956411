// Package pipeline wires the stitcher stages together: load, segment,
// dispatch, reconstruct, render. Segmentation failures abort the run; chunk
// failures degrade it; reconstruction heals what it can.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"stitcher/internal/audio"
	"stitcher/internal/config"
	"stitcher/internal/dispatch"
	"stitcher/internal/logging"
	"stitcher/internal/progress"
	"stitcher/internal/recognizer"
	"stitcher/internal/segmentation"
	"stitcher/internal/srt"
	"stitcher/internal/storage"
	"stitcher/internal/timeline"
	"stitcher/internal/transcache"
	"stitcher/internal/workdir"
)

// Pipeline runs the full audio-to-subtitles flow.
type Pipeline struct {
	cfg      *config.Config
	client   recognizer.Client
	cache    *transcache.Store
	reporter progress.Reporter
	store    storage.Store
	logger   *slog.Logger
}

// Option customizes a pipeline.
type Option func(*Pipeline)

// WithClient overrides the recognizer client (for testing).
func WithClient(client recognizer.Client) Option {
	return func(p *Pipeline) { p.client = client }
}

// WithStore overrides the output artifact store.
func WithStore(store storage.Store) Option {
	return func(p *Pipeline) { p.store = store }
}

// WithReporter overrides the progress reporter.
func WithReporter(reporter progress.Reporter) Option {
	return func(p *Pipeline) { p.reporter = reporter }
}

// New assembles a pipeline from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:    cfg,
		store:  storage.Filesystem{},
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		p.client = recognizer.NewHTTPClient(
			cfg.Recognizer.BaseURL,
			cfg.Recognizer.APIKey,
			recognizer.WithTimeouts(recognizer.Timeouts{
				Connect:   time.Duration(cfg.Recognizer.ConnectTimeoutSec) * time.Second,
				ReadBase:  time.Duration(cfg.Recognizer.ReadTimeoutBaseSec) * time.Second,
				ReadPerMB: time.Duration(cfg.Recognizer.ReadTimeoutSecPerMB) * time.Second,
			}),
		)
	}
	if p.reporter == nil {
		p.reporter = progress.NewReporter(
			cfg.Progress.PushURL,
			time.Duration(cfg.Progress.TimeoutSec)*time.Second,
			logger,
		)
	}
	if cfg.Cache.Enabled {
		cache, err := transcache.Open(cfg.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("open transcript cache: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

// Close releases pipeline resources.
func (p *Pipeline) Close() error {
	return p.cache.Close()
}

// RunResult summarizes one completed run.
type RunResult struct {
	OutputPath      string
	DiagnosticsPath string
	CueCount        int
	ChunkCount      int
	FailedChunks    int
	Elapsed         time.Duration
}

// Run transcribes a single WAV file into an SRT written to the output
// directory. withDiagnostics additionally writes the raw per-chunk results
// as JSON for reprocessing.
func (p *Pipeline) Run(ctx context.Context, inputPath string, withDiagnostics bool) (RunResult, error) {
	started := time.Now()
	var result RunResult

	buf, err := audio.LoadWAV(inputPath)
	if err != nil {
		// The only failure class that aborts the whole operation.
		return result, fmt.Errorf("segmentation fatal: %w", err)
	}
	p.reporter.Report(ctx, progress.Update{Stage: "segment", Percent: 0})

	session, err := workdir.NewSession(p.cfg.Paths.WorkDir)
	if err != nil {
		return result, err
	}

	chunks, err := p.segment(buf, session.ChunkDir())
	if err != nil {
		_ = session.Close()
		return result, err
	}

	results, dispatchErr := p.dispatch(ctx, chunks, true)
	result.ChunkCount = len(results)
	for _, r := range results {
		if r.Err != nil {
			result.FailedChunks++
		}
	}

	if withDiagnostics {
		if path, err := p.writeDiagnostics(inputPath, results); err == nil {
			result.DiagnosticsPath = path
		} else {
			p.logger.Warn("diagnostics dump failed", logging.Error(err))
		}
	}

	if dispatchErr != nil {
		_ = session.Close()
		return result, dispatchErr
	}

	p.reporter.Report(ctx, progress.Update{Stage: "reconstruct", Percent: 0})
	cues := timeline.NewReconstructor(0, p.logger).Reconstruct(results)
	result.CueCount = len(cues)

	outputPath := p.outputPathFor(inputPath)
	if err := p.store.WriteBytes(outputPath, srt.Render(cues)); err != nil {
		_ = session.Close()
		return result, err
	}
	result.OutputPath = outputPath
	result.Elapsed = time.Since(started)

	if err := session.Cleanup(); err != nil {
		p.logger.Warn("session cleanup failed", logging.Error(err))
	}
	p.reporter.Report(ctx, progress.Update{Stage: "done", Percent: 100})
	return result, nil
}

// RunBatch transcribes a directory of pre-segmented chunk files, sorted by
// name. The caller keeps ownership of the files.
func (p *Pipeline) RunBatch(ctx context.Context, chunkDir string, withDiagnostics bool) (RunResult, error) {
	started := time.Now()
	var result RunResult

	chunks, err := listChunks(chunkDir)
	if err != nil {
		return result, err
	}
	if len(chunks) == 0 {
		return result, fmt.Errorf("no chunk files in %s", chunkDir)
	}

	results, dispatchErr := p.dispatch(ctx, chunks, false)
	result.ChunkCount = len(results)
	for _, r := range results {
		if r.Err != nil {
			result.FailedChunks++
		}
	}

	if withDiagnostics {
		if path, err := p.writeDiagnostics(chunkDir, results); err == nil {
			result.DiagnosticsPath = path
		} else {
			p.logger.Warn("diagnostics dump failed", logging.Error(err))
		}
	}
	if dispatchErr != nil {
		return result, dispatchErr
	}

	cues := timeline.NewReconstructor(0, p.logger).Reconstruct(results)
	result.CueCount = len(cues)

	outputPath := p.outputPathFor(chunkDir)
	if err := p.store.WriteBytes(outputPath, srt.Render(cues)); err != nil {
		return result, err
	}
	result.OutputPath = outputPath
	result.Elapsed = time.Since(started)
	return result, nil
}

// Plan runs only the segmentation stack and returns the planned cut points
// plus the classified pauses, for inspection.
func (p *Pipeline) Plan(inputPath string) ([]int64, []segmentation.ClassifiedPause, error) {
	buf, err := audio.LoadWAV(inputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("segmentation fatal: %w", err)
	}
	opts := p.segmentationOptions()
	detector := segmentation.NewSilenceDetector(p.logger)
	intervals := detector.Detect(buf, opts.MinSilenceLenMs, opts.SilenceThresholdDb)
	pauses := segmentation.NewBoundaryClassifier(0, p.logger).Classify(intervals)
	plan := segmentation.NewSplitPointPlanner(opts, p.logger).Plan(buf, pauses)
	return plan, pauses, nil
}

func (p *Pipeline) segment(buf *audio.Buffer, chunkDir string) ([]segmentation.Chunk, error) {
	opts := p.segmentationOptions()
	detector := segmentation.NewSilenceDetector(p.logger)
	intervals := detector.Detect(buf, opts.MinSilenceLenMs, opts.SilenceThresholdDb)
	pauses := segmentation.NewBoundaryClassifier(0, p.logger).Classify(intervals)
	plan := segmentation.NewSplitPointPlanner(opts, p.logger).Plan(buf, pauses)
	return segmentation.NewSegmenter(p.logger).Segment(buf, plan, chunkDir)
}

func (p *Pipeline) dispatch(ctx context.Context, chunks []segmentation.Chunk, cleanup bool) ([]timeline.ChunkResult, error) {
	opts := dispatch.Options{
		Workers:           p.cfg.Dispatch.Workers,
		MaxRetries:        p.cfg.Dispatch.MaxRetries,
		BaseDelay:         time.Duration(p.cfg.Dispatch.BaseDelayMs) * time.Millisecond,
		MinChunkBytes:     int64(p.cfg.Dispatch.MinChunkBytes),
		MaxFailurePercent: p.cfg.Dispatch.MaxFailurePercent,
		Model:             p.cfg.Recognizer.Model,
		Language:          p.cfg.Recognizer.Language,
		CleanupChunks:     cleanup,
	}
	options := []dispatch.Option{dispatch.WithReporter(p.reporter)}
	if p.cache != nil {
		options = append(options, dispatch.WithCache(p.cache))
	}
	dispatcher := dispatch.New(p.client, opts, p.logger, options...)
	return dispatcher.Dispatch(ctx, chunks)
}

func (p *Pipeline) segmentationOptions() segmentation.Options {
	s := p.cfg.Segmentation
	return segmentation.Options{
		MinSilenceLenMs:    int64(s.MinSilenceMs),
		SilenceThresholdDb: s.SilenceThresholdDb,
		MinSegmentLenMs:    int64(s.MinSegmentSec) * 1000,
		MaxSegmentLenMs:    int64(s.MaxSegmentSec) * 1000,
		StrictMaxLenMs:     int64(s.StrictMaxSec) * 1000,
		SearchWindowMs:     int64(s.SearchWindowSec) * 1000,
	}
}

func (p *Pipeline) outputPathFor(inputPath string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	if base == "" || base == "." {
		base = "output"
	}
	return filepath.Join(p.cfg.Paths.OutputDir, base+".srt")
}

// chunkDiagnostic is the JSON shape of one raw per-chunk result.
type chunkDiagnostic struct {
	Index               int       `json:"index"`
	CueCount            int       `json:"cue_count"`
	MeasuredDurationSec float64   `json:"measured_duration_sec"`
	Attempts            int       `json:"attempts"`
	Error               string    `json:"error,omitempty"`
	Cues                []srt.Cue `json:"cues,omitempty"`
}

func (p *Pipeline) writeDiagnostics(inputPath string, results []timeline.ChunkResult) (string, error) {
	diagnostics := make([]chunkDiagnostic, len(results))
	for i, result := range results {
		diagnostics[i] = chunkDiagnostic{
			Index:               result.Index,
			CueCount:            len(result.Cues),
			MeasuredDurationSec: result.MeasuredDurationSec,
			Attempts:            result.Attempts,
			Cues:                result.Cues,
		}
		if result.Err != nil {
			diagnostics[i].Error = result.Err.Error()
		}
	}
	data, err := json.MarshalIndent(diagnostics, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal diagnostics: %w", err)
	}
	path := strings.TrimSuffix(p.outputPathFor(inputPath), ".srt") + ".chunks.json"
	if err := p.store.WriteBytes(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// listChunks builds chunk descriptors from a directory of audio files,
// ordered by file name.
func listChunks(dir string) ([]segmentation.Chunk, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read chunk dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if strings.HasSuffix(name, ".wav") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	chunks := make([]segmentation.Chunk, len(paths))
	for i, path := range paths {
		chunks[i] = segmentation.Chunk{Index: i, FilePath: path}
	}
	return chunks, nil
}
