package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stitcher/internal/config"
	"stitcher/internal/logging"
	"stitcher/internal/pipeline"
	"stitcher/internal/recognizer"
	"stitcher/internal/srt"
	"stitcher/internal/testsupport"
)

// fakeRecognizer returns one fixed cue per chunk without any network.
type fakeRecognizer struct {
	err error
}

func (f fakeRecognizer) Transcribe(_ context.Context, req recognizer.Request) (recognizer.Response, error) {
	if f.err != nil {
		return recognizer.Response{}, f.err
	}
	raw := fmt.Sprintf("1\n00:00:00,200 --> 00:00:01,000\n%s\n", filepath.Base(req.FilePath))
	cues, err := srt.Parse([]byte(raw))
	if err != nil {
		return recognizer.Response{}, err
	}
	return recognizer.Response{Cues: cues, RawSRT: raw}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Recognizer.BaseURL = "http://localhost:0"
	cfg.Paths.WorkDir = filepath.Join(dir, "work")
	cfg.Paths.OutputDir = filepath.Join(dir, "out")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Segmentation.MinSilenceMs = 300
	cfg.Segmentation.MinSegmentSec = 2
	cfg.Segmentation.MaxSegmentSec = 5
	cfg.Segmentation.StrictMaxSec = 7
	cfg.Segmentation.SearchWindowSec = 2
	cfg.Dispatch.Workers = 2
	cfg.Dispatch.BaseDelayMs = 1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}

func writeSpeechTrack(t *testing.T) string {
	t.Helper()
	// Six bursts with pauses long enough to register as silences.
	samples := testsupport.SpeechPattern(6, 1700, 400)
	return testsupport.WriteWAV(t, t.TempDir(), "episode.wav", samples)
}

func TestRunProducesSubtitles(t *testing.T) {
	cfg := testConfig(t)
	p, err := pipeline.New(cfg, logging.NewNop(), pipeline.WithClient(fakeRecognizer{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	input := writeSpeechTrack(t)
	result, err := p.Run(context.Background(), input, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.ChunkCount < 2 {
		t.Fatalf("expected multiple chunks, got %d", result.ChunkCount)
	}
	if result.FailedChunks != 0 {
		t.Fatalf("unexpected failures: %d", result.FailedChunks)
	}
	if result.CueCount != result.ChunkCount {
		t.Fatalf("cue count %d, chunk count %d", result.CueCount, result.ChunkCount)
	}
	if filepath.Base(result.OutputPath) != "episode.srt" {
		t.Fatalf("output path %s", result.OutputPath)
	}

	data, err := os.ReadFile(result.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	cues, err := srt.Parse(data)
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(cues) != result.CueCount {
		t.Fatalf("output has %d cues, result reports %d", len(cues), result.CueCount)
	}
	for i := 1; i < len(cues); i++ {
		if cues[i].Start < cues[i-1].End {
			t.Fatalf("cue %d overlaps its predecessor", i)
		}
	}

	// A successful run leaves no session behind.
	entries, err := os.ReadDir(cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("work dir not cleaned: %d entries", len(entries))
	}
}

func TestRunWithDiagnostics(t *testing.T) {
	cfg := testConfig(t)
	p, err := pipeline.New(cfg, logging.NewNop(), pipeline.WithClient(fakeRecognizer{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	result, err := p.Run(context.Background(), writeSpeechTrack(t), true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.DiagnosticsPath == "" {
		t.Fatal("diagnostics path not reported")
	}
	data, err := os.ReadFile(result.DiagnosticsPath)
	if err != nil {
		t.Fatalf("read diagnostics: %v", err)
	}
	if !strings.Contains(string(data), "measured_duration_sec") {
		t.Fatal("diagnostics missing chunk fields")
	}
}

func TestRunMissingInputIsFatal(t *testing.T) {
	cfg := testConfig(t)
	p, err := pipeline.New(cfg, logging.NewNop(), pipeline.WithClient(fakeRecognizer{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	_, err = p.Run(context.Background(), filepath.Join(t.TempDir(), "absent.wav"), false)
	if err == nil {
		t.Fatal("expected error for missing input")
	}
	if !strings.Contains(err.Error(), "segmentation fatal") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRunAllChunksFailing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dispatch.MaxRetries = 1
	p, err := pipeline.New(cfg, logging.NewNop(),
		pipeline.WithClient(fakeRecognizer{err: errors.New("backend down")}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	result, err := p.Run(context.Background(), writeSpeechTrack(t), false)
	if err == nil {
		t.Fatal("expected batch failure")
	}
	if result.FailedChunks != result.ChunkCount {
		t.Fatalf("failed %d of %d", result.FailedChunks, result.ChunkCount)
	}
	if result.OutputPath != "" {
		t.Fatal("no output should be written on batch failure")
	}
}

func TestRunBatchKeepsCallerFiles(t *testing.T) {
	cfg := testConfig(t)
	p, err := pipeline.New(cfg, logging.NewNop(), pipeline.WithClient(fakeRecognizer{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	chunkDir := filepath.Join(t.TempDir(), "prep")
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for i := 0; i < 3; i++ {
		testsupport.WriteWAV(t, chunkDir, fmt.Sprintf("part_%d.wav", i), testsupport.Tone(2000, 0.5))
	}

	result, err := p.RunBatch(context.Background(), chunkDir, false)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if result.ChunkCount != 3 {
		t.Fatalf("chunk count %d", result.ChunkCount)
	}
	if filepath.Base(result.OutputPath) != "prep.srt" {
		t.Fatalf("output path %s", result.OutputPath)
	}

	entries, err := os.ReadDir(chunkDir)
	if err != nil {
		t.Fatalf("read chunk dir: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("batch mode must not remove caller files, %d left", len(entries))
	}
}

func TestRunBatchEmptyDir(t *testing.T) {
	cfg := testConfig(t)
	p, err := pipeline.New(cfg, logging.NewNop(), pipeline.WithClient(fakeRecognizer{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if _, err := p.RunBatch(context.Background(), t.TempDir(), false); err == nil {
		t.Fatal("expected error for empty chunk dir")
	}
}

func TestPlanCoversWholeTrack(t *testing.T) {
	cfg := testConfig(t)
	p, err := pipeline.New(cfg, logging.NewNop(), pipeline.WithClient(fakeRecognizer{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	plan, pauses, err := p.Plan(writeSpeechTrack(t))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan) < 2 {
		t.Fatalf("plan too short: %v", plan)
	}
	if plan[0] != 0 {
		t.Fatalf("plan starts at %d", plan[0])
	}
	if len(pauses) == 0 {
		t.Fatal("expected detected pauses in speech pattern")
	}
}
