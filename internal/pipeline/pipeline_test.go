package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/skypro1111/vad-segmenter/internal/model"
	"github.com/skypro1111/vad-segmenter/internal/recorder"
)

func defaultConfig() Config {
	return Config{
		SampleRate:            16000,
		SpeechThreshold:       0.35,
		SilenceThreshold:      0.05,
		RequiredSpeechFrames:  2,
		RequiredSilenceFrames: 20,
	}
}

func pcmBytesForFrames(n int) []byte {
	buf := make([]byte, n*512*2)
	for i := range buf {
		buf[i] = byte(i)
	}
	return buf
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunProcessesOneCleanSegment(t *testing.T) {
	probs := make([]float32, 0, 200)
	for i := 0; i < 50; i++ {
		probs = append(probs, 0.0)
	}
	for i := 0; i < 100; i++ {
		probs = append(probs, 0.9)
	}
	for i := 0; i < 50; i++ {
		probs = append(probs, 0.0)
	}

	dir := t.TempDir()
	rec := recorder.New(dir, 16000, nil)
	runner := model.NewFakeRunner(probs)

	p := New(silentLogger(), nil, runner, rec, defaultConfig())

	data := pcmBytesForFrames(len(probs))
	err := p.Run(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if rec.SegmentsSaved() != 1 {
		t.Fatalf("expected exactly 1 segment saved, got %d", rec.SegmentsSaved())
	}
}

func TestRunFlushesInProgressSegmentAtEOF(t *testing.T) {
	// Speech that never drops back below silenceThreshold before the
	// stream ends must still be flushed exactly once.
	probs := []float32{0.9, 0.9, 0.9, 0.9}

	dir := t.TempDir()
	rec := recorder.New(dir, 16000, nil)
	runner := model.NewFakeRunner(probs)
	p := New(silentLogger(), nil, runner, rec, defaultConfig())

	data := pcmBytesForFrames(len(probs))
	if err := p.Run(context.Background(), bytes.NewReader(data)); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if rec.SegmentsSaved() != 1 {
		t.Fatalf("expected the in-progress segment to be flushed on EOF, got %d segments", rec.SegmentsSaved())
	}
}

func TestRunStopsAndPropagatesInferenceFailure(t *testing.T) {
	probs := []float32{0.1, 0.1, 0.9, 0.9}
	dir := t.TempDir()
	rec := recorder.New(dir, 16000, nil)
	runner := model.NewFakeRunner(probs)
	runner.FailFrom(1)

	p := New(silentLogger(), nil, runner, rec, defaultConfig())

	data := pcmBytesForFrames(len(probs))
	err := p.Run(context.Background(), bytes.NewReader(data))
	if !errors.Is(err, model.ErrInferenceFailed) {
		t.Fatalf("expected ErrInferenceFailed, got %v", err)
	}
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	dir := t.TempDir()
	rec := recorder.New(dir, 16000, nil)
	runner := model.NewFakeRunner([]float32{0.0})

	p := New(silentLogger(), nil, runner, rec, defaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// An already-canceled context must stop the loop before reading,
	// regardless of how much data the reader has.
	data := pcmBytesForFrames(1000)
	if err := p.Run(ctx, bytes.NewReader(data)); err != nil {
		t.Fatalf("expected a canceled context to end the run cleanly, got %v", err)
	}
	if runner.CallCount() != 0 {
		t.Fatalf("expected no frames processed once canceled, got %d calls", runner.CallCount())
	}
}

func TestRunWithNoDataSavesNoSegments(t *testing.T) {
	dir := t.TempDir()
	rec := recorder.New(dir, 16000, nil)
	runner := model.NewFakeRunner(nil)
	p := New(silentLogger(), nil, runner, rec, defaultConfig())

	if err := p.Run(context.Background(), bytes.NewReader(nil)); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if rec.SegmentsSaved() != 0 {
		t.Fatalf("expected no segments from an empty stream, got %d", rec.SegmentsSaved())
	}
}
