package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/skypro1111/vad-segmenter/internal/framer"
	"github.com/skypro1111/vad-segmenter/internal/hysteresis"
	"github.com/skypro1111/vad-segmenter/internal/metrics"
	"github.com/skypro1111/vad-segmenter/internal/model"
	"github.com/skypro1111/vad-segmenter/internal/recorder"
	"github.com/skypro1111/vad-segmenter/internal/smoother"
)

// readChunkSize is the size of each read from the child process's stdout.
// It is independent of the 512-sample frame boundary; the Framer handles
// any misalignment.
const readChunkSize = 4096

// Config parameterizes one pipeline run; it mirrors the VAD section of the
// static configuration.
type Config struct {
	SampleRate            int
	SpeechThreshold       float64
	SilenceThreshold      float64
	RequiredSpeechFrames  int
	RequiredSilenceFrames int
}

// Pipeline wires the Framer, Model Runner, Smoother, hysteresis Machine,
// and Recorder into a single end-to-end task. It is
// not safe for concurrent use; each run owns one Pipeline.
type Pipeline struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	runner   model.Runner
	framer   *framer.Framer
	smoother *smoother.Smoother
	machine  *hysteresis.Machine
	recorder *recorder.Recorder
}

// New constructs a Pipeline. recorder is driven directly by the hysteresis
// Machine as its Recorder.
func New(logger *slog.Logger, m *metrics.Metrics, runner model.Runner, rec *recorder.Recorder, cfg Config) *Pipeline {
	return &Pipeline{
		logger:   logger,
		metrics:  m,
		runner:   runner,
		framer:   framer.New(),
		smoother: smoother.New(),
		recorder: rec,
		machine: hysteresis.New(hysteresis.Config{
			SpeechThreshold:       cfg.SpeechThreshold,
			SilenceThreshold:      cfg.SilenceThreshold,
			RequiredSpeechFrames:  cfg.RequiredSpeechFrames,
			RequiredSilenceFrames: cfg.RequiredSilenceFrames,
		}, rec, logger),
	}
}

// Run reads raw PCM bytes from r until EOF, an inference error, or ctx is
// canceled, feeding every complete frame through the pipeline in order. On
// every exit path it performs a final flush so in-progress speech is never
// silently lost. The first error encountered, if any, is
// returned after the flush completes.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) error {
	buf := make([]byte, readChunkSize)
	var runErr error

readLoop:
	for {
		select {
		case <-ctx.Done():
			break readLoop
		default:
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			frames := p.framer.Push(buf[:n])
			if p.framer.Backlogged() {
				p.logger.Warn("sample queue backlog growing",
					slog.Int("pending_samples", p.framer.PendingSamples()))
			}
			if p.metrics != nil {
				p.metrics.SetSampleQueueBacklog(p.framer.PendingSamples())
			}

			for _, frame := range frames {
				if err := p.processFrame(frame); err != nil {
					runErr = err
					break readLoop
				}
			}
		}

		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				runErr = fmt.Errorf("pipeline: read mic stream: %w", readErr)
			}
			break readLoop
		}
	}

	p.machine.Flush()
	return runErr
}

func (p *Pipeline) processFrame(frame []int16) error {
	start := time.Now()
	prob, err := p.runner.Infer(frame)
	duration := time.Since(start)

	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordInferenceError()
		}
		return fmt.Errorf("pipeline: %w", err)
	}

	smoothed := p.smoother.Push(prob)
	if p.metrics != nil {
		p.metrics.RecordFrame(duration.Seconds(), float64(smoothed))
	}

	p.machine.Evaluate(smoothed, frame)
	return nil
}
