package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/skypro1111/vad-segmenter/internal/config"
	"github.com/skypro1111/vad-segmenter/internal/metrics"
	"github.com/skypro1111/vad-segmenter/internal/mic"
	"github.com/skypro1111/vad-segmenter/internal/model"
	"github.com/skypro1111/vad-segmenter/internal/pipeline"
	"github.com/skypro1111/vad-segmenter/internal/recorder"
)

// ErrAlreadyRunning is returned by Start when a run is already active.
var ErrAlreadyRunning = errors.New("controller: already running")

// ErrBusyRunning is returned by Update when called while a run is active.
var ErrBusyRunning = errors.New("controller: busy running")

// RunnerFactory loads a model.Runner for the given artifact path and
// sample rate. Production code passes model.NewSession; tests inject a
// constructor that returns a model.FakeRunner.
type RunnerFactory func(modelPath string, sampleRate int) (model.Runner, error)

// Status is the snapshot returned by Status().
type Status struct {
	Running         bool   `json:"running"`
	SegmentsSaved   int64  `json:"segmentsSaved"`
	LastSegmentPath string `json:"lastSegmentPath"`
}

// Controller owns the VAD run lifecycle. Start/Stop are
// serialized against each other by startStopMu; status/update only touch
// stateMu briefly and never block on the pipeline task.
type Controller struct {
	logger    *slog.Logger
	metrics   *metrics.Metrics
	newRunner RunnerFactory
	rec       *recorder.Recorder

	startStopMu sync.Mutex

	stateMu sync.Mutex
	cfg     config.VADConfig
	micCfg  config.MicConfig
	runner  model.Runner
	micProc *mic.Process
	cancel  context.CancelFunc
	doneCh  chan struct{}
	runErr  error

	running atomic.Bool
}

// New returns a Controller that writes segments via rec and loads models
// through newRunner.
func New(logger *slog.Logger, m *metrics.Metrics, rec *recorder.Recorder, cfg config.VADConfig, micCfg config.MicConfig, newRunner RunnerFactory) *Controller {
	return &Controller{
		logger:    logger,
		metrics:   m,
		newRunner: newRunner,
		rec:       rec,
		cfg:       cfg,
		micCfg:    micCfg,
	}
}

// Start ensures outDir exists, loads the model if needed, spawns the mic
// child process, and launches the pipeline task.
func (c *Controller) Start() error {
	c.startStopMu.Lock()
	defer c.startStopMu.Unlock()

	if c.running.Load() {
		return ErrAlreadyRunning
	}

	c.stateMu.Lock()
	cfg := c.cfg
	micCfg := c.micCfg
	c.stateMu.Unlock()

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("controller: ensure out dir: %w", err)
	}

	c.stateMu.Lock()
	runner := c.runner
	c.stateMu.Unlock()
	if runner == nil {
		loaded, err := c.newRunner(cfg.ModelPath, cfg.Rate)
		if err != nil {
			return err
		}
		runner = loaded
		c.stateMu.Lock()
		c.runner = runner
		c.stateMu.Unlock()
	}
	runner.Reset()
	c.rec.ResetIndex()

	micProc, err := mic.Start(micCfg.Command, micCfg.Args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p := pipeline.New(c.logger, c.metrics, runner, c.rec, pipeline.Config{
		SampleRate:            cfg.Rate,
		SpeechThreshold:       cfg.SpeechThreshold,
		SilenceThreshold:      cfg.SilenceThreshold,
		RequiredSpeechFrames:  cfg.RequiredSpeechFrames,
		RequiredSilenceFrames: cfg.RequiredSilenceFrames,
	})

	c.stateMu.Lock()
	c.micProc = micProc
	c.cancel = cancel
	c.doneCh = done
	c.runErr = nil
	c.stateMu.Unlock()

	c.running.Store(true)
	if c.metrics != nil {
		c.metrics.SetPipelineRunning(true)
	}

	// The pipeline task and a mic-exit watchdog race each other: whichever
	// sees trouble first (a genuine pipeline error, or the mic process dying
	// on its own with a non-zero exit) cancels gctx so the other unwinds
	// promptly instead of blocking on its next read.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.Run(gctx, micProc.Stdout())
	})
	g.Go(func() error {
		select {
		case <-micProc.Done():
		case <-gctx.Done():
			return nil
		}
		if exited, waitErr := micProc.Exited(); exited && waitErr != nil {
			return fmt.Errorf("mic process exited unexpectedly: %w", waitErr)
		}
		return nil
	})

	go func() {
		runErr := g.Wait()

		c.stateMu.Lock()
		c.runErr = runErr
		c.stateMu.Unlock()

		c.running.Store(false)
		if c.metrics != nil {
			c.metrics.SetPipelineRunning(false)
		}
		if runErr != nil {
			c.logger.Error("pipeline task exited with error", slog.String("error", runErr.Error()))
		}
		close(done)
	}()

	return nil
}

// Stop requests the active run to end and waits for the pipeline task to
// perform its final flush. Idempotent; calling Stop when not running is a
// no-op. Never fails.
func (c *Controller) Stop() error {
	c.startStopMu.Lock()
	defer c.startStopMu.Unlock()

	if !c.running.Load() {
		return nil
	}

	c.stateMu.Lock()
	cancel := c.cancel
	micProc := c.micProc
	micCfg := c.micCfg
	done := c.doneCh
	c.stateMu.Unlock()

	cancel()
	if err := micProc.Terminate(micCfg.GetMicTimeout()); err != nil {
		c.logger.Warn("error terminating mic process", slog.String("error", err.Error()))
	}
	<-done

	return nil
}

// Status returns the current running state and segment counters. Never
// blocks on the pipeline task.
func (c *Controller) Status() Status {
	return Status{
		Running:         c.running.Load(),
		SegmentsSaved:   c.rec.SegmentsSaved(),
		LastSegmentPath: c.rec.LastSegmentPath(),
	}
}

// Update merges opts into the current configuration. Only valid while not
// running.
func (c *Controller) Update(opts config.Options) error {
	if c.running.Load() {
		return ErrBusyRunning
	}

	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	merged := c.cfg.Apply(opts)
	if err := merged.Validate(); err != nil {
		return fmt.Errorf("controller: invalid options: %w", err)
	}
	c.cfg = merged
	return nil
}

// Options returns the current VAD configuration in partial-update shape,
// used to serve GET /api/v1/vad/options.
func (c *Controller) Options() config.Options {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.cfg.ToOptions()
}

// Close releases the loaded model, if any. Intended for use during process
// shutdown, after a final Stop.
func (c *Controller) Close() error {
	c.stateMu.Lock()
	runner := c.runner
	c.runner = nil
	c.stateMu.Unlock()

	if runner == nil {
		return nil
	}
	return runner.Close()
}
