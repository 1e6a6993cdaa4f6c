package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/skypro1111/vad-segmenter/internal/config"
	"github.com/skypro1111/vad-segmenter/internal/controller"
	"github.com/skypro1111/vad-segmenter/internal/metrics"
	"github.com/skypro1111/vad-segmenter/internal/model"
	"github.com/skypro1111/vad-segmenter/internal/recorder"
	"github.com/skypro1111/vad-segmenter/internal/server"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "vad-segmenter"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	autostart := flag.Bool("autostart", false, "start the VAD pipeline immediately instead of waiting for POST /api/v1/vad/start")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary
	logger.Info("Configuration loaded",
		slog.Int("rate", cfg.VAD.Rate),
		slog.String("out_dir", cfg.VAD.OutDir),
		slog.String("model_path", cfg.VAD.ModelPath),
		slog.Float64("speech_threshold", cfg.VAD.SpeechThreshold),
		slog.Float64("silence_threshold", cfg.VAD.SilenceThreshold),
		slog.Int("required_speech_frames", cfg.VAD.RequiredSpeechFrames),
		slog.Int("required_silence_frames", cfg.VAD.RequiredSilenceFrames),
		slog.String("mic_command", cfg.Mic.Command),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	if err := os.MkdirAll(cfg.VAD.OutDir, 0o755); err != nil {
		logger.Error("Failed to create segment output directory", slog.String("error", err.Error()))
		os.Exit(1)
	}
	rec := recorder.New(cfg.VAD.OutDir, cfg.VAD.Rate, appMetrics)

	ctrl := controller.New(logger, appMetrics, rec, cfg.VAD, cfg.Mic, func(modelPath string, sampleRate int) (model.Runner, error) {
		return model.NewSession(modelPath, sampleRate)
	})

	// Initialize control-plane HTTP server
	httpServer := server.NewHTTPServer(cfg.HTTP, logger, ctrl, appMetrics)
	logger.Info("HTTP API server initialized",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if *autostart {
		if err := ctrl.Start(); err != nil {
			logger.Error("Failed to autostart VAD pipeline", slog.String("error", err.Error()))
		} else {
			logger.Info("VAD pipeline autostarted")
		}
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop the VAD pipeline first: flushes any in-progress segment
	if err := ctrl.Stop(); err != nil {
		logger.Error("Error stopping VAD controller", slog.String("error", err.Error()))
	}

	// Stop HTTP server (stop accepting new requests)
	if err := httpServer.Stop(); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Release the loaded model
	if err := ctrl.Close(); err != nil {
		logger.Error("Error releasing model runner", slog.String("error", err.Error()))
	}

	status := ctrl.Status()
	logger.Info("Final server statistics",
		slog.Int64("segments_saved", status.SegmentsSaved),
		slog.String("last_segment_path", status.LastSegmentPath),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
