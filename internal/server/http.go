package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skypro1111/vad-segmenter/internal/config"
	"github.com/skypro1111/vad-segmenter/internal/controller"
	"github.com/skypro1111/vad-segmenter/internal/metrics"
)

// HTTPServer exposes the VAD controller's operations over the control
// plane HTTP surface.
type HTTPServer struct {
	server  *http.Server
	logger  *slog.Logger
	ctrl    *controller.Controller
	metrics *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer builds an HTTPServer bound to address:port, wired to ctrl.
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger, ctrl *controller.Controller, m *metrics.Metrics) *HTTPServer {
	h := &HTTPServer{
		logger:    logger,
		ctrl:      ctrl,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/api/v1/vad/status", h.withMetrics("/api/v1/vad/status", h.handleStatus))
	mux.HandleFunc("/api/v1/vad/start", h.withMetrics("/api/v1/vad/start", h.handleStart))
	mux.HandleFunc("/api/v1/vad/stop", h.withMetrics("/api/v1/vad/stop", h.handleStop))
	mux.HandleFunc("/api/v1/vad/options", h.withMetrics("/api/v1/vad/options", h.handleOptions))
	mux.Handle("/metrics", promhttp.Handler())
}

// withMetrics wraps a handler with request duration/status/error metrics.
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(ww, r)

		if h.metrics == nil {
			return
		}
		duration := time.Since(start).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)
		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)
		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start begins serving HTTP requests in the background.
func (h *HTTPServer) Start() error {
	h.logger.Info("starting control-plane HTTP server", slog.String("address", h.server.Addr))
	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Stop closes the HTTP server immediately, including any active
// connections; in-flight requests are not waited for.
func (h *HTTPServer) Stop() error {
	h.logger.Info("stopping control-plane HTTP server")
	return h.server.Close()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

type okResponse struct {
	OK     bool               `json:"ok"`
	Status *controller.Status `json:"status,omitempty"`
}

type errResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"uptime": time.Since(h.startTime).String(),
	})
}

func (h *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	status := h.ctrl.Status()
	writeJSON(w, http.StatusOK, status)
}

func (h *HTTPServer) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.ContentLength != 0 {
		var opts config.Options
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{OK: false, Error: err.Error()})
			return
		}
		if err := h.ctrl.Update(opts); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{OK: false, Error: err.Error()})
			return
		}
	}

	if err := h.ctrl.Start(); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{OK: false, Error: err.Error()})
		return
	}

	status := h.ctrl.Status()
	writeJSON(w, http.StatusOK, okResponse{OK: true, Status: &status})
}

func (h *HTTPServer) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_ = h.ctrl.Stop() // Stop never fails
	status := h.ctrl.Status()
	writeJSON(w, http.StatusOK, okResponse{OK: true, Status: &status})
}

func (h *HTTPServer) handleOptions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.ctrl.Options())
	case http.MethodPatch:
		var opts config.Options
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{OK: false, Error: err.Error()})
			return
		}
		if err := h.ctrl.Update(opts); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{OK: false, Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
