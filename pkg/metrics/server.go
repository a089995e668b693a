package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sudorandom/netflow-map/pkg/logging"
)

// Health is the state reported by /health.
type Health struct {
	Watermark int64     `json:"watermark_millis"`
	LastPoll  time.Time `json:"last_poll"`
	LastError string    `json:"last_error,omitempty"`
	LiveArcs  int       `json:"live_arcs"`
	Queued    int       `json:"queued_arcs"`
	StepSize  float64   `json:"step_size"`
}

// HealthFunc returns a fresh health snapshot on every request.
type HealthFunc func() Health

// Server serves /metrics and /health.
type Server struct {
	addr      string
	collector *Collector
	health    HealthFunc
	logger    *logging.ComponentLogger
	startTime time.Time
}

func NewServer(addr string, c *Collector, health HealthFunc, logger *logging.ComponentLogger) *Server {
	return &Server{
		addr:      addr,
		collector: c,
		health:    health,
		logger:    logger,
		startTime: time.Now(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.collector.Registry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	var h Health
	if s.health != nil {
		h = s.health()
	}
	if h.LastError != "" {
		status = "degraded"
	}

	resp := map[string]any{
		"status":         status,
		"service":        "netflow-map",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"stats":          h,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write health response")
	}
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", s.addr).Msg("Starting metrics server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
