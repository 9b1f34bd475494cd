// Package server exposes the liveness endpoint for deployment probes.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nextlevelbuilder/lingorelay/internal/config"
)

// Stats reports runtime counters for the health payload.
type Stats interface {
	Routes() int
	Correlations() int
}

// Server serves /health over plain HTTP.
type Server struct {
	cfg        config.ServerConfig
	stats      Stats
	started    time.Time
	version    string
	httpServer *http.Server
}

// New creates a health server.
func New(cfg config.ServerConfig, stats Stats, version string) *Server {
	return &Server{
		cfg:     cfg,
		stats:   stats,
		started: time.Now(),
		version: version,
	}
}

// Start listens until the context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	slog.Info("health server starting", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":       "ok",
		"version":      s.version,
		"started_at":   s.started.UTC().Format(time.RFC3339),
		"uptime_sec":   int(time.Since(s.started).Seconds()),
		"routes":       s.stats.Routes(),
		"correlations": s.stats.Correlations(),
	})
}
