// Package preview serves the generated site over HTTP during watch mode.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// Server is a development HTTP server for the output directory. It also
// exposes the build metrics registry on /metrics.
type Server struct {
	httpServer *http.Server
}

// NewServer creates a Server for siteDir on the given port. registry may be
// nil, in which case /metrics is not mounted.
func NewServer(siteDir string, port int, registry *prom.Registry) *Server {
	mux := http.NewServeMux()
	if registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	mux.Handle("/", http.FileServer(http.Dir(siteDir)))

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start runs the server in a background goroutine. Listen failures after
// startup are logged, not returned.
func (s *Server) Start() {
	slog.Info("Preview server listening", slog.String("addr", s.httpServer.Addr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Preview server failed", logfields.Error(err))
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
