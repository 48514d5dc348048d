package muxserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Run starts an HTTP server serving s on addr and blocks until SIGINT or
// SIGTERM, then drains in-flight requests within the given grace period
// before returning. Mirrors the signal.Notify + http.Server.Shutdown
// pattern used for graceful shutdown elsewhere in the example corpus.
func Run(ctx context.Context, addr string, s *Server, shutdownGrace time.Duration, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", s.HandleRequest)
	mux.HandleFunc("/health", s.HealthHandler)
	mux.HandleFunc("/sse", s.HandleSSE)
	mux.HandleFunc("/messages", s.HandleMessages)
	mux.HandleFunc("/", s.NotFoundHandler)

	httpServer := &http.Server{Addr: addr, Handler: mux}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("downstream server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case <-quit:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
		logger.Info("context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced to shutdown", "error", err)
		return err
	}
	logger.Info("server exited gracefully")
	return nil
}
