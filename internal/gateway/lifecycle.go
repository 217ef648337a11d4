package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Start binds the configured address and begins serving in the background.
// Mirrors the teacher's startHTTPServer: listen first so bind errors
// surface synchronously, then hand the accept loop to a goroutine.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux(),
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout,
	}
	s.httpListener = listener

	if s.janitor != nil {
		if err := s.janitor.Start(context.Background()); err != nil {
			return fmt.Errorf("start janitor: %w", err)
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	s.logger.Info("gateway listening", "addr", addr)
	return nil
}

// Stop flips the shutdown flag (polled by every in-flight agent loop step)
// and drains the HTTP server within the given grace period.
func (s *Server) Stop(ctx context.Context) error {
	s.shuttingDown.Store(true)

	if s.janitor != nil {
		s.janitor.Stop()
	}

	if s.auditLog != nil {
		s.auditLog.LogGatewayShutdown(ctx, "stop requested")
	}

	if s.tracerShutdown != nil {
		if err := s.tracerShutdown(ctx); err != nil {
			s.logger.Warn("tracer shutdown error", "error", err)
		}
	}

	var stopErr error
	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			stopErr = fmt.Errorf("http server shutdown: %w", err)
		} else {
			s.wg.Wait()
		}
	}

	if s.auditLog != nil {
		if err := s.auditLog.Close(); err != nil {
			s.logger.Warn("audit logger close error", "error", err)
		}
	}

	return stopErr
}
