package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// BindError is returned by StartServer when the listen address cannot be bound.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind metrics server on %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// Server is a running metrics HTTP server. It serves until the context passed to
// StartServer is cancelled and is joined with Join.
type Server struct {
	srv      *http.Server
	listener net.Listener
	group    *errgroup.Group
	logger   *slog.Logger
}

// StartServer binds addr synchronously and serves handler in the background.
// A bind failure is returned immediately as a *BindError.
func StartServer(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}

	s := &Server{
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: ln,
		logger:   logger,
	}

	g, gctx := errgroup.WithContext(ctx)
	s.group = g

	g.Go(func() error {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
		return nil
	})

	logger.Info("metrics server listening", slog.String("addr", ln.Addr().String()))
	return s, nil
}

// Addr returns the bound address. Useful when listening on port 0.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Join blocks until the server has stopped. The server stops once the context
// passed to StartServer is cancelled.
func (s *Server) Join() error {
	err := s.group.Wait()
	if err != nil {
		s.logger.Error("metrics server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("metrics server stopped")
	return nil
}
