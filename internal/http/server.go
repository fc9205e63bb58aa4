package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"go.uber.org/zap"
)

// Server HTTP con apagado gracioso.
type Server struct {
	srv *stdhttp.Server
	log *zap.Logger
}

func NewServer(addr string, handler stdhttp.Handler, log *zap.Logger) *Server {
	return &Server{
		srv: &stdhttp.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Run sirve hasta que el ctx se cancele; después drena con un grace period.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http_listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.log.Info("http_shutting_down")
	return s.srv.Shutdown(shutdownCtx)
}
