package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/absmach/cortex/pkg/server"
)

const (
	stopWaitTime = 5 * time.Second
	readTimeout  = 15 * time.Second
)

type httpServer struct {
	ctx    context.Context
	cancel context.CancelFunc
	name   string
	config server.Config
	logger *slog.Logger
	server *http.Server
}

var _ server.Server = (*httpServer)(nil)

func NewServer(ctx context.Context, cancel context.CancelFunc, name string, config server.Config, handler http.Handler, logger *slog.Logger) server.Server {
	return &httpServer{
		ctx:    ctx,
		cancel: cancel,
		name:   name,
		config: config,
		logger: logger,
		server: &http.Server{
			Addr:              config.Address(),
			Handler:           handler,
			ReadHeaderTimeout: readTimeout,
		},
	}
}

// Start serves until the server fails or its context is done.
func (s *httpServer) Start() error {
	errCh := make(chan error, 1)

	protocol := "http"
	go func() {
		var err error
		switch {
		case s.config.CertFile != "" || s.config.KeyFile != "":
			protocol = "https"
			s.logger.Info(fmt.Sprintf("%s service %s server listening at %s with TLS", s.name, protocol, s.config.Address()))
			err = s.server.ListenAndServeTLS(s.config.CertFile, s.config.KeyFile)
		default:
			s.logger.Info(fmt.Sprintf("%s service %s server listening at %s without TLS", s.name, protocol, s.config.Address()))
			err = s.server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case <-s.ctx.Done():
		return s.Stop()
	case err := <-errCh:
		return err
	}
}

func (s *httpServer) Stop() error {
	defer s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), stopWaitTime)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error(fmt.Sprintf("%s service http server error occurred during shutdown at %s: %s", s.name, s.config.Address(), err))

		return fmt.Errorf("%s service occurred during shutdown at %s: %w", s.name, s.config.Address(), err)
	}
	s.logger.Info(fmt.Sprintf("%s http service shutdown of http at %s", s.name, s.config.Address()))

	return nil
}
