// Package server runs long lived listeners and stops them on signals.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

type Server interface {
	Start() error
	Stop() error
}

type Config struct {
	Host     string `env:"HOST"      envDefault:"localhost" toml:"host"      yaml:"host"`
	Port     string `env:"PORT"      envDefault:"7080"      toml:"port"      yaml:"port"`
	CertFile string `env:"CERT_FILE" envDefault:""          toml:"cert_file" yaml:"cert_file"`
	KeyFile  string `env:"KEY_FILE"  envDefault:""          toml:"key_file"  yaml:"key_file"`
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// StopSignalHandler stops servers on SIGINT, SIGTERM or SIGABRT and then
// cancels ctx. It returns nil when ctx is done first.
func StopSignalHandler(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger, svcName string, servers ...Server) error {
	c := make(chan os.Signal, 2)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM, syscall.SIGABRT)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		defer cancel()
		var errs []error
		for _, s := range servers {
			if err := s.Stop(); err != nil {
				errs = append(errs, err)
			}
		}
		logger.Info(fmt.Sprintf("%s service shutdown by signal: %s", svcName, sig))

		return errors.Join(errs...)
	case <-ctx.Done():
		return nil
	}
}
