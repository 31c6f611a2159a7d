package node

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Run ticks svc every interval until ctx is done. A failed or panicking
// tick is logged and the next tick proceeds.
func Run(ctx context.Context, svc Service, interval time.Duration, logger *slog.Logger) error {
	if interval <= 0 {
		return fmt.Errorf("invalid tick interval %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Tick loop started", slog.String("interval", interval.String()))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Tick loop stopped")

			return nil
		case <-ticker.C:
			if err := safeTick(ctx, svc); err != nil && ctx.Err() == nil {
				logger.Error("Tick failed", slog.Any("error", err))
			}
		}
	}
}

func safeTick(ctx context.Context, svc Service) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panicked: %v", r)
		}
	}()

	_, err = svc.Tick(ctx)

	return err
}
