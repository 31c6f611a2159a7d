package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/cortex/node"
	"github.com/absmach/cortex/pkg/scheduler"
)

var _ node.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    node.Service
}

func Logging(logger *slog.Logger, svc node.Service) node.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

// Tick logs at debug level, it runs on every loop iteration.
func (lm *loggingMiddleware) Tick(ctx context.Context) (rep node.TickReport, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("tick",
				slog.Uint64("index", rep.Tick),
				slog.String("level", rep.Level.String()),
				slog.Float64("intensity", rep.Intensity),
				slog.Int("executed", len(rep.Executed)),
				slog.Int("deferred", len(rep.Deferred)),
				slog.Bool("timed_out", rep.TimedOut),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Tick failed", args...)

			return
		}
		lm.logger.Debug("Tick completed successfully", args...)
	}(time.Now())

	return lm.svc.Tick(ctx)
}

func (lm *loggingMiddleware) Enqueue(ctx context.Context, kind scheduler.TaskKind) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("task",
				slog.String("kind", kind.String()),
				slog.String("lane", kind.Lane().String()),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Enqueue task failed", args...)

			return
		}
		lm.logger.Info("Enqueue task completed successfully", args...)
	}(time.Now())

	return lm.svc.Enqueue(ctx, kind)
}

func (lm *loggingMiddleware) Status(ctx context.Context) (st node.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("tick", st.Tick),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get status failed", args...)

			return
		}
		lm.logger.Info("Get status completed successfully", args...)
	}(time.Now())

	return lm.svc.Status(ctx)
}

func (lm *loggingMiddleware) Privacy(ctx context.Context) (ps node.PrivacyStatus, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("privacy",
				slog.Bool("enabled", ps.Enabled),
				slog.Float64("remaining", float64(ps.Remaining)),
				slog.Bool("exhausted", ps.Exhausted),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get privacy failed", args...)

			return
		}
		lm.logger.Info("Get privacy completed successfully", args...)
	}(time.Now())

	return lm.svc.Privacy(ctx)
}

func (lm *loggingMiddleware) ResetPrivacy(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Reset privacy budget failed", args...)

			return
		}
		lm.logger.Info("Reset privacy budget completed successfully", args...)
	}(time.Now())

	return lm.svc.ResetPrivacy(ctx)
}

func (lm *loggingMiddleware) Submit(ctx context.Context, input string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("input_chars", len(input)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Submit input failed", args...)

			return
		}
		lm.logger.Info("Submit input completed successfully", args...)
	}(time.Now())

	return lm.svc.Submit(ctx, input)
}
