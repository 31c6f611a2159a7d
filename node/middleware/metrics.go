package middleware

import (
	"context"
	"time"

	"github.com/absmach/cortex/node"
	"github.com/absmach/cortex/pkg/scheduler"
	"github.com/go-kit/kit/metrics"
)

var _ node.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     node.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc node.Service) node.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) Tick(ctx context.Context) (node.TickReport, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "tick").Add(1)
		mm.latency.With("method", "tick").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Tick(ctx)
}

func (mm *metricsMiddleware) Enqueue(ctx context.Context, kind scheduler.TaskKind) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "enqueue").Add(1)
		mm.latency.With("method", "enqueue").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Enqueue(ctx, kind)
}

func (mm *metricsMiddleware) Status(ctx context.Context) (node.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "status").Add(1)
		mm.latency.With("method", "status").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Status(ctx)
}

func (mm *metricsMiddleware) Privacy(ctx context.Context) (node.PrivacyStatus, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "privacy").Add(1)
		mm.latency.With("method", "privacy").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Privacy(ctx)
}

func (mm *metricsMiddleware) ResetPrivacy(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "reset-privacy").Add(1)
		mm.latency.With("method", "reset-privacy").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ResetPrivacy(ctx)
}

func (mm *metricsMiddleware) Submit(ctx context.Context, input string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "submit").Add(1)
		mm.latency.With("method", "submit").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Submit(ctx, input)
}
