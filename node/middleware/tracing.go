package middleware

import (
	"context"

	"github.com/absmach/cortex/node"
	"github.com/absmach/cortex/pkg/scheduler"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ node.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    node.Service
}

func Tracing(tracer trace.Tracer, svc node.Service) node.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Tick(ctx context.Context) (node.TickReport, error) {
	ctx, span := tm.tracer.Start(ctx, "tick")
	defer span.End()

	rep, err := tm.svc.Tick(ctx)
	span.SetAttributes(
		attribute.Int64("tick", int64(rep.Tick)),
		attribute.String("level", rep.Level.String()),
		attribute.Float64("intensity", rep.Intensity),
		attribute.Bool("timed_out", rep.TimedOut),
	)

	return rep, err
}

func (tm *tracing) Enqueue(ctx context.Context, kind scheduler.TaskKind) error {
	ctx, span := tm.tracer.Start(ctx, "enqueue", trace.WithAttributes(
		attribute.String("kind", kind.String()),
		attribute.String("lane", kind.Lane().String()),
	))
	defer span.End()

	return tm.svc.Enqueue(ctx, kind)
}

func (tm *tracing) Status(ctx context.Context) (node.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "status")
	defer span.End()

	return tm.svc.Status(ctx)
}

func (tm *tracing) Privacy(ctx context.Context) (node.PrivacyStatus, error) {
	ctx, span := tm.tracer.Start(ctx, "privacy")
	defer span.End()

	return tm.svc.Privacy(ctx)
}

func (tm *tracing) ResetPrivacy(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "reset-privacy")
	defer span.End()

	return tm.svc.ResetPrivacy(ctx)
}

func (tm *tracing) Submit(ctx context.Context, input string) error {
	ctx, span := tm.tracer.Start(ctx, "submit", trace.WithAttributes(
		attribute.Int("input_chars", len(input)),
	))
	defer span.End()

	return tm.svc.Submit(ctx, input)
}
