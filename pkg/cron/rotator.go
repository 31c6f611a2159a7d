package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Rotator calls rotate at every instant of a schedule.
type Rotator struct {
	cron     *cron.Cron
	schedule *Schedule
	logger   *slog.Logger
}

func NewRotator(schedule *Schedule, timezone string, rotate func(), logger *slog.Logger) *Rotator {
	c := cron.New(
		cron.WithLocation(location(timezone)),
		cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	r := &Rotator{
		cron:     c,
		schedule: schedule,
		logger:   logger,
	}
	c.Schedule(schedule.spec, cron.FuncJob(func() {
		rotate()
		r.logger.Info("rotated training session", slog.String("schedule", schedule.String()), slog.Time("next", r.Next()))
	}))

	return r
}

// Run blocks until ctx is done, then waits for a running rotation.
func (r *Rotator) Run(ctx context.Context) error {
	r.cron.Start()
	r.logger.Info("session rotation scheduled", slog.String("schedule", r.schedule.String()), slog.Time("next", r.Next()))

	<-ctx.Done()
	<-r.cron.Stop().Done()

	return nil
}

func (r *Rotator) Next() time.Time {
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}

	return entries[0].Next
}
