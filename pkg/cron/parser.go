// Package cron schedules periodic node maintenance such as training
// session rotation.
package cron

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrInvalidCronExpression = errors.New("invalid cron expression")

// Five field expressions and descriptors such as "@daily" or "@every 6h".
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type Schedule struct {
	expr string
	spec cron.Schedule
}

func ParseCronExpression(expr string) (*Schedule, error) {
	if expr == "" {
		return nil, ErrInvalidCronExpression
	}

	spec, err := parser.Parse(expr)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronExpression, err)
	}

	return &Schedule{expr: expr, spec: spec}, nil
}

func ValidateCronExpression(expr string) error {
	_, err := ParseCronExpression(expr)

	return err
}

func (s *Schedule) String() string {
	return s.expr
}

// CalculateNextRun evaluates the schedule in timezone, falling back to
// UTC when the zone is unknown.
func CalculateNextRun(schedule *Schedule, from time.Time, timezone string) time.Time {
	if schedule == nil || schedule.spec == nil {
		return time.Time{}
	}

	return schedule.spec.Next(from.In(location(timezone)))
}

func location(timezone string) *time.Location {
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}
