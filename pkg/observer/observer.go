// Package observer receives the signals emitted by the node: per-tick
// metrics, per-round training statistics and per-request inference
// statistics.
package observer

import (
	"time"

	"github.com/absmach/cortex/pkg/throttle"
	"github.com/absmach/cortex/pkg/trainer"
)

type TickMetrics struct {
	NodeID    string         `json:"node_id"`
	Tick      uint64         `json:"tick"`
	LatencyMS float64        `json:"latency_ms"`
	Level     throttle.Level `json:"level"`
	Intensity float64        `json:"intensity"`
	Tasks     int            `json:"tasks"`
	TimedOut  bool           `json:"timed_out"`
	At        time.Time      `json:"at"`
}

type Observer interface {
	ObserveTick(m TickMetrics)
	ObserveRound(s trainer.RoundStats)
}

type fanout []Observer

// Fanout forwards every signal to each observer in order. Nil observers
// are dropped.
func Fanout(observers ...Observer) Observer {
	var f fanout
	for _, o := range observers {
		if o != nil {
			f = append(f, o)
		}
	}

	return f
}

func (f fanout) ObserveTick(m TickMetrics) {
	for _, o := range f {
		o.ObserveTick(m)
	}
}

func (f fanout) ObserveRound(s trainer.RoundStats) {
	for _, o := range f {
		o.ObserveRound(s)
	}
}

type noop struct{}

func Noop() Observer {
	return noop{}
}

func (noop) ObserveTick(TickMetrics) {}

func (noop) ObserveRound(trainer.RoundStats) {}
