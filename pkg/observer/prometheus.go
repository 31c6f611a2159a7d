package observer

import (
	"github.com/absmach/cortex/pkg/trainer"
	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

var _ Observer = (*Prometheus)(nil)

// Prometheus exports tick and round signals as go-kit metrics.
type Prometheus struct {
	tickLatency metrics.Histogram
	intensity   metrics.Gauge
	level       metrics.Gauge
	timeouts    metrics.Counter
	rounds      metrics.Counter
	batches     metrics.Counter
	epsilon     metrics.Gauge
	remaining   metrics.Gauge
}

func NewPrometheus(namespace string) *Prometheus {
	return &Prometheus{
		tickLatency: kitprometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tick",
			Name:      "latency_seconds",
			Help:      "Wall time of a node tick.",
			Buckets:   stdprometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"level"}),
		intensity: kitprometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "throttle",
			Name:      "intensity",
			Help:      "Background work intensity.",
		}, nil),
		level: kitprometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "throttle",
			Name:      "level",
			Help:      "Throttle level: 0 normal, 1 throttled, 2 survival.",
		}, nil),
		timeouts: kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tick",
			Name:      "timeouts_total",
			Help:      "Ticks in which an external call timed out.",
		}, nil),
		rounds: kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "rounds_total",
			Help:      "Training rounds that processed at least one batch.",
		}, nil),
		batches: kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "batches_total",
			Help:      "Batches processed by training rounds.",
		}, nil),
		epsilon: kitprometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "privacy",
			Name:      "epsilon_total",
			Help:      "Cumulative privacy loss.",
		}, nil),
		remaining: kitprometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "privacy",
			Name:      "epsilon_remaining",
			Help:      "Remaining privacy budget.",
		}, nil),
	}
}

func (p *Prometheus) ObserveTick(m TickMetrics) {
	p.tickLatency.With("level", m.Level.String()).Observe(m.LatencyMS / 1000)
	p.intensity.Set(m.Intensity)
	p.level.Set(float64(m.Level))
	if m.TimedOut {
		p.timeouts.Add(1)
	}
}

func (p *Prometheus) ObserveRound(s trainer.RoundStats) {
	if s.BatchesProcessed > 0 {
		p.rounds.Add(1)
		p.batches.Add(float64(s.BatchesProcessed))
	}
	p.epsilon.Set(float64(s.EpsilonTotal))
	p.remaining.Set(float64(s.EpsilonRemaining))
}
