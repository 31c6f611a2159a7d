package throttle

import (
	"time"

	"github.com/absmach/cortex/pkg/profile"
)

const (
	emaAlpha       = 0.1
	integralLimit  = 10.0
	outputGain     = 0.1
	minDeltaSecond = 1e-6
	retuneMS       = 1.0
)

type Option func(*AdaptiveThrottle)

// WithClock replaces the wall clock used to measure the PID time step.
func WithClock(now func() time.Time) Option {
	return func(t *AdaptiveThrottle) {
		t.now = now
	}
}

// Snapshot is a read-only copy of the throttle state.
type Snapshot struct {
	Level           Level   `json:"level"`
	Intensity       float64 `json:"intensity"`
	AllowBackground bool    `json:"allow_background"`
	LastLatencyMS   float64 `json:"last_latency_ms"`
	AvgLatencyMS    float64 `json:"avg_latency_ms"`
	TickCount       uint64  `json:"tick_count"`
	Config          Config  `json:"config"`
}

// AdaptiveThrottle turns observed tick latency into a level and a
// continuous intensity through a PID controller. The level is recomputed
// from every sample, without hysteresis. It has a single owner and no
// internal locking.
type AdaptiveThrottle struct {
	config    Config
	level     Level
	intensity float64

	integral   float64
	lastError  float64
	lastUpdate time.Time

	lastLatencyMS float64
	avgLatencyMS  float64
	samples       uint64
	tickCount     uint64

	now func() time.Time
}

func New(cfg Config, opts ...Option) *AdaptiveThrottle {
	t := &AdaptiveThrottle{
		config: cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.Reset()

	return t
}

// Update re-selects the preset of tier when its target latency differs
// from the active one by more than a millisecond, then counts the tick.
func (t *AdaptiveThrottle) Update(tier profile.Tier) {
	expected := ForProfile(tier)
	if abs(t.config.TargetLatencyMS-expected.TargetLatencyMS) > retuneMS {
		t.config = expected
	}
	t.CountTick()
}

// CountTick counts a tick without touching the active preset.
func (t *AdaptiveThrottle) CountTick() {
	t.tickCount++
}

func (t *AdaptiveThrottle) RecordTickLatency(latency time.Duration) {
	ms := float64(latency) / float64(time.Millisecond)
	t.lastLatencyMS = ms

	t.samples++
	if t.samples == 1 {
		t.avgLatencyMS = ms
	} else {
		t.avgLatencyMS = (1-emaAlpha)*t.avgLatencyMS + emaAlpha*ms
	}

	t.step(ms)
	t.updateLevel()
}

func (t *AdaptiveThrottle) step(latencyMS float64) {
	now := t.now()
	dt := now.Sub(t.lastUpdate).Seconds()
	t.lastUpdate = now

	if dt < minDeltaSecond {
		return
	}

	err := t.config.TargetLatencyMS - latencyMS

	p := t.config.Kp * err

	t.integral = clamp(t.integral+err*dt, -integralLimit, integralLimit)
	i := t.config.Ki * t.integral

	d := t.config.Kd * (err - t.lastError) / dt
	t.lastError = err

	t.intensity = clamp(1+(p+i+d)*outputGain, 0, 1)
}

func (t *AdaptiveThrottle) updateLevel() {
	switch {
	case t.lastLatencyMS > t.config.SurvivalThresholdMS:
		t.level = Survival
		t.intensity = 0
	case t.intensity < t.config.ThrottledThreshold:
		t.level = Throttled
	default:
		t.level = Normal
	}
}

func (t *AdaptiveThrottle) AllowBackground() bool {
	return t.level.AllowsBackground()
}

func (t *AdaptiveThrottle) Level() Level {
	return t.level
}

func (t *AdaptiveThrottle) Intensity() float64 {
	return t.intensity
}

func (t *AdaptiveThrottle) LastLatencyMS() float64 {
	return t.lastLatencyMS
}

func (t *AdaptiveThrottle) AvgLatencyMS() float64 {
	return t.avgLatencyMS
}

func (t *AdaptiveThrottle) TickCount() uint64 {
	return t.tickCount
}

func (t *AdaptiveThrottle) Config() Config {
	return t.config
}

func (t *AdaptiveThrottle) Snapshot() Snapshot {
	return Snapshot{
		Level:           t.level,
		Intensity:       t.intensity,
		AllowBackground: t.AllowBackground(),
		LastLatencyMS:   t.lastLatencyMS,
		AvgLatencyMS:    t.avgLatencyMS,
		TickCount:       t.tickCount,
		Config:          t.config,
	}
}

// Reset restores the controller and telemetry to their initial values.
// The active config is kept.
func (t *AdaptiveThrottle) Reset() {
	t.level = Normal
	t.intensity = 1
	t.integral = 0
	t.lastError = 0
	t.lastUpdate = t.now()
	t.lastLatencyMS = 0
	t.avgLatencyMS = 0
	t.samples = 0
	t.tickCount = 0
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}
