package observer

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/absmach/cortex/pkg/inference"
	"github.com/absmach/cortex/pkg/policy"
)

const latencyAlpha = 0.1

type LatencyStats struct {
	LastMS float64 `json:"last_ms"`
	AvgMS  float64 `json:"avg_ms"`
	MinMS  float64 `json:"min_ms"`
	MaxMS  float64 `json:"max_ms"`
}

type TrafficStats struct {
	InputChars  uint64 `json:"input_chars"`
	OutputChars uint64 `json:"output_chars"`
	Tokens      uint64 `json:"tokens"`
}

type InferenceSnapshot struct {
	TotalRequests uint64            `json:"total_requests"`
	Latency       LatencyStats      `json:"latency"`
	Traffic       TrafficStats      `json:"traffic"`
	Decisions     map[string]uint64 `json:"decisions"`
	Modes         map[string]uint64 `json:"modes"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// MetaObserver aggregates statistics over the inference requests served
// by the node.
type MetaObserver struct {
	mu        sync.RWMutex
	total     uint64
	latency   LatencyStats
	traffic   TrafficStats
	decisions map[policy.Kind]uint64
	modes     map[inference.Mode]uint64
	updatedAt time.Time
}

func NewMetaObserver() *MetaObserver {
	return &MetaObserver{
		decisions: make(map[policy.Kind]uint64),
		modes:     make(map[inference.Mode]uint64),
	}
}

func (m *MetaObserver) ObserveInference(input string, out inference.Output, d policy.Decision, latency time.Duration) {
	ms := float64(latency) / float64(time.Millisecond)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.latency.LastMS = ms
	if m.total == 1 {
		m.latency.AvgMS, m.latency.MinMS, m.latency.MaxMS = ms, ms, ms
	} else {
		m.latency.AvgMS = (1-latencyAlpha)*m.latency.AvgMS + latencyAlpha*ms
		m.latency.MinMS = min(m.latency.MinMS, ms)
		m.latency.MaxMS = max(m.latency.MaxMS, ms)
	}

	m.traffic.InputChars += uint64(utf8.RuneCountInString(input))
	m.traffic.OutputChars += uint64(utf8.RuneCountInString(out.Text))
	if out.Tokens > 0 {
		m.traffic.Tokens += uint64(out.Tokens)
	}

	m.decisions[d.Kind]++
	m.modes[out.Mode]++
	m.updatedAt = time.Now()
}

func (m *MetaObserver) Snapshot() InferenceSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := InferenceSnapshot{
		TotalRequests: m.total,
		Latency:       m.latency,
		Traffic:       m.traffic,
		Decisions:     make(map[string]uint64, len(m.decisions)),
		Modes:         make(map[string]uint64, len(m.modes)),
		UpdatedAt:     m.updatedAt,
	}
	for k, v := range m.decisions {
		snap.Decisions[k.String()] = v
	}
	for k, v := range m.modes {
		snap.Modes[k.String()] = v
	}

	return snap
}

func (m *MetaObserver) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total = 0
	m.latency = LatencyStats{}
	m.traffic = TrafficStats{}
	m.decisions = make(map[policy.Kind]uint64)
	m.modes = make(map[inference.Mode]uint64)
	m.updatedAt = time.Time{}
}
