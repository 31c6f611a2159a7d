// Package monitoring samples resource usage of the node process.
package monitoring

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

type ProcessMetrics struct {
	CPUPercent          float64   `json:"cpu_percent"`
	MemoryBytes         uint64    `json:"memory_bytes"`
	MemoryPercent       float32   `json:"memory_percent"`
	HeapAllocBytes      uint64    `json:"heap_alloc_bytes"`
	DiskReadBytes       uint64    `json:"disk_read_bytes"`
	DiskWriteBytes      uint64    `json:"disk_write_bytes"`
	NetworkRxBytes      uint64    `json:"network_rx_bytes"`
	NetworkTxBytes      uint64    `json:"network_tx_bytes"`
	UptimeSeconds       int64     `json:"uptime_seconds"`
	ThreadCount         int32     `json:"thread_count"`
	FileDescriptorCount int32     `json:"file_descriptor_count,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}

type AggregatedMetrics struct {
	AvgCPUUsage    float64 `json:"avg_cpu_usage"`
	MaxCPUUsage    float64 `json:"max_cpu_usage"`
	AvgMemoryUsage uint64  `json:"avg_memory_usage"`
	MaxMemoryUsage uint64  `json:"max_memory_usage"`
	TotalDiskRead  uint64  `json:"total_disk_read"`
	TotalDiskWrite uint64  `json:"total_disk_write"`
	TotalNetworkRx uint64  `json:"total_network_rx"`
	TotalNetworkTx uint64  `json:"total_network_tx"`
	SampleCount    int     `json:"sample_count"`
}

// ProcessMonitor samples one process. Collection failures of individual
// metrics leave the field zero.
type ProcessMonitor struct {
	mu           sync.RWMutex
	profile      Profile
	proc         *process.Process
	startTime    time.Time
	initialNetIO *net.IOCountersStat
	history      []ProcessMetrics
}

func NewProcessMonitor(pid int32, profile Profile) (*ProcessMonitor, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return nil, err
	}

	m := &ProcessMonitor{
		profile:   profile,
		proc:      proc,
		startTime: time.Now(),
		history:   make([]ProcessMetrics, 0, max(profile.HistorySize, 0)),
	}

	if profile.CollectNetworkIO {
		if counters, err := net.IOCounters(false); err == nil && len(counters) > 0 {
			m.initialNetIO = &counters[0]
		}
	}

	return m, nil
}

func (m *ProcessMonitor) Profile() Profile {
	return m.profile
}

func (m *ProcessMonitor) Sample(ctx context.Context) (ProcessMetrics, error) {
	metrics := ProcessMetrics{
		Timestamp:     time.Now().UTC(),
		UptimeSeconds: int64(time.Since(m.startTime).Seconds()),
	}
	if !m.profile.Enabled {
		return metrics, nil
	}
	if err := ctx.Err(); err != nil {
		return ProcessMetrics{}, err
	}

	if m.profile.CollectCPU {
		if cpu, err := m.proc.CPUPercentWithContext(ctx); err == nil {
			metrics.CPUPercent = cpu
		}
	}

	if m.profile.CollectMemory {
		if info, err := m.proc.MemoryInfoWithContext(ctx); err == nil {
			metrics.MemoryBytes = info.RSS
		}
		if pct, err := m.proc.MemoryPercentWithContext(ctx); err == nil {
			metrics.MemoryPercent = pct
		}

		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		metrics.HeapAllocBytes = ms.HeapAlloc
	}

	if m.profile.CollectDiskIO {
		if io, err := m.proc.IOCountersWithContext(ctx); err == nil {
			metrics.DiskReadBytes = io.ReadBytes
			metrics.DiskWriteBytes = io.WriteBytes
		}
	}

	if m.profile.CollectNetworkIO && m.initialNetIO != nil {
		if counters, err := net.IOCountersWithContext(ctx, false); err == nil && len(counters) > 0 {
			metrics.NetworkRxBytes = counters[0].BytesRecv - m.initialNetIO.BytesRecv
			metrics.NetworkTxBytes = counters[0].BytesSent - m.initialNetIO.BytesSent
		}
	}

	if m.profile.CollectThreads {
		if n, err := m.proc.NumThreadsWithContext(ctx); err == nil {
			metrics.ThreadCount = n
		}
	}

	if m.profile.CollectFileDescriptors && (runtime.GOOS == "linux" || runtime.GOOS == "darwin") {
		if n, err := m.proc.NumFDsWithContext(ctx); err == nil {
			metrics.FileDescriptorCount = n
		}
	}

	m.record(metrics)

	return metrics, nil
}

func (m *ProcessMonitor) record(metrics ProcessMetrics) {
	if !m.profile.RetainHistory || m.profile.HistorySize <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, metrics)
	if over := len(m.history) - m.profile.HistorySize; over > 0 {
		m.history = m.history[over:]
	}
}

func (m *ProcessMonitor) History() []ProcessMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := make([]ProcessMetrics, len(m.history))
	copy(history, m.history)

	return history
}

// Aggregated summarises the retained history. It returns false when no
// samples are retained.
func (m *ProcessMonitor) Aggregated() (AggregatedMetrics, bool) {
	return Aggregate(m.History())
}

func Aggregate(history []ProcessMetrics) (AggregatedMetrics, bool) {
	if len(history) == 0 {
		return AggregatedMetrics{}, false
	}

	agg := AggregatedMetrics{SampleCount: len(history)}

	var totalCPU float64
	var totalMemory uint64
	for _, s := range history {
		totalCPU += s.CPUPercent
		totalMemory += s.MemoryBytes
		agg.MaxCPUUsage = max(agg.MaxCPUUsage, s.CPUPercent)
		agg.MaxMemoryUsage = max(agg.MaxMemoryUsage, s.MemoryBytes)
	}
	agg.AvgCPUUsage = totalCPU / float64(len(history))
	agg.AvgMemoryUsage = totalMemory / uint64(len(history))

	first, last := history[0], history[len(history)-1]
	agg.TotalDiskRead = delta(first.DiskReadBytes, last.DiskReadBytes)
	agg.TotalDiskWrite = delta(first.DiskWriteBytes, last.DiskWriteBytes)
	agg.TotalNetworkRx = delta(first.NetworkRxBytes, last.NetworkRxBytes)
	agg.TotalNetworkTx = delta(first.NetworkTxBytes, last.NetworkTxBytes)

	return agg, true
}

func delta(first, last uint64) uint64 {
	if last < first {
		return 0
	}

	return last - first
}
