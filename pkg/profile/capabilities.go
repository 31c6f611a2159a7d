package profile

import (
	"context"
	"log/slog"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	heavyCores    = 8
	heavyRAMMB    = 16_000
	heavyVRAMMB   = 8_000
	mobileCores   = 4
	mobileRAMMB   = 8_000
	bytesPerMB    = 1024 * 1024
	fallbackCores = 4
	fallbackRAMMB = 8_192
)

type Capabilities struct {
	CPUCores  int    `json:"cpu_cores"`
	RAMMB     uint64 `json:"ram_mb"`
	HasGPU    bool   `json:"has_dedicated_gpu"`
	GPUVRAMMB uint64 `json:"gpu_vram_mb"`
}

func Fallback() Capabilities {
	return Capabilities{
		CPUCores: fallbackCores,
		RAMMB:    fallbackRAMMB,
	}
}

func (c Capabilities) Classify() Tier {
	switch {
	case c.HasGPU && c.GPUVRAMMB >= heavyVRAMMB && c.CPUCores >= heavyCores && c.RAMMB >= heavyRAMMB:
		return HeavyGPU
	case !c.HasGPU && c.CPUCores >= heavyCores && c.RAMMB >= heavyRAMMB:
		return HeavyCPU
	case c.CPUCores <= mobileCores || c.RAMMB <= mobileRAMMB:
		return Mobile
	default:
		return Desktop
	}
}

// Detect probes the host. GPU presence cannot be probed portably, so it is
// taken from gpuVRAMMB (zero means no dedicated GPU). Probe failures fall
// back to the values of Fallback.
func Detect(ctx context.Context, gpuVRAMMB uint64, logger *slog.Logger) Capabilities {
	caps := Fallback()
	caps.HasGPU = gpuVRAMMB > 0
	caps.GPUVRAMMB = gpuVRAMMB

	cores, err := cpu.CountsWithContext(ctx, true)
	switch {
	case err != nil:
		logger.Warn("failed to detect CPU cores, using fallback", slog.Int("cores", fallbackCores), slog.Any("error", err))
	case cores > 0:
		caps.CPUCores = cores
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	switch {
	case err != nil:
		logger.Warn("failed to detect RAM, using fallback", slog.Int("ram_mb", fallbackRAMMB), slog.Any("error", err))
	case vm.Total > 0:
		caps.RAMMB = vm.Total / bytesPerMB
	}

	return caps
}
