package monitoring

import (
	"fmt"
	"time"

	"github.com/absmach/cortex/pkg/errors"
)

type Profile struct {
	Enabled                bool          `json:"enabled"`
	Interval               time.Duration `json:"interval"`
	CollectCPU             bool          `json:"collect_cpu"`
	CollectMemory          bool          `json:"collect_memory"`
	CollectDiskIO          bool          `json:"collect_disk_io"`
	CollectNetworkIO       bool          `json:"collect_network_io"`
	CollectThreads         bool          `json:"collect_threads"`
	CollectFileDescriptors bool          `json:"collect_file_descriptors"`
	RetainHistory          bool          `json:"retain_history"`
	HistorySize            int           `json:"history_size"`
}

func StandardProfile() Profile {
	return Profile{
		Enabled:                true,
		Interval:               10 * time.Second,
		CollectCPU:             true,
		CollectMemory:          true,
		CollectDiskIO:          true,
		CollectNetworkIO:       true,
		CollectThreads:         true,
		CollectFileDescriptors: true,
		RetainHistory:          true,
		HistorySize:            100,
	}
}

// MinimalProfile suits mobile nodes.
func MinimalProfile() Profile {
	return Profile{
		Enabled:       true,
		Interval:      60 * time.Second,
		CollectCPU:    true,
		CollectMemory: true,
		RetainHistory: true,
		HistorySize:   10,
	}
}

func IntensiveProfile() Profile {
	return Profile{
		Enabled:                true,
		Interval:               time.Second,
		CollectCPU:             true,
		CollectMemory:          true,
		CollectDiskIO:          true,
		CollectNetworkIO:       true,
		CollectThreads:         true,
		CollectFileDescriptors: true,
		RetainHistory:          true,
		HistorySize:            1000,
	}
}

func DisabledProfile() Profile {
	return Profile{Interval: 60 * time.Second}
}

func ProfileByName(name string) (Profile, error) {
	switch name {
	case "standard", "":
		return StandardProfile(), nil
	case "minimal":
		return MinimalProfile(), nil
	case "intensive":
		return IntensiveProfile(), nil
	case "disabled":
		return DisabledProfile(), nil
	default:
		return Profile{}, fmt.Errorf("%w: unknown monitoring profile %q", errors.ErrInvalidConfig, name)
	}
}
