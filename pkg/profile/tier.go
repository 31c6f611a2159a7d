package profile

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownTier = errors.New("unknown node tier")

// Tier is the capability class of the host the node runs on.
type Tier uint8

const (
	Desktop Tier = iota
	HeavyGPU
	HeavyCPU
	Mobile
)

func (t Tier) IsHeavy() bool {
	return t == HeavyGPU || t == HeavyCPU
}

func (t Tier) HasDedicatedGPU() bool {
	return t == HeavyGPU
}

// ComputePower is the relative compute capacity, 1.0 being the strongest tier.
func (t Tier) ComputePower() float64 {
	switch t {
	case HeavyGPU:
		return 1.0
	case HeavyCPU:
		return 0.7
	case Mobile:
		return 0.2
	default:
		return 0.4
	}
}

func (t Tier) MaxParallelWorkers() int {
	switch t {
	case HeavyGPU:
		return 8
	case HeavyCPU:
		return 6
	case Mobile:
		return 1
	default:
		return 3
	}
}

func (t Tier) CanTrain() bool {
	return t != Mobile
}

func (t Tier) String() string {
	switch t {
	case HeavyGPU:
		return "heavy-gpu"
	case HeavyCPU:
		return "heavy-cpu"
	case Mobile:
		return "mobile"
	case Desktop:
		return "desktop"
	default:
		return "unknown"
	}
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(text []byte) error {
	tier, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = tier

	return nil
}

func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "heavy-gpu", "heavygpu", "heavy_gpu":
		return HeavyGPU, nil
	case "heavy-cpu", "heavycpu", "heavy_cpu":
		return HeavyCPU, nil
	case "desktop", "":
		return Desktop, nil
	case "mobile":
		return Mobile, nil
	default:
		return Desktop, fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
}
