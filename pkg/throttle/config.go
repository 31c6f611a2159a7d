package throttle

import (
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/absmach/cortex/pkg/errors"
	"github.com/absmach/cortex/pkg/profile"
)

// Config holds the PID gains and the thresholds deriving the level.
type Config struct {
	TargetLatencyMS     float64 `json:"target_latency_ms"     toml:"target_latency_ms"     yaml:"target_latency_ms"`
	Kp                  float64 `json:"kp"                    toml:"kp"                    yaml:"kp"`
	Ki                  float64 `json:"ki"                    toml:"ki"                    yaml:"ki"`
	Kd                  float64 `json:"kd"                    toml:"kd"                    yaml:"kd"`
	SurvivalThresholdMS float64 `json:"survival_threshold_ms" toml:"survival_threshold_ms" yaml:"survival_threshold_ms"`
	ThrottledThreshold  float64 `json:"throttled_threshold"   toml:"throttled_threshold"   yaml:"throttled_threshold"`
}

func Heavy() Config {
	return Config{
		TargetLatencyMS:     10,
		Kp:                  0.05,
		Ki:                  0.001,
		Kd:                  0.01,
		SurvivalThresholdMS: 100,
		ThrottledThreshold:  0.7,
	}
}

func Desktop() Config {
	return Config{
		TargetLatencyMS:     50,
		Kp:                  0.03,
		Ki:                  0.0005,
		Kd:                  0.005,
		SurvivalThresholdMS: 200,
		ThrottledThreshold:  0.6,
	}
}

func Mobile() Config {
	return Config{
		TargetLatencyMS:     200,
		Kp:                  0.02,
		Ki:                  0.0002,
		Kd:                  0.002,
		SurvivalThresholdMS: 500,
		ThrottledThreshold:  0.5,
	}
}

func DefaultConfig() Config {
	return Desktop()
}

func ForProfile(t profile.Tier) Config {
	switch t {
	case profile.HeavyGPU, profile.HeavyCPU:
		return Heavy()
	case profile.Mobile:
		return Mobile()
	default:
		return Desktop()
	}
}

// Preset resolves a preset by name. "auto" selects the preset of tier.
func Preset(name string, tier profile.Tier) (Config, error) {
	if IsAuto(name) {
		return ForProfile(tier), nil
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "heavy":
		return Heavy(), nil
	case "desktop":
		return Desktop(), nil
	case "mobile":
		return Mobile(), nil
	default:
		return Config{}, errors.Join(pkgerrors.ErrInvalidConfig, fmt.Errorf("unknown throttle preset %q", name))
	}
}

func (c Config) Validate() error {
	switch {
	case c.TargetLatencyMS <= 0:
		return errors.Join(pkgerrors.ErrInvalidConfig, errors.New("target latency must be positive"))
	case c.SurvivalThresholdMS < c.TargetLatencyMS:
		return errors.Join(pkgerrors.ErrInvalidConfig, errors.New("survival threshold below target latency"))
	case c.ThrottledThreshold < 0 || c.ThrottledThreshold > 1:
		return errors.Join(pkgerrors.ErrInvalidConfig, errors.New("throttled threshold outside [0, 1]"))
	}

	return nil
}

// IsAuto reports whether name selects the preset from the tier.
func IsAuto(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return true
	default:
		return false
	}
}
