package scheduler

import (
	"errors"
	"fmt"

	pkgerrors "github.com/absmach/cortex/pkg/errors"
)

type Config struct {
	CriticalWeight   uint32  `env:"CRITICAL_WEIGHT"     envDefault:"10"    toml:"critical_weight"     yaml:"critical_weight"`
	NormalWeight     uint32  `env:"NORMAL_WEIGHT"       envDefault:"5"     toml:"normal_weight"       yaml:"normal_weight"`
	BackgroundWeight uint32  `env:"BACKGROUND_WEIGHT"   envDefault:"1"     toml:"background_weight"   yaml:"background_weight"`
	MaxBudgetPerTick float64 `env:"MAX_BUDGET_PER_TICK" envDefault:"0.9"   toml:"max_budget_per_tick" yaml:"max_budget_per_tick"`
	TrainingEvery    uint64  `env:"TRAINING_EVERY"      envDefault:"10"    toml:"training_every"      yaml:"training_every"`
	DeltaEvery       uint64  `env:"DELTA_EVERY"         envDefault:"100"   toml:"delta_every"         yaml:"delta_every"`
	MetricsEvery     uint64  `env:"METRICS_EVERY"       envDefault:"1000"  toml:"metrics_every"       yaml:"metrics_every"`
	SnapshotEvery    uint64  `env:"SNAPSHOT_EVERY"      envDefault:"10000" toml:"snapshot_every"      yaml:"snapshot_every"`
	UpdateCheckEvery uint64  `env:"UPDATE_CHECK_EVERY"  envDefault:"50000" toml:"update_check_every"  yaml:"update_check_every"`
}

func DefaultConfig() Config {
	return Config{
		CriticalWeight:   Critical.Weight(),
		NormalWeight:     Normal.Weight(),
		BackgroundWeight: Background.Weight(),
		MaxBudgetPerTick: 0.9,
		TrainingEvery:    10,
		DeltaEvery:       100,
		MetricsEvery:     1_000,
		SnapshotEvery:    10_000,
		UpdateCheckEvery: 50_000,
	}
}

func (c Config) Validate() error {
	if c.MaxBudgetPerTick < 0 || c.MaxBudgetPerTick > 1 {
		return errors.Join(pkgerrors.ErrInvalidConfig, fmt.Errorf("max budget per tick %v outside [0, 1]", c.MaxBudgetPerTick))
	}
	cadences := map[string]uint64{
		"training":     c.TrainingEvery,
		"delta":        c.DeltaEvery,
		"metrics":      c.MetricsEvery,
		"snapshot":     c.SnapshotEvery,
		"update check": c.UpdateCheckEvery,
	}
	for name, every := range cadences {
		if every == 0 {
			return errors.Join(pkgerrors.ErrInvalidConfig, fmt.Errorf("%s cadence must be positive", name))
		}
	}

	return nil
}

func (c Config) weight(l Lane) uint32 {
	switch l {
	case Critical:
		return c.CriticalWeight
	case Normal:
		return c.NormalWeight
	case Background:
		return c.BackgroundWeight
	default:
		return 0
	}
}
