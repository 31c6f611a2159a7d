package trainer

import (
	"errors"
	"math"

	"github.com/absmach/cortex/pkg/dp"
	pkgerrors "github.com/absmach/cortex/pkg/errors"
)

// Config controls DP training. A non-positive EpsilonBudget means the
// budget is unlimited. MaxBatchesPerRound of zero means no cap.
type Config struct {
	DP                 dp.Config `json:"dp"                    toml:"dp"                    yaml:"dp"`
	LearningRate       float32   `json:"learning_rate"         toml:"learning_rate"         yaml:"learning_rate"`
	EpsilonBudget      float32   `json:"epsilon_budget"        toml:"epsilon_budget"        yaml:"epsilon_budget"`
	EpsilonPerRound    float32   `json:"epsilon_per_round"     toml:"epsilon_per_round"     yaml:"epsilon_per_round"`
	MaxBatchesPerRound uint32    `json:"max_batches_per_round" toml:"max_batches_per_round" yaml:"max_batches_per_round"`
}

// FromDP charges the mechanism's epsilon once per round.
func FromDP(cfg dp.Config, learningRate, budget float32) Config {
	return Config{
		DP:              cfg,
		LearningRate:    learningRate,
		EpsilonBudget:   budget,
		EpsilonPerRound: cfg.Epsilon,
	}
}

func SafeDefault() Config {
	return FromDP(dp.Moderate(), 0.01, 10)
}

func (c Config) effectiveBudget() float32 {
	if c.EpsilonBudget > 0 {
		return c.EpsilonBudget
	}

	return math.MaxFloat32 / 2
}

func (c Config) maxBatches() uint32 {
	if c.MaxBatchesPerRound == 0 {
		return math.MaxUint32
	}

	return c.MaxBatchesPerRound
}

func (c Config) Validate() error {
	if err := c.DP.Validate(); err != nil {
		return err
	}
	if c.LearningRate <= 0 {
		return errors.Join(pkgerrors.ErrInvalidConfig, errors.New("learning rate must be positive"))
	}
	if c.EpsilonPerRound < 0 {
		return errors.Join(pkgerrors.ErrInvalidConfig, errors.New("epsilon per round must not be negative"))
	}

	return nil
}
