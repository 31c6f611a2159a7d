package dp

import (
	"errors"
	"fmt"
	"math"
	"strings"

	pkgerrors "github.com/absmach/cortex/pkg/errors"
)

// Config parameterises the Gaussian mechanism. A smaller Epsilon means
// stronger privacy and more noise.
type Config struct {
	Epsilon     float32 `json:"epsilon"       toml:"epsilon"       yaml:"epsilon"`
	Delta       float32 `json:"delta"         toml:"delta"         yaml:"delta"`
	MaxGradNorm float32 `json:"max_grad_norm" toml:"max_grad_norm" yaml:"max_grad_norm"`
}

func Strong() Config {
	return Config{Epsilon: 0.1, Delta: 1e-5, MaxGradNorm: 1}
}

func Moderate() Config {
	return Config{Epsilon: 1, Delta: 1e-5, MaxGradNorm: 1}
}

func Weak() Config {
	return Config{Epsilon: 8, Delta: 1e-5, MaxGradNorm: 1}
}

func DefaultConfig() Config {
	return Moderate()
}

// Preset resolves strong, moderate or weak by name.
func Preset(name string) (Config, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "strong":
		return Strong(), nil
	case "", "moderate":
		return Moderate(), nil
	case "weak":
		return Weak(), nil
	default:
		return Config{}, errors.Join(pkgerrors.ErrInvalidConfig, fmt.Errorf("unknown privacy preset %q", name))
	}
}

// NoiseScale returns sigma = C * sqrt(2 ln(1.25/delta)) / epsilon.
func (c Config) NoiseScale() float32 {
	ln := float32(math.Log(float64(1.25 / c.Delta)))

	return c.MaxGradNorm * float32(math.Sqrt(float64(2*ln))) / c.Epsilon
}

func (c Config) Validate() error {
	switch {
	case c.Epsilon <= 0:
		return errors.Join(pkgerrors.ErrInvalidConfig, errors.New("epsilon must be positive"))
	case c.Delta <= 0 || c.Delta >= 1:
		return errors.Join(pkgerrors.ErrInvalidConfig, errors.New("delta must be in (0, 1)"))
	case c.MaxGradNorm <= 0:
		return errors.Join(pkgerrors.ErrInvalidConfig, errors.New("max gradient norm must be positive"))
	}

	return nil
}
