package fl

import (
	"fmt"
	"slices"

	"github.com/absmach/cortex/pkg/trainer"
)

type Sample struct {
	Features []float32 `json:"features"`
	Label    float32   `json:"label"`
}

var _ trainer.Model[[]Sample] = (*VectorModel)(nil)

// VectorModel is a linear regressor trained on squared error. The last
// parameter is the bias.
type VectorModel struct {
	params []float32
}

func NewVectorModel(features int) *VectorModel {
	return &VectorModel{params: make([]float32, features+1)}
}

func (m *VectorModel) Features() int {
	return len(m.params) - 1
}

func (m *VectorModel) ParamsLen() int {
	return len(m.params)
}

func (m *VectorModel) Params() []float32 {
	return slices.Clone(m.params)
}

func (m *VectorModel) SetParams(params []float32) error {
	if len(params) != len(m.params) {
		return fmt.Errorf("%w: got %d parameters, want %d", ErrDimensionMismatch, len(params), len(m.params))
	}
	copy(m.params, params)

	return nil
}

func (m *VectorModel) Predict(features []float32) float32 {
	n := min(len(features), m.Features())
	y := m.params[len(m.params)-1]
	for i := range n {
		y += m.params[i] * features[i]
	}

	return y
}

// ComputeGradients returns the mean squared error gradient over the
// samples whose dimension matches the model. It returns nil when no
// sample matches.
func (m *VectorModel) ComputeGradients(batch []Sample) []float32 {
	features := m.Features()
	g := make([]float32, len(m.params))

	var n int
	for _, s := range batch {
		if len(s.Features) != features {
			continue
		}
		residual := m.Predict(s.Features) - s.Label
		for i, x := range s.Features {
			g[i] += 2 * residual * x
		}
		g[features] += 2 * residual
		n++
	}
	if n == 0 {
		return nil
	}

	for i := range g {
		g[i] /= float32(n)
	}

	return g
}

func (m *VectorModel) ApplyGradients(gradients []float32, learningRate float32) {
	if len(gradients) != len(m.params) {
		return
	}
	for i, g := range gradients {
		m.params[i] -= learningRate * g
	}
}
