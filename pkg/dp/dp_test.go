package dp_test

import (
	"math"
	"testing"

	"github.com/absmach/cortex/pkg/dp"
	pkgerrors "github.com/absmach/cortex/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoiseScale(t *testing.T) {
	cases := []struct {
		desc     string
		config   dp.Config
		expected float32
	}{
		{desc: "strong", config: dp.Strong(), expected: 48.45},
		{desc: "moderate", config: dp.Moderate(), expected: 4.845},
		{desc: "weak", config: dp.Weak(), expected: 0.6056},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.InEpsilon(t, tc.expected, tc.config.NoiseScale(), 0.01)
		})
	}

	assert.Greater(t, dp.Strong().NoiseScale(), dp.Moderate().NoiseScale())
	assert.Greater(t, dp.Moderate().NoiseScale(), dp.Weak().NoiseScale())
	assert.Equal(t, dp.Moderate(), dp.DefaultConfig())
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		desc   string
		config dp.Config
		err    error
	}{
		{desc: "moderate", config: dp.Moderate()},
		{desc: "zero epsilon", config: dp.Config{Epsilon: 0, Delta: 1e-5, MaxGradNorm: 1}, err: pkgerrors.ErrInvalidConfig},
		{desc: "delta of one", config: dp.Config{Epsilon: 1, Delta: 1, MaxGradNorm: 1}, err: pkgerrors.ErrInvalidConfig},
		{desc: "zero delta", config: dp.Config{Epsilon: 1, Delta: 0, MaxGradNorm: 1}, err: pkgerrors.ErrInvalidConfig},
		{desc: "negative norm", config: dp.Config{Epsilon: 1, Delta: 1e-5, MaxGradNorm: -1}, err: pkgerrors.ErrInvalidConfig},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.err == nil {
				assert.NoError(t, err)

				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestPreset(t *testing.T) {
	cfg, err := dp.Preset("Strong")
	require.NoError(t, err)
	assert.Equal(t, dp.Strong(), cfg)

	cfg, err = dp.Preset("")
	require.NoError(t, err)
	assert.Equal(t, dp.Moderate(), cfg)

	_, err = dp.Preset("paranoid")
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidConfig)
}

func TestL2Norm(t *testing.T) {
	assert.Equal(t, float32(5), dp.L2Norm([]float32{3, 4}))
	assert.Equal(t, float32(0), dp.L2Norm(nil))
}

func TestClipGradients(t *testing.T) {
	engine := dp.NewEngineWithSeed(dp.Config{Epsilon: 1, Delta: 1e-5, MaxGradNorm: 5}, 42)

	cases := []struct {
		desc     string
		input    []float32
		expected []float32
	}{
		{desc: "within bound", input: []float32{3, 4}, expected: []float32{3, 4}},
		{desc: "above bound", input: []float32{6, 8}, expected: []float32{3, 4}},
		{desc: "zero vector", input: []float32{0, 0, 0}, expected: []float32{0, 0, 0}},
		{desc: "empty", input: []float32{}, expected: []float32{}},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			engine.ClipGradients(tc.input)
			assert.InDeltaSlice(t, tc.expected, tc.input, 1e-5)
		})
	}
}

func TestClipPreservesDirection(t *testing.T) {
	engine := dp.NewEngineWithSeed(dp.Moderate(), 1)
	g := []float32{10, -20, 30, 5}
	orig := append([]float32(nil), g...)

	engine.ClipGradients(g)

	assert.InDelta(t, 1.0, dp.L2Norm(g), 1e-5)
	ratio := g[0] / orig[0]
	for i := range g {
		assert.InDelta(t, ratio, g[i]/orig[i], 1e-5)
	}
}

func TestSeededEnginesAreReproducible(t *testing.T) {
	a := dp.NewEngineWithSeed(dp.Moderate(), 7)
	b := dp.NewEngineWithSeed(dp.Moderate(), 7)
	c := dp.NewEngineWithSeed(dp.Moderate(), 8)

	ga := []float32{0.1, 0.2, 0.3}
	gb := []float32{0.1, 0.2, 0.3}
	gc := []float32{0.1, 0.2, 0.3}
	a.PrivatizeGradients(ga)
	b.PrivatizeGradients(gb)
	c.PrivatizeGradients(gc)

	assert.Equal(t, ga, gb)
	assert.NotEqual(t, ga, gc)
}

func TestAddNoiseDistribution(t *testing.T) {
	engine := dp.NewEngineWithSource(dp.Weak(), dp.NewCryptoSource())
	n := 20000
	g := make([]float32, n)

	engine.AddNoise(g)

	var sum, sq float64
	for _, v := range g {
		assert.False(t, math.IsNaN(float64(v)))
		sum += float64(v)
		sq += float64(v) * float64(v)
	}
	mean := sum / float64(n)
	std := math.Sqrt(sq/float64(n) - mean*mean)

	assert.InDelta(t, 0, mean, 0.05)
	assert.InEpsilon(t, float64(engine.NoiseStd()), std, 0.05)
}

func TestPrivatizeClipsBeforeNoise(t *testing.T) {
	cfg := dp.Config{Epsilon: 1e6, Delta: 1e-5, MaxGradNorm: 1}
	engine := dp.NewEngineWithSeed(cfg, 99)
	g := []float32{300, 400}

	engine.PrivatizeGradients(g)

	assert.InDelta(t, 0.6, g[0], 1e-3)
	assert.InDelta(t, 0.8, g[1], 1e-3)
}

func TestEngineGetters(t *testing.T) {
	engine := dp.NewEngine(dp.Strong())

	assert.Equal(t, dp.Strong(), engine.Config())
	assert.Equal(t, float32(0.1), engine.Epsilon())
	assert.Equal(t, float32(1e-5), engine.Delta())
	assert.Equal(t, dp.Strong().NoiseScale(), engine.NoiseStd())
}

func TestLCG(t *testing.T) {
	a := dp.NewLCG(0)
	assert.Equal(t, uint64(1013904223), a.Uint64())

	b := dp.NewLCG(12345)
	c := dp.NewLCG(12345)
	for range 100 {
		assert.Equal(t, b.Uint64(), c.Uint64())
	}

	for range 1000 {
		f := dp.Float32(b)
		assert.GreaterOrEqual(t, f, float32(0))
		assert.LessOrEqual(t, f, float32(1))
	}
}

func TestCryptoSource(t *testing.T) {
	src := dp.NewCryptoSource()

	seen := map[uint64]struct{}{}
	for range 64 {
		seen[src.Uint64()] = struct{}{}
		f := dp.Float32(src)
		assert.GreaterOrEqual(t, f, float32(0))
		assert.LessOrEqual(t, f, float32(1))
	}
	assert.Greater(t, len(seen), 60)
}

func TestAccountant(t *testing.T) {
	acc := dp.NewAccountant(1.0)

	for range 3 {
		acc.RecordRound(0.3)
	}
	assert.False(t, acc.IsBudgetExhausted())
	assert.InDelta(t, 0.1, acc.RemainingBudget(), 1e-5)
	assert.InDelta(t, 0.9, acc.TotalEpsilon(), 1e-5)
	assert.Equal(t, uint64(3), acc.Rounds())

	acc.RecordRound(0.2)
	assert.True(t, acc.IsBudgetExhausted())
	assert.Equal(t, float32(0), acc.RemainingBudget())

	snap := acc.Snapshot()
	assert.True(t, snap.Exhausted)
	assert.Equal(t, uint64(4), snap.Rounds)
	assert.Equal(t, float32(1.0), snap.Budget)

	acc.Reset()
	assert.False(t, acc.IsBudgetExhausted())
	assert.Equal(t, float32(1.0), acc.Budget())
	assert.Zero(t, acc.Rounds())
	assert.Zero(t, acc.TotalEpsilon())
}

func TestAccountantExactBudgetIsExhausted(t *testing.T) {
	acc := dp.NewAccountant(1.0)
	acc.RecordRound(1.0)

	assert.True(t, acc.IsBudgetExhausted())
}
