package dp

import (
	"math"
	"time"
)

const minUniform = 1e-10

// Engine clips gradients to MaxGradNorm and adds calibrated Gaussian
// noise. It is not safe for concurrent use.
type Engine struct {
	config Config
	src    Source
}

// NewEngine seeds an LCG from the wall clock.
func NewEngine(cfg Config) *Engine {
	return NewEngineWithSource(cfg, NewLCG(uint64(time.Now().UnixNano())))
}

func NewEngineWithSeed(cfg Config, seed uint64) *Engine {
	return NewEngineWithSource(cfg, NewLCG(seed))
}

func NewEngineWithSource(cfg Config, src Source) *Engine {
	return &Engine{config: cfg, src: src}
}

func (e *Engine) Config() Config {
	return e.config
}

func (e *Engine) Epsilon() float32 {
	return e.config.Epsilon
}

func (e *Engine) Delta() float32 {
	return e.config.Delta
}

func (e *Engine) NoiseStd() float32 {
	return e.config.NoiseScale()
}

// ClipGradients scales g in place so that its L2 norm does not exceed
// MaxGradNorm. The direction is preserved.
func (e *Engine) ClipGradients(g []float32) {
	norm := L2Norm(g)
	if norm > e.config.MaxGradNorm && norm > 0 {
		scale := e.config.MaxGradNorm / norm
		for i := range g {
			g[i] *= scale
		}
	}
}

func (e *Engine) AddNoise(g []float32) {
	sigma := e.config.NoiseScale()
	for i := range g {
		g[i] += sigma * e.gaussian()
	}
}

// PrivatizeGradients clips g and then adds noise, in place.
func (e *Engine) PrivatizeGradients(g []float32) {
	e.ClipGradients(g)
	e.AddNoise(g)
}

// gaussian samples N(0, 1) with the Box-Muller transform.
func (e *Engine) gaussian() float32 {
	u1 := max(Float32(e.src), minUniform)
	u2 := Float32(e.src)

	return float32(math.Sqrt(-2*math.Log(float64(u1)))) * float32(math.Cos(2*math.Pi*float64(u2)))
}

func L2Norm(v []float32) float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}

	return float32(math.Sqrt(float64(sum)))
}
