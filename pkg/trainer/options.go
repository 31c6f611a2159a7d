package trainer

import "github.com/absmach/cortex/pkg/dp"

type options struct {
	src dp.Source
}

type Option func(*options)

// WithSource replaces the wall-clock seeded generator used for noise.
func WithSource(src dp.Source) Option {
	return func(o *options) {
		o.src = src
	}
}

func newEngine(cfg dp.Config, opts []Option) *dp.Engine {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.src == nil {
		return dp.NewEngine(cfg)
	}

	return dp.NewEngineWithSource(cfg, o.src)
}
