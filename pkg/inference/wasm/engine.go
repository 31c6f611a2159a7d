// Package wasm hosts an inference module compiled to WebAssembly.
//
// The module must export "memory", "alloc(size i32) i32" returning a buffer
// for the input and "infer(ptr i32, len i32) i64" returning the output
// location packed as ptr<<32 | len.
package wasm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/absmach/cortex/pkg/inference"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

const (
	allocFunction = "alloc"
	inferFunction = "infer"
)

var (
	ErrMissingExport = errors.New("wasm module is missing a required export")
	ErrOutOfBounds   = errors.New("wasm memory access out of bounds")
)

type Config struct {
	ModulePath     string `env:"MODULE_PATH"      envDefault:""     toml:"module_path"      yaml:"module_path"`
	MaxOutputChars int    `env:"MAX_OUTPUT_CHARS" envDefault:"2000" toml:"max_output_chars" yaml:"max_output_chars"`
}

// Engine serialises calls into a single module instance. A call aborted
// by its context closes the instance; the next call instantiates a fresh
// one from the compiled module.
type Engine struct {
	mu       sync.Mutex
	config   Config
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	module   api.Module
}

func New(ctx context.Context, binary []byte, cfg Config) (*Engine, error) {
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))

	// Instantiate WASI, which implements host functions needed for TinyGo to
	// implement `panic`.
	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	compiled, err := r.CompileModule(ctx, binary)
	if err != nil {
		_ = r.Close(ctx)

		return nil, errors.Join(errors.New("failed to compile Wasm module"), err)
	}

	exports := compiled.ExportedFunctions()
	for _, name := range []string{allocFunction, inferFunction} {
		if _, ok := exports[name]; !ok {
			_ = r.Close(ctx)

			return nil, fmt.Errorf("%w: %s", ErrMissingExport, name)
		}
	}

	e := &Engine{
		config:   cfg,
		runtime:  r,
		compiled: compiled,
	}
	if err := e.instantiate(ctx); err != nil {
		_ = r.Close(ctx)

		return nil, err
	}

	return e, nil
}

func (e *Engine) instantiate(ctx context.Context) error {
	module, err := e.runtime.InstantiateModule(ctx, e.compiled, wazero.NewModuleConfig().WithName("").WithStartFunctions("_initialize"))
	if err != nil {
		return errors.Join(errors.New("failed to instantiate Wasm module"), err)
	}
	if module.Memory() == nil {
		_ = module.Close(ctx)

		return fmt.Errorf("%w: memory", ErrMissingExport)
	}
	e.module = module

	return nil
}

func (e *Engine) Infer(ctx context.Context, input string) (inference.Output, error) {
	if err := ctx.Err(); err != nil {
		return inference.Output{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.module == nil || e.module.IsClosed() {
		if err := e.instantiate(context.WithoutCancel(ctx)); err != nil {
			return inference.Output{}, err
		}
	}

	text, err := e.call(ctx, []byte(input))
	if err != nil {
		if ctx.Err() != nil {
			return inference.Output{}, errors.Join(ctx.Err(), err)
		}

		return inference.Output{}, err
	}
	text = inference.Truncate(text, e.config.MaxOutputChars)

	return inference.Output{
		Text:   text,
		Tokens: inference.EstimateTokens(input, text),
		Mode:   inference.Answer,
	}, nil
}

func (e *Engine) call(ctx context.Context, input []byte) (string, error) {
	res, err := e.module.ExportedFunction(allocFunction).Call(ctx, uint64(len(input)))
	if err != nil {
		return "", errors.Join(errors.New("failed to allocate input"), err)
	}
	ptr := uint32(res[0])

	mem := e.module.Memory()
	if !mem.Write(ptr, input) {
		return "", ErrOutOfBounds
	}

	res, err = e.module.ExportedFunction(inferFunction).Call(ctx, uint64(ptr), uint64(len(input)))
	if err != nil {
		return "", errors.Join(errors.New("failed to call infer"), err)
	}

	outPtr, outLen := uint32(res[0]>>32), uint32(res[0])
	out, ok := mem.Read(outPtr, outLen)
	if !ok {
		return "", ErrOutOfBounds
	}

	return string(out), nil
}

func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.runtime.Close(ctx)
}
