package dp

import (
	"crypto/rand"
	"encoding/binary"
	"math"
)

// Source produces uniformly distributed 64-bit values for noise sampling.
type Source interface {
	Uint64() uint64
}

// LCG is the Numerical Recipes linear congruential generator. It is fast
// and reproducible but not cryptographically secure.
type LCG struct {
	state uint64
}

func NewLCG(seed uint64) *LCG {
	return &LCG{state: seed}
}

func (l *LCG) Uint64() uint64 {
	l.state = l.state*1664525 + 1013904223

	return l.state
}

type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
func NewCryptoSource() Source {
	return cryptoSource{}
}

func (cryptoSource) Uint64() uint64 {
	var b [8]byte
	// crypto/rand.Read does not return errors as of Go 1.24.
	_, _ = rand.Read(b[:])

	return binary.LittleEndian.Uint64(b[:])
}

// Float32 maps the next value of src onto [0, 1].
func Float32(src Source) float32 {
	return float32(src.Uint64()) / float32(math.MaxUint64)
}
