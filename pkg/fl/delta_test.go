package fl_test

import (
	"testing"
	"time"

	"github.com/absmach/cortex/pkg/fl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeltaCBOR(t *testing.T) {
	d := fl.Delta{
		ID:         "d-1",
		NodeID:     "node-1",
		RoundIndex: 4,
		Params:     []float32{0.25, -1.5, 3},
		NumSamples: 64,
		Epsilon:    2,
		CreatedAt:  time.Date(2025, 5, 1, 10, 30, 0, 123, time.UTC),
	}

	data, err := fl.EncodeDelta(d)
	require.NoError(t, err)

	again, err := fl.EncodeDelta(d)
	require.NoError(t, err)
	assert.Equal(t, data, again)

	got, err := fl.DecodeDelta(data)
	require.NoError(t, err)
	assert.True(t, d.CreatedAt.Equal(got.CreatedAt))
	got.CreatedAt = d.CreatedAt
	assert.Equal(t, d, got)

	_, err = fl.DecodeDelta([]byte{0xff, 0x00})
	assert.Error(t, err)
}

func TestFedAvg(t *testing.T) {
	cases := []struct {
		desc    string
		deltas  []fl.Delta
		params  []float32
		samples uint64
		err     error
	}{
		{
			desc:   "no deltas",
			deltas: nil,
			err:    fl.ErrNoUpdates,
		},
		{
			desc: "weighted by samples",
			deltas: []fl.Delta{
				{Params: []float32{1, 0}, NumSamples: 1},
				{Params: []float32{4, 3}, NumSamples: 2},
			},
			params:  []float32{3, 2},
			samples: 3,
		},
		{
			desc: "equal weights without samples",
			deltas: []fl.Delta{
				{Params: []float32{1, 2}},
				{Params: []float32{3, 4}},
			},
			params:  []float32{2, 3},
			samples: 0,
		},
		{
			desc: "dimension mismatch",
			deltas: []fl.Delta{
				{Params: []float32{1, 2}},
				{Params: []float32{3}},
			},
			err: fl.ErrDimensionMismatch,
		},
		{
			desc: "sample overflow",
			deltas: []fl.Delta{
				{Params: []float32{1}, NumSamples: ^uint64(0)},
				{Params: []float32{1}, NumSamples: 1},
			},
			err: fl.ErrOverflow,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			avg, err := fl.FedAvg(tc.deltas)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.InDeltaSlice(t, tc.params, avg.Params, 1e-6)
			assert.Equal(t, tc.samples, avg.NumSamples)
		})
	}
}
