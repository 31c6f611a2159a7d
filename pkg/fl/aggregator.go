package fl

import (
	"math"
	"time"
)

// FedAvg averages deltas weighted by their sample counts. Deltas without
// samples weigh equally when no delta carries any.
func FedAvg(deltas []Delta) (Delta, error) {
	if len(deltas) == 0 {
		return Delta{}, ErrNoUpdates
	}

	dim := len(deltas[0].Params)
	var totalSamples uint64
	var epsilon float32
	for _, d := range deltas {
		if len(d.Params) != dim {
			return Delta{}, ErrDimensionMismatch
		}
		if totalSamples > math.MaxUint64-d.NumSamples {
			return Delta{}, ErrOverflow
		}
		totalSamples += d.NumSamples
		epsilon = max(epsilon, d.Epsilon)
	}

	sum := make([]float64, dim)
	var weightSum float64
	for _, d := range deltas {
		weight := float64(d.NumSamples)
		if totalSamples == 0 {
			weight = 1
		}
		weightSum += weight
		for i, p := range d.Params {
			sum[i] += float64(p) * weight
		}
	}

	params := make([]float32, dim)
	if weightSum > 0 {
		for i := range sum {
			params[i] = float32(sum[i] / weightSum)
		}
	}

	return Delta{
		RoundIndex: deltas[len(deltas)-1].RoundIndex,
		Params:     params,
		NumSamples: totalSamples,
		Epsilon:    epsilon,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
