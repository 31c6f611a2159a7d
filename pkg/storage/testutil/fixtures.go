package testutil

import (
	"testing"
	"time"

	"github.com/absmach/cortex/pkg/storage"
	"github.com/absmach/cortex/pkg/trainer"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func Snapshot(nodeID string, tick uint64, at time.Time) storage.Snapshot {
	return storage.Snapshot{
		ID:        uuid.NewString(),
		NodeID:    nodeID,
		Tick:      tick,
		Params:    []float32{0.5, -1.25, float32(tick)},
		CreatedAt: at,
	}
}

func Round(nodeID string, index uint32, at time.Time) storage.RoundRecord {
	return storage.RoundRecord{
		ID:     uuid.NewString(),
		NodeID: nodeID,
		Stats: trainer.RoundStats{
			RoundIndex:         index,
			BatchesProcessed:   4,
			MeanGradNormBefore: 2.5,
			MeanGradNormAfter:  1.5,
			EpsilonSpent:       1,
			EpsilonTotal:       float32(index + 1),
			EpsilonRemaining:   float32(9 - index),
			BudgetExhausted:    false,
		},
		At: at,
	}
}

// AssertSnapshot compares snapshots, treating timestamps as instants.
func AssertSnapshot(t *testing.T, want, got storage.Snapshot) {
	t.Helper()

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.NodeID, got.NodeID)
	assert.Equal(t, want.Tick, got.Tick)
	assert.Equal(t, want.Params, got.Params)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created at %s, want %s", got.CreatedAt, want.CreatedAt)
}
