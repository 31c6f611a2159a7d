package storage

import (
	"context"
	"time"

	"github.com/absmach/cortex/pkg/trainer"
)

// Snapshot is a persisted copy of a node's model parameters.
type Snapshot struct {
	ID        string    `json:"id"`
	NodeID    string    `json:"node_id"`
	Tick      uint64    `json:"tick"`
	Params    []float32 `json:"params"`
	CreatedAt time.Time `json:"created_at"`
}

// RoundRecord is the persisted statistics of one training round.
type RoundRecord struct {
	ID     string             `json:"id"`
	NodeID string             `json:"node_id"`
	Stats  trainer.RoundStats `json:"stats"`
	At     time.Time          `json:"at"`
}

// SnapshotRepository lists snapshots newest first.
type SnapshotRepository interface {
	Save(ctx context.Context, s Snapshot) error
	Get(ctx context.Context, id string) (Snapshot, error)
	Latest(ctx context.Context, nodeID string) (Snapshot, error)
	List(ctx context.Context, nodeID string, offset, limit uint64) ([]Snapshot, uint64, error)
}

// RoundRepository lists round records newest first.
type RoundRepository interface {
	Create(ctx context.Context, r RoundRecord) error
	List(ctx context.Context, nodeID string, offset, limit uint64) ([]RoundRecord, uint64, error)
}

// Page bounds offset and limit to a slice of length total.
func Page(total, offset, limit uint64) (start, end uint64) {
	if offset >= total {
		return total, total
	}

	return offset, min(offset+limit, total)
}
