package badger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/absmach/cortex/pkg/storage"
)

type roundRepo struct {
	db *Database
}

func NewRoundRepository(db *Database) storage.RoundRepository {
	return &roundRepo{db: db}
}

func roundPrefix(nodeID string) []byte {
	return fmt.Appendf(nil, "round:%s:", nodeID)
}

func roundKey(rec storage.RoundRecord) []byte {
	return fmt.Appendf(roundPrefix(rec.NodeID), "%020d:%010d:%s", rec.At.UnixNano(), rec.Stats.RoundIndex, rec.ID)
}

func (r *roundRepo) Create(_ context.Context, rec storage.RoundRecord) error {
	if rec.ID == "" {
		return storage.ErrInvalidID
	}

	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrCreate, err)
	}

	return r.db.setAll([2][]byte{roundKey(rec), val})
}

func (r *roundRepo) List(_ context.Context, nodeID string, offset, limit uint64) ([]storage.RoundRecord, uint64, error) {
	prefix := roundPrefix(nodeID)

	total, err := r.db.countWithPrefix(prefix)
	if err != nil {
		return nil, 0, err
	}

	items, err := r.db.listNewestFirst(prefix, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	recs := make([]storage.RoundRecord, 0, len(items))
	for _, item := range items {
		var rec storage.RoundRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", storage.ErrDBScan, err)
		}
		recs = append(recs, rec)
	}

	return recs, total, nil
}
