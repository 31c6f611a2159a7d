package badger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/absmach/cortex/pkg/storage"
)

type snapshotRepo struct {
	db *Database
}

func NewSnapshotRepository(db *Database) storage.SnapshotRepository {
	return &snapshotRepo{db: db}
}

func snapshotKey(id string) []byte {
	return fmt.Appendf(nil, "snapshot:%s", id)
}

func snapshotNodePrefix(nodeID string) []byte {
	return fmt.Appendf(nil, "snapshot_node:%s:", nodeID)
}

func snapshotNodeKey(s storage.Snapshot) []byte {
	return fmt.Appendf(snapshotNodePrefix(s.NodeID), "%020d:%s", s.CreatedAt.UnixNano(), s.ID)
}

func (r *snapshotRepo) Save(_ context.Context, s storage.Snapshot) error {
	if s.ID == "" {
		return storage.ErrInvalidID
	}

	exists, err := r.db.exists(snapshotKey(s.ID))
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: snapshot %s already exists", storage.ErrCreate, s.ID)
	}

	val, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrCreate, err)
	}

	return r.db.setAll(
		[2][]byte{snapshotKey(s.ID), val},
		[2][]byte{snapshotNodeKey(s), val},
	)
}

func (r *snapshotRepo) Get(_ context.Context, id string) (storage.Snapshot, error) {
	val, err := r.db.get(snapshotKey(id))
	if err != nil {
		return storage.Snapshot{}, err
	}

	var s storage.Snapshot
	if err := json.Unmarshal(val, &s); err != nil {
		return storage.Snapshot{}, fmt.Errorf("%w: %w", storage.ErrDBScan, err)
	}

	return s, nil
}

func (r *snapshotRepo) Latest(ctx context.Context, nodeID string) (storage.Snapshot, error) {
	snaps, _, err := r.List(ctx, nodeID, 0, 1)
	if err != nil {
		return storage.Snapshot{}, err
	}
	if len(snaps) == 0 {
		return storage.Snapshot{}, storage.ErrNotFound
	}

	return snaps[0], nil
}

func (r *snapshotRepo) List(_ context.Context, nodeID string, offset, limit uint64) ([]storage.Snapshot, uint64, error) {
	prefix := snapshotNodePrefix(nodeID)

	total, err := r.db.countWithPrefix(prefix)
	if err != nil {
		return nil, 0, err
	}

	items, err := r.db.listNewestFirst(prefix, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	snaps := make([]storage.Snapshot, 0, len(items))
	for _, item := range items {
		var s storage.Snapshot
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", storage.ErrDBScan, err)
		}
		snaps = append(snaps, s)
	}

	return snaps, total, nil
}
