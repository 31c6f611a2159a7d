package sqlrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/absmach/cortex/pkg/storage"
	"github.com/jmoiron/sqlx"
)

const snapshotColumns = `id, node_id, tick, params, created_at`

type snapshotRow struct {
	ID        string `db:"id"`
	NodeID    string `db:"node_id"`
	Tick      int64  `db:"tick"`
	Params    string `db:"params"`
	CreatedAt int64  `db:"created_at"`
}

func (r snapshotRow) toSnapshot() (storage.Snapshot, error) {
	var params []float32
	if err := json.Unmarshal([]byte(r.Params), &params); err != nil {
		return storage.Snapshot{}, fmt.Errorf("%w: %w", storage.ErrDBScan, err)
	}

	return storage.Snapshot{
		ID:        r.ID,
		NodeID:    r.NodeID,
		Tick:      uint64(r.Tick),
		Params:    params,
		CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
	}, nil
}

type snapshotRepo struct {
	db *sqlx.DB
}

func NewSnapshotRepository(db *sqlx.DB) storage.SnapshotRepository {
	return &snapshotRepo{db: db}
}

func (r *snapshotRepo) Save(ctx context.Context, s storage.Snapshot) error {
	if s.ID == "" {
		return storage.ErrInvalidID
	}

	params, err := json.Marshal(s.Params)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrCreate, err)
	}

	query := r.db.Rebind(`INSERT INTO snapshots (` + snapshotColumns + `) VALUES (?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.NodeID, int64(s.Tick), string(params), s.CreatedAt.UnixNano()); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrCreate, err)
	}

	return nil
}

func (r *snapshotRepo) Get(ctx context.Context, id string) (storage.Snapshot, error) {
	var row snapshotRow
	query := r.db.Rebind(`SELECT ` + snapshotColumns + ` FROM snapshots WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Snapshot{}, storage.ErrNotFound
		}

		return storage.Snapshot{}, fmt.Errorf("%w: %w", storage.ErrDBQuery, err)
	}

	return row.toSnapshot()
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

func (r *snapshotRepo) List(ctx context.Context, nodeID string, offset, limit uint64) ([]storage.Snapshot, uint64, error) {
	var total uint64
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM snapshots WHERE node_id = ?`), nodeID); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", storage.ErrDBQuery, err)
	}

	var rows []snapshotRow
	query := r.db.Rebind(`SELECT ` + snapshotColumns + ` FROM snapshots WHERE node_id = ? ORDER BY created_at DESC, tick DESC LIMIT ? OFFSET ?`)
	if err := r.db.SelectContext(ctx, &rows, query, nodeID, int64(limit), int64(offset)); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", storage.ErrDBQuery, err)
	}

	snaps := make([]storage.Snapshot, 0, len(rows))
	for _, row := range rows {
		s, err := row.toSnapshot()
		if err != nil {
			return nil, 0, err
		}
		snaps = append(snaps, s)
	}

	return snaps, total, nil
}
