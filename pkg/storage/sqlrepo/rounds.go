package sqlrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/absmach/cortex/pkg/storage"
	"github.com/absmach/cortex/pkg/trainer"
	"github.com/jmoiron/sqlx"
)

const roundColumns = `id, node_id, round_index, batches_processed, mean_grad_norm_before, mean_grad_norm_after,
	epsilon_spent, epsilon_total, epsilon_remaining, budget_exhausted, at`

type roundRow struct {
	ID                 string  `db:"id"`
	NodeID             string  `db:"node_id"`
	RoundIndex         int64   `db:"round_index"`
	BatchesProcessed   int64   `db:"batches_processed"`
	MeanGradNormBefore float64 `db:"mean_grad_norm_before"`
	MeanGradNormAfter  float64 `db:"mean_grad_norm_after"`
	EpsilonSpent       float64 `db:"epsilon_spent"`
	EpsilonTotal       float64 `db:"epsilon_total"`
	EpsilonRemaining   float64 `db:"epsilon_remaining"`
	BudgetExhausted    bool    `db:"budget_exhausted"`
	At                 int64   `db:"at"`
}

func (r roundRow) toRecord() storage.RoundRecord {
	return storage.RoundRecord{
		ID:     r.ID,
		NodeID: r.NodeID,
		Stats: trainer.RoundStats{
			RoundIndex:         uint32(r.RoundIndex),
			BatchesProcessed:   uint32(r.BatchesProcessed),
			MeanGradNormBefore: float32(r.MeanGradNormBefore),
			MeanGradNormAfter:  float32(r.MeanGradNormAfter),
			EpsilonSpent:       float32(r.EpsilonSpent),
			EpsilonTotal:       float32(r.EpsilonTotal),
			EpsilonRemaining:   float32(r.EpsilonRemaining),
			BudgetExhausted:    r.BudgetExhausted,
		},
		At: time.Unix(0, r.At).UTC(),
	}
}

type roundRepo struct {
	db *sqlx.DB
}

func NewRoundRepository(db *sqlx.DB) storage.RoundRepository {
	return &roundRepo{db: db}
}

func (r *roundRepo) Create(ctx context.Context, rec storage.RoundRecord) error {
	if rec.ID == "" {
		return storage.ErrInvalidID
	}

	s := rec.Stats
	query := r.db.Rebind(`INSERT INTO rounds (` + roundColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.NodeID,
		int64(s.RoundIndex),
		int64(s.BatchesProcessed),
		float64(s.MeanGradNormBefore),
		float64(s.MeanGradNormAfter),
		float64(s.EpsilonSpent),
		float64(s.EpsilonTotal),
		float64(s.EpsilonRemaining),
		s.BudgetExhausted,
		rec.At.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrCreate, err)
	}

	return nil
}

func (r *roundRepo) List(ctx context.Context, nodeID string, offset, limit uint64) ([]storage.RoundRecord, uint64, error) {
	var total uint64
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM rounds WHERE node_id = ?`), nodeID); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", storage.ErrDBQuery, err)
	}

	var rows []roundRow
	query := r.db.Rebind(`SELECT ` + roundColumns + ` FROM rounds WHERE node_id = ? ORDER BY at DESC, round_index DESC LIMIT ? OFFSET ?`)
	if err := r.db.SelectContext(ctx, &rows, query, nodeID, int64(limit), int64(offset)); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", storage.ErrDBQuery, err)
	}

	recs := make([]storage.RoundRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.toRecord())
	}

	return recs, total, nil
}
