package observer

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/cortex/pkg/storage"
	"github.com/absmach/cortex/pkg/trainer"
	"github.com/google/uuid"
)

const recordTimeout = 5 * time.Second

var _ Observer = (*Recorder)(nil)

// Recorder persists the statistics of every training round.
type Recorder struct {
	repo   storage.RoundRepository
	nodeID string
	logger *slog.Logger
}

func NewRecorder(repo storage.RoundRepository, nodeID string, logger *slog.Logger) *Recorder {
	return &Recorder{
		repo:   repo,
		nodeID: nodeID,
		logger: logger,
	}
}

func (r *Recorder) ObserveTick(TickMetrics) {}

func (r *Recorder) ObserveRound(s trainer.RoundStats) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	rec := storage.RoundRecord{
		ID:     uuid.NewString(),
		NodeID: r.nodeID,
		Stats:  s,
		At:     time.Now().UTC(),
	}
	if err := r.repo.Create(ctx, rec); err != nil {
		r.logger.Warn("failed to record training round", slog.Uint64("round", uint64(s.RoundIndex)), slog.Any("error", err))
	}
}
