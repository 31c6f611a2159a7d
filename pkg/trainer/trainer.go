package trainer

import (
	"fmt"
	"iter"
	"sync"

	"github.com/absmach/cortex/pkg/dp"
)

// Trainer runs DP-SGD rounds over batches of type B. A round holds the
// trainer lock for its whole duration.
type Trainer[B any] struct {
	mu         sync.Mutex
	model      Model[B]
	config     Config
	engine     *dp.Engine
	accountant *dp.Accountant
	stats      TrainerStats
	nextRound  uint32
}

func New[B any](model Model[B], cfg Config, opts ...Option) *Trainer[B] {
	return &Trainer[B]{
		model:      model,
		config:     cfg,
		engine:     newEngine(cfg.DP, opts),
		accountant: dp.NewAccountant(cfg.effectiveBudget()),
	}
}

// TrainRound privatizes and applies the gradients of up to
// MaxBatchesPerRound batches, then charges EpsilonPerRound once. A round
// that processes no batch is free. The round index advances either way.
func (t *Trainer[B]) TrainRound(batches iter.Seq[B]) (RoundStats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.accountant.IsBudgetExhausted() {
		return RoundStats{}, fmt.Errorf("training round rejected after %.4f epsilon: %w", t.accountant.TotalEpsilon(), dp.ErrBudgetExhausted)
	}

	index := t.nextRound
	if t.nextRound < ^uint32(0) {
		t.nextRound++
	}

	limit := t.config.maxBatches()
	var processed uint32
	var sumBefore, sumAfter float32
	for batch := range batches {
		if processed >= limit {
			break
		}

		g := t.model.ComputeGradients(batch)
		if len(g) == 0 {
			continue
		}

		sumBefore += dp.L2Norm(g)
		t.engine.PrivatizeGradients(g)
		sumAfter += dp.L2Norm(g)

		t.model.ApplyGradients(g, t.config.LearningRate)
		processed++
		t.stats.TotalBatches++
	}

	if processed == 0 {
		return accountedStats(index, 0, 0, 0, 0, t.accountant), nil
	}

	t.accountant.RecordRound(t.config.EpsilonPerRound)
	t.stats.RoundsCompleted++
	t.stats.TotalEpsilon = t.accountant.TotalEpsilon()

	return accountedStats(index, processed, sumBefore, sumAfter, t.config.EpsilonPerRound, t.accountant), nil
}

func (t *Trainer[B]) Stats() TrainerStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.stats
}

func (t *Trainer[B]) IsBudgetExhausted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.accountant.IsBudgetExhausted()
}

func (t *Trainer[B]) Accountant() dp.AccountantSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.accountant.Snapshot()
}

// ResetBudget clears spent epsilon. Round indices and stats are kept.
func (t *Trainer[B]) ResetBudget() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.accountant.Reset()
	t.stats.TotalEpsilon = 0
}

func (t *Trainer[B]) Config() Config {
	return t.config
}

// WithModel runs fn while no round is in progress.
func (t *Trainer[B]) WithModel(fn func(m Model[B])) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fn(t.model)
}
