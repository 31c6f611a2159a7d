package trainer

import "github.com/absmach/cortex/pkg/dp"

// RoundStats reports one round or one step.
type RoundStats struct {
	RoundIndex         uint32  `json:"round_index"`
	BatchesProcessed   uint32  `json:"batches_processed"`
	MeanGradNormBefore float32 `json:"mean_grad_norm_before"`
	MeanGradNormAfter  float32 `json:"mean_grad_norm_after"`
	EpsilonSpent       float32 `json:"epsilon_spent"`
	EpsilonTotal       float32 `json:"epsilon_total"`
	EpsilonRemaining   float32 `json:"epsilon_remaining"`
	BudgetExhausted    bool    `json:"budget_exhausted"`
}

type TrainerStats struct {
	RoundsCompleted uint32  `json:"rounds_completed"`
	TotalBatches    uint64  `json:"total_batches"`
	TotalEpsilon    float32 `json:"total_epsilon"`
}

func accountedStats(index, batches uint32, sumBefore, sumAfter, spent float32, acc *dp.Accountant) RoundStats {
	stats := RoundStats{
		RoundIndex:       index,
		BatchesProcessed: batches,
		EpsilonSpent:     spent,
		EpsilonTotal:     acc.TotalEpsilon(),
		EpsilonRemaining: acc.RemainingBudget(),
		BudgetExhausted:  acc.IsBudgetExhausted(),
	}
	if batches > 0 {
		stats.MeanGradNormBefore = sumBefore / float32(batches)
		stats.MeanGradNormAfter = sumAfter / float32(batches)
	}

	return stats
}
