package trainer

import (
	"sync"

	"github.com/absmach/cortex/pkg/dp"
)

// Stepper applies externally computed gradients one step at a time. Each
// accepted step is charged EpsilonPerRound.
type Stepper struct {
	mu         sync.Mutex
	config     Config
	engine     *dp.Engine
	accountant *dp.Accountant
	stats      TrainerStats
	nextStep   uint32
}

func NewStepper(cfg Config, opts ...Option) *Stepper {
	return &Stepper{
		config:     cfg,
		engine:     newEngine(cfg.DP, opts),
		accountant: dp.NewAccountant(cfg.effectiveBudget()),
	}
}

// TrainStep returns false without touching model, raw or the budget when
// the budget is exhausted or raw does not match the model's parameters.
func (s *Stepper) TrainStep(model TrainableModel, raw []float32) (RoundStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accountant.IsBudgetExhausted() || len(raw) == 0 || len(raw) != model.ParamsLen() {
		return RoundStats{}, false
	}

	g := make([]float32, len(raw))
	copy(g, raw)

	before := dp.L2Norm(g)
	s.engine.PrivatizeGradients(g)
	after := dp.L2Norm(g)
	model.ApplyGradients(g, s.config.LearningRate)

	s.accountant.RecordRound(s.config.EpsilonPerRound)
	s.stats.RoundsCompleted++
	s.stats.TotalBatches++
	s.stats.TotalEpsilon = s.accountant.TotalEpsilon()

	index := s.nextStep
	if s.nextStep < ^uint32(0) {
		s.nextStep++
	}

	return accountedStats(index, 1, before, after, s.config.EpsilonPerRound, s.accountant), true
}

func (s *Stepper) Stats() TrainerStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stats
}

func (s *Stepper) Accountant() dp.AccountantSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.accountant.Snapshot()
}

func (s *Stepper) ResetBudget() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accountant.Reset()
	s.stats.TotalEpsilon = 0
}
