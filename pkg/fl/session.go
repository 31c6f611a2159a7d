package fl

import (
	"context"
	"iter"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/absmach/cortex/pkg/dp"
	"github.com/absmach/cortex/pkg/trainer"
	"github.com/google/uuid"
)

type Config struct {
	Enabled     bool   `env:"ENABLED"      envDefault:"true" toml:"enabled"      yaml:"enabled"`
	DatasetPath string `env:"DATASET_PATH" envDefault:""     toml:"dataset_path" yaml:"dataset_path"`
	Features    int    `env:"FEATURES"     envDefault:"8"    toml:"features"     yaml:"features"`
	Samples     int    `env:"SAMPLES"      envDefault:"512"  toml:"samples"      yaml:"samples"`
	BatchSize   int    `env:"BATCH_SIZE"   envDefault:"16"   toml:"batch_size"   yaml:"batch_size"`
	// MaxBatches is the number of batches in a round at full intensity.
	MaxBatches uint32 `env:"MAX_BATCHES" envDefault:"8" toml:"max_batches" yaml:"max_batches"`
}

// Session is the federated state of a node: a model, its data, the DP
// trainer and the baseline the next delta is computed against.
type Session struct {
	// round is held for a whole training round and while the trainer or
	// the model is replaced. mu never waits on the trainer; readers get
	// the view taken after the last round.
	round        sync.Mutex
	mu           sync.Mutex
	view         sessionView
	nodeID       string
	enabled      bool
	maxBatches   uint32
	config       trainer.Config
	opts         []trainer.Option
	model        *VectorModel
	data         *Dataset
	trainer      *trainer.Trainer[[]Sample]
	baseline     []float32
	samples      uint64
	lastRound    uint32
	epsilonAtRef float32
}

type sessionView struct {
	privacy dp.AccountantSnapshot
	stats   trainer.TrainerStats
	params  []float32
}

// observe reads t while no round is running on it.
func (s *Session) observe(t *trainer.Trainer[[]Sample]) sessionView {
	v := sessionView{
		privacy: t.Accountant(),
		stats:   t.Stats(),
	}
	t.WithModel(func(trainer.Model[[]Sample]) {
		v.params = s.model.Params()
	})

	return v
}

func NewSession(nodeID string, enabled bool, maxBatches uint32, cfg trainer.Config, model *VectorModel, data *Dataset, opts ...trainer.Option) *Session {
	cfg.MaxBatchesPerRound = 0

	s := &Session{
		nodeID:     nodeID,
		enabled:    enabled,
		maxBatches: maxBatches,
		config:     cfg,
		opts:       opts,
		model:      model,
		data:       data,
		trainer:    trainer.New[[]Sample](model, cfg, opts...),
		baseline:   model.Params(),
	}
	s.view = s.observe(s.trainer)

	return s
}

func (s *Session) Enabled() bool {
	return s.enabled
}

// BatchesFor maps a throttle intensity in [0, 1] to a batch count.
func (s *Session) BatchesFor(intensity float64) int {
	intensity = min(max(intensity, 0), 1)

	return int(math.Ceil(intensity * float64(s.maxBatches)))
}

// TrainLocal runs one DP round sized by intensity. The round stops early
// when ctx is done.
func (s *Session) TrainLocal(ctx context.Context, intensity float64) (trainer.RoundStats, error) {
	if err := ctx.Err(); err != nil {
		return trainer.RoundStats{}, err
	}

	s.round.Lock()
	defer s.round.Unlock()

	s.mu.Lock()
	t := s.trainer
	s.mu.Unlock()

	var used uint64
	stats, err := t.TrainRound(s.counted(ctx, s.data.Batches(s.BatchesFor(intensity)), &used))
	if err != nil {
		return trainer.RoundStats{}, err
	}
	view := s.observe(t)

	s.mu.Lock()
	s.view = view
	if stats.BatchesProcessed > 0 {
		s.samples += used
		s.lastRound = stats.RoundIndex
	}
	s.mu.Unlock()

	return stats, nil
}

func (s *Session) counted(ctx context.Context, batches iter.Seq[[]Sample], used *uint64) iter.Seq[[]Sample] {
	return func(yield func([]Sample) bool) {
		for batch := range batches {
			if ctx.Err() != nil {
				return
			}
			*used += uint64(len(batch))
			if !yield(batch) {
				return
			}
		}
	}
}

// ComputeDelta returns the parameter change since the previous delta and
// moves the baseline. It returns false when nothing was trained since.
func (s *Session) ComputeDelta(ctx context.Context) (Delta, bool, error) {
	if err := ctx.Err(); err != nil {
		return Delta{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.samples == 0 {
		return Delta{}, false, nil
	}

	params := s.view.params
	diff := make([]float32, len(params))
	for i := range params {
		diff[i] = params[i] - s.baseline[i]
	}

	total := s.view.privacy.Total
	d := Delta{
		ID:         uuid.NewString(),
		NodeID:     s.nodeID,
		RoundIndex: s.lastRound,
		Params:     diff,
		NumSamples: s.samples,
		Epsilon:    total - s.epsilonAtRef,
		CreatedAt:  time.Now().UTC(),
	}

	s.baseline = slices.Clone(params)
	s.samples = 0
	s.epsilonAtRef = total

	return d, true, nil
}

// ResetBudget clears spent epsilon once the running round, if any, ends.
func (s *Session) ResetBudget() {
	s.round.Lock()
	defer s.round.Unlock()

	s.mu.Lock()
	t := s.trainer
	s.mu.Unlock()

	t.ResetBudget()
	view := s.observe(t)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.view = view
	s.epsilonAtRef = 0
}

func (s *Session) Privacy() dp.AccountantSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.view.privacy
}

func (s *Session) Stats() trainer.TrainerStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.view.stats
}

func (s *Session) Params() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.view.params)
}

// Restore loads params into the model and makes them the new baseline.
func (s *Session) Restore(params []float32) error {
	s.round.Lock()
	defer s.round.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	s.trainer.WithModel(func(trainer.Model[[]Sample]) {
		err = s.model.SetParams(params)
	})
	if err != nil {
		return err
	}
	s.view = s.observe(s.trainer)
	s.baseline = slices.Clone(params)
	s.samples = 0

	return nil
}

// Rotate starts a new session on the current parameters: a fresh trainer
// with a fresh privacy accountant. Untransmitted progress is discarded.
func (s *Session) Rotate() {
	s.round.Lock()
	defer s.round.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	var params []float32
	s.trainer.WithModel(func(trainer.Model[[]Sample]) {
		params = s.model.Params()
	})

	s.trainer = trainer.New[[]Sample](s.model, s.config, s.opts...)
	s.view = s.observe(s.trainer)
	s.baseline = params
	s.samples = 0
	s.lastRound = 0
	s.epsilonAtRef = 0
}
