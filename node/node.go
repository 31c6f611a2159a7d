// Package node hosts the runtime of a single edge node. A cooperative
// tick loop serves user requests on the Critical lane and admits
// training and maintenance work only when the throttle allows it.
package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/absmach/cortex/pkg/dp"
	pkgerrors "github.com/absmach/cortex/pkg/errors"
	"github.com/absmach/cortex/pkg/fl"
	"github.com/absmach/cortex/pkg/inference"
	"github.com/absmach/cortex/pkg/monitoring"
	"github.com/absmach/cortex/pkg/observer"
	"github.com/absmach/cortex/pkg/policy"
	"github.com/absmach/cortex/pkg/profile"
	"github.com/absmach/cortex/pkg/scheduler"
	"github.com/absmach/cortex/pkg/storage"
	"github.com/absmach/cortex/pkg/throttle"
	"github.com/absmach/cortex/pkg/trainer"
	"github.com/absmach/cortex/pkg/update"
	"github.com/absmach/cortex/pkg/userio"
)

const (
	DefaultCallTimeout      = 2 * time.Second
	DefaultMaxQueuedPerTick = 4
)

type Service interface {
	// Tick plans and dispatches one tick. Ticks never overlap.
	Tick(ctx context.Context) (TickReport, error)
	Enqueue(ctx context.Context, kind scheduler.TaskKind) error
	Status(ctx context.Context) (Status, error)
	Privacy(ctx context.Context) (PrivacyStatus, error)
	ResetPrivacy(ctx context.Context) error
	Submit(ctx context.Context, input string) error
}

type InferenceEngine interface {
	Infer(ctx context.Context, input string) (inference.Output, error)
}

type PolicyEvaluator interface {
	Evaluate(input string, out inference.Output) policy.Decision
}

// IOLayer is polled once per tick. TryRecv must not block.
type IOLayer interface {
	TryRecv() (string, bool)
	Deliver(ctx context.Context, r userio.Response) error
	Push(input string) error
}

// Learner is the federated state of the node.
type Learner interface {
	TrainLocal(ctx context.Context, intensity float64) (trainer.RoundStats, error)
	ComputeDelta(ctx context.Context) (fl.Delta, bool, error)
	Enabled() bool
	ResetBudget()
	Privacy() dp.AccountantSnapshot
	Stats() trainer.TrainerStats
	Params() []float32
}

type DeltaSubmitter interface {
	SubmitDelta(ctx context.Context, d fl.Delta) error
}

type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s storage.Snapshot) error
}

type UpdateChecker interface {
	CheckForUpdates(ctx context.Context) (update.Info, error)
}

type MetricsSampler interface {
	Sample(ctx context.Context) (monitoring.ProcessMetrics, error)
}

type RuleApplier interface {
	ApplyRules(ctx context.Context) error
}

// Deps are the collaborators of the node. Engine, Policy and IO are
// required; a nil optional collaborator turns its tasks into no-ops.
type Deps struct {
	Engine    InferenceEngine
	Policy    PolicyEvaluator
	IO        IOLayer
	Learner   Learner
	Submitter DeltaSubmitter
	Snapshots SnapshotStore
	Updates   UpdateChecker
	Sampler   MetricsSampler
	Rules     RuleApplier
	Observer  observer.Observer
	Meta      *observer.MetaObserver
}

// Config is resolved by the daemon: the tier is detected or overridden
// and the throttle preset is picked for it. AutoThrottle re-selects the
// preset from Tier on every tick; otherwise Throttle stays as given.
type Config struct {
	NodeID           string           `env:"ID"                  envDefault:""`
	Tier             profile.Tier
	AutoThrottle     bool
	CallTimeout      time.Duration    `env:"CALL_TIMEOUT"        envDefault:"2s"`
	MaxQueuedPerTick int              `env:"MAX_QUEUED_PER_TICK" envDefault:"4"`
	Scheduler        scheduler.Config `envPrefix:"SCHEDULER_"`
	Throttle         throttle.Config
}

func DefaultConfig() Config {
	return Config{
		Tier:             profile.Desktop,
		CallTimeout:      DefaultCallTimeout,
		MaxQueuedPerTick: DefaultMaxQueuedPerTick,
		Scheduler:        scheduler.DefaultConfig(),
		Throttle:         throttle.ForProfile(profile.Desktop),
	}
}

func (c Config) Validate() error {
	if c.NodeID == "" {
		return errors.Join(pkgerrors.ErrInvalidConfig, errors.New("node id is required"))
	}
	if c.CallTimeout < 0 {
		return errors.Join(pkgerrors.ErrInvalidConfig, fmt.Errorf("negative call timeout %s", c.CallTimeout))
	}
	if c.MaxQueuedPerTick < 0 {
		return errors.Join(pkgerrors.ErrInvalidConfig, fmt.Errorf("negative queued task limit %d", c.MaxQueuedPerTick))
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}

	return c.Throttle.Validate()
}

// TickReport describes what one tick did.
type TickReport struct {
	Tick      uint64                  `json:"tick"`
	Work      scheduler.ScheduledWork `json:"work"`
	Executed  []scheduler.TaskKind    `json:"executed"`
	Deferred  []scheduler.TaskKind    `json:"deferred,omitempty"`
	Response  *userio.Response        `json:"response,omitempty"`
	Round     *trainer.RoundStats     `json:"round,omitempty"`
	DeltaID   string                  `json:"delta_id,omitempty"`
	LatencyMS float64                 `json:"latency_ms"`
	Level     throttle.Level          `json:"level"`
	Intensity float64                 `json:"intensity"`
	TimedOut  bool                    `json:"timed_out"`
	At        time.Time               `json:"at"`
}

type Status struct {
	NodeID         string                     `json:"node_id"`
	Tier           profile.Tier               `json:"tier"`
	Tick           uint64                     `json:"tick"`
	Throttle       throttle.Snapshot          `json:"throttle"`
	Pending        map[string]int             `json:"pending"`
	TicksScheduled uint64                     `json:"ticks_scheduled"`
	TasksExecuted  uint64                     `json:"tasks_executed"`
	Inference      observer.InferenceSnapshot `json:"inference"`
	Training       *trainer.TrainerStats      `json:"training,omitempty"`
	Process        *monitoring.ProcessMetrics `json:"process,omitempty"`
	Update         *update.Info               `json:"update,omitempty"`
	LastTick       *TickReport                `json:"last_tick,omitempty"`
	StartedAt      time.Time                  `json:"started_at"`
}

type PrivacyStatus struct {
	Enabled bool `json:"enabled"`
	dp.AccountantSnapshot
}

type repositoryStore struct {
	repo storage.SnapshotRepository
}

// NewSnapshotStore saves node snapshots into a snapshot repository.
func NewSnapshotStore(repo storage.SnapshotRepository) SnapshotStore {
	return &repositoryStore{repo: repo}
}

func (r *repositoryStore) SaveSnapshot(ctx context.Context, s storage.Snapshot) error {
	return r.repo.Save(ctx, s)
}
