package node_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/absmach/cortex/node"
	"github.com/absmach/cortex/node/mocks"
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
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	nodeID = "node-1"
	never  = 1_000_000
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// stepClock advances by step on every reading.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)

	return c.now
}

func fixedClock() node.Option {
	c := &stepClock{now: time.Unix(1_700_000_000, 0)}

	return node.WithClock(c.Now)
}

func slowClock() node.Option {
	c := &stepClock{now: time.Unix(1_700_000_000, 0), step: time.Second}

	return node.WithClock(c.Now)
}

type recordingObserver struct {
	ticks  []observer.TickMetrics
	rounds []trainer.RoundStats
}

func (r *recordingObserver) ObserveTick(m observer.TickMetrics) {
	r.ticks = append(r.ticks, m)
}

func (r *recordingObserver) ObserveRound(s trainer.RoundStats) {
	r.rounds = append(r.rounds, s)
}

type countingRules struct {
	calls int
}

func (c *countingRules) ApplyRules(context.Context) error {
	c.calls++

	return nil
}

func config(training, delta, snapshot, metrics, updates uint64) node.Config {
	cfg := node.DefaultConfig()
	cfg.NodeID = nodeID
	cfg.Scheduler.TrainingEvery = training
	cfg.Scheduler.DeltaEvery = delta
	cfg.Scheduler.SnapshotEvery = snapshot
	cfg.Scheduler.MetricsEvery = metrics
	cfg.Scheduler.UpdateCheckEvery = updates

	return cfg
}

func quietConfig() node.Config {
	return config(never, never, never, never, never)
}

func newService(t *testing.T, cfg node.Config, deps node.Deps, opts ...node.Option) node.Service {
	t.Helper()
	if deps.Engine == nil {
		deps.Engine = new(mocks.Engine)
	}
	if deps.Policy == nil {
		deps.Policy = policy.New(false)
	}
	if deps.IO == nil {
		deps.IO = userio.NewQueue(4)
	}
	svc, err := node.NewService(cfg, deps, logger, opts...)
	require.NoError(t, err)

	return svc
}

func TestNewService(t *testing.T) {
	valid := node.Deps{
		Engine: new(mocks.Engine),
		Policy: policy.New(false),
		IO:     userio.NewQueue(1),
	}
	noID := quietConfig()
	noID.NodeID = ""
	badTimeout := quietConfig()
	badTimeout.CallTimeout = -time.Second
	badCadence := quietConfig()
	badCadence.Scheduler.TrainingEvery = 0

	cases := []struct {
		desc string
		cfg  node.Config
		deps node.Deps
		err  error
	}{
		{desc: "valid", cfg: quietConfig(), deps: valid},
		{desc: "missing node id", cfg: noID, deps: valid, err: pkgerrors.ErrInvalidConfig},
		{desc: "negative call timeout", cfg: badTimeout, deps: valid, err: pkgerrors.ErrInvalidConfig},
		{desc: "zero cadence", cfg: badCadence, deps: valid, err: pkgerrors.ErrInvalidConfig},
		{
			desc: "missing engine",
			cfg:  quietConfig(),
			deps: node.Deps{Policy: valid.Policy, IO: valid.IO},
			err:  node.ErrMissingCollaborator,
		},
		{
			desc: "missing io layer",
			cfg:  quietConfig(),
			deps: node.Deps{Engine: valid.Engine, Policy: valid.Policy},
			err:  node.ErrMissingCollaborator,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc, err := node.NewService(tc.cfg, tc.deps, logger)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				assert.Nil(t, svc)

				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestTickServesInput(t *testing.T) {
	queue := userio.NewQueue(4)
	engine := new(mocks.Engine)
	engine.On("Infer", mock.Anything, "hello there").
		Return(inference.Output{Text: "Hi! How can I help?", Tokens: 7, Mode: inference.SmallTalk}, nil)

	svc := newService(t, quietConfig(), node.Deps{Engine: engine, IO: queue}, fixedClock())
	require.NoError(t, svc.Submit(context.Background(), "hello there"))

	rep, err := svc.Tick(context.Background())
	require.NoError(t, err)

	require.NotNil(t, rep.Response)
	assert.Equal(t, policy.Allow, rep.Response.Decision)
	assert.Equal(t, "Hi! How can I help?", rep.Response.Text)
	assert.Equal(t, inference.SmallTalk, rep.Response.Mode)
	assert.Empty(t, cmp.Diff(scheduler.CriticalTasks(), rep.Executed))
	assert.Equal(t, uint64(1), rep.Tick)
	assert.False(t, rep.TimedOut)

	delivered := queue.Drain()
	require.Len(t, delivered, 1)
	assert.Equal(t, "hello there", delivered[0].Input)

	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), st.Inference.TotalRequests)
	assert.Equal(t, uint64(1), st.Tick)
	engine.AssertExpectations(t)
}

func TestTickWithoutInput(t *testing.T) {
	engine := new(mocks.Engine)
	svc := newService(t, quietConfig(), node.Deps{Engine: engine}, fixedClock())

	rep, err := svc.Tick(context.Background())
	require.NoError(t, err)

	assert.Nil(t, rep.Response)
	assert.Empty(t, rep.Executed)
	assert.Empty(t, cmp.Diff(scheduler.CriticalTasks(), rep.Work.Tasks))
	engine.AssertNotCalled(t, "Infer", mock.Anything, mock.Anything)
}

func TestTickThrottlePreset(t *testing.T) {
	cases := []struct {
		desc   string
		auto   bool
		target float64
	}{
		{desc: "explicit preset is kept", auto: false, target: throttle.Mobile().TargetLatencyMS},
		{desc: "auto preset follows tier", auto: true, target: throttle.Desktop().TargetLatencyMS},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := quietConfig()
			cfg.Tier = profile.Desktop
			cfg.Throttle = throttle.Mobile()
			cfg.AutoThrottle = tc.auto
			svc := newService(t, cfg, node.Deps{}, fixedClock())

			for range 3 {
				_, err := svc.Tick(context.Background())
				require.NoError(t, err)
			}

			status, err := svc.Status(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.target, status.Throttle.Config.TargetLatencyMS)
			assert.Equal(t, uint64(3), status.Throttle.TickCount)
		})
	}
}

func TestTickInferenceFailure(t *testing.T) {
	queue := userio.NewQueue(4)
	engine := new(mocks.Engine)
	engine.On("Infer", mock.Anything, "what is DP?").Return(inference.Output{}, errors.New("engine crashed"))

	svc := newService(t, quietConfig(), node.Deps{Engine: engine, IO: queue}, fixedClock())
	require.NoError(t, svc.Submit(context.Background(), "what is DP?"))

	rep, err := svc.Tick(context.Background())
	require.NoError(t, err)

	require.NotNil(t, rep.Response)
	assert.Equal(t, policy.Refuse, rep.Response.Decision)
	assert.Equal(t, policy.Render(policy.Decision{Kind: policy.Refuse}, inference.Output{}), rep.Response.Text)
}

func TestTickTimeout(t *testing.T) {
	queue := userio.NewQueue(4)
	engine := new(mocks.Engine)
	engine.On("Infer", mock.Anything, "slow").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(inference.Output{}, context.DeadlineExceeded)

	cfg := quietConfig()
	cfg.CallTimeout = 10 * time.Millisecond
	obs := &recordingObserver{}
	svc := newService(t, cfg, node.Deps{Engine: engine, IO: queue, Observer: obs})
	require.NoError(t, svc.Submit(context.Background(), "slow"))

	rep, err := svc.Tick(context.Background())
	require.NoError(t, err)

	assert.True(t, rep.TimedOut)
	assert.GreaterOrEqual(t, rep.LatencyMS, 10.0)
	require.Len(t, obs.ticks, 1)
	assert.True(t, obs.ticks[0].TimedOut)
	require.NotNil(t, rep.Response)
	assert.Equal(t, policy.Refuse, rep.Response.Decision)
}

func TestTickTrainingAndDelta(t *testing.T) {
	delta := fl.Delta{ID: "delta-1", NodeID: nodeID, Params: []float32{0.1, -0.2}, NumSamples: 32}
	stats := trainer.RoundStats{RoundIndex: 1, BatchesProcessed: 2, EpsilonSpent: 1}

	learner := new(mocks.Learner)
	learner.On("Enabled").Return(true)
	learner.On("Privacy").Return(dp.AccountantSnapshot{Budget: 10, Remaining: 10})
	learner.On("TrainLocal", mock.Anything, 1.0).Return(stats, nil).Once()
	learner.On("ComputeDelta", mock.Anything).Return(delta, true, nil).Once()
	learner.On("Stats").Return(trainer.TrainerStats{RoundsCompleted: 1, TotalBatches: 2})

	submitter := new(mocks.Submitter)
	submitter.On("SubmitDelta", mock.Anything, delta).Return(errors.New("broker unreachable")).Once()

	obs := &recordingObserver{}
	svc := newService(t, config(1, 1, never, never, never), node.Deps{
		Learner:   learner,
		Submitter: submitter,
		Observer:  obs,
	}, fixedClock())

	rep, err := svc.Tick(context.Background())
	require.NoError(t, err)

	want := []scheduler.TaskKind{scheduler.LocalTraining, scheduler.DeltaComputation, scheduler.DeltaSubmission}
	assert.Empty(t, cmp.Diff(want, rep.Executed))
	require.NotNil(t, rep.Round)
	assert.Equal(t, stats, *rep.Round)
	assert.Equal(t, "delta-1", rep.DeltaID)
	assert.Equal(t, []trainer.RoundStats{stats}, obs.rounds)
	require.Len(t, obs.ticks, 1)
	assert.Equal(t, 3, obs.ticks[0].Tasks)

	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st.Training)
	assert.Equal(t, uint32(1), st.Training.RoundsCompleted)

	learner.AssertExpectations(t)
	submitter.AssertExpectations(t)
}

func TestTickSkipsTrainingWhenBudgetExhausted(t *testing.T) {
	learner := new(mocks.Learner)
	learner.On("Enabled").Return(true)
	learner.On("Privacy").Return(dp.AccountantSnapshot{Budget: 1, Total: 1, Exhausted: true})
	learner.On("Stats").Return(trainer.TrainerStats{})

	svc := newService(t, config(1, never, never, never, never), node.Deps{Learner: learner}, fixedClock())

	rep, err := svc.Tick(context.Background())
	require.NoError(t, err)

	assert.Nil(t, rep.Round)
	learner.AssertNotCalled(t, "TrainLocal", mock.Anything, mock.Anything)
}

func TestTickBudgetExhaustedDuringRound(t *testing.T) {
	learner := new(mocks.Learner)
	learner.On("Enabled").Return(true)
	learner.On("Privacy").Return(dp.AccountantSnapshot{Budget: 1, Remaining: 0.5})
	learner.On("TrainLocal", mock.Anything, 1.0).Return(trainer.RoundStats{}, dp.ErrBudgetExhausted)
	learner.On("Stats").Return(trainer.TrainerStats{})

	obs := &recordingObserver{}
	svc := newService(t, config(1, never, never, never, never), node.Deps{Learner: learner, Observer: obs}, fixedClock())

	rep, err := svc.Tick(context.Background())
	require.NoError(t, err)

	assert.Nil(t, rep.Round)
	assert.Empty(t, obs.rounds)
}

func TestTickThrottleDefersBackgroundWork(t *testing.T) {
	svc := newService(t, config(1, never, never, never, never), node.Deps{}, slowClock())

	first, err := svc.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, throttle.Normal, first.Level)
	assert.Empty(t, cmp.Diff([]scheduler.TaskKind{scheduler.LocalTraining}, first.Executed))

	second, err := svc.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, throttle.Survival, second.Level)
	assert.Zero(t, second.Intensity)
	assert.Empty(t, second.Executed)
	assert.Empty(t, cmp.Diff([]scheduler.TaskKind{scheduler.LocalTraining}, second.Deferred))

	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, throttle.Survival, st.Throttle.Level)
	assert.False(t, st.Throttle.AllowBackground)
}

func TestTickBackgroundTasks(t *testing.T) {
	learner := new(mocks.Learner)
	learner.On("Params").Return([]float32{1, 2, 3})
	learner.On("Stats").Return(trainer.TrainerStats{})

	snapshots := new(mocks.SnapshotStore)
	snapshots.On("SaveSnapshot", mock.Anything, mock.MatchedBy(func(s storage.Snapshot) bool {
		return s.NodeID == nodeID && s.Tick == 1 && len(s.Params) == 3 && s.ID != ""
	})).Return(nil).Once()

	sampler := new(mocks.Sampler)
	sampler.On("Sample", mock.Anything).Return(monitoring.ProcessMetrics{CPUPercent: 12.5, MemoryBytes: 1 << 20}, nil).Once()

	updates := new(mocks.UpdateChecker)
	updates.On("CheckForUpdates", mock.Anything).Return(update.Info{Available: true, Current: "v0.1.0", Latest: "v0.2.0"}, nil).Once()

	svc := newService(t, config(never, never, 1, 1, 1), node.Deps{
		Learner:   learner,
		Snapshots: snapshots,
		Sampler:   sampler,
		Updates:   updates,
	}, fixedClock())

	rep, err := svc.Tick(context.Background())
	require.NoError(t, err)

	want := []scheduler.TaskKind{scheduler.SnapshotCreation, scheduler.MetricsSampling, scheduler.UpdateCheck}
	assert.Empty(t, cmp.Diff(want, rep.Executed))
	assert.True(t, rep.Work.BackgroundActive)

	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st.Process)
	assert.Equal(t, 12.5, st.Process.CPUPercent)
	require.NotNil(t, st.Update)
	assert.Equal(t, "v0.2.0", st.Update.Latest)

	snapshots.AssertExpectations(t)
	sampler.AssertExpectations(t)
	updates.AssertExpectations(t)
}

func TestEnqueue(t *testing.T) {
	rules := &countingRules{}
	svc := newService(t, quietConfig(), node.Deps{Rules: rules}, fixedClock())

	cases := []struct {
		desc string
		kind scheduler.TaskKind
		err  error
	}{
		{desc: "adaptive rule application", kind: scheduler.AdaptiveRuleApplication},
		{desc: "unknown kind", kind: scheduler.TaskKind(200), err: scheduler.ErrUnknownTaskKind},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := svc.Enqueue(context.Background(), tc.kind)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Pending[scheduler.Background.String()])

	rep, err := svc.Tick(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff([]scheduler.TaskKind{scheduler.AdaptiveRuleApplication}, rep.Executed))
	assert.Equal(t, 1, rules.calls)

	st, err = svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, st.Pending[scheduler.Background.String()])
	assert.Equal(t, uint64(1), st.TasksExecuted)
}

func TestQueuedBackgroundWaitsInSurvival(t *testing.T) {
	rules := &countingRules{}
	svc := newService(t, quietConfig(), node.Deps{Rules: rules}, slowClock())

	_, err := svc.Tick(context.Background())
	require.NoError(t, err)
	require.NoError(t, svc.Enqueue(context.Background(), scheduler.AdaptiveRuleApplication))

	rep, err := svc.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, throttle.Survival, rep.Level)
	assert.Empty(t, rep.Executed)
	assert.Zero(t, rules.calls)

	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Pending[scheduler.Background.String()])
}

func TestQueuedCriticalServesAnotherInput(t *testing.T) {
	queue := userio.NewQueue(4)
	engine := new(mocks.Engine)
	engine.On("Infer", mock.Anything, mock.Anything).Return(inference.Output{Text: "ok", Tokens: 1}, nil)

	svc := newService(t, quietConfig(), node.Deps{Engine: engine, IO: queue}, fixedClock())
	require.NoError(t, svc.Submit(context.Background(), "first"))
	require.NoError(t, svc.Submit(context.Background(), "second"))
	require.NoError(t, svc.Enqueue(context.Background(), scheduler.UserInference))

	_, err := svc.Tick(context.Background())
	require.NoError(t, err)

	delivered := queue.Drain()
	require.Len(t, delivered, 2)
	assert.Equal(t, "first", delivered[0].Input)
	assert.Equal(t, "second", delivered[1].Input)
}

func TestPrivacy(t *testing.T) {
	t.Run("without learner", func(t *testing.T) {
		svc := newService(t, quietConfig(), node.Deps{})

		ps, err := svc.Privacy(context.Background())
		require.NoError(t, err)
		assert.False(t, ps.Enabled)

		err = svc.ResetPrivacy(context.Background())
		assert.ErrorIs(t, err, pkgerrors.ErrUnavailable)
	})

	t.Run("with learner", func(t *testing.T) {
		learner := new(mocks.Learner)
		learner.On("Enabled").Return(true)
		learner.On("Privacy").Return(dp.AccountantSnapshot{Budget: 10, Total: 4, Remaining: 6, Rounds: 4})
		learner.On("ResetBudget").Once()

		svc := newService(t, quietConfig(), node.Deps{Learner: learner})

		ps, err := svc.Privacy(context.Background())
		require.NoError(t, err)
		assert.True(t, ps.Enabled)
		assert.Equal(t, float32(6), ps.Remaining)
		assert.Equal(t, uint64(4), ps.Rounds)

		require.NoError(t, svc.ResetPrivacy(context.Background()))
		learner.AssertExpectations(t)
	})
}

func TestSubmit(t *testing.T) {
	svc := newService(t, quietConfig(), node.Deps{IO: userio.NewQueue(1)})

	cases := []struct {
		desc  string
		input string
		err   error
	}{
		{desc: "empty input", input: "", err: userio.ErrEmptyInput},
		{desc: "valid input", input: "hello"},
		{desc: "queue full", input: "again", err: userio.ErrQueueFull},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := svc.Submit(context.Background(), tc.input)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}
