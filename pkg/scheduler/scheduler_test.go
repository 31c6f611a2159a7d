package scheduler_test

import (
	"encoding/json"
	"testing"

	"github.com/absmach/cortex/pkg/scheduler"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLaneWeights(t *testing.T) {
	assert.Equal(t, uint32(10), scheduler.Critical.Weight())
	assert.Equal(t, uint32(5), scheduler.Normal.Weight())
	assert.Equal(t, uint32(1), scheduler.Background.Weight())

	assert.False(t, scheduler.Critical.IsBackground())
	assert.False(t, scheduler.Normal.IsBackground())
	assert.True(t, scheduler.Background.IsBackground())
}

func TestTaskKindLaneAndCost(t *testing.T) {
	cases := []struct {
		desc string
		kind scheduler.TaskKind
		lane scheduler.Lane
		cost float64
	}{
		{desc: "user inference", kind: scheduler.UserInference, lane: scheduler.Critical, cost: 0.3},
		{desc: "policy evaluation", kind: scheduler.PolicyEvaluation, lane: scheduler.Critical, cost: 0.05},
		{desc: "user delivery", kind: scheduler.UserDelivery, lane: scheduler.Critical, cost: 0.01},
		{desc: "local training", kind: scheduler.LocalTraining, lane: scheduler.Normal, cost: 0.8},
		{desc: "delta computation", kind: scheduler.DeltaComputation, lane: scheduler.Normal, cost: 0.2},
		{desc: "delta submission", kind: scheduler.DeltaSubmission, lane: scheduler.Normal, cost: 0.1},
		{desc: "metrics sampling", kind: scheduler.MetricsSampling, lane: scheduler.Background, cost: 0.02},
		{desc: "snapshot creation", kind: scheduler.SnapshotCreation, lane: scheduler.Background, cost: 0.4},
		{desc: "update check", kind: scheduler.UpdateCheck, lane: scheduler.Background, cost: 0.05},
		{desc: "adaptive rule application", kind: scheduler.AdaptiveRuleApplication, lane: scheduler.Background, cost: 0.1},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.lane, tc.kind.Lane())
			assert.InDelta(t, tc.cost, tc.kind.Cost(), 1e-9)
			assert.GreaterOrEqual(t, tc.kind.Cost(), 0.0)
			assert.LessOrEqual(t, tc.kind.Cost(), 1.0)
		})
	}
}

func TestTaskKindText(t *testing.T) {
	data, err := json.Marshal([]scheduler.TaskKind{scheduler.SnapshotCreation, scheduler.UserInference})
	require.NoError(t, err)
	assert.JSONEq(t, `["snapshot_creation","user_inference"]`, string(data))

	var kinds []scheduler.TaskKind
	require.NoError(t, json.Unmarshal([]byte(`["update_check","adaptive_rule_application"]`), &kinds))
	assert.Equal(t, []scheduler.TaskKind{scheduler.UpdateCheck, scheduler.AdaptiveRuleApplication}, kinds)

	_, err = scheduler.ParseTaskKind("reboot")
	assert.ErrorIs(t, err, scheduler.ErrUnknownTaskKind)
}

func TestScheduledWork(t *testing.T) {
	empty := scheduler.EmptyWork()
	assert.False(t, empty.HasWork())
	assert.Equal(t, 0, empty.TaskCount())
	assert.Zero(t, empty.TotalCost())

	work := scheduler.ScheduledWork{
		Tasks:  []scheduler.TaskKind{scheduler.UserInference, scheduler.LocalTraining, scheduler.MetricsSampling},
		Budget: 0.9,
	}
	assert.True(t, work.HasWork())
	assert.Equal(t, 3, work.TaskCount())
	assert.InDelta(t, 1.12, work.TotalCost(), 1e-9)
	assert.Equal(t, []scheduler.TaskKind{scheduler.LocalTraining}, work.ByLane(scheduler.Normal))
}

func TestScheduleTick(t *testing.T) {
	critical := scheduler.CriticalTasks()
	withCritical := func(extra ...scheduler.TaskKind) []scheduler.TaskKind {
		return append(scheduler.CriticalTasks(), extra...)
	}

	cases := []struct {
		desc       string
		tick       uint64
		tasks      []scheduler.TaskKind
		background bool
	}{
		{desc: "plain tick", tick: 7, tasks: critical},
		{desc: "training tick", tick: 10, tasks: withCritical(scheduler.LocalTraining)},
		{desc: "delta tick", tick: 100, tasks: withCritical(scheduler.LocalTraining, scheduler.DeltaComputation, scheduler.DeltaSubmission)},
		{
			desc:       "metrics tick",
			tick:       3_000,
			tasks:      withCritical(scheduler.LocalTraining, scheduler.DeltaComputation, scheduler.DeltaSubmission, scheduler.MetricsSampling),
			background: true,
		},
		{
			desc:       "snapshot tick",
			tick:       20_000,
			tasks:      withCritical(scheduler.LocalTraining, scheduler.DeltaComputation, scheduler.DeltaSubmission, scheduler.SnapshotCreation, scheduler.MetricsSampling),
			background: true,
		},
		{
			desc: "tick zero admits every cadence",
			tick: 0,
			tasks: withCritical(
				scheduler.LocalTraining, scheduler.DeltaComputation, scheduler.DeltaSubmission,
				scheduler.SnapshotCreation, scheduler.MetricsSampling, scheduler.UpdateCheck,
			),
			background: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			s := scheduler.New(scheduler.DefaultConfig())
			work := s.ScheduleTick(tc.tick)

			if diff := cmp.Diff(tc.tasks, work.Tasks); diff != "" {
				t.Errorf("unexpected plan (-want +got):\n%s", diff)
			}
			assert.Equal(t, tc.background, work.BackgroundActive)
			assert.InDelta(t, 0.9, work.Budget, 1e-9)
			assert.Equal(t, uint64(1), s.TicksScheduled())
		})
	}
}

func TestScheduleTickAlwaysIncludesCritical(t *testing.T) {
	s := scheduler.New(scheduler.DefaultConfig())
	for n := uint64(0); n < 2_500; n++ {
		work := s.ScheduleTick(n)
		require.GreaterOrEqual(t, work.TaskCount(), 3)
		assert.Equal(t, scheduler.CriticalTasks(), work.Tasks[:3])
		assert.GreaterOrEqual(t, work.Budget, 0.0)
		assert.LessOrEqual(t, work.Budget, 1.0)

		lastLane := scheduler.Critical
		for _, k := range work.Tasks {
			assert.GreaterOrEqual(t, uint8(k.Lane()), uint8(lastLane))
			lastLane = k.Lane()
		}
	}
	assert.Equal(t, uint64(2_500), s.TicksScheduled())
}

func TestScheduleTickBackgroundCadence(t *testing.T) {
	s := scheduler.New(scheduler.DefaultConfig())
	snapshots := 0
	for n := uint64(1); n <= 30_000; n++ {
		work := s.ScheduleTick(n)
		for _, k := range work.Tasks {
			if k == scheduler.SnapshotCreation {
				snapshots++
				assert.Zero(t, n%10_000)
			}
		}
	}
	assert.Equal(t, 3, snapshots)
}

func TestScheduleTickBudgetClamped(t *testing.T) {
	cfg := scheduler.DefaultConfig()
	cfg.MaxBudgetPerTick = 1.7
	s := scheduler.New(cfg)
	assert.InDelta(t, 1.0, s.ScheduleTick(1).Budget, 1e-9)
	assert.Error(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		desc   string
		mutate func(*scheduler.Config)
		valid  bool
	}{
		{desc: "defaults", mutate: func(*scheduler.Config) {}, valid: true},
		{desc: "negative budget", mutate: func(c *scheduler.Config) { c.MaxBudgetPerTick = -0.1 }},
		{desc: "zero training cadence", mutate: func(c *scheduler.Config) { c.TrainingEvery = 0 }},
		{desc: "zero update cadence", mutate: func(c *scheduler.Config) { c.UpdateCheckEvery = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := scheduler.DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.valid {
				assert.NoError(t, err)

				return
			}
			assert.Error(t, err)
		})
	}
}

func TestQueues(t *testing.T) {
	s := scheduler.New(scheduler.DefaultConfig())
	assert.Equal(t, 0, s.PendingTasks())

	s.Enqueue(scheduler.UserInference)
	s.Enqueue(scheduler.PolicyEvaluation)
	s.Enqueue(scheduler.LocalTraining)
	s.Enqueue(scheduler.SnapshotCreation)
	assert.Equal(t, 4, s.PendingTasks())
	assert.Equal(t, 2, s.PendingByLane(scheduler.Critical))

	kind, ok := s.DequeueCritical()
	require.True(t, ok)
	assert.Equal(t, scheduler.UserInference, kind)

	kind, ok = s.DequeueCritical()
	require.True(t, ok)
	assert.Equal(t, scheduler.PolicyEvaluation, kind)

	_, ok = s.DequeueCritical()
	assert.False(t, ok)

	kind, ok = s.DequeueNormal()
	require.True(t, ok)
	assert.Equal(t, scheduler.LocalTraining, kind)

	kind, ok = s.DequeueBackground()
	require.True(t, ok)
	assert.Equal(t, scheduler.SnapshotCreation, kind)

	assert.Equal(t, uint64(4), s.TasksExecuted())
	assert.Equal(t, 0, s.PendingTasks())
}

func TestDequeueEmptyReturnsNone(t *testing.T) {
	s := scheduler.New(scheduler.DefaultConfig())

	_, ok := s.DequeueNormal()
	assert.False(t, ok)
	_, ok = s.DequeueBackground()
	assert.False(t, ok)
	_, ok = s.Dequeue(true)
	assert.False(t, ok)
	assert.Zero(t, s.TasksExecuted())
}

func TestClearAll(t *testing.T) {
	s := scheduler.New(scheduler.DefaultConfig())
	s.Enqueue(scheduler.UserDelivery)
	s.Enqueue(scheduler.DeltaSubmission)
	s.Enqueue(scheduler.UpdateCheck)

	s.ClearAll()

	assert.Equal(t, 0, s.PendingTasks())
	_, ok := s.DequeueCritical()
	assert.False(t, ok)
}

func TestWeightedDequeue(t *testing.T) {
	s := scheduler.New(scheduler.DefaultConfig())
	for range 32 {
		s.Enqueue(scheduler.UserInference)
		s.Enqueue(scheduler.LocalTraining)
		s.Enqueue(scheduler.MetricsSampling)
	}

	served := map[scheduler.Lane]int{}
	for range 16 {
		kind, ok := s.Dequeue(true)
		require.True(t, ok)
		served[kind.Lane()]++
	}

	assert.Equal(t, 10, served[scheduler.Critical])
	assert.Equal(t, 5, served[scheduler.Normal])
	assert.Equal(t, 1, served[scheduler.Background])
	assert.Equal(t, uint64(16), s.TasksExecuted())
}

func TestWeightedDequeueSkipsBackground(t *testing.T) {
	s := scheduler.New(scheduler.DefaultConfig())
	s.Enqueue(scheduler.SnapshotCreation)
	s.Enqueue(scheduler.DeltaComputation)

	kind, ok := s.Dequeue(false)
	require.True(t, ok)
	assert.Equal(t, scheduler.DeltaComputation, kind)

	_, ok = s.Dequeue(false)
	assert.False(t, ok)
	assert.Equal(t, 1, s.PendingByLane(scheduler.Background))

	kind, ok = s.Dequeue(true)
	require.True(t, ok)
	assert.Equal(t, scheduler.SnapshotCreation, kind)
}
