package mocks

import (
	"context"

	"github.com/absmach/cortex/node"
	"github.com/absmach/cortex/pkg/dp"
	"github.com/absmach/cortex/pkg/fl"
	"github.com/absmach/cortex/pkg/inference"
	"github.com/absmach/cortex/pkg/monitoring"
	"github.com/absmach/cortex/pkg/scheduler"
	"github.com/absmach/cortex/pkg/storage"
	"github.com/absmach/cortex/pkg/trainer"
	"github.com/absmach/cortex/pkg/update"
	"github.com/stretchr/testify/mock"
)

var (
	_ node.Service         = (*Service)(nil)
	_ node.InferenceEngine = (*Engine)(nil)
	_ node.Learner         = (*Learner)(nil)
	_ node.DeltaSubmitter  = (*Submitter)(nil)
	_ node.SnapshotStore   = (*SnapshotStore)(nil)
	_ node.UpdateChecker   = (*UpdateChecker)(nil)
	_ node.MetricsSampler  = (*Sampler)(nil)
)

// Service is a mock implementation of the node.Service interface.
type Service struct {
	mock.Mock
}

func (m *Service) Tick(ctx context.Context) (node.TickReport, error) {
	args := m.Called(ctx)

	return args.Get(0).(node.TickReport), args.Error(1)
}

func (m *Service) Enqueue(ctx context.Context, kind scheduler.TaskKind) error {
	args := m.Called(ctx, kind)

	return args.Error(0)
}

func (m *Service) Status(ctx context.Context) (node.Status, error) {
	args := m.Called(ctx)

	return args.Get(0).(node.Status), args.Error(1)
}

func (m *Service) Privacy(ctx context.Context) (node.PrivacyStatus, error) {
	args := m.Called(ctx)

	return args.Get(0).(node.PrivacyStatus), args.Error(1)
}

func (m *Service) ResetPrivacy(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *Service) Submit(ctx context.Context, input string) error {
	args := m.Called(ctx, input)

	return args.Error(0)
}

type Engine struct {
	mock.Mock
}

func (m *Engine) Infer(ctx context.Context, input string) (inference.Output, error) {
	args := m.Called(ctx, input)

	return args.Get(0).(inference.Output), args.Error(1)
}

type Learner struct {
	mock.Mock
}

func (m *Learner) TrainLocal(ctx context.Context, intensity float64) (trainer.RoundStats, error) {
	args := m.Called(ctx, intensity)

	return args.Get(0).(trainer.RoundStats), args.Error(1)
}

func (m *Learner) ComputeDelta(ctx context.Context) (fl.Delta, bool, error) {
	args := m.Called(ctx)

	return args.Get(0).(fl.Delta), args.Bool(1), args.Error(2)
}

func (m *Learner) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *Learner) ResetBudget() {
	m.Called()
}

func (m *Learner) Privacy() dp.AccountantSnapshot {
	return m.Called().Get(0).(dp.AccountantSnapshot)
}

func (m *Learner) Stats() trainer.TrainerStats {
	return m.Called().Get(0).(trainer.TrainerStats)
}

func (m *Learner) Params() []float32 {
	return m.Called().Get(0).([]float32)
}

type Submitter struct {
	mock.Mock
}

func (m *Submitter) SubmitDelta(ctx context.Context, d fl.Delta) error {
	return m.Called(ctx, d).Error(0)
}

type SnapshotStore struct {
	mock.Mock
}

func (m *SnapshotStore) SaveSnapshot(ctx context.Context, s storage.Snapshot) error {
	return m.Called(ctx, s).Error(0)
}

type UpdateChecker struct {
	mock.Mock
}

func (m *UpdateChecker) CheckForUpdates(ctx context.Context) (update.Info, error) {
	args := m.Called(ctx)

	return args.Get(0).(update.Info), args.Error(1)
}

type Sampler struct {
	mock.Mock
}

func (m *Sampler) Sample(ctx context.Context) (monitoring.ProcessMetrics, error) {
	args := m.Called(ctx)

	return args.Get(0).(monitoring.ProcessMetrics), args.Error(1)
}
