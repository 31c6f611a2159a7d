package node

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/absmach/cortex/pkg/dp"
	pkgerrors "github.com/absmach/cortex/pkg/errors"
	"github.com/absmach/cortex/pkg/fl"
	"github.com/absmach/cortex/pkg/inference"
	"github.com/absmach/cortex/pkg/monitoring"
	"github.com/absmach/cortex/pkg/observer"
	"github.com/absmach/cortex/pkg/policy"
	"github.com/absmach/cortex/pkg/scheduler"
	"github.com/absmach/cortex/pkg/storage"
	"github.com/absmach/cortex/pkg/throttle"
	"github.com/absmach/cortex/pkg/trainer"
	"github.com/absmach/cortex/pkg/update"
	"github.com/absmach/cortex/pkg/userio"
	"github.com/google/uuid"
)

var ErrMissingCollaborator = errors.New("missing required collaborator")

type Option func(*service)

// WithClock replaces the wall clock used for tick latency and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

type service struct {
	config Config
	deps   Deps
	logger *slog.Logger
	now    func() time.Time

	// tickMu serialises ticks. The throttle and the pending delta are
	// only touched while it is held.
	tickMu   sync.Mutex
	throttle *throttle.AdaptiveThrottle
	tick     uint64
	delta    *fl.Delta

	// mu guards the scheduler queues and the published status.
	mu        sync.Mutex
	scheduler *scheduler.PriorityScheduler
	status    Status
}

func NewService(cfg Config, deps Deps, logger *slog.Logger, opts ...Option) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Engine == nil:
		return nil, errors.Join(ErrMissingCollaborator, errors.New("inference engine"))
	case deps.Policy == nil:
		return nil, errors.Join(ErrMissingCollaborator, errors.New("policy"))
	case deps.IO == nil:
		return nil, errors.Join(ErrMissingCollaborator, errors.New("io layer"))
	}
	if deps.Observer == nil {
		deps.Observer = observer.Noop()
	}
	if deps.Meta == nil {
		deps.Meta = observer.NewMetaObserver()
	}

	s := &service{
		config:    cfg,
		deps:      deps,
		logger:    logger,
		now:       time.Now,
		scheduler: scheduler.New(cfg.Scheduler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.throttle = throttle.New(cfg.Throttle, throttle.WithClock(s.now))
	s.status = Status{
		NodeID:    cfg.NodeID,
		Tier:      cfg.Tier,
		Throttle:  s.throttle.Snapshot(),
		StartedAt: s.now().UTC(),
	}

	return s, nil
}

func (s *service) Tick(ctx context.Context) (TickReport, error) {
	if err := ctx.Err(); err != nil {
		return TickReport{}, err
	}

	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	start := s.now()
	s.tick++
	if s.config.AutoThrottle {
		s.throttle.Update(s.config.Tier)
	} else {
		s.throttle.CountTick()
	}
	allowBackground := s.throttle.AllowBackground()
	intensity := s.throttle.Intensity()

	s.mu.Lock()
	work := s.scheduler.ScheduleTick(s.tick)
	s.mu.Unlock()

	rep := TickReport{
		Tick:      s.tick,
		Work:      work,
		Executed:  []scheduler.TaskKind{},
		Level:     s.throttle.Level(),
		Intensity: intensity,
	}

	if resp, ok := s.respond(ctx, &rep); ok {
		rep.Response = &resp
		rep.Executed = append(rep.Executed, scheduler.CriticalTasks()...)
	}

	for _, lane := range []scheduler.Lane{scheduler.Normal, scheduler.Background} {
		for _, kind := range work.ByLane(lane) {
			if !allowBackground {
				rep.Deferred = append(rep.Deferred, kind)

				continue
			}
			s.run(ctx, kind, intensity, &rep)
			rep.Executed = append(rep.Executed, kind)
		}
	}

	s.drain(ctx, allowBackground, intensity, &rep)

	elapsed := s.now().Sub(start)
	s.throttle.RecordTickLatency(elapsed)
	rep.LatencyMS = float64(elapsed.Microseconds()) / 1000
	rep.At = s.now().UTC()

	s.deps.Observer.ObserveTick(observer.TickMetrics{
		NodeID:    s.config.NodeID,
		Tick:      rep.Tick,
		LatencyMS: rep.LatencyMS,
		Level:     s.throttle.Level(),
		Intensity: s.throttle.Intensity(),
		Tasks:     len(rep.Executed),
		TimedOut:  rep.TimedOut,
		At:        rep.At,
	})
	s.publish(rep)

	return rep, nil
}

// drain runs queued task instances, Critical lane only when background
// work is not allowed.
func (s *service) drain(ctx context.Context, allowBackground bool, intensity float64, rep *TickReport) {
	for range s.config.MaxQueuedPerTick {
		if ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		var (
			kind scheduler.TaskKind
			ok   bool
		)
		if allowBackground {
			kind, ok = s.scheduler.Dequeue(true)
		} else {
			kind, ok = s.scheduler.DequeueCritical()
		}
		s.mu.Unlock()
		if !ok {
			return
		}

		if kind.Lane() == scheduler.Critical {
			if resp, served := s.respond(ctx, rep); served && rep.Response == nil {
				rep.Response = &resp
			}
			rep.Executed = append(rep.Executed, kind)

			continue
		}
		s.run(ctx, kind, intensity, rep)
		rep.Executed = append(rep.Executed, kind)
	}
}

// respond serves at most one pending input through inference, policy and
// delivery.
func (s *service) respond(ctx context.Context, rep *TickReport) (userio.Response, bool) {
	input, ok := s.deps.IO.TryRecv()
	if !ok {
		return userio.Response{}, false
	}

	start := s.now()
	var out inference.Output
	err := s.bounded(ctx, rep, scheduler.UserInference, func(ctx context.Context) error {
		var err error
		out, err = s.deps.Engine.Infer(ctx, input)

		return err
	})
	if err != nil {
		s.logger.Warn("Inference failed", slog.Uint64("tick", rep.Tick), slog.Any("error", err))
		out = inference.Output{}
	}

	decision := s.deps.Policy.Evaluate(input, out)
	s.deps.Meta.ObserveInference(input, out, decision, s.now().Sub(start))

	resp := userio.Response{
		Input:    input,
		Text:     policy.Render(decision, out),
		Decision: decision.Kind,
		Reason:   decision.Reason,
		Mode:     out.Mode,
		Tokens:   out.Tokens,
		At:       s.now().UTC(),
	}
	if err := s.bounded(ctx, rep, scheduler.UserDelivery, func(ctx context.Context) error {
		return s.deps.IO.Deliver(ctx, resp)
	}); err != nil {
		s.logger.Warn("Failed to deliver response", slog.Uint64("tick", rep.Tick), slog.Any("error", err))
	}

	return resp, true
}

func (s *service) run(ctx context.Context, kind scheduler.TaskKind, intensity float64, rep *TickReport) {
	var err error
	switch kind {
	case scheduler.LocalTraining:
		err = s.train(ctx, intensity, rep)
	case scheduler.DeltaComputation:
		err = s.computeDelta(ctx, rep)
	case scheduler.DeltaSubmission:
		err = s.submitDelta(ctx, rep)
	case scheduler.MetricsSampling:
		err = s.sample(ctx, rep)
	case scheduler.SnapshotCreation:
		err = s.snapshot(ctx, rep)
	case scheduler.UpdateCheck:
		err = s.checkUpdates(ctx, rep)
	case scheduler.AdaptiveRuleApplication:
		if s.deps.Rules != nil {
			err = s.bounded(ctx, rep, kind, s.deps.Rules.ApplyRules)
		}
	}
	if err != nil {
		s.logger.Warn("Task failed",
			slog.String("task", kind.String()),
			slog.Uint64("tick", rep.Tick),
			slog.Any("error", err),
		)
	}
}

func (s *service) train(ctx context.Context, intensity float64, rep *TickReport) error {
	learner := s.deps.Learner
	if learner == nil || !learner.Enabled() {
		return nil
	}
	if learner.Privacy().Exhausted {
		s.logger.Debug("Skipping training, privacy budget exhausted", slog.Uint64("tick", rep.Tick))

		return nil
	}

	err := s.bounded(ctx, rep, scheduler.LocalTraining, func(ctx context.Context) error {
		stats, err := learner.TrainLocal(ctx, intensity)
		if err != nil {
			return err
		}
		if stats.BatchesProcessed > 0 {
			rep.Round = &stats
			s.deps.Observer.ObserveRound(stats)
		}

		return nil
	})
	if errors.Is(err, dp.ErrBudgetExhausted) {
		s.logger.Info("Privacy budget exhausted", slog.Uint64("tick", rep.Tick))

		return nil
	}

	return err
}

func (s *service) computeDelta(ctx context.Context, rep *TickReport) error {
	if s.deps.Learner == nil || !s.deps.Learner.Enabled() {
		return nil
	}

	return s.bounded(ctx, rep, scheduler.DeltaComputation, func(ctx context.Context) error {
		d, ok, err := s.deps.Learner.ComputeDelta(ctx)
		if err != nil || !ok {
			return err
		}
		s.delta = &d
		rep.DeltaID = d.ID

		return nil
	})
}

// submitDelta sends the pending delta once. A failed submission drops it.
func (s *service) submitDelta(ctx context.Context, rep *TickReport) error {
	d := s.delta
	s.delta = nil
	if d == nil || s.deps.Submitter == nil {
		return nil
	}

	return s.bounded(ctx, rep, scheduler.DeltaSubmission, func(ctx context.Context) error {
		return s.deps.Submitter.SubmitDelta(ctx, *d)
	})
}

func (s *service) sample(ctx context.Context, rep *TickReport) error {
	if s.deps.Sampler == nil {
		return nil
	}

	return s.bounded(ctx, rep, scheduler.MetricsSampling, func(ctx context.Context) error {
		m, err := s.deps.Sampler.Sample(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.status.Process = &m
		s.mu.Unlock()

		return nil
	})
}

func (s *service) snapshot(ctx context.Context, rep *TickReport) error {
	if s.deps.Snapshots == nil || s.deps.Learner == nil {
		return nil
	}

	snap := storage.Snapshot{
		ID:        uuid.NewString(),
		NodeID:    s.config.NodeID,
		Tick:      rep.Tick,
		Params:    s.deps.Learner.Params(),
		CreatedAt: s.now().UTC(),
	}

	return s.bounded(ctx, rep, scheduler.SnapshotCreation, func(ctx context.Context) error {
		return s.deps.Snapshots.SaveSnapshot(ctx, snap)
	})
}

func (s *service) checkUpdates(ctx context.Context, rep *TickReport) error {
	if s.deps.Updates == nil {
		return nil
	}

	return s.bounded(ctx, rep, scheduler.UpdateCheck, func(ctx context.Context) error {
		info, err := s.deps.Updates.CheckForUpdates(ctx)
		if err != nil {
			return err
		}
		if info.Available {
			s.logger.Info("Update available",
				slog.String("current", info.Current),
				slog.String("latest", info.Latest),
				slog.String("digest", info.Digest),
			)
		}
		s.mu.Lock()
		s.status.Update = &info
		s.mu.Unlock()

		return nil
	})
}

// bounded runs fn under the call timeout and flags the tick when the
// deadline expires.
func (s *service) bounded(ctx context.Context, rep *TickReport, kind scheduler.TaskKind, fn func(ctx context.Context) error) error {
	if s.config.CallTimeout == 0 {
		return fn(ctx)
	}

	cctx, cancel := context.WithTimeout(ctx, s.config.CallTimeout)
	defer cancel()

	err := fn(cctx)
	if ctx.Err() == nil && errors.Is(cctx.Err(), context.DeadlineExceeded) {
		rep.TimedOut = true
		s.logger.Warn("Task timed out",
			slog.String("task", kind.String()),
			slog.Uint64("tick", rep.Tick),
			slog.Duration("timeout", s.config.CallTimeout),
		)
	}

	return err
}

func (s *service) publish(rep TickReport) {
	var training *trainer.TrainerStats
	if s.deps.Learner != nil {
		stats := s.deps.Learner.Stats()
		training = &stats
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.Tick = rep.Tick
	s.status.Throttle = s.throttle.Snapshot()
	s.status.Training = training
	s.status.LastTick = &rep
}

func (s *service) Enqueue(ctx context.Context, kind scheduler.TaskKind) error {
	if _, err := kind.MarshalText(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.scheduler.Enqueue(kind)

	return nil
}

func (s *service) Status(ctx context.Context) (Status, error) {
	inf := s.deps.Meta.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.status
	st.Inference = inf
	st.TicksScheduled = s.scheduler.TicksScheduled()
	st.TasksExecuted = s.scheduler.TasksExecuted()
	st.Pending = make(map[string]int, len(scheduler.Lanes()))
	for _, l := range scheduler.Lanes() {
		st.Pending[l.String()] = s.scheduler.PendingByLane(l)
	}
	if st.LastTick != nil {
		last := *st.LastTick
		last.Executed = slices.Clone(last.Executed)
		last.Deferred = slices.Clone(last.Deferred)
		st.LastTick = &last
	}

	return st, nil
}

func (s *service) Privacy(ctx context.Context) (PrivacyStatus, error) {
	if s.deps.Learner == nil {
		return PrivacyStatus{}, nil
	}

	return PrivacyStatus{
		Enabled:            s.deps.Learner.Enabled(),
		AccountantSnapshot: s.deps.Learner.Privacy(),
	}, nil
}

func (s *service) ResetPrivacy(ctx context.Context) error {
	if s.deps.Learner == nil {
		return errors.Join(pkgerrors.ErrUnavailable, errors.New("federated learning is not configured"))
	}
	s.deps.Learner.ResetBudget()

	return nil
}

func (s *service) Submit(ctx context.Context, input string) error {
	return s.deps.IO.Push(input)
}

var (
	_ MetricsSampler = (*monitoring.ProcessMonitor)(nil)
	_ UpdateChecker  = update.Noop{}
	_ IOLayer        = (*userio.Queue)(nil)
	_ Learner        = (*fl.Session)(nil)
	_ DeltaSubmitter = (*fl.MQTTSubmitter)(nil)
	_ RuleApplier    = (*policy.Policy)(nil)
)
