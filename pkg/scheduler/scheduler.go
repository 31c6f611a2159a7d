package scheduler

// PriorityScheduler plans the work of each tick and keeps per-lane FIFO
// queues for discrete task instances. It is not safe for concurrent use.
type PriorityScheduler struct {
	config         Config
	queues         map[Lane][]TaskKind
	current        map[Lane]int64
	ticksScheduled uint64
	tasksExecuted  uint64
}

func New(cfg Config) *PriorityScheduler {
	return &PriorityScheduler{
		config:  cfg,
		queues:  make(map[Lane][]TaskKind, len(lanes)),
		current: make(map[Lane]int64, len(lanes)),
	}
}

func (s *PriorityScheduler) Config() Config {
	return s.config
}

// ScheduleTick announces every task eligible on tick n, Critical first.
// The cadence is a pure function of n.
func (s *PriorityScheduler) ScheduleTick(n uint64) ScheduledWork {
	s.ticksScheduled++

	work := ScheduledWork{
		Tasks:  CriticalTasks(),
		Budget: clamp01(s.config.MaxBudgetPerTick),
	}

	if every(n, s.config.TrainingEvery) {
		work.Tasks = append(work.Tasks, LocalTraining)
	}
	if every(n, s.config.DeltaEvery) {
		work.Tasks = append(work.Tasks, DeltaComputation, DeltaSubmission)
	}

	if every(n, s.config.SnapshotEvery) {
		work.Tasks = append(work.Tasks, SnapshotCreation)
		work.BackgroundActive = true
	}
	if every(n, s.config.MetricsEvery) {
		work.Tasks = append(work.Tasks, MetricsSampling)
		work.BackgroundActive = true
	}
	if every(n, s.config.UpdateCheckEvery) {
		work.Tasks = append(work.Tasks, UpdateCheck)
		work.BackgroundActive = true
	}

	return work
}

func (s *PriorityScheduler) Enqueue(kind TaskKind) {
	lane := kind.Lane()
	s.queues[lane] = append(s.queues[lane], kind)
}

func (s *PriorityScheduler) DequeueCritical() (TaskKind, bool) {
	return s.dequeue(Critical)
}

func (s *PriorityScheduler) DequeueNormal() (TaskKind, bool) {
	return s.dequeue(Normal)
}

func (s *PriorityScheduler) DequeueBackground() (TaskKind, bool) {
	return s.dequeue(Background)
}

// Dequeue pops from the non-empty lanes in smooth weighted round robin
// order, so over time each lane is served in proportion to its weight.
// Background is skipped when allowBackground is false.
func (s *PriorityScheduler) Dequeue(allowBackground bool) (TaskKind, bool) {
	var (
		total    int64
		selected Lane
		found    bool
	)
	for _, l := range lanes {
		if len(s.queues[l]) == 0 || (l.IsBackground() && !allowBackground) {
			continue
		}
		w := int64(s.config.weight(l))
		if w == 0 {
			w = 1
		}
		s.current[l] += w
		total += w
		if !found || s.current[l] > s.current[selected] {
			selected = l
			found = true
		}
	}
	if !found {
		return 0, false
	}
	s.current[selected] -= total

	return s.dequeue(selected)
}

func (s *PriorityScheduler) PendingTasks() int {
	pending := 0
	for _, q := range s.queues {
		pending += len(q)
	}

	return pending
}

func (s *PriorityScheduler) PendingByLane(l Lane) int {
	return len(s.queues[l])
}

func (s *PriorityScheduler) TicksScheduled() uint64 {
	return s.ticksScheduled
}

func (s *PriorityScheduler) TasksExecuted() uint64 {
	return s.tasksExecuted
}

func (s *PriorityScheduler) ClearAll() {
	for _, l := range lanes {
		s.queues[l] = nil
		s.current[l] = 0
	}
}

func (s *PriorityScheduler) dequeue(l Lane) (TaskKind, bool) {
	q := s.queues[l]
	if len(q) == 0 {
		return 0, false
	}
	kind := q[0]
	s.queues[l] = q[1:]
	s.tasksExecuted++

	return kind, true
}

func every(n, k uint64) bool {
	return k != 0 && n%k == 0
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
