package scheduler

// ScheduledWork is the plan produced for a single tick.
type ScheduledWork struct {
	Tasks            []TaskKind `json:"tasks"`
	Budget           float64    `json:"budget"`
	BackgroundActive bool       `json:"background_active"`
}

func EmptyWork() ScheduledWork {
	return ScheduledWork{
		Tasks:  []TaskKind{},
		Budget: 0,
	}
}

func (w ScheduledWork) HasWork() bool {
	return len(w.Tasks) > 0
}

func (w ScheduledWork) TaskCount() int {
	return len(w.Tasks)
}

func (w ScheduledWork) TotalCost() float64 {
	var total float64
	for _, t := range w.Tasks {
		total += t.Cost()
	}

	return total
}

// ByLane returns the planned tasks of one lane, preserving plan order.
func (w ScheduledWork) ByLane(l Lane) []TaskKind {
	tasks := make([]TaskKind, 0, len(w.Tasks))
	for _, t := range w.Tasks {
		if t.Lane() == l {
			tasks = append(tasks, t)
		}
	}

	return tasks
}
