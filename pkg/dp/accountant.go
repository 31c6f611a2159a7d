package dp

import "errors"

var ErrBudgetExhausted = errors.New("privacy budget exhausted")

// AccountantSnapshot is a copy of the accountant state.
type AccountantSnapshot struct {
	Budget    float32 `json:"budget"`
	Total     float32 `json:"total_epsilon"`
	Remaining float32 `json:"remaining"`
	Rounds    uint64  `json:"rounds"`
	Exhausted bool    `json:"exhausted"`
}

// Accountant tracks epsilon spending under linear composition.
type Accountant struct {
	budget float32
	total  float32
	rounds uint64
}

func NewAccountant(budget float32) *Accountant {
	return &Accountant{budget: budget}
}

func (a *Accountant) RecordRound(epsilon float32) {
	a.total += epsilon
	a.rounds++
}

func (a *Accountant) IsBudgetExhausted() bool {
	return a.total >= a.budget
}

func (a *Accountant) RemainingBudget() float32 {
	return max(a.budget-a.total, 0)
}

func (a *Accountant) TotalEpsilon() float32 {
	return a.total
}

func (a *Accountant) Rounds() uint64 {
	return a.rounds
}

func (a *Accountant) Budget() float32 {
	return a.budget
}

// Reset clears spending and keeps the budget.
func (a *Accountant) Reset() {
	a.total = 0
	a.rounds = 0
}

func (a *Accountant) Snapshot() AccountantSnapshot {
	return AccountantSnapshot{
		Budget:    a.budget,
		Total:     a.total,
		Remaining: a.RemainingBudget(),
		Rounds:    a.rounds,
		Exhausted: a.IsBudgetExhausted(),
	}
}
