package scheduler

import (
	"errors"
	"fmt"
)

var ErrUnknownTaskKind = errors.New("unknown task kind")

type TaskKind uint8

const (
	UserInference TaskKind = iota
	PolicyEvaluation
	UserDelivery
	LocalTraining
	DeltaComputation
	DeltaSubmission
	MetricsSampling
	SnapshotCreation
	UpdateCheck
	AdaptiveRuleApplication
)

var taskNames = map[TaskKind]string{
	UserInference:           "user_inference",
	PolicyEvaluation:        "policy_evaluation",
	UserDelivery:            "user_delivery",
	LocalTraining:           "local_training",
	DeltaComputation:        "delta_computation",
	DeltaSubmission:         "delta_submission",
	MetricsSampling:         "metrics_sampling",
	SnapshotCreation:        "snapshot_creation",
	UpdateCheck:             "update_check",
	AdaptiveRuleApplication: "adaptive_rule_application",
}

// CriticalTasks is the set announced on every tick.
func CriticalTasks() []TaskKind {
	return []TaskKind{UserInference, PolicyEvaluation, UserDelivery}
}

func (k TaskKind) Lane() Lane {
	switch k {
	case UserInference, PolicyEvaluation, UserDelivery:
		return Critical
	case LocalTraining, DeltaComputation, DeltaSubmission:
		return Normal
	default:
		return Background
	}
}

// Cost is the approximate fraction of a tick the task consumes.
func (k TaskKind) Cost() float64 {
	switch k {
	case UserInference:
		return 0.3
	case PolicyEvaluation:
		return 0.05
	case UserDelivery:
		return 0.01
	case LocalTraining:
		return 0.8
	case DeltaComputation:
		return 0.2
	case DeltaSubmission:
		return 0.1
	case MetricsSampling:
		return 0.02
	case SnapshotCreation:
		return 0.4
	case UpdateCheck:
		return 0.05
	case AdaptiveRuleApplication:
		return 0.1
	default:
		return 0
	}
}

func (k TaskKind) String() string {
	if name, ok := taskNames[k]; ok {
		return name
	}

	return "unknown"
}

func (k TaskKind) MarshalText() ([]byte, error) {
	name, ok := taskNames[k]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTaskKind, k)
	}

	return []byte(name), nil
}

func (k *TaskKind) UnmarshalText(text []byte) error {
	kind, err := ParseTaskKind(string(text))
	if err != nil {
		return err
	}
	*k = kind

	return nil
}

func ParseTaskKind(name string) (TaskKind, error) {
	for kind, n := range taskNames {
		if n == name {
			return kind, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownTaskKind, name)
}
