// Package userio connects the node to its users: inputs are buffered and
// polled without blocking, responses are delivered back.
package userio

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/absmach/cortex/pkg/inference"
	"github.com/absmach/cortex/pkg/policy"
)

var (
	ErrQueueFull  = errors.New("input queue is full")
	ErrEmptyInput = errors.New("empty input")
)

const DefaultBuffer = 64

type Response struct {
	Input    string         `json:"input"`
	Text     string         `json:"text"`
	Decision policy.Kind    `json:"decision"`
	Reason   string         `json:"reason,omitempty"`
	Mode     inference.Mode `json:"mode"`
	Tokens   int            `json:"tokens"`
	At       time.Time      `json:"at"`
}

// Queue buffers inputs in memory and keeps delivered responses until
// they are drained.
type Queue struct {
	inputs chan string

	mu        sync.Mutex
	responses []Response
}

func NewQueue(buffer int) *Queue {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	return &Queue{inputs: make(chan string, buffer)}
}

func (q *Queue) Push(input string) error {
	if input == "" {
		return ErrEmptyInput
	}

	select {
	case q.inputs <- input:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) TryRecv() (string, bool) {
	select {
	case input := <-q.inputs:
		return input, true
	default:
		return "", false
	}
}

func (q *Queue) Pending() int {
	return len(q.inputs)
}

func (q *Queue) Deliver(ctx context.Context, r Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.responses = append(q.responses, r)

	return nil
}

// Drain returns and forgets the delivered responses.
func (q *Queue) Drain() []Response {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.responses
	q.responses = nil

	return out
}
