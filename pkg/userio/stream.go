package userio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Stream reads one input per line and writes each response text on its
// own line.
type Stream struct {
	*Queue

	r  io.Reader
	mu sync.Mutex
	w  io.Writer
}

func NewStream(r io.Reader, w io.Writer, buffer int) *Stream {
	return &Stream{
		Queue: NewQueue(buffer),
		r:     r,
		w:     w,
	}
}

// Run reads lines until EOF or until ctx is done. Blank lines are
// skipped; lines arriving while the queue is full are dropped.
func (s *Stream) Run(ctx context.Context) error {
	lines := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errs <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errs:
					return err
				default:
					return nil
				}
			}
			if line = strings.TrimSpace(line); line == "" {
				continue
			}
			_ = s.Push(line)
		}
	}
}

func (s *Stream) Deliver(ctx context.Context, r Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintln(s.w, r.Text); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}

	return nil
}
