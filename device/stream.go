// SPDX-License-Identifier: MIT

package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Task is a unit of stream work. A non-nil error marks the stream faulted.
type Task func() error

// Token is the completion handle of one submitted task.
type Token struct {
	seq  uint64
	name string
	done chan struct{}
	err  error // written once before done is closed
}

// Seq is the issue position of the task on its stream (1-based).
func (t *Token) Seq() uint64 { return t.seq }

// Name is the label given at submission.
func (t *Token) Name() string { return t.name }

// Done is closed when the task has finished or was skipped.
func (t *Token) Done() <-chan struct{} { return t.done }

// Completed reports whether the task has finished without blocking.
func (t *Token) Completed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Err returns the task outcome once Done is closed, nil before.
func (t *Token) Err() error {
	if !t.Completed() {
		return nil
	}

	return t.err
}

// Wait blocks until the task completes or ctx ends. Cancelling ctx does not
// cancel the task.
func (t *Token) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type job struct {
	tok     *Token
	fn      Task
	barrier bool // runs even when the stream is faulted
	onSkip  func(error)
}

// Stream executes tasks in issue order on one worker goroutine.
type Stream struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []job
	seq     uint64
	closed  bool
	fault   error // sticky; cleared by Synchronize
	stopped chan struct{}
	log     *slog.Logger
}

// NewStream starts a stream with an initial queue capacity.
func NewStream(capacity int, log *slog.Logger) *Stream {
	if capacity < 0 {
		capacity = 0
	}
	if log == nil {
		log = discardLogger()
	}
	s := &Stream{
		queue:   make([]job, 0, capacity),
		stopped: make(chan struct{}),
		log:     log,
	}
	s.cond = sync.NewCond(&s.mu)
	go s.run()

	return s
}

// Submit enqueues fn and returns immediately with its completion token.
func (s *Stream) Submit(name string, fn Task) (*Token, error) {
	return s.submit(name, fn, false, nil)
}

// SubmitOrSkip is Submit with onSkip run on the worker, in fn's place, when
// the task is skipped after an earlier fault.
func (s *Stream) SubmitOrSkip(name string, fn Task, onSkip func(error)) (*Token, error) {
	return s.submit(name, fn, false, onSkip)
}

func (s *Stream) submit(name string, fn Task, barrier bool, onSkip func(error)) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("Submit(%q): %w", name, ErrStreamClosed)
	}
	s.seq++
	tok := &Token{seq: s.seq, name: name, done: make(chan struct{})}
	s.queue = append(s.queue, job{tok: tok, fn: fn, barrier: barrier, onSkip: onSkip})
	s.cond.Signal()
	s.log.Debug("stream submit", "task", name, "seq", tok.seq)

	return tok, nil
}

// Synchronize waits until every task issued before the call has finished,
// then returns and clears the first fault recorded since the previous
// Synchronize.
func (s *Stream) Synchronize(ctx context.Context) error {
	tok, err := s.submit("synchronize", func() error { return nil }, true, nil)
	if err != nil {
		return err
	}
	select {
	case <-tok.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	fault := s.fault
	s.fault = nil
	s.mu.Unlock()

	return fault
}

// Close stops accepting work, drains the queue and stops the worker.
// A pending fault is returned.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()
	<-s.stopped

	s.mu.Lock()
	defer s.mu.Unlock()
	fault := s.fault
	s.fault = nil

	return fault
}

// run is the worker loop.
func (s *Stream) run() {
	defer close(s.stopped)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.closed {
			s.mu.Unlock()
			return
		}
		j := s.queue[0]
		s.queue[0] = job{}
		s.queue = s.queue[1:]
		faulted := s.fault != nil
		s.mu.Unlock()

		if faulted && !j.barrier {
			j.tok.err = ErrSkipped
			if j.onSkip != nil {
				j.onSkip(ErrSkipped)
			}
			close(j.tok.done)
			continue
		}

		err := s.exec(j)
		if err != nil {
			s.mu.Lock()
			if s.fault == nil {
				s.fault = err
			}
			s.mu.Unlock()
			s.log.Warn("stream fault", "task", j.tok.name, "seq", j.tok.seq, "err", err)
		}
		j.tok.err = err
		close(j.tok.done)
	}
}

// exec runs one task, converting errors and panics into ErrDeviceFault.
func (s *Stream) exec(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %q (seq %d): panic: %v: %w", j.tok.name, j.tok.seq, r, ErrDeviceFault)
		}
	}()
	if ferr := j.fn(); ferr != nil {
		return fmt.Errorf("task %q (seq %d): %w", j.tok.name, j.tok.seq, errors.Join(ErrDeviceFault, ferr))
	}

	return nil
}
