// Package scheduler serializes state-mutating work onto the host loop.
//
// Workers on any goroutine submit tasks; only the host loop drains them. Each
// task runs exactly once, on the host loop, and delivers exactly one result to
// the single worker waiting on its rendezvous slot. A worker that gives up
// waiting reports a timeout; the task may still run later but its result is
// discarded.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/soundctl/livebridge/pkg/protocol"
)

const logPrefix = "scheduler:scheduler"

type outcome struct {
	result interface{}
	err    error
}

// Task is one unit of host-loop work plus its rendezvous slot.
type Task struct {
	run func() (interface{}, error)
	// Buffered so the host loop never blocks posting a result the worker
	// already gave up on.
	done chan outcome
}

// Wait blocks until the host loop posts the task's result, or until timeout,
// whichever comes first. On timeout the result is abandoned.
func (t *Task) Wait(timeout time.Duration) (interface{}, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-t.done:
		return out.result, out.err
	case <-timer.C:
		return nil, &protocol.Error{
			Code:    protocol.CodeDispatchTimeout,
			Message: "Timeout waiting for operation to complete",
		}
	}
}

// Scheduler is the thread-safe FIFO queue between workers and the host loop.
type Scheduler struct {
	mu sync.Mutex
	q  *queue.Queue
}

// New creates an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{q: queue.New()}
}

// Submit enqueues a closure for the host loop and returns its task. Safe to
// call from any goroutine; the queue is unbounded so Submit never blocks.
func (s *Scheduler) Submit(run func() (interface{}, error)) *Task {
	task := &Task{run: run, done: make(chan outcome, 1)}
	s.mu.Lock()
	s.q.Add(task)
	s.mu.Unlock()
	return task
}

// Pending returns the number of tasks waiting to be drained.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Length()
}

// Drain runs queued tasks in submission order and posts each result. It must
// only be called from the host loop. At most the tasks present when the drain
// starts are run, capped at max (max <= 0 means no cap), so a burst of
// submissions cannot starve the loop. Returns the number of tasks run.
func (s *Scheduler) Drain(max int) int {
	s.mu.Lock()
	n := s.q.Length()
	s.mu.Unlock()
	if max > 0 && n > max {
		n = max
	}

	for i := 0; i < n; i++ {
		s.mu.Lock()
		task := s.q.Remove().(*Task)
		s.mu.Unlock()

		result, err := runTask(task)
		task.done <- outcome{result: result, err: err}
	}
	return n
}

// runTask executes a task, converting a panic into an error so a broken
// handler cannot take down the host loop.
func runTask(task *Task) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error(fmt.Sprintf("%s - task panic: %v", logPrefix, r))
			err = protocol.Errorf(protocol.CodeInternal, "internal error: %v", r)
		}
	}()
	return task.run()
}

// Loop drains the queue at a fixed cadence until ctx is cancelled. It stands
// in for the host application's idle callback and is the only goroutine that
// may call Drain.
func (s *Scheduler) Loop(ctx context.Context, interval time.Duration, maxPerTick int) {
	slog.Info(fmt.Sprintf("%s - host loop started (interval=%s maxPerTick=%d)", logPrefix, interval, maxPerTick))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Flush whatever is queued so no worker is left waiting out
			// its full timeout during shutdown.
			s.Drain(0)
			slog.Info(fmt.Sprintf("%s - host loop stopped", logPrefix))
			return
		case <-ticker.C:
			s.Drain(maxPerTick)
		}
	}
}
