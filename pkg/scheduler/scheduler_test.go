package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/soundctl/livebridge/pkg/protocol"
)

func TestSubmitAndDrain_FIFO(t *testing.T) {
	sched := New()

	var order []int
	var tasks []*Task
	for i := 0; i < 5; i++ {
		i := i
		tasks = append(tasks, sched.Submit(func() (interface{}, error) {
			order = append(order, i)
			return i, nil
		}))
	}

	if got := sched.Pending(); got != 5 {
		t.Fatalf("scheduler:scheduler_test - Pending = %d, want 5", got)
	}
	if ran := sched.Drain(0); ran != 5 {
		t.Fatalf("scheduler:scheduler_test - Drain ran %d tasks, want 5", ran)
	}

	for i := 0; i < 5; i++ {
		if order[i] != i {
			t.Fatalf("scheduler:scheduler_test - execution order %v is not FIFO", order)
		}
		result, err := tasks[i].Wait(time.Second)
		if err != nil {
			t.Fatalf("scheduler:scheduler_test - task %d failed: %v", i, err)
		}
		if result.(int) != i {
			t.Errorf("scheduler:scheduler_test - task %d result = %v", i, result)
		}
	}
}

func TestDrain_CapLimitsBatch(t *testing.T) {
	sched := New()
	for i := 0; i < 10; i++ {
		sched.Submit(func() (interface{}, error) { return nil, nil })
	}

	if ran := sched.Drain(3); ran != 3 {
		t.Errorf("scheduler:scheduler_test - Drain ran %d tasks, want 3", ran)
	}
	if got := sched.Pending(); got != 7 {
		t.Errorf("scheduler:scheduler_test - Pending = %d, want 7", got)
	}
}

func TestDrain_OnlyRunsTasksPresentAtEntry(t *testing.T) {
	sched := New()

	// A task that submits another task must not extend the current drain.
	var nested *Task
	sched.Submit(func() (interface{}, error) {
		nested = sched.Submit(func() (interface{}, error) { return "late", nil })
		return "first", nil
	})

	if ran := sched.Drain(0); ran != 1 {
		t.Errorf("scheduler:scheduler_test - Drain ran %d tasks, want 1", ran)
	}
	if got := sched.Pending(); got != 1 {
		t.Errorf("scheduler:scheduler_test - Pending = %d, want 1", got)
	}

	sched.Drain(0)
	if result, err := nested.Wait(time.Second); err != nil || result != "late" {
		t.Errorf("scheduler:scheduler_test - nested task result = %v, %v", result, err)
	}
}

func TestWait_Timeout(t *testing.T) {
	sched := New()
	task := sched.Submit(func() (interface{}, error) { return nil, nil })

	// Nothing drains the queue, so the wait must time out.
	_, err := task.Wait(20 * time.Millisecond)
	if err == nil {
		t.Fatal("scheduler:scheduler_test - expected timeout error")
	}
	var perr *protocol.Error
	if !errors.As(err, &perr) || perr.Code != protocol.CodeDispatchTimeout {
		t.Errorf("scheduler:scheduler_test - expected DISPATCH_TIMEOUT, got %v", err)
	}

	// The abandoned task still runs later without blocking the host loop.
	if ran := sched.Drain(0); ran != 1 {
		t.Errorf("scheduler:scheduler_test - Drain ran %d tasks, want 1", ran)
	}
}

func TestDrain_PanicConvertedToError(t *testing.T) {
	sched := New()
	task := sched.Submit(func() (interface{}, error) {
		panic("handler blew up")
	})
	next := sched.Submit(func() (interface{}, error) { return "ok", nil })

	sched.Drain(0)

	_, err := task.Wait(time.Second)
	if err == nil {
		t.Fatal("scheduler:scheduler_test - expected error from panicking task")
	}
	var perr *protocol.Error
	if !errors.As(err, &perr) || perr.Code != protocol.CodeInternal {
		t.Errorf("scheduler:scheduler_test - expected INTERNAL_ERROR, got %v", err)
	}

	// The panic must not stop the rest of the batch.
	if result, err := next.Wait(time.Second); err != nil || result != "ok" {
		t.Errorf("scheduler:scheduler_test - next task result = %v, %v", result, err)
	}
}

func TestSubmit_ConcurrentWorkers(t *testing.T) {
	sched := New()

	const workers = 16
	var wg sync.WaitGroup
	results := make([]int, workers)

	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := sched.Submit(func() (interface{}, error) { return i, nil })
			result, err := task.Wait(5 * time.Second)
			if err != nil {
				t.Errorf("scheduler:scheduler_test - worker %d: %v", i, err)
				return
			}
			results[i] = result.(int)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	// Drain on a single goroutine, standing in for the host loop.
	for {
		select {
		case <-done:
			for i := 0; i < workers; i++ {
				if results[i] != i {
					t.Errorf("scheduler:scheduler_test - worker %d got result %d", i, results[i])
				}
			}
			return
		default:
			sched.Drain(0)
			time.Sleep(time.Millisecond)
		}
	}
}

func TestLoop_DrainsAndFlushesOnCancel(t *testing.T) {
	sched := New()
	ctx, cancel := context.WithCancel(context.Background())

	loopDone := make(chan struct{})
	go func() {
		sched.Loop(ctx, 5*time.Millisecond, 8)
		close(loopDone)
	}()

	task := sched.Submit(func() (interface{}, error) { return "ticked", nil })
	if result, err := task.Wait(2 * time.Second); err != nil || result != "ticked" {
		t.Fatalf("scheduler:scheduler_test - loop did not run task: %v, %v", result, err)
	}

	// Tasks queued at shutdown are flushed rather than abandoned.
	late := sched.Submit(func() (interface{}, error) { return "flushed", nil })
	cancel()
	<-loopDone
	if result, err := late.Wait(time.Second); err != nil || result != "flushed" {
		t.Errorf("scheduler:scheduler_test - shutdown flush: %v, %v", result, err)
	}
}
