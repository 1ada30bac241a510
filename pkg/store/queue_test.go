package store

import (
	"errors"
	"sync"
	"testing"
)

func TestExecutionQueueRunsInSubmissionOrder(t *testing.T) {
	q := NewExecutionQueue()
	defer q.Close()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 20; i++ {
		i := i
		if err := q.Submit(func() error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("Submit(%d): %v", i, err)
		}
	}
	q.Wait()

	if len(order) != 20 {
		t.Fatalf("ran %d tasks, want 20", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("order[%d] = %d, tasks ran out of submission order", i, got)
		}
	}
}

func TestExecutionQueueFailureDoesNotHaltChain(t *testing.T) {
	q := NewExecutionQueue()
	defer q.Close()

	ran := make(chan struct{})
	if err := q.Submit(func() error { return errors.New("boom") }); err != nil {
		t.Fatal(err)
	}
	if err := q.Submit(func() error { close(ran); return nil }); err != nil {
		t.Fatal(err)
	}
	q.Wait()

	select {
	case <-ran:
	default:
		t.Error("task after a failing task never ran")
	}
}

func TestExecutionQueueTasksDoNotOverlap(t *testing.T) {
	q := NewExecutionQueue()
	defer q.Close()

	var mu sync.Mutex
	active, maxActive := 0, 0
	for i := 0; i < 10; i++ {
		if err := q.Submit(func() error {
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			mu.Lock()
			active--
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}
	q.Wait()

	if maxActive != 1 {
		t.Errorf("max concurrent tasks = %d, want 1", maxActive)
	}
}

func TestExecutionQueueCloseDrainsAndRejects(t *testing.T) {
	q := NewExecutionQueue()

	ran := false
	if err := q.Submit(func() error { ran = true; return nil }); err != nil {
		t.Fatal(err)
	}
	q.Close()

	if !ran {
		t.Error("Close returned before draining submitted tasks")
	}
	if err := q.Submit(func() error { return nil }); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Submit after Close = %v, want ErrQueueClosed", err)
	}
}
