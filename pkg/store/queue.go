package store

import (
	"log/slog"
	"sync"

	"github.com/codeloft/codeloft/pkg/utils"
)

// Task is one unit of queued work.
type Task func() error

// ExecutionQueue serializes all mutating operations against the mirror
// and runtime: a single worker drains a FIFO, so no two tasks overlap and
// tasks complete in submission order. A failing task is logged and never
// halts the chain; each task owns its own error reporting beyond that.
type ExecutionQueue struct {
	logger *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []Task
	running bool
	closed  bool
	done    chan struct{}
}

func NewExecutionQueue() *ExecutionQueue {
	q := &ExecutionQueue{
		logger: utils.GetLogger(),
		done:   make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.worker()
	return q
}

// Submit appends a task to the queue.
func (q *ExecutionQueue) Submit(task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.tasks = append(q.tasks, task)
	q.cond.Broadcast()
	return nil
}

func (q *ExecutionQueue) worker() {
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.tasks) == 0 && q.closed {
			q.mu.Unlock()
			close(q.done)
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.running = true
		q.mu.Unlock()

		if err := task(); err != nil {
			q.logger.Error("Queued task failed", "error", err)
		}

		q.mu.Lock()
		q.running = false
		q.cond.Broadcast()
		q.mu.Unlock()
	}
}

// Wait blocks until every task submitted so far has completed.
func (q *ExecutionQueue) Wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.tasks) > 0 || q.running {
		q.cond.Wait()
	}
}

// Close drains the queue and stops the worker. Submissions after Close
// are rejected.
func (q *ExecutionQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	<-q.done
}
