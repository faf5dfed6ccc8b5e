package wsbackend

import (
	"sync"

	"github.com/quartzui/quartz/engine"
)

// task is one queued callback plus the completion channel handed back to
// the scheduler.
type task struct {
	fn   func()
	done chan struct{}
}

// Loop is the single-goroutine cooperative executor a Backend schedules
// host callbacks on: three priority queues drained highest-first, the
// server-side stand-in for the browser's prioritized task scheduler
//. Callers enqueue from any goroutine; RunUntilIdle drains on the
// caller's goroutine, which is the session's event-handling goroutine in
// the Server and the test goroutine in tests, so all engine work for one
// Document is therefore serialized on one goroutine at a time.
type Loop struct {
	mu         sync.Mutex
	blocking   []*task
	visible    []*task
	background []*task
}

// NewLoop returns an empty Loop.
func NewLoop() *Loop { return &Loop{} }

// Enqueue queues fn at the given priority and returns a channel closed
// once it has run.
func (l *Loop) Enqueue(fn func(), priority engine.TaskPriority) <-chan struct{} {
	t := &task{fn: fn, done: make(chan struct{})}
	l.mu.Lock()
	switch priority {
	case engine.PriorityBackground:
		l.background = append(l.background, t)
	case engine.PriorityUserVisible:
		l.visible = append(l.visible, t)
	default:
		l.blocking = append(l.blocking, t)
	}
	l.mu.Unlock()
	return t.done
}

// pop removes and returns the highest-priority queued task, or nil when
// every queue is empty.
func (l *Loop) pop() *task {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case len(l.blocking) > 0:
		t := l.blocking[0]
		l.blocking = l.blocking[1:]
		return t
	case len(l.visible) > 0:
		t := l.visible[0]
		l.visible = l.visible[1:]
		return t
	case len(l.background) > 0:
		t := l.background[0]
		l.background = l.background[1:]
		return t
	default:
		return nil
	}
}

// Len reports how many tasks are currently queued across all priorities.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.blocking) + len(l.visible) + len(l.background)
}

// RunUntilIdle drains the queues on the calling goroutine, highest
// priority first, until no task remains, including tasks enqueued by the
// tasks it runs (a flush's commit callback, a commit's passive followup).
func (l *Loop) RunUntilIdle() {
	for {
		t := l.pop()
		if t == nil {
			return
		}
		t.fn()
		close(t.done)
	}
}

// RunOne runs the single highest-priority queued task, reporting whether
// one existed. Tests use it to observe intermediate scheduling states.
func (l *Loop) RunOne() bool {
	t := l.pop()
	if t == nil {
		return false
	}
	t.fn()
	close(t.done)
	return true
}
