package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// PollResult is what a single poll of a task reports.
type PollResult uint8

const (
	// PollPending means the task cannot make more progress until it is woken.
	PollPending PollResult = iota
	// PollReady means the task is done.
	PollReady
)

func (r PollResult) String() string {
	switch r {
	case PollPending:
		return "pending"
	case PollReady:
		return "ready"
	default:
		return fmt.Sprintf("PollResult(%d)", uint8(r))
	}
}

// Poller is the resumable work behind a task. Poll is never called
// concurrently for the same task. Before returning PollPending, an
// implementation must arrange for w.Wake to be called when it can progress,
// otherwise the task stays idle forever.
type Poller interface {
	Poll(ctx context.Context, w *Waker) PollResult
}

// PollFunc adapts a function to the Poller interface.
type PollFunc func(ctx context.Context, w *Waker) PollResult

// Poll calls f(ctx, w).
func (f PollFunc) Poll(ctx context.Context, w *Waker) PollResult {
	return f(ctx, w)
}

// TaskID identifies a task for its lifetime.
type TaskID = uuid.UUID

// GenerateTaskID returns a new random task id.
func GenerateTaskID() TaskID {
	return uuid.New()
}

// taskResult is how a task left the pool.
type taskResult uint8

const (
	resultNone taskResult = iota
	resultComplete
	resultPanicked
	resultAborted
)

// Task is the record owning one task's StateCell. The cell is only ever
// mutated through its transition methods.
type Task struct {
	id     TaskID
	name   string
	poller Poller
	state  StateCell

	// next links the task into the inject queue while it is Scheduled there.
	next atomic.Pointer[Task]
	// sentinel is non-nil only for the inject queue's stub node.
	sentinel *SentinelCell

	sched *TaskScheduler
	waker Waker
	polls atomic.Uint64

	finishOnce sync.Once
	result     taskResult
	done       chan struct{}
}

func newTask(sched *TaskScheduler, name string, p Poller) *Task {
	t := &Task{
		id:     GenerateTaskID(),
		name:   name,
		poller: p,
		sched:  sched,
		done:   make(chan struct{}),
	}
	t.state.initScheduled()
	t.waker.task = t
	return t
}

// newStubTask builds the placeholder node for the inject queue. It never
// runs and its state is a SentinelCell, not a StateCell.
func newStubTask() *Task {
	return &Task{sentinel: NewSentinelCell()}
}

// ID returns the task's id.
func (t *Task) ID() TaskID { return t.id }

// Name returns the display name given at spawn time.
func (t *Task) Name() string { return t.name }

// State returns the current lifecycle state, for diagnostics only.
func (t *Task) State() TaskState {
	if t.sentinel != nil {
		return t.sentinel.Load()
	}
	return t.state.Load()
}

// PollCount returns how many times the task has been polled.
func (t *Task) PollCount() uint64 { return t.polls.Load() }

func (t *Task) isStub() bool { return t.sentinel != nil }

// finish records the final result and releases waiters. Only the first
// call has any effect.
func (t *Task) finish(r taskResult) bool {
	first := false
	t.finishOnce.Do(func() {
		first = true
		t.result = r
		close(t.done)
	})
	return first
}

// Waker notifies a task that it may be able to make progress. It is safe to
// call from any goroutine, any number of times, including while the task is
// being polled.
type Waker struct {
	task *Task
}

// Wake notifies the task. If the task was idle it is handed to the scheduler.
func (w *Waker) Wake() {
	t := w.task
	outcome := t.state.Notify()
	if t.sched != nil {
		t.sched.onNotify(t, outcome)
	}
}

// WakeAfter wakes the task once d has elapsed. Tasks owned by a scheduler
// share its timer goroutine.
func (w *Waker) WakeAfter(d time.Duration) {
	t := w.task
	if t.sched == nil {
		time.AfterFunc(d, w.Wake)
		return
	}
	t.sched.WakeAfter(w, d)
}

// TaskID returns the id of the task this waker belongs to.
func (w *Waker) TaskID() TaskID {
	return w.task.id
}

// JoinHandle is returned by Spawn and lets callers observe a task.
type JoinHandle struct {
	task *Task
}

// ID returns the task id.
func (h *JoinHandle) ID() TaskID { return h.task.id }

// Name returns the task name.
func (h *JoinHandle) Name() string { return h.task.name }

// State returns the current task state.
func (h *JoinHandle) State() TaskState { return h.task.State() }

// Waker returns the task's waker, for notifying it from outside its poller.
func (h *JoinHandle) Waker() *Waker { return &h.task.waker }

// Done is closed once the task is Complete or Aborted.
func (h *JoinHandle) Done() <-chan struct{} { return h.task.done }

// Wait blocks until the task finishes or ctx is done.
func (h *JoinHandle) Wait(ctx context.Context) error {
	select {
	case <-h.task.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	switch h.task.result {
	case resultAborted:
		return ErrTaskAborted
	case resultPanicked:
		return ErrTaskPanicked
	default:
		return nil
	}
}
