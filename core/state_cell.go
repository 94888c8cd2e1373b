package core

import (
	"fmt"
	"sync/atomic"
)

// NotifyOutcome tells a notifier what it must do after StateCell.Notify.
type NotifyOutcome uint8

const (
	// NotifyMustEnqueue means the task went Idle → Scheduled and the caller
	// is now responsible for inserting it into a run queue.
	NotifyMustEnqueue NotifyOutcome = iota
	// NotifyAlreadyHandled means the task is queued or being polled; the
	// notification has been recorded and the caller does nothing.
	NotifyAlreadyHandled
	// NotifyDiscarded means the task is terminal and the notification was dropped.
	NotifyDiscarded
)

func (o NotifyOutcome) String() string {
	switch o {
	case NotifyMustEnqueue:
		return "must_enqueue"
	case NotifyAlreadyHandled:
		return "already_handled"
	case NotifyDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("NotifyOutcome(%d)", uint8(o))
	}
}

// RunOutcome tells the worker what to do after StateCell.EndRunning.
type RunOutcome uint8

const (
	// RunIdle means the task went idle and is not re-enqueued.
	RunIdle RunOutcome = iota
	// RunReschedule means a notification raced in during the poll; the
	// worker must put the task back into a run queue.
	RunReschedule
	// RunFinished means the task is Complete.
	RunFinished
	// RunAborted means shutdown aborted the task during the poll. The
	// worker must neither enqueue nor poll it again.
	RunAborted
)

func (o RunOutcome) String() string {
	switch o {
	case RunIdle:
		return "idle"
	case RunReschedule:
		return "reschedule"
	case RunFinished:
		return "finished"
	case RunAborted:
		return "aborted"
	default:
		return fmt.Sprintf("RunOutcome(%d)", uint8(o))
	}
}

// StateCell holds one task's TaskState and arbitrates concurrent workers,
// notifiers and the shutdown path. Every transition is a single CAS loop on
// the same word, so no operation is ever a separate read and write.
//
// The zero value reads as TaskStateIdle; live cells start through
// NewStateCell or, when embedded in a Task, initScheduled.
type StateCell struct { // betteralign:ignore
	_ [64]byte      // Cache line padding (before value) //nolint:unused
	v atomic.Uint32 // Encoded TaskState
	_ [60]byte      // Pad to complete cache line (64 - 4 = 60) //nolint:unused
}

// NewStateCell returns a cell in TaskStateScheduled: every new task is
// considered runnable immediately.
func NewStateCell() *StateCell {
	c := &StateCell{}
	c.initScheduled()
	return c
}

// initScheduled puts a cell embedded in a new task into its starting state.
// It must run before the task is published to any queue.
func (c *StateCell) initScheduled() {
	c.v.Store(TaskStateScheduled.Encode())
}

// Load returns the current state. It never blocks or mutates.
func (c *StateCell) Load() TaskState {
	return MustDecodeTaskState(c.v.Load())
}

// IsTerminal reports whether the cell has reached Complete or Aborted.
func (c *StateCell) IsTerminal() bool {
	return c.Load().IsTerminal()
}

func (c *StateCell) cas(from, to TaskState) bool {
	return c.v.CompareAndSwap(from.Encode(), to.Encode())
}

// BeginRunning moves Scheduled → Running. It returns true when the caller
// now holds the exclusive right to poll. Any other pre-state leaves the cell
// untouched and returns false; for Aborted this is how a worker learns to
// drop a task that was aborted while queued.
func (c *StateCell) BeginRunning() bool {
	return c.cas(TaskStateScheduled, TaskStateRunning)
}

// Notify records that the task may be able to make progress.
func (c *StateCell) Notify() NotifyOutcome {
	for {
		cur := c.Load()
		var next TaskState
		var outcome NotifyOutcome
		switch cur {
		case TaskStateIdle:
			next, outcome = TaskStateScheduled, NotifyMustEnqueue
		case TaskStateRunning:
			next, outcome = TaskStateNotified, NotifyAlreadyHandled
		case TaskStateNotified, TaskStateScheduled:
			return NotifyAlreadyHandled
		default:
			return NotifyDiscarded
		}
		if c.cas(cur, next) {
			return outcome
		}
	}
}

// EndRunning is called by the worker that won BeginRunning once its poll
// returned. completed is true when the poll reported the task done.
//
// If the task was aborted during the poll the cell is left Aborted and
// RunAborted is returned, whatever completed says.
func (c *StateCell) EndRunning(completed bool) RunOutcome {
	for {
		cur := c.Load()
		var next TaskState
		var outcome RunOutcome
		switch cur {
		case TaskStateRunning:
			if completed {
				next, outcome = TaskStateComplete, RunFinished
			} else {
				next, outcome = TaskStateIdle, RunIdle
			}
		case TaskStateNotified:
			if completed {
				next, outcome = TaskStateComplete, RunFinished
			} else {
				next, outcome = TaskStateScheduled, RunReschedule
			}
		case TaskStateAborted:
			return RunAborted
		default:
			panic(fmt.Sprintf("core: EndRunning called in state %s without a matching BeginRunning", cur))
		}
		if c.cas(cur, next) {
			return outcome
		}
	}
}

// Abort moves any non-terminal state to Aborted. It returns the state it
// observed and whether this call performed the transition; a terminal cell
// is left unchanged and reports false.
func (c *StateCell) Abort() (TaskState, bool) {
	for {
		cur := c.Load()
		if cur.IsTerminal() {
			return cur, false
		}
		if c.cas(cur, TaskStateAborted) {
			return cur, true
		}
	}
}

// SentinelCell is the state of a placeholder record used by run queue
// bookkeeping. It is always Idle and offers no transitions, so it cannot be
// mistaken for a live task's StateCell.
type SentinelCell struct {
	v atomic.Uint32
}

// NewSentinelCell returns a cell fixed at TaskStateIdle.
func NewSentinelCell() *SentinelCell {
	c := &SentinelCell{}
	c.v.Store(TaskStateIdle.Encode())
	return c
}

// Load returns the sentinel's state, TaskStateIdle unless memory was corrupted.
func (c *SentinelCell) Load() TaskState {
	return MustDecodeTaskState(c.v.Load())
}
