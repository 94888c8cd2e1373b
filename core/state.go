package core

import (
	"fmt"
	"strings"
)

// TaskState is the lifecycle state of a single task.
//
// State Machine:
//
//	Scheduled (3) → Running (1)      [BeginRunning]
//	Idle (0)      → Scheduled (3)    [Notify, caller must enqueue]
//	Running (1)   → Notified (2)     [Notify while polling]
//	Running (1)   → Idle (0)         [EndRunning(false)]
//	Notified (2)  → Scheduled (3)    [EndRunning(false), caller must re-enqueue]
//	Running (1)   → Complete (4)     [EndRunning(true)]
//	Notified (2)  → Complete (4)     [EndRunning(true), pending notification dropped]
//	any non-terminal → Aborted (5)   [Abort]
//	Complete (4), Aborted (5)        (terminal)
//
// The encoding is dense from TaskStateIdle to TaskStateAborted so that a raw
// value can be range checked on decode.
type TaskState uint32

const (
	// TaskStateIdle is neither queued nor running, waiting for a notification.
	// It is also the state of the run queue's stub node.
	TaskStateIdle TaskState = iota
	// TaskStateRunning is being polled by exactly one worker.
	TaskStateRunning
	// TaskStateNotified is being polled and was notified during that poll.
	TaskStateNotified
	// TaskStateScheduled is sitting in a run queue.
	TaskStateScheduled
	// TaskStateComplete finished permanently.
	TaskStateComplete
	// TaskStateAborted was terminated by pool shutdown.
	TaskStateAborted
)

const (
	minTaskState = TaskStateIdle
	maxTaskState = TaskStateAborted
)

// AllTaskStates lists every valid state in encoding order.
var AllTaskStates = []TaskState{
	TaskStateIdle,
	TaskStateRunning,
	TaskStateNotified,
	TaskStateScheduled,
	TaskStateComplete,
	TaskStateAborted,
}

var taskStateNames = [...]string{
	TaskStateIdle:      "idle",
	TaskStateRunning:   "running",
	TaskStateNotified:  "notified",
	TaskStateScheduled: "scheduled",
	TaskStateComplete:  "complete",
	TaskStateAborted:   "aborted",
}

// String returns the lower-case name of the state.
func (s TaskState) String() string {
	if s > maxTaskState {
		return fmt.Sprintf("TaskState(%d)", uint32(s))
	}
	return taskStateNames[s]
}

// Encode returns the integer representation of the state.
func (s TaskState) Encode() uint32 {
	return uint32(s)
}

// IsValid reports whether s is one of the six defined states.
func (s TaskState) IsValid() bool {
	return s >= minTaskState && s <= maxTaskState
}

// IsTerminal reports whether s is absorbing (Complete or Aborted).
func (s TaskState) IsTerminal() bool {
	return s == TaskStateComplete || s == TaskStateAborted
}

// HoldsPollRight reports whether a worker currently owns the right to poll.
func (s TaskState) HoldsPollRight() bool {
	return s == TaskStateRunning || s == TaskStateNotified
}

// DecodeTaskState converts a raw integer into a TaskState.
// Values outside [TaskStateIdle, TaskStateAborted] are rejected, never clamped.
func DecodeTaskState(v uint32) (TaskState, error) {
	s := TaskState(v)
	if !s.IsValid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTaskState, v)
	}
	return s, nil
}

// MustDecodeTaskState is DecodeTaskState for values that can only have come
// from a StateCell. An invalid value means memory corruption, so it panics.
func MustDecodeTaskState(v uint32) TaskState {
	s, err := DecodeTaskState(v)
	if err != nil {
		panic(fmt.Sprintf("core: corrupted task state: %v", err))
	}
	return s
}

// ParseTaskState converts a state name (as returned by String) into a TaskState.
func ParseTaskState(name string) (TaskState, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range taskStateNames {
		if n == name {
			return TaskState(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTaskState, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s TaskState) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTaskState, uint32(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TaskState) UnmarshalText(text []byte) error {
	v, err := ParseTaskState(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
