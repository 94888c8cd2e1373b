package taskpool

import "github.com/Swind/go-task-pool/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the taskpool package for most use cases.

// TaskState is the lifecycle state of a task
type TaskState = core.TaskState

// Poller is the resumable work behind a task
type Poller = core.Poller

// PollFunc adapts a function to Poller
type PollFunc = core.PollFunc

// PollResult is what one poll reports
type PollResult = core.PollResult

// Waker notifies a task that it can make progress
type Waker = core.Waker

// JoinHandle observes a spawned task
type JoinHandle = core.JoinHandle

// TaskID identifies a task
type TaskID = core.TaskID

// PoolStats is a pool observability snapshot
type PoolStats = core.PoolStats

// State constants
const (
	TaskStateIdle      = core.TaskStateIdle
	TaskStateRunning   = core.TaskStateRunning
	TaskStateNotified  = core.TaskStateNotified
	TaskStateScheduled = core.TaskStateScheduled
	TaskStateComplete  = core.TaskStateComplete
	TaskStateAborted   = core.TaskStateAborted
)

// Poll results
const (
	PollPending = core.PollPending
	PollReady   = core.PollReady
)

// Errors reported by JoinHandle.Wait and Spawn
var (
	ErrSchedulerClosed = core.ErrSchedulerClosed
	ErrTaskAborted     = core.ErrTaskAborted
	ErrTaskPanicked    = core.ErrTaskPanicked
)
