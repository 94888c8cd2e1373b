package core

import "errors"

// ErrInvalidTaskState is returned when a raw value or name does not map to a TaskState.
var ErrInvalidTaskState = errors.New("core: invalid task state")

// ErrSchedulerClosed is returned when a task is spawned after shutdown started.
var ErrSchedulerClosed = errors.New("core: scheduler is shut down")

// ErrTaskAborted is returned by JoinHandle.Wait when the task was aborted by shutdown.
var ErrTaskAborted = errors.New("core: task aborted")

// ErrTaskPanicked is returned by JoinHandle.Wait when a poll of the task panicked.
var ErrTaskPanicked = errors.New("core: task panicked")

// ErrInvalidLevelFilter is returned when a level filter name cannot be parsed.
var ErrInvalidLevelFilter = errors.New("core: invalid level filter")
