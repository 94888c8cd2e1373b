package core

import (
	"context"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a poll panics. The task is then treated as
// finished; it is never polled again.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a poll panics.
	//
	// Parameters:
	// - ctx: The context passed to the poll
	// - poolName: The name of the pool running the task
	// - workerID: The ID of the worker that polled the task
	// - taskID: The ID of the panicking task
	// - panicInfo: The panic value recovered from the poll
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, poolName string, workerID int, taskID TaskID, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler logs panics through a Logger.
type DefaultPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the panic at error level.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, poolName string, workerID int, taskID TaskID, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		return
	}
	logger.Error("task panicked",
		F("pool", poolName),
		F("worker", workerID),
		F("task_id", taskID.String()),
		F("panic", panicInfo),
		F("stack", string(stackTrace)),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting task execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting task execution performance.
type Metrics interface {
	// RecordPollDuration records how long one poll took.
	RecordPollDuration(poolName string, duration time.Duration)

	// RecordTaskPanic records that a poll panicked.
	RecordTaskPanic(poolName string, panicInfo any)

	// RecordQueueDepth records the current number of Scheduled tasks in run queues.
	RecordQueueDepth(poolName string, depth int)

	// RecordTaskRejected records that a spawn was rejected (e.g., during shutdown).
	RecordTaskRejected(poolName string, reason string)

	// RecordWake records the outcome of a Waker.Wake call.
	RecordWake(poolName string, outcome NotifyOutcome)

	// RecordTaskFinished records a task reaching a terminal state.
	RecordTaskFinished(poolName string, final TaskState)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordPollDuration(poolName string, duration time.Duration) {}
func (m *NilMetrics) RecordTaskPanic(poolName string, panicInfo any)             {}
func (m *NilMetrics) RecordQueueDepth(poolName string, depth int)                {}
func (m *NilMetrics) RecordTaskRejected(poolName string, reason string)          {}
func (m *NilMetrics) RecordWake(poolName string, outcome NotifyOutcome)          {}
func (m *NilMetrics) RecordTaskFinished(poolName string, final TaskState)        {}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected tasks
// =============================================================================

// RejectedTaskHandler is called when Spawn is refused because the scheduler
// is shutting down.
//
// Implementations should be thread-safe as they may be called concurrently.
type RejectedTaskHandler interface {
	HandleRejectedTask(poolName string, reason string)
}

// DefaultRejectedTaskHandler logs rejected spawns at warn level.
type DefaultRejectedTaskHandler struct {
	Logger Logger
}

// HandleRejectedTask logs the rejected task.
func (h *DefaultRejectedTaskHandler) HandleRejectedTask(poolName string, reason string) {
	if h.Logger == nil {
		return
	}
	h.Logger.Warn("task rejected", F("pool", poolName), F("reason", reason))
}

// =============================================================================
// TaskSchedulerConfig: Configuration for TaskScheduler
// =============================================================================

// TaskSchedulerConfig holds configuration options for TaskScheduler.
// All handlers are optional; if not provided, default implementations will be used.
type TaskSchedulerConfig struct {
	// Name labels logs and metrics. Defaults to "taskpool".
	Name string

	// Logger receives diagnostics. Defaults to a DefaultLogger at DefaultLevelFilter.
	Logger Logger

	// PanicHandler is called when a poll panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics is called to record task execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// RejectedTaskHandler is called when a spawn is rejected. Defaults to DefaultRejectedTaskHandler.
	RejectedTaskHandler RejectedTaskHandler

	// StealBatch caps how many tasks one steal moves. Defaults to 32.
	StealBatch int

	// HistoryCapacity is the number of poll records kept. Defaults to 100.
	HistoryCapacity int
}

const defaultStealBatch = 32

// DefaultTaskSchedulerConfig returns a config with default handlers.
func DefaultTaskSchedulerConfig() *TaskSchedulerConfig {
	logger := NewDefaultLogger(DefaultLevelFilter)
	return &TaskSchedulerConfig{
		Name:                "taskpool",
		Logger:              logger,
		PanicHandler:        &DefaultPanicHandler{Logger: logger},
		Metrics:             &NilMetrics{},
		RejectedTaskHandler: &DefaultRejectedTaskHandler{Logger: logger},
		StealBatch:          defaultStealBatch,
		HistoryCapacity:     defaultTaskHistoryCapacity,
	}
}
