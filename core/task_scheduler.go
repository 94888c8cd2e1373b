package core

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// TaskScheduler owns the run queues and the registry of outstanding tasks.
// It drives each task's StateCell: workers call GetWork and RunTask, wakers
// reach it through onNotify, and Shutdown aborts whatever is left.
type TaskScheduler struct {
	name        string
	inject      *InjectQueue
	locals      []*LocalQueue
	signal      chan struct{}
	workerCount int
	stealBatch  int

	registryMu sync.Mutex
	registry   map[TaskID]*Task

	metricActive    atomic.Int32
	metricCompleted atomic.Int64
	metricAborted   atomic.Int64
	metricPanicked  atomic.Int64
	metricRejected  atomic.Int64
	metricStolen    atomic.Int64

	// Handlers and Metrics
	logger              Logger
	panicHandler        PanicHandler
	metrics             Metrics
	rejectedTaskHandler RejectedTaskHandler
	history             *executionHistory

	// Delayed wakes, started on first use
	delayMu      sync.Mutex
	delay        *DelayManager
	delayStopped bool

	// Lifecycle
	closed   atomic.Bool // no new spawns
	aborting atomic.Bool // notifications abort instead of enqueue
}

func NewTaskScheduler(workerCount int) *TaskScheduler {
	return NewTaskSchedulerWithConfig(workerCount, DefaultTaskSchedulerConfig())
}

func NewTaskSchedulerWithConfig(workerCount int, config *TaskSchedulerConfig) *TaskScheduler {
	if workerCount < 1 {
		panic("TaskScheduler: workerCount must be at least 1")
	}

	s := &TaskScheduler{
		inject:      NewInjectQueue(),
		locals:      make([]*LocalQueue, workerCount),
		signal:      make(chan struct{}, workerCount*2),
		workerCount: workerCount,
		registry:    make(map[TaskID]*Task),
	}
	for i := range s.locals {
		s.locals[i] = NewLocalQueue()
	}

	// Apply config
	historyCap := defaultTaskHistoryCapacity
	if config != nil {
		s.name = config.Name
		s.logger = config.Logger
		s.panicHandler = config.PanicHandler
		s.metrics = config.Metrics
		s.rejectedTaskHandler = config.RejectedTaskHandler
		s.stealBatch = config.StealBatch
		if config.HistoryCapacity > 0 {
			historyCap = config.HistoryCapacity
		}
	}

	// Use defaults if not provided
	if s.name == "" {
		s.name = "taskpool"
	}
	if s.logger == nil {
		s.logger = NewDefaultLogger(DefaultLevelFilter)
	}
	if s.panicHandler == nil {
		s.panicHandler = &DefaultPanicHandler{Logger: s.logger}
	}
	if s.metrics == nil {
		s.metrics = &NilMetrics{}
	}
	if s.rejectedTaskHandler == nil {
		s.rejectedTaskHandler = &DefaultRejectedTaskHandler{Logger: s.logger}
	}
	if s.stealBatch < 1 {
		s.stealBatch = defaultStealBatch
	}
	s.history = newExecutionHistory(historyCap)

	return s
}

// Name returns the label used in logs and metrics.
func (s *TaskScheduler) Name() string { return s.name }

// Spawn registers a new task and queues it for its first poll.
func (s *TaskScheduler) Spawn(name string, p Poller) (*JoinHandle, error) {
	if p == nil {
		panic("TaskScheduler: poller must not be nil")
	}

	t := newTask(s, resolveTaskName(p, name), p)

	s.registryMu.Lock()
	if s.closed.Load() {
		s.registryMu.Unlock()
		s.metricRejected.Add(1)
		s.rejectedTaskHandler.HandleRejectedTask(s.name, "shutting down")
		s.metrics.RecordTaskRejected(s.name, "shutting down")
		return nil, ErrSchedulerClosed
	}
	s.registry[t.id] = t
	s.registryMu.Unlock()

	s.logger.Trace("task spawned", F("pool", s.name), F("task_id", t.id.String()), F("name", t.name))

	s.Schedule(t)
	return &JoinHandle{task: t}, nil
}

// Schedule pushes a Scheduled task onto the inject queue. Callers must own
// the enqueue obligation: a fresh task, or a NotifyMustEnqueue outcome.
func (s *TaskScheduler) Schedule(t *Task) {
	s.inject.Push(t)
	s.metrics.RecordQueueDepth(s.name, s.QueuedTaskCount())
	s.notifyWorker()
}

// ScheduleLocal pushes a task onto a worker's own queue after RunReschedule.
func (s *TaskScheduler) ScheduleLocal(worker int, t *Task) {
	s.locals[worker].Push(t)
	s.metrics.RecordQueueDepth(s.name, s.QueuedTaskCount())
	s.notifyWorker()
}

func (s *TaskScheduler) notifyWorker() {
	select {
	case s.signal <- struct{}{}:
	default:
		// Signal channel full, but task is already queued
		// This is not an error, just a optimization hint
	}
}

// onNotify acts on the outcome of a Waker.Wake.
func (s *TaskScheduler) onNotify(t *Task, outcome NotifyOutcome) {
	s.metrics.RecordWake(s.name, outcome)
	s.logger.Trace("task notified", F("pool", s.name), F("task_id", t.id.String()), F("outcome", outcome.String()))

	if outcome != NotifyMustEnqueue {
		return
	}
	if s.aborting.Load() {
		s.abortTask(t)
		return
	}
	s.Schedule(t)
}

// WakeAfter arranges for w to be woken once d has elapsed. After shutdown,
// or for d <= 0, the wake happens immediately.
func (s *TaskScheduler) WakeAfter(w *Waker, d time.Duration) {
	if d <= 0 || s.aborting.Load() {
		w.Wake()
		return
	}
	if dm := s.delayManager(); dm == nil || !dm.AddDelayedWake(w, d) {
		w.Wake()
	}
}

func (s *TaskScheduler) delayManager() *DelayManager {
	s.delayMu.Lock()
	defer s.delayMu.Unlock()
	if s.delay == nil && !s.delayStopped {
		s.delay = NewDelayManager()
	}
	return s.delay
}

// DelayedWakeCount returns the number of pending WakeAfter calls.
func (s *TaskScheduler) DelayedWakeCount() int {
	s.delayMu.Lock()
	dm := s.delay
	s.delayMu.Unlock()
	if dm == nil {
		return 0
	}
	return dm.PendingCount()
}

// GetWork (Called by Worker)
// It returns the next task for the worker: its own queue first, then the
// inject queue, then a batch stolen from another worker. It blocks until
// work arrives or stopCh is closed.
func (s *TaskScheduler) GetWork(worker int, stopCh <-chan struct{}) (*Task, bool) {
	for {
		if t := s.findTask(worker); t != nil {
			return t, true
		}

		select {
		case <-s.signal:
			continue
		case <-stopCh:
			return nil, false
		}
	}
}

func (s *TaskScheduler) findTask(worker int) *Task {
	if t, ok := s.locals[worker].Pop(); ok {
		return t
	}
	if t, ok := s.inject.Pop(); ok {
		return t
	}
	return s.steal(worker)
}

func (s *TaskScheduler) steal(worker int) *Task {
	n := len(s.locals)
	if n < 2 {
		return nil
	}
	start := rand.IntN(n)
	for i := range n {
		victim := (start + i) % n
		if victim == worker {
			continue
		}
		batch := s.locals[victim].StealHalf(s.stealBatch)
		if len(batch) == 0 {
			continue
		}
		s.metricStolen.Add(int64(len(batch)))
		s.locals[worker].PushBatch(batch[1:])
		s.logger.Trace("stole tasks", F("pool", s.name), F("worker", worker), F("victim", victim), F("count", len(batch)))
		return batch[0]
	}
	return nil
}

// RunTask performs one begin-running / poll / end-running cycle on t and
// acts on the outcome before returning.
func (s *TaskScheduler) RunTask(ctx context.Context, worker int, t *Task) {
	if !t.state.BeginRunning() {
		// Aborted while it sat in a queue.
		s.logger.Trace("dropping task that is no longer scheduled",
			F("pool", s.name), F("task_id", t.id.String()), F("state", t.state.Load().String()))
		return
	}

	s.metricActive.Add(1)
	poll := t.polls.Add(1)
	startedAt := time.Now()
	result, panicked := s.poll(ctx, worker, t)
	finishedAt := time.Now()
	s.metricActive.Add(-1)

	outcome := t.state.EndRunning(result == PollReady || panicked)
	switch outcome {
	case RunReschedule:
		s.ScheduleLocal(worker, t)
	case RunFinished:
		r := resultComplete
		if panicked {
			r = resultPanicked
		}
		s.finishTask(t, r, TaskStateComplete)
	case RunIdle, RunAborted:
	}

	duration := finishedAt.Sub(startedAt)
	s.metrics.RecordPollDuration(s.name, duration)
	s.history.Add(TaskExecutionRecord{
		TaskID:     t.id,
		Name:       t.name,
		PoolName:   s.name,
		WorkerID:   worker,
		Poll:       poll,
		Outcome:    outcome.String(),
		FinalState: t.state.Load(),
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Duration:   duration,
		Panicked:   panicked,
	})
	s.logger.Trace("task polled",
		F("pool", s.name), F("worker", worker), F("task_id", t.id.String()),
		F("poll", poll), F("outcome", outcome.String()), F("duration", duration))
}

func (s *TaskScheduler) poll(ctx context.Context, worker int, t *Task) (result PollResult, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			s.metricPanicked.Add(1)
			s.metrics.RecordTaskPanic(s.name, r)
			s.panicHandler.HandlePanic(ctx, s.name, worker, t.id, r, debug.Stack())
		}
	}()
	return t.poller.Poll(ctx, &t.waker), false
}

// abortTask aborts t if it is not already terminal.
func (s *TaskScheduler) abortTask(t *Task) bool {
	prev, ok := t.state.Abort()
	if !ok {
		return false
	}
	s.logger.Debug("task aborted", F("pool", s.name), F("task_id", t.id.String()), F("from", prev.String()))
	s.finishTask(t, resultAborted, TaskStateAborted)
	return true
}

func (s *TaskScheduler) finishTask(t *Task, r taskResult, final TaskState) {
	s.registryMu.Lock()
	delete(s.registry, t.id)
	s.registryMu.Unlock()

	if !t.finish(r) {
		return
	}
	switch final {
	case TaskStateAborted:
		s.metricAborted.Add(1)
	default:
		s.metricCompleted.Add(1)
	}
	s.metrics.RecordTaskFinished(s.name, final)
}

// abortOutstanding aborts every registered task once and returns how many
// transitions it performed.
func (s *TaskScheduler) abortOutstanding() int {
	s.registryMu.Lock()
	tasks := make([]*Task, 0, len(s.registry))
	for _, t := range s.registry {
		tasks = append(tasks, t)
	}
	s.registryMu.Unlock()

	n := 0
	for _, t := range tasks {
		if s.abortTask(t) {
			n++
		}
	}
	return n
}

// Shutdown stops accepting tasks and aborts every outstanding one. Tasks
// being polled right now are aborted too; their worker drops them when the
// poll returns.
func (s *TaskScheduler) Shutdown() {
	s.registryMu.Lock()
	s.closed.Store(true)
	s.aborting.Store(true)
	s.registryMu.Unlock()

	n := s.abortOutstanding()

	// Pending delayed wakes would only be discarded now.
	s.delayMu.Lock()
	s.delayStopped = true
	if s.delay != nil {
		s.delay.Stop()
	}
	s.delayMu.Unlock()

	// Release queue references; every entry is Aborted by now.
	s.inject.Drain()
	for _, q := range s.locals {
		q.Clear()
	}

	s.logger.Info("scheduler shut down", F("pool", s.name), F("aborted", n))
}

// ShutdownGraceful stops accepting tasks and waits for outstanding ones to
// complete. On timeout the rest are aborted and an error is returned.
func (s *TaskScheduler) ShutdownGraceful(timeout time.Duration) error {
	s.registryMu.Lock()
	s.closed.Store(true)
	s.registryMu.Unlock()

	deadline := time.After(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if s.OutstandingTaskCount() == 0 {
			s.Shutdown()
			return nil
		}
		select {
		case <-deadline:
			remaining := s.OutstandingTaskCount()
			s.Shutdown()
			return fmt.Errorf("shutdown graceful timeout after %v, aborted %d outstanding tasks", timeout, remaining)
		case <-ticker.C:
		}
	}
}

// IsClosed reports whether Spawn is being rejected.
func (s *TaskScheduler) IsClosed() bool { return s.closed.Load() }

// Metrics
func (s *TaskScheduler) WorkerCount() int     { return s.workerCount }
func (s *TaskScheduler) ActiveTaskCount() int { return int(s.metricActive.Load()) }

// QueuedTaskCount returns the number of tasks sitting in run queues.
func (s *TaskScheduler) QueuedTaskCount() int {
	n := s.inject.Len()
	for _, q := range s.locals {
		n += q.Len()
	}
	return n
}

// OutstandingTaskCount returns the number of tasks not yet Complete or Aborted.
func (s *TaskScheduler) OutstandingTaskCount() int {
	s.registryMu.Lock()
	defer s.registryMu.Unlock()
	return len(s.registry)
}

// Stats returns a snapshot of scheduler counters and per-state task counts.
func (s *TaskScheduler) Stats() PoolStats {
	states := make(map[TaskState]int, len(AllTaskStates))
	s.registryMu.Lock()
	outstanding := len(s.registry)
	for _, t := range s.registry {
		states[t.State()]++
	}
	s.registryMu.Unlock()

	completed := s.metricCompleted.Load()
	aborted := s.metricAborted.Load()
	states[TaskStateComplete] += int(completed)
	states[TaskStateAborted] += int(aborted)

	stats := PoolStats{
		ID:          s.name,
		Workers:     s.workerCount,
		Queued:      s.QueuedTaskCount(),
		Active:      s.ActiveTaskCount(),
		Outstanding: outstanding,
		Completed:   completed,
		Aborted:     aborted,
		Panicked:    s.metricPanicked.Load(),
		Rejected:    s.metricRejected.Load(),
		Stolen:      s.metricStolen.Load(),
		Timers:      s.DelayedWakeCount(),
		States:      states,
	}
	if last, ok := s.history.Last(); ok {
		stats.LastTask = last.Name
		stats.LastTaskAt = last.FinishedAt
	}
	return stats
}

// RecentTasks returns poll records in newest-first order.
func (s *TaskScheduler) RecentTasks(limit int) []TaskExecutionRecord {
	return s.history.Recent(limit)
}

// GetLogger returns the logger for this scheduler
func (s *TaskScheduler) GetLogger() Logger {
	return s.logger
}

// GetPanicHandler returns the panic handler for this scheduler
func (s *TaskScheduler) GetPanicHandler() PanicHandler {
	return s.panicHandler
}

// GetMetrics returns the metrics collector for this scheduler
func (s *TaskScheduler) GetMetrics() Metrics {
	return s.metrics
}
