package taskpool

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-task-pool/core"
)

// GoroutineThreadPool manages a set of worker goroutines
// Responsible for pulling tasks from the scheduler and polling them
type GoroutineThreadPool struct {
	id        string
	workers   int
	scheduler *core.TaskScheduler
	logger    core.Logger
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	running   bool
	runningMu sync.RWMutex
}

// NewGoroutineThreadPool creates a new GoroutineThreadPool with default handlers
func NewGoroutineThreadPool(id string, workers int) *GoroutineThreadPool {
	cfg := DefaultConfig()
	cfg.Name = id
	cfg.Workers = workers
	return NewGoroutineThreadPoolWithConfig(cfg, nil)
}

// NewGoroutineThreadPoolWithConfig creates a pool from cfg. handlers may be
// nil; its Name, Logger, StealBatch and HistoryCapacity are overridden by cfg
// when cfg sets them.
func NewGoroutineThreadPoolWithConfig(cfg Config, handlers *core.TaskSchedulerConfig) *GoroutineThreadPool {
	cfg = cfg.Resolve()

	sc := core.TaskSchedulerConfig{}
	if handlers != nil {
		sc = *handlers
	}
	sc.Name = cfg.Name
	if sc.Logger == nil {
		sc.Logger = core.NewDefaultLogger(cfg.MaxLevel)
	}
	if cfg.StealBatch > 0 {
		sc.StealBatch = cfg.StealBatch
	}
	if cfg.HistoryCapacity > 0 {
		sc.HistoryCapacity = cfg.HistoryCapacity
	}

	return &GoroutineThreadPool{
		id:        cfg.Name,
		workers:   cfg.Workers,
		scheduler: core.NewTaskSchedulerWithConfig(cfg.Workers, &sc),
		logger:    sc.Logger,
	}
}

// Start starts all worker goroutines
func (tg *GoroutineThreadPool) Start(ctx context.Context) {
	tg.runningMu.Lock()
	defer tg.runningMu.Unlock()

	if tg.running {
		return // Already running
	}

	tg.ctx, tg.cancel = context.WithCancel(ctx)
	tg.running = true

	for i := 0; i < tg.workers; i++ {
		tg.wg.Add(1)
		go tg.workerLoop(i, tg.ctx)
	}

	tg.logger.Info("thread pool started", core.F("pool", tg.id), core.F("workers", tg.workers))
}

// Stop aborts every outstanding task and stops the workers
func (tg *GoroutineThreadPool) Stop() {
	// Always shutdown scheduler so outstanding tasks are aborted
	// even if pool was never started
	tg.scheduler.Shutdown()

	tg.runningMu.Lock()
	if !tg.running {
		tg.runningMu.Unlock()
		return
	}
	tg.runningMu.Unlock()

	if tg.cancel != nil {
		tg.cancel()
	}
	tg.Join()

	tg.runningMu.Lock()
	tg.running = false
	tg.runningMu.Unlock()

	tg.logger.Info("thread pool stopped", core.F("pool", tg.id))
}

// StopGraceful stops accepting tasks and waits for outstanding tasks to complete.
// Returns error if timeout is exceeded; remaining tasks are then aborted.
func (tg *GoroutineThreadPool) StopGraceful(timeout time.Duration) error {
	tg.runningMu.Lock()
	if !tg.running {
		// Not running, nothing can make progress: abort what is left
		tg.runningMu.Unlock()
		tg.scheduler.Shutdown()
		return nil
	}
	tg.runningMu.Unlock()

	err := tg.scheduler.ShutdownGraceful(timeout)

	if tg.cancel != nil {
		tg.cancel()
	}
	tg.Join()

	tg.runningMu.Lock()
	tg.running = false
	tg.runningMu.Unlock()

	if err != nil {
		tg.logger.Warn("graceful stop timed out", core.F("pool", tg.id), core.F("error", err))
	}
	return err
}

// ID returns the ID of the thread pool
func (tg *GoroutineThreadPool) ID() string {
	return tg.id
}

// IsRunning returns whether the thread pool is running
func (tg *GoroutineThreadPool) IsRunning() bool {
	tg.runningMu.RLock()
	defer tg.runningMu.RUnlock()
	return tg.running
}

// workerLoop is the main loop for each worker
func (tg *GoroutineThreadPool) workerLoop(id int, ctx context.Context) {
	defer tg.wg.Done()
	stopCh := ctx.Done()

	for {
		task, ok := tg.scheduler.GetWork(id, stopCh)
		if !ok {
			// context canceled
			return
		}
		tg.scheduler.RunTask(ctx, id, task)
	}
}

// Join waits for all worker goroutines to finish
func (tg *GoroutineThreadPool) Join() {
	tg.wg.Wait()
}

// Spawn submits a poller as a new task.
func (tg *GoroutineThreadPool) Spawn(name string, p core.Poller) (*core.JoinHandle, error) {
	return tg.scheduler.Spawn(name, p)
}

// SpawnFunc submits a poll function as a new task.
func (tg *GoroutineThreadPool) SpawnFunc(name string, f func(ctx context.Context, w *core.Waker) core.PollResult) (*core.JoinHandle, error) {
	return tg.scheduler.Spawn(name, core.PollFunc(f))
}

// Go submits a function that runs to completion in a single poll.
func (tg *GoroutineThreadPool) Go(name string, f func(ctx context.Context)) (*core.JoinHandle, error) {
	return tg.scheduler.Spawn(name, core.PollFunc(func(ctx context.Context, _ *core.Waker) core.PollResult {
		f(ctx)
		return core.PollReady
	}))
}

// WorkerCount returns the number of workers
func (tg *GoroutineThreadPool) WorkerCount() int {
	return tg.workers
}

func (tg *GoroutineThreadPool) QueuedTaskCount() int {
	return tg.scheduler.QueuedTaskCount()
}

func (tg *GoroutineThreadPool) ActiveTaskCount() int {
	return tg.scheduler.ActiveTaskCount()
}

func (tg *GoroutineThreadPool) OutstandingTaskCount() int {
	return tg.scheduler.OutstandingTaskCount()
}

// Stats returns current observability data for this pool.
func (tg *GoroutineThreadPool) Stats() core.PoolStats {
	stats := tg.scheduler.Stats()
	stats.ID = tg.id
	stats.Running = tg.IsRunning()
	return stats
}

// Snapshot returns stats plus up to recent poll records.
func (tg *GoroutineThreadPool) Snapshot(recent int) core.Snapshot {
	snap := tg.scheduler.NewSnapshot(recent)
	snap.Stats.ID = tg.id
	snap.Stats.Running = tg.IsRunning()
	return snap
}

// RecentTasks returns poll records in newest-first order.
func (tg *GoroutineThreadPool) RecentTasks(limit int) []core.TaskExecutionRecord {
	return tg.scheduler.RecentTasks(limit)
}

// GetScheduler returns the underlying scheduler
func (tg *GoroutineThreadPool) GetScheduler() *core.TaskScheduler {
	return tg.scheduler
}

// =============================================================================
// Global Thread Pool Helper (Singleton)
// =============================================================================

var (
	globalThreadPool *GoroutineThreadPool
	globalMu         sync.Mutex
)

// InitGlobalThreadPool initializes the global thread pool with specified number of workers.
// It starts the pool immediately.
func InitGlobalThreadPool(workers int) {
	cfg := DefaultConfig()
	cfg.Name = "global-pool"
	cfg.Workers = workers
	InitGlobalThreadPoolWithConfig(cfg)
}

// InitGlobalThreadPoolWithConfig initializes and starts the global thread pool from cfg.
func InitGlobalThreadPoolWithConfig(cfg Config) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalThreadPool != nil {
		return // Already initialized
	}

	globalThreadPool = NewGoroutineThreadPoolWithConfig(cfg, nil)
	globalThreadPool.Start(context.Background())
}

// GetGlobalThreadPool returns the global thread pool instance.
// It panics if InitGlobalThreadPool has not been called.
func GetGlobalThreadPool() *GoroutineThreadPool {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalThreadPool == nil {
		panic("GlobalThreadPool not initialized. Call InitGlobalThreadPool() first.")
	}
	return globalThreadPool
}

// ShutdownGlobalThreadPool stops the global thread pool.
func ShutdownGlobalThreadPool() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalThreadPool != nil {
		globalThreadPool.Stop()
		globalThreadPool = nil
	}
}

// Spawn submits a task to the global thread pool.
func Spawn(name string, p core.Poller) (*core.JoinHandle, error) {
	return GetGlobalThreadPool().Spawn(name, p)
}
