// Package taskpool is a multi-worker executor for resumable tasks.
//
// A task is a Poller: each poll either finishes the task or returns
// PollPending after arranging for its Waker to be called later. Workers
// pull tasks from their own queue, then from a shared inject queue, then
// steal from each other.
//
// # Quick Start
//
//	pool := taskpool.NewGoroutineThreadPool("io", 4)
//	pool.Start(context.Background())
//	defer pool.Stop()
//
//	h, _ := pool.SpawnFunc("tick", func(ctx context.Context, w *core.Waker) core.PollResult {
//		if done() {
//			return core.PollReady
//		}
//		w.WakeAfter(10 * time.Millisecond)
//		return core.PollPending
//	})
//	err := h.Wait(ctx)
//
// # Task States
//
// Every task carries a core.StateCell. It starts Scheduled, becomes Running
// while a worker polls it and goes Idle when the poll returns pending. A
// wake that lands during a poll moves it to Notified, and the worker puts it
// back in a queue as soon as the poll returns, so a wakeup is never lost and
// a task is never polled by two workers at once. Complete and Aborted are
// final. Stop aborts every outstanding task; StopGraceful waits first.
//
// # Timers
//
// Waker.WakeAfter schedules a wake on the pool's timer goroutine, so a task
// can sleep without holding a runtime timer of its own.
//
// # Configuration
//
// Config can be loaded from TOML with LoadConfig. MaxLevel bounds the
// diagnostics written by the default logger.
package taskpool
