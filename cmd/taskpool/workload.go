package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	taskpool "github.com/Swind/go-task-pool"
)

// sleepTask is pending until it has slept rounds times. Each sleep is a
// delayed wake on the pool's timer; an early poll just stays pending.
type sleepTask struct {
	delay  time.Duration
	rounds int

	slept    int
	deadline time.Time
}

func (s *sleepTask) Poll(ctx context.Context, w *taskpool.Waker) taskpool.PollResult {
	if !s.deadline.IsZero() {
		if time.Now().Before(s.deadline) {
			return taskpool.PollPending
		}
		s.slept++
	}
	if s.slept >= s.rounds {
		return taskpool.PollReady
	}
	s.deadline = time.Now().Add(s.delay)
	w.WakeAfter(s.delay)
	return taskpool.PollPending
}

// runWorkload spawns n sleep tasks and waits for all of them.
func runWorkload(ctx context.Context, pool *taskpool.GoroutineThreadPool, n, rounds int, delay time.Duration) error {
	handles := make([]*taskpool.JoinHandle, 0, n)
	for i := range n {
		task := &sleepTask{
			delay:  delay * time.Duration(i%4+1),
			rounds: rounds,
		}
		h, err := pool.Spawn(fmt.Sprintf("sleep-%d", i), task)
		if err != nil {
			return fmt.Errorf("spawn task %d: %w", i, err)
		}
		handles = append(handles, h)
	}

	var failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(64)
	for _, h := range handles {
		g.Go(func() error {
			err := h.Wait(gctx)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, taskpool.ErrTaskAborted), errors.Is(err, taskpool.ErrTaskPanicked):
				failed.Add(1)
				return nil
			default:
				return err
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d tasks did not complete", n, len(handles))
	}
	return nil
}
