package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// idleTask returns a scheduler-less task parked in Idle.
func idleTask(t *testing.T) *Task {
	t.Helper()
	task := newTask(nil, "idle", PollFunc(nil))
	require.True(t, task.state.BeginRunning())
	require.Equal(t, RunIdle, task.state.EndRunning(false))
	return task
}

// =============================================================================
// DelayManager
// =============================================================================

func TestDelayManager_BatchProcessing(t *testing.T) {
	dm := NewDelayManager()
	defer dm.Stop()

	tasks := make([]*Task, 100)
	for i := range tasks {
		tasks[i] = idleTask(t)
		require.True(t, dm.AddDelayedWake(&tasks[i].waker, 20*time.Millisecond))
	}
	assert.Equal(t, 100, dm.PendingCount())

	require.Eventually(t, func() bool { return dm.PendingCount() == 0 }, 2*time.Second, 5*time.Millisecond)
	for _, task := range tasks {
		assert.Equal(t, TaskStateScheduled, task.State())
	}
}

func TestDelayManager_ConcurrentAdd(t *testing.T) {
	dm := NewDelayManager()
	defer dm.Stop()

	tasks := make([]*Task, 100)
	for i := range tasks {
		tasks[i] = idleTask(t)
	}

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dm.AddDelayedWake(&task.waker, time.Duration(i%10)*time.Millisecond)
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		for _, task := range tasks {
			if task.State() != TaskStateScheduled {
				return false
			}
		}
		return true
	}, 2*time.Second, 5*time.Millisecond)
}

// TestDelayManager_EarlierDeadlinePreempts verifies a new earliest wake is not
// stuck behind a later one
// Given: A wake scheduled an hour out
// When: A wake 5ms out is added
// Then: The 5ms wake fires promptly and the hour-long one stays pending
func TestDelayManager_EarlierDeadlinePreempts(t *testing.T) {
	dm := NewDelayManager()
	defer dm.Stop()

	late := idleTask(t)
	early := idleTask(t)
	dm.AddDelayedWake(&late.waker, time.Hour)
	dm.AddDelayedWake(&early.waker, 5*time.Millisecond)

	require.Eventually(t, func() bool { return early.State() == TaskStateScheduled }, time.Second, time.Millisecond)
	assert.Equal(t, TaskStateIdle, late.State())
	assert.Equal(t, 1, dm.PendingCount())
}

func TestDelayManager_StopDropsPending(t *testing.T) {
	dm := NewDelayManager()
	task := idleTask(t)
	require.True(t, dm.AddDelayedWake(&task.waker, 10*time.Millisecond))

	dm.Stop()
	dm.Stop()
	assert.Equal(t, 0, dm.PendingCount())
	assert.False(t, dm.AddDelayedWake(&task.waker, time.Millisecond))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, TaskStateIdle, task.State())
}

// =============================================================================
// Scheduler integration
// =============================================================================

func TestScheduler_WakeAfterFiresInDeadlineOrder(t *testing.T) {
	s, _ := newTestScheduler(t, 1)
	defer s.Shutdown()

	delays := []time.Duration{30 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond}
	handles := make([]*JoinHandle, len(delays))
	for i, d := range delays {
		h, err := s.Spawn("", PollFunc(func(ctx context.Context, w *Waker) PollResult {
			w.WakeAfter(d)
			return PollPending
		}))
		require.NoError(t, err)
		handles[i] = h
	}
	for range delays {
		runNext(t, s, 0)
	}
	assert.Equal(t, 3, s.DelayedWakeCount())
	assert.Equal(t, 3, s.Stats().Timers)

	require.Eventually(t, func() bool { return s.QueuedTaskCount() == 3 }, 2*time.Second, time.Millisecond)

	order := []int{1, 2, 0}
	for _, idx := range order {
		task := s.findTask(0)
		require.NotNil(t, task)
		assert.Equal(t, handles[idx].ID(), task.ID())
	}
}

func TestScheduler_WakeAfterAfterShutdownIsImmediate(t *testing.T) {
	s, _ := newTestScheduler(t, 1)
	h, err := s.Spawn("", PollFunc(func(context.Context, *Waker) PollResult { return PollPending }))
	require.NoError(t, err)
	runNext(t, s, 0)

	s.Shutdown()
	h.Waker().WakeAfter(time.Hour)
	assert.Equal(t, TaskStateAborted, h.State())
	assert.Equal(t, 0, s.DelayedWakeCount())
}

func TestScheduler_ShutdownStopsDelayedWakes(t *testing.T) {
	s, _ := newTestScheduler(t, 1)
	h, err := s.Spawn("", PollFunc(func(ctx context.Context, w *Waker) PollResult {
		w.WakeAfter(time.Hour)
		return PollPending
	}))
	require.NoError(t, err)
	runNext(t, s, 0)
	require.Equal(t, 1, s.DelayedWakeCount())

	s.Shutdown()
	assert.Equal(t, 0, s.DelayedWakeCount())
	assert.ErrorIs(t, waitResult(t, h), ErrTaskAborted)
}

func TestWaker_WakeAfterWithoutScheduler(t *testing.T) {
	task := idleTask(t)
	task.waker.WakeAfter(time.Millisecond)
	require.Eventually(t, func() bool { return task.State() == TaskStateScheduled }, time.Second, time.Millisecond)
}
