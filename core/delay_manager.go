package core

import (
	"container/heap"
	"sync"
	"time"
)

// DelayedWake is a wake scheduled for the future
type DelayedWake struct {
	WakeAt time.Time
	Waker  *Waker
	index  int // for heap interface
}

// DelayedWakeHeap implements heap.Interface
type DelayedWakeHeap []*DelayedWake

func (h DelayedWakeHeap) Len() int           { return len(h) }
func (h DelayedWakeHeap) Less(i, j int) bool { return h[i].WakeAt.Before(h[j].WakeAt) }
func (h DelayedWakeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *DelayedWakeHeap) Push(x any) {
	n := len(*h)
	item := x.(*DelayedWake)
	item.index = n
	*h = append(*h, item)
}

func (h *DelayedWakeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*h = old[0 : n-1]
	return item
}

func (h *DelayedWakeHeap) Peek() *DelayedWake {
	if len(*h) == 0 {
		return nil
	}
	return (*h)[0]
}

// DelayManager fires wakers at their deadline from a single timer goroutine,
// so parked tasks do not each hold a runtime timer.
type DelayManager struct {
	pq      DelayedWakeHeap
	mu      sync.Mutex
	wakeup  chan struct{}
	done    chan struct{}
	stopped bool
}

func NewDelayManager() *DelayManager {
	dm := &DelayManager{
		pq:     make(DelayedWakeHeap, 0),
		wakeup: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	heap.Init(&dm.pq)
	go dm.loop()
	return dm
}

// AddDelayedWake arranges for w.Wake to be called once delay has elapsed.
// It reports false if the manager is stopped; the wake is then not scheduled.
func (dm *DelayManager) AddDelayedWake(w *Waker, delay time.Duration) bool {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.stopped {
		return false
	}

	item := &DelayedWake{
		WakeAt: time.Now().Add(delay),
		Waker:  w,
	}
	heap.Push(&dm.pq, item)

	if item.index == 0 {
		select {
		case dm.wakeup <- struct{}{}:
		default:
		}
	}
	return true
}

func (dm *DelayManager) loop() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		if next, ok := dm.nextDeadline(); ok {
			timer.Reset(next)
		}

		select {
		case <-dm.done:
			timer.Stop()
			return
		case <-timer.C:
			dm.fireExpired()
		case <-dm.wakeup:
			// Earlier deadline added, need to recalculate
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			dm.fireExpired()
		}
	}
}

// nextDeadline returns how long to wait for the earliest wake. ok is false
// when nothing is pending.
func (dm *DelayManager) nextDeadline() (time.Duration, bool) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	item := dm.pq.Peek()
	if item == nil {
		return 0, false
	}
	return max(time.Until(item.WakeAt), 0), true
}

// fireExpired wakes every waker whose deadline has passed
func (dm *DelayManager) fireExpired() {
	dm.mu.Lock()

	now := time.Now()
	// Collect all expired wakes to avoid holding lock while waking
	var expired []*DelayedWake

	for dm.pq.Len() > 0 {
		item := dm.pq.Peek()
		if item.WakeAt.After(now) {
			break
		}
		heap.Pop(&dm.pq)
		expired = append(expired, item)
	}

	dm.mu.Unlock()

	for _, item := range expired {
		item.Waker.Wake()
	}
}

// Stop ends the timer goroutine and drops pending wakes. Safe to call twice.
func (dm *DelayManager) Stop() {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.stopped {
		return
	}
	dm.stopped = true
	close(dm.done)

	// Clear pq to release all task references
	dm.pq = make(DelayedWakeHeap, 0)
}

// PendingCount returns the number of wakes not yet fired.
func (dm *DelayManager) PendingCount() int {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return len(dm.pq)
}
