package core

import (
	"sync"
	"sync/atomic"
)

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// =============================================================================
// LocalQueue: per-worker FIFO, also the victim of steals
// =============================================================================

// LocalQueue is a worker's own run queue. The owning worker pushes tasks it
// must reschedule; idle workers steal batches from the front.
type LocalQueue struct {
	mu    sync.Mutex
	tasks []*Task
}

func NewLocalQueue() *LocalQueue {
	return &LocalQueue{
		tasks: make([]*Task, 0, defaultQueueCap),
	}
}

func (q *LocalQueue) Push(t *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
}

// PushBatch appends tasks in order.
func (q *LocalQueue) PushBatch(batch []*Task) {
	if len(batch) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, batch...)
}

func (q *LocalQueue) Pop() (*Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil, false
	}

	t := q.tasks[0]
	// Zero out the element in the underlying array to prevent memory leak
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	q.maybeCompactLocked()

	return t, true
}

// PopUpTo removes at most max tasks from the front.
func (q *LocalQueue) PopUpTo(max int) []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.tasks)
	if n == 0 || max <= 0 {
		return nil
	}

	if n <= max {
		batch := make([]*Task, n)
		copy(batch, q.tasks)
		clear(q.tasks)
		q.tasks = q.tasks[:0]
		q.maybeCompactLocked()
		return batch
	}

	batch := make([]*Task, max)
	copy(batch, q.tasks[:max])

	// Zero out the elements in the underlying array to prevent memory leak
	clear(q.tasks[:max])

	q.tasks = q.tasks[max:]
	q.maybeCompactLocked()

	return batch
}

// StealHalf removes half of the queued tasks (rounded up), capped at max.
func (q *LocalQueue) StealHalf(max int) []*Task {
	n := q.Len()
	if n == 0 {
		return nil
	}
	return q.PopUpTo(min((n+1)/2, max))
}

func (q *LocalQueue) maybeCompactLocked() {
	n := len(q.tasks)
	c := cap(q.tasks)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		q.tasks = make([]*Task, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultQueueCap), n)

	newSlice := make([]*Task, n, newCap)
	copy(newSlice, q.tasks)
	q.tasks = newSlice
}

func (q *LocalQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *LocalQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Clear removes all tasks from the queue and releases references
func (q *LocalQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = make([]*Task, 0, defaultQueueCap)
}

// =============================================================================
// InjectQueue: intrusive MPSC list fed by wakers
// =============================================================================

// InjectQueue receives tasks from arbitrary goroutines. Producers never
// lock: Push is one atomic swap plus one store on the task's own link.
// Consumers are serialized by a mutex. The list always contains a permanent
// stub node so head and tail are never nil.
type InjectQueue struct {
	head atomic.Pointer[Task] // most recently pushed, producers only

	consumerMu sync.Mutex
	tail       *Task // next to pop, guarded by consumerMu
	stub       *Task

	len atomic.Int64
}

func NewInjectQueue() *InjectQueue {
	stub := newStubTask()
	q := &InjectQueue{stub: stub, tail: stub}
	q.head.Store(stub)
	return q
}

// Push appends t. t must be Scheduled and not already linked.
func (q *InjectQueue) Push(t *Task) {
	q.len.Add(1)
	q.pushNode(t)
}

func (q *InjectQueue) pushNode(t *Task) {
	t.next.Store(nil)
	prev := q.head.Swap(t)
	prev.next.Store(t)
}

// Pop removes the oldest task. The second result is false when the queue is
// empty, or when a producer is midway through Push; in the latter case the
// task becomes visible as soon as that Push returns.
func (q *InjectQueue) Pop() (*Task, bool) {
	q.consumerMu.Lock()
	defer q.consumerMu.Unlock()

	tail := q.tail
	next := tail.next.Load()

	if tail.isStub() {
		if next == nil {
			return nil, false
		}
		q.tail = next
		tail = next
		next = next.next.Load()
	}

	if next != nil {
		q.tail = next
		return q.take(tail), true
	}

	if tail != q.head.Load() {
		// a producer swapped head but has not linked it yet
		return nil, false
	}

	// tail is the last real node: put the stub behind it so it can be unlinked
	q.pushNode(q.stub)

	next = tail.next.Load()
	if next != nil {
		q.tail = next
		return q.take(tail), true
	}
	return nil, false
}

func (q *InjectQueue) take(t *Task) *Task {
	t.next.Store(nil)
	q.len.Add(-1)
	return t
}

// Len returns the number of pushed but not yet popped tasks.
func (q *InjectQueue) Len() int {
	return int(q.len.Load())
}

func (q *InjectQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Drain pops everything currently visible.
func (q *InjectQueue) Drain() []*Task {
	var out []*Task
	for {
		t, ok := q.Pop()
		if !ok {
			return out
		}
		out = append(out, t)
	}
}
