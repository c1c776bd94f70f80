package kernel

import (
	"math/bits"

	"github.com/gopherkernel/fpos/kernel/port"
)

// readyQueue is the per-priority intrusive FIFO plus priority bitmap
// described in spec.md §4.3. Priority 0 is highest; the bitmap's bit p
// tracks whether bucket[p] is non-empty, letting the highest-priority
// non-empty bucket be found in O(1) via bits.TrailingZeros (numerically
// lowest set bit index == numerically highest priority).
//
// There is no dynamic allocation here: the only node storage is the link
// cell embedded in each TCB (spec.md §9). math/bits is standard library,
// not an ecosystem dependency; no library in the retrieved pack offers a
// bitmap "find highest priority among N buckets" primitive more directly
// than a single CLZ/CTZ instruction, so reaching past the standard library
// here would add a dependency with no observable benefit — see DESIGN.md.
type readyQueue struct {
	buckets []bucket
	bitmap  uint64 // supports up to 64 priority levels
	levels  int
}

type bucket struct {
	head, tail *TCB
	count      int
}

func newReadyQueue(levels int) *readyQueue {
	if levels <= 0 || levels > 64 {
		panic("kernel: NUM_TASK_PRIORITY_LEVELS must be in 1..=64")
	}
	return &readyQueue{buckets: make([]bucket, levels), levels: levels}
}

// pushBack enqueues t at the tail of bucket[priority]. Precondition:
// CPU-Lock active; t.link must not already be queued anywhere (idempotence
// invariant, spec.md §4.3).
func (q *readyQueue) pushBack(t *TCB, priority port.TaskPriority) {
	if t.link.queued {
		panic("kernel: task pushed onto ready queue while already queued")
	}
	b := &q.buckets[priority]
	t.link.prev = b.tail
	t.link.next = nil
	if b.tail != nil {
		b.tail.link.next = t
	} else {
		b.head = t
	}
	b.tail = t
	b.count++
	t.link.queued = true
	q.bitmap |= 1 << priority
}

// popFront dequeues and returns the head of bucket[priority], or nil if
// empty. Precondition: CPU-Lock active.
func (q *readyQueue) popFront(priority port.TaskPriority) *TCB {
	b := &q.buckets[priority]
	t := b.head
	if t == nil {
		return nil
	}
	q.remove(t, priority)
	return t
}

// remove splices t out of bucket[priority] regardless of its position,
// used by SetPriority when reordering a Ready task into a different
// bucket. Precondition: CPU-Lock active; t must currently be queued in
// bucket[priority].
func (q *readyQueue) remove(t *TCB, priority port.TaskPriority) {
	b := &q.buckets[priority]
	if t.link.prev != nil {
		t.link.prev.link.next = t.link.next
	} else {
		b.head = t.link.next
	}
	if t.link.next != nil {
		t.link.next.link.prev = t.link.prev
	} else {
		b.tail = t.link.prev
	}
	t.link.prev, t.link.next = nil, nil
	t.link.queued = false
	b.count--
	if b.count == 0 {
		q.bitmap &^= 1 << priority
	}
}

// findHighestPriority returns the numerically lowest priority with a
// non-empty bucket, and true, or (0, false) if every bucket is empty.
func (q *readyQueue) findHighestPriority() (port.TaskPriority, bool) {
	if q.bitmap == 0 {
		return 0, false
	}
	return port.TaskPriority(bits.TrailingZeros64(q.bitmap)), true
}

// empty reports whether bucket[priority] has no tasks.
func (q *readyQueue) empty(priority port.TaskPriority) bool {
	return q.buckets[priority].count == 0
}
