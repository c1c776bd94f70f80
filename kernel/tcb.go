package kernel

import "github.com/gopherkernel/fpos/kernel/port"

// TaskAttr is a task's immutable, statically-assigned configuration: its
// entry point, the parameter passed to it, and the stack region it owns
// exclusively while not Dormant. Stack is opaque to the kernel; only the
// port interprets it (the hosted port in simport does not read it, since Go
// goroutines do not take an explicit stack region, but a bare-metal port
// would carve the task's SP range out of it).
type TaskAttr struct {
	EntryPoint func(param uintptr)
	EntryParam uintptr
	Stack      []byte
}

// link is the intrusive doubly-linked-list cell embedded in every TCB,
// used by the ready queue to thread a priority bucket's FIFO without an
// allocator (spec.md §9 "Intrusive ready queue vs node arenas"). A TCB
// appears in at most one bucket at a time.
type link struct {
	prev, next *TCB
	queued     bool
}

// TCB is the per-task control block. spec.md §3/§9 requires the port-owned
// saved-context field to sit at offset zero, so architecture-specific
// assembly can reach it with a single indirection from a TCB pointer. This
// Go port cannot make that promise about its own memory layout (the Go
// compiler owns struct layout, and no code here ever hands a raw TCB
// pointer to assembly), so it keeps the saved-context state out of the TCB
// entirely: the port is handed the TCB's ID (a port.TaskHandle) and is free
// to index its own saved-context array by it however it likes — which is
// exactly what a real assembly port would do with the fixed-offset field,
// just without Go needing to fake C-style layout control to get there. A
// bare-metal port targeting real assembly still needs that field to be the
// literal first word of whatever structure its context-switch code
// dereferences; that structure is the port's own, not this TCB.
type TCB struct {
	// ID is the task's stable, 1-based, statically-assigned identifier,
	// and the TaskHandle used across the kernel/port boundary.
	ID uint32

	// Attr is the task's immutable static configuration.
	Attr TaskAttr

	// Priority is mutable only while the task is not Running (SetPriority
	// rejects Running; see SPEC_FULL.md §E.2).
	Priority port.TaskPriority

	state       TaskState
	link        link
	wakeOutcome WakeOutcome
	deadline    port.Tick
	hasDeadline bool
}

// State returns the task's current state. Callers outside the kernel
// package must hold CPU-Lock for the result to be more than a snapshot.
func (t *TCB) State() TaskState { return t.state }
