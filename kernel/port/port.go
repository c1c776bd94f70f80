// Package port defines the thin architecture-specific contract the kernel
// scheduler calls into, and the callback surface the port uses to re-enter
// the kernel. A concrete port (see
// github.com/gopherkernel/fpos/kernel/simport for a hosted one) implements
// context switching, interrupt masking, and timing on top of real or
// simulated hardware; the kernel never assumes anything about how that is
// done.
package port

import "errors"

// TaskPriority indexes a ready-queue bucket. 0 is the highest priority.
type TaskPriority = uint8

// InterruptNum identifies a managed interrupt line.
type InterruptNum = uint16

// InterruptPriority is a port-defined priority for an interrupt line; lower
// numeric values are not guaranteed to mean anything in particular to the
// kernel, only to the port and its controller.
type InterruptPriority = uint16

// Tick is a monotonic-modulo-MaxTickCount counter, advanced by the port.
type Tick = uint64

// MaxTickCount is the largest tick value; a Tick counter wraps to 0 after
// it.
const MaxTickCount Tick = 1<<64 - 1

// MaxTimeout bounds the delta accepted by Port.PendTickAfter.
const MaxTimeout Tick = MaxTickCount - 1

// TaskHandle is an opaque handle for a task, stable for the lifetime of the
// process; the kernel uses the task's 1-based TCB ID as its handle. The kernel hands these back to the port
// unchanged; only the port and the kernel's TCB pool interpret them.
type TaskHandle = uint32

// Errors returned by interrupt-line operations. Each is a small enumeration
// so callers can use errors.Is against the exact failure without parsing
// strings, matching the kernel façade's own error style.
var (
	// ErrBadParam indicates an out-of-range parameter (e.g. a bad interrupt
	// number or priority).
	ErrBadParam = errors.New("port: parameter out of range")
	// ErrNotSupported indicates the underlying driver does not implement
	// the requested capability.
	ErrNotSupported = errors.New("port: operation not supported")
)

// Port is the set of operations the kernel calls into. All methods that
// mutate scheduler-adjacent state require CPU-Lock to be held by the caller
// unless documented otherwise; see each method.
type Port interface {
	// DispatchFirstTask is called exactly once, by the boot sequencer, with
	// CPU-Lock active and no running task. It must choose a task via the
	// kernel's PortToKernel.ChooseRunningTask, restore its saved context,
	// and transfer control to it. It never returns.
	DispatchFirstTask()

	// MaskManagedInterrupts disables every interrupt line whose priority
	// lies within the configured managed range (or disables interrupts
	// entirely if that threshold is zero). This is the hardware act of
	// entering CPU-Lock. Precondition: CPU-Lock inactive.
	MaskManagedInterrupts()

	// UnmaskManagedInterrupts reverses MaskManagedInterrupts. Precondition:
	// CPU-Lock active.
	UnmaskManagedInterrupts()

	// YieldCPU transfers control to the dispatcher. Precondition: CPU-Lock
	// inactive. Called from a task context, it switches away synchronously;
	// called from an interrupt context, it must defer the dispatch until
	// all active handlers have returned (the hosted port in simport records
	// the owed dispatch and performs it when the outermost handler returns).
	YieldCPU()

	// ExitAndDispatch is called once a task has transitioned to Dormant and
	// had running_task cleared. The port reclaims the task's stack (for a
	// hosted port, this means letting its backing goroutine terminate) and
	// dispatches the next task. Precondition: CPU-Lock active. A bare-metal
	// port never returns from it; the hosted port in simport returns once
	// the next task has been dispatched, so the exiting goroutine can end.
	ExitAndDispatch(task TaskHandle)

	// InitializeTaskState populates the task's saved context so that, once
	// restored, execution begins at the task's entry point with a fresh
	// stack and a return address pointing at the kernel's exit trampoline.
	// Precondition: CPU-Lock active.
	InitializeTaskState(task TaskHandle)

	// Context reports whether the caller is running in boot, task, or
	// interrupt context. The façade uses this to enforce §4.6's
	// context preconditions before touching any state.
	Context() Context

	// InterruptLine operations. Each range-checks num and forwards to the
	// controller; implementations may return ErrBadParam or
	// ErrNotSupported.
	SetInterruptLinePriority(num InterruptNum, prio InterruptPriority) error
	EnableInterruptLine(num InterruptNum) error
	DisableInterruptLine(num InterruptNum) error
	PendInterruptLine(num InterruptNum) error
	ClearInterruptLine(num InterruptNum) error
	IsInterruptLinePending(num InterruptNum) (bool, error)

	// TickCount returns the current, monotonic-modulo-MaxTickCount tick.
	TickCount() Tick

	// PendTickAfter is a hint for when the port should next call
	// PortToKernel.TimerTick; delta is in 1..=MaxTimeout.
	PendTickAfter(delta Tick) error
}

// PortToKernel is the callback surface the port uses to re-enter the
// kernel. The kernel implementation of this interface is not part of the
// port contract proper; it is supplied to the port at construction time.
type PortToKernel interface {
	// Boot runs the kernel's boot sequence: apply interrupt line
	// attributes, initialize every active-at-start TCB, run startup hooks
	// in registration order, then call Port.DispatchFirstTask. Called once,
	// by the port's reset/entry code, with CPU-Lock already active.
	Boot()

	// ChooseRunningTask is the scheduling decision itself: pick the
	// highest-priority ready task, if any, install it as running, and
	// requeue the previously-running task if it was preempted. Called by
	// the port's dispatcher with CPU-Lock active. Returns the chosen
	// task's handle, or false if no task is ready (the idle condition,
	// which a real port resolves by sleeping until the next interrupt).
	ChooseRunningTask() (task TaskHandle, ok bool)

	// TimerTick is called by the port in response to its own tick source;
	// it lets deadline-based waiters (and external timer collaborators)
	// re-check expiry against Port.TickCount.
	TimerTick()
}

// Context is the kind of execution context the port reports to the kernel.
type Context uint8

const (
	// ContextBoot is the context of the port's reset/entry code, before
	// the first task has been dispatched.
	ContextBoot Context = iota
	// ContextTask is an ordinary task's context.
	ContextTask
	// ContextInterrupt is a first-level interrupt handler's context.
	ContextInterrupt
)

func (c Context) String() string {
	switch c {
	case ContextBoot:
		return "Boot"
	case ContextTask:
		return "Task"
	case ContextInterrupt:
		return "Interrupt"
	default:
		return "Unknown"
	}
}
