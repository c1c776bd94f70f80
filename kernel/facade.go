package kernel

import "github.com/gopherkernel/fpos/kernel/port"

// Task is the application-facing handle for a configured task, obtained
// from Kernel.Task, Current, or TaskFromID. All methods are safe to call
// from any context unless documented otherwise.
type Task struct {
	k  *Kernel
	id uint32
	t  *TCB // nil if id does not name a configured task
}

// Task returns the handle for the task with the given 1-based ID, or false
// if id does not name a configured task.
func (k *Kernel) Task(id uint32) (Task, bool) {
	t := k.TaskFromID(id)
	return t, t.t != nil
}

// TaskFromID constructs a Task handle from a raw id without validating it
// against the configured task pool, mirroring the unsafe Task::from_id
// constructor in original_source's constance/src/kernel/task.rs: the
// returned handle may not name a real task. Activate is the only operation
// that checks this, reporting it via ActivateTaskError wrapping ErrBadID
// (spec.md §8 scenario S5) without touching any state; other methods on a
// handle constructed this way dereference a nil TCB and are unsafe to call.
func (k *Kernel) TaskFromID(id uint32) Task {
	if id == 0 || int(id) > len(k.tasks) {
		return Task{k: k, id: id}
	}
	return Task{k: k, id: id, t: k.tasks[id-1]}
}

// ID returns the task's stable identifier.
func (t Task) ID() uint32 { return t.id }

// Priority returns the task's current priority. Racy without external
// synchronization if another context may be concurrently changing it; see
// SetPriority.
func (t Task) Priority() port.TaskPriority { return t.t.Priority }

// State returns the task's current state.
func (t Task) State() TaskState { return t.t.State() }

// Attr returns the task's static configuration (entry point, entry
// parameter, stack). A bound port reads this once, from
// Port.InitializeTaskState, to set up the context it will later restore.
func (t Task) Attr() TaskAttr { return t.t.Attr }

// Activate transitions a Dormant task to Ready (or PendingActivation, pre-
// boot), per spec.md §4.4 "Activate". It is the only way a Dormant task
// re-enters scheduling. Queue-overflow is not modeled here: unlike the
// bounded ACTIVATE_QUEUE the original source tracks per task, this kernel
// allows re-activation requests to simply fail with ErrQueueOverflow if and
// only if the task is not Dormant — there is no pending-activation counter
// to saturate (see DESIGN.md, "Open Question decisions").
//
// Acquires CPU-Lock itself via TryEnter rather than the panicking Enter,
// since a startup hook runs with CPU-Lock already held by Boot and must get
// ErrBadContext back rather than crash the process if it calls Activate.
func (t Task) Activate() *ActivateTaskError {
	if t.t == nil {
		return &ActivateTaskError{kind: errBadID}
	}
	if !t.k.cpu.TryEnter() {
		return &ActivateTaskError{kind: errBadContext}
	}
	g := &guard{lock: t.k.cpu, held: true}

	if !t.k.booted {
		if t.t.state != Dormant {
			g.Release()
			return &ActivateTaskError{kind: errQueueOverflow}
		}
		t.t.state = PendingActivation
		g.Release()
		return nil
	}

	if t.t.state != Dormant {
		g.Release()
		return &ActivateTaskError{kind: errQueueOverflow}
	}
	t.k.p.InitializeTaskState(t.t.ID)
	t.k.makeReady(t.t)
	t.k.logger().Debug().Int(`task`, int(t.t.ID)).Log(`activate`)
	t.k.preemptionCheck(g)
	return nil
}

// SetPriority changes a task's priority. Per SPEC_FULL.md §E.2, a Running
// task's priority cannot be changed (the original source's task module
// revisions disagree on this point; this kernel follows the stricter one,
// since allowing it would require re-running the preemption check against
// the task's own new priority mid-flight). A Ready task is removed from its
// old bucket and re-queued at the tail of the new one (no reordering within
// a bucket is otherwise possible).
func (t Task) SetPriority(priority port.TaskPriority) error {
	if int(priority) >= t.k.rq.levels {
		return ErrBadParam
	}
	g := t.k.cpu.acquireGuard()

	switch t.t.state {
	case Running:
		g.Release()
		return ErrBadContext
	case Ready:
		old := t.t.Priority
		t.k.rq.remove(t.t, old)
		t.t.Priority = priority
		t.k.rq.pushBack(t.t, priority)
	default:
		t.t.Priority = priority
		g.Release()
		return nil
	}
	t.k.preemptionCheck(g)
	return nil
}

// Current returns the handle for the task running in the calling context.
// Returns ErrBadContext if called from boot or interrupt context, per
// spec.md §4.6 and SPEC_FULL.md §E.1 (distinguishing "no task is running"
// from "this context is not a task at all").
func (k *Kernel) Current() (Task, error) {
	if k.p.Context() != port.ContextTask {
		return Task{}, ErrBadContext
	}
	g := k.cpu.acquireGuard()
	defer g.Release()
	if k.running == nil {
		return Task{}, ErrBadContext
	}
	return Task{k: k, id: k.running.ID, t: k.running}, nil
}

// AcquireCPULock enters CPU-Lock on behalf of application code, returning a
// *CpuLockError (matching ErrBadContext) instead of panicking if it is
// already active — unlike the internal cpuLock.Enter, which panics, since a
// double-acquire from application code is a normal, recoverable misuse
// rather than a kernel/port bug (spec.md §4.6).
func (k *Kernel) AcquireCPULock() *CpuLockError {
	if !k.cpu.TryEnter() {
		return &CpuLockError{kind: errBadContext}
	}
	return nil
}

// ReleaseCPULock leaves CPU-Lock, running the preemption check (spec.md
// §4.1) so a higher-priority task made ready while the lock was held
// preempts immediately.
func (k *Kernel) ReleaseCPULock() *CpuLockError {
	if !k.cpu.IsActive() {
		return &CpuLockError{kind: errBadContext}
	}
	k.preemptionCheck(&guard{lock: k.cpu, held: true})
	return nil
}

// ExitTask terminates the calling task: it must be called from task
// context, with CPU-Lock inactive. Under a bare-metal port it never returns
// if it succeeds; under the hosted port in simport (and the kernel's test
// fake) it returns nil once the next task has been dispatched. This
// is documented as unsafe in the sense spec.md §9 describes exit_task: the
// caller's entire stack is abandoned mid-call, so any defers or unwinding
// the caller's language runtime would otherwise perform never run. A
// bare-metal port's ExitAndDispatch genuinely never returns (it dispatches
// the next task via a tail jump in assembly); the hosted port in simport
// instead lets ExitAndDispatch return once it has handed off to whatever
// runs next, so this call's own goroutine can unwind and terminate
// normally — which is how it reclaims the "stack" a bare-metal port would
// reclaim explicitly. Either way, nothing the caller does after ExitTask
// returns is part of the scheduled system anymore.
func (k *Kernel) ExitTask() *ExitTaskError {
	if k.p.Context() != port.ContextTask {
		return &ExitTaskError{kind: errBadContext}
	}
	g := k.cpu.acquireGuard()
	if k.running == nil {
		g.Release()
		return &ExitTaskError{kind: errBadContext}
	}
	t := k.running
	t.state = Dormant
	k.running = nil
	k.logger().Debug().Int(`task`, int(t.ID)).Log(`exit_task`)
	g.forget()
	k.p.ExitAndDispatch(t.ID)
	return nil
}

// WakeOutcome reports why WaitUntilWokenUp returned.
type WakeOutcome uint8

const (
	// WakeNormal means Wake was called for this task.
	WakeNormal WakeOutcome = iota
	// WakeTimeout means the deadline passed first.
	WakeTimeout
)

// WaitUntilWokenUp suspends the calling task until Wake is called for it,
// or, if deadline is non-nil, until Port.TickCount reaches *deadline,
// whichever comes first. Must be called from task context with CPU-Lock
// already active (e.g. via AcquireCPULock); it releases CPU-Lock as part of
// suspending and the caller must treat it as released on return (spec.md
// §4.4 "Wait-Wake" / "Wait (generic)").
//
// The hosted port in simport implements the actual blocking (the task's
// goroutine waits on a one-shot channel that is closed when it is next
// dispatched); this method only performs the state transition and leaves the
// mechanics of "actually stop running this goroutine" to Port.YieldCPU,
// called internally once the task is marked Waiting and requeued out of
// running_task.
func (k *Kernel) WaitUntilWokenUp(deadline *port.Tick) WakeOutcome {
	if k.p.Context() != port.ContextTask || k.running == nil || !k.cpu.IsActive() {
		panic("kernel: WaitUntilWokenUp called outside task context or without CPU-Lock")
	}
	t := k.running
	t.state = Waiting
	k.running = nil
	t.hasDeadline = deadline != nil
	if deadline != nil {
		t.deadline = *deadline
		if err := k.p.PendTickAfter(*deadline - k.p.TickCount()); err != nil {
			panic(err)
		}
	}
	(&guard{lock: k.cpu, held: true}).Release()
	k.p.YieldCPU()
	// By the time YieldCPU returns control here, the port has already
	// dispatched this task again, meaning Wake (or a timeout) already
	// transitioned it back to Running; the outcome is recorded on the TCB
	// by wake/wakeTimeout for this call to read.
	return t.wakeOutcome
}

// Wake transitions a Waiting task to Ready with outcome WakeNormal, then
// runs the preemption check. Idempotent: waking a task that is not Waiting
// is a no-op, matching spec.md's "Wait-Wake" description of wake as safe to
// call speculatively.
func (t Task) Wake() {
	g := t.k.cpu.acquireGuard()
	if t.t.state != Waiting {
		g.Release()
		return
	}
	t.t.wakeOutcome = WakeNormal
	t.k.makeReady(t.t)
	t.k.preemptionCheck(g)
}

// Park suspends the calling task indefinitely until Wake is called for it.
// A convenience wrapper around AcquireCPULock + WaitUntilWokenUp for the
// common case of unconditional self-suspension.
func (k *Kernel) Park() WakeOutcome {
	if err := k.AcquireCPULock(); err != nil {
		panic(err)
	}
	return k.WaitUntilWokenUp(nil)
}

// ParkTimeout suspends the calling task until Wake is called for it, or
// until ticks elapse, whichever comes first.
func (k *Kernel) ParkTimeout(ticks port.Tick) WakeOutcome {
	if err := k.AcquireCPULock(); err != nil {
		panic(err)
	}
	deadline := k.p.TickCount() + ticks
	return k.WaitUntilWokenUp(&deadline)
}

// Sleep suspends the calling task for exactly ticks, ignoring any Wake call
// that arrives in the meantime (unlike ParkTimeout, whose whole point is to
// let Wake cut the wait short). A woken task that hasn't reached its
// deadline simply waits again.
func (k *Kernel) Sleep(ticks port.Tick) {
	if err := k.AcquireCPULock(); err != nil {
		panic(err)
	}
	deadline := k.p.TickCount() + ticks
	for k.WaitUntilWokenUp(&deadline) != WakeTimeout {
		if err := k.AcquireCPULock(); err != nil {
			panic(err)
		}
	}
}

// Interrupt is reserved (spec.md §9 "Reserved operations"): this kernel
// does not model per-task signal delivery. Always returns ErrNotSupported.
func (t Task) Interrupt() error { return ErrNotSupported }

// CancelInterrupt is reserved; see Interrupt.
func (t Task) CancelInterrupt() error { return ErrNotSupported }
