package kernel

import (
	"github.com/gopherkernel/fpos/kernel/port"
	"github.com/joeycumines/logiface"
)

// Kernel holds all scheduler-owned state: the TCB pool, the ready queue,
// the current running task, and CPU-Lock. It implements port.PortToKernel
// once bound to a port, and is the receiver behind every Task façade
// method in facade.go.
type Kernel struct {
	cfg *config
	p   port.Port
	cpu *cpuLock
	rq  *readyQueue

	tasks   []*TCB // index i holds the TCB with ID i+1
	running *TCB
	booted  bool

	log *logiface.Logger[logiface.Event]
}

// New builds a Kernel from the given Options: the static TCB pool, the
// ready-queue bucket array, and NUM_TASK_PRIORITY_LEVELS. The returned
// Kernel has no Port yet; a port implementation (e.g.
// github.com/gopherkernel/fpos/kernel/simport) calls BindPort once it has
// constructed itself.
func New(opts ...Option) (*Kernel, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	k := &Kernel{cfg: cfg, rq: newReadyQueue(cfg.priorityLevels)}
	k.tasks = make([]*TCB, len(cfg.tasks))
	for i, spec := range cfg.tasks {
		state := Dormant
		if spec.activeAtStart {
			state = PendingActivation
		}
		k.tasks[i] = &TCB{
			ID:       uint32(i + 1),
			Attr:     spec.attr,
			Priority: spec.priority,
			state:    state,
		}
	}
	return k, nil
}

// BindPort attaches the port this kernel will drive scheduling decisions
// through. It may be called exactly once.
func (k *Kernel) BindPort(p port.Port) {
	if k.p != nil {
		panic("kernel: BindPort called more than once")
	}
	if p == nil {
		panic("kernel: BindPort called with a nil port")
	}
	k.p = p
	k.cpu = newCPULock(p)
}

// SetLogger installs a structured logger. Safe to call before or after
// BindPort; if never called, every log call site is a no-op (a nil
// *logiface.Logger[logiface.Event] is safe to call methods on).
func (k *Kernel) SetLogger(l *logiface.Logger[logiface.Event]) { k.log = l }

func (k *Kernel) logger() *logiface.Logger[logiface.Event] { return k.log }

// ManagedInterruptRange returns the [low, high] interrupt-priority range
// configured via WithManagedInterruptRange, for the bound port to consult
// when implementing MaskManagedInterrupts/UnmaskManagedInterrupts.
func (k *Kernel) ManagedInterruptRange() (low, high port.InterruptPriority) {
	return k.cfg.managedInterruptLow, k.cfg.managedInterruptHigh
}

// PriorityLevels returns NUM_TASK_PRIORITY_LEVELS.
func (k *Kernel) PriorityLevels() int { return k.cfg.priorityLevels }

// PortCPULock is the raw CPU-Lock primitive exposed to a bound port
// implementation. Application code must go through AcquireCPULock /
// ReleaseCPULock instead: those translate contract violations into
// *CpuLockError values, whereas PortCPULock panics on them, since a
// violation at this layer is necessarily a port bug, not a misbehaving
// task (spec.md §7).
type PortCPULock interface {
	Enter()
	Leave()
	TryEnter() bool
	IsActive() bool
}

// PortCPULock returns the raw CPU-Lock handle for the bound port.
func (k *Kernel) PortCPULock() PortCPULock { return k.cpu }

// taskByHandle resolves a port.TaskHandle to its TCB, panicking if it
// doesn't name a task in the pool — the port is not supposed to fabricate
// handles, unlike application code, which the façade validates instead.
func (k *Kernel) taskByHandle(h port.TaskHandle) *TCB {
	if h == 0 || int(h) > len(k.tasks) {
		panic("kernel: port presented an unknown task handle")
	}
	return k.tasks[h-1]
}

// --- port.PortToKernel ---

// Boot implements port.PortToKernel.Boot. Precondition: CPU-Lock active
// (the port's reset/entry code enters it before calling Boot).
func (k *Kernel) Boot() {
	if !k.cpu.IsActive() {
		panic("kernel: Boot called without CPU-Lock active")
	}
	if k.booted {
		panic("kernel: Boot called twice")
	}
	k.booted = true

	for _, line := range k.cfg.interruptLines {
		if err := k.p.SetInterruptLinePriority(line.num, line.priority); err != nil {
			panic(err)
		}
		if line.enabledAtStart {
			if err := k.p.EnableInterruptLine(line.num); err != nil {
				panic(err)
			}
		}
	}

	for _, t := range k.tasks {
		if t.state == PendingActivation {
			k.p.InitializeTaskState(t.ID)
			k.makeReady(t)
		}
	}

	k.logger().Debug().Log(`boot: startup hooks running`)
	for _, hook := range k.cfg.startupHooks {
		hook(k)
	}
	k.logger().Info().Log(`boot: dispatching first task`)

	// CPU-Lock remains active; the port is responsible for leaving it as
	// part of restoring the first task's context (spec.md §4.5).
	k.p.DispatchFirstTask()
}

// ChooseRunningTask implements port.PortToKernel.ChooseRunningTask: the
// scheduling decision itself (spec.md §4.4 "Choose-next"). Precondition:
// CPU-Lock active.
func (k *Kernel) ChooseRunningTask() (port.TaskHandle, bool) {
	if !k.cpu.IsActive() {
		panic("kernel: ChooseRunningTask called without CPU-Lock active")
	}

	prevPri, prevRunning := maxPriority, false
	if k.running != nil {
		if k.running.state != Running {
			panic("kernel: running_task is set but not in the Running state")
		}
		prevPri, prevRunning = k.running.Priority, true
	}

	nextPri, ok := k.rq.findHighestPriority()
	if !ok || (prevRunning && prevPri <= nextPri) {
		// No change: either nothing is ready, or the current task remains
		// at least as eligible (non-strict tie-break: no round-robin).
		if k.running != nil {
			return k.running.ID, true
		}
		return 0, false
	}

	next := k.rq.popFront(nextPri)
	next.state = Running

	prev := k.running
	if prev != nil {
		switch prev.state {
		case Running:
			k.makeReady(prev)
		case Waiting:
			// left alone; it will be made Ready by whatever wakes it.
		default:
			panic("kernel: unreachable task state for preempted running_task")
		}
	}
	k.running = next
	k.logger().Debug().Int(`task`, int(next.ID)).Int(`priority`, int(next.Priority)).Log(`choose_next_running_task`)
	return next.ID, true
}

// TimerTick implements port.PortToKernel.TimerTick: it re-checks every
// Waiting task's deadline against Port.TickCount and wakes expired ones
// with WakeTimeout. spec.md treats timeout tracking as an external
// collaborator of the core; here, with no separate timer-queue module
// written, the scheduler just does an O(n) scan over its own (already
// small, statically-sized) task pool each tick instead of keeping a
// dedicated timeout heap.
func (k *Kernel) TimerTick() {
	g := k.cpu.acquireGuard()
	now := k.p.TickCount()
	woke := false
	for _, t := range k.tasks {
		if t.state == Waiting && t.hasDeadline && t.deadline <= now {
			t.hasDeadline = false
			t.wakeOutcome = WakeTimeout
			k.makeReady(t)
			woke = true
		}
	}
	if !woke {
		g.Release()
		return
	}
	k.preemptionCheck(g)
}

// maxPriority stands in for the "+∞" priority spec.md's pseudocode uses
// for "no running task" / "no ready task": the largest TaskPriority value
// (255), above every real priority bucket (at most 64 levels), so every
// real priority compares less than it.
const maxPriority = port.TaskPriority(^uint8(0))

// makeReady implements the internal make_ready operation (spec.md §4.4):
// the previous state must not already be queued anywhere.
func (k *Kernel) makeReady(t *TCB) {
	t.state = Ready
	k.rq.pushBack(t, t.Priority)
}

// preemptionCheck implements spec.md §4.4's "Preemption check after
// releasing CPU-Lock": read both priorities under CPU-Lock, drop the lock,
// then yield only if warranted. Precondition: called with CPU-Lock held by
// g; g is released by this call.
func (k *Kernel) preemptionCheck(g *guard) {
	prev := maxPriority
	if k.running != nil {
		prev = k.running.Priority
	}
	next := maxPriority
	if p, ok := k.rq.findHighestPriority(); ok {
		next = p
	}
	g.Release()
	if next < prev {
		k.p.YieldCPU()
	}
}
