// Package simport is a hosted port: it backs every task with its own
// goroutine, runs each first-level interrupt handler on the goroutine that
// pends its line, and stands in for hardware
// interrupt masking with the kernel's own CPU-Lock state plus a logical
// interrupt-line controller. It is grounded on the "user-mode scheduler"
// design the original source's std port (constance_port_std) uses to run
// the same kernel core against a conventional OS instead of bare metal:
// one thread per task/interrupt context, arbitrated so that only one is
// ever logically executing at a time.
package simport

import (
	"fmt"
	"sync"

	"github.com/gopherkernel/fpos/kernel"
	"github.com/gopherkernel/fpos/kernel/port"
	"github.com/joeycumines/logiface"
)

// toKernel is the subset of *kernel.Kernel the port calls into; narrowed to
// an interface so tests can substitute a fake.
type toKernel interface {
	port.PortToKernel
	Task(id uint32) (kernel.Task, bool)
	PortCPULock() kernel.PortCPULock
	ManagedInterruptRange() (low, high port.InterruptPriority)
	ExitTask() *kernel.ExitTaskError
}

// Port is a hosted port.Port implementation. Construct with New (which
// binds it to the Kernel), then call Boot from the goroutine that should
// become the permanently-parked "boot" context.
type Port struct {
	k   toKernel
	cpu kernel.PortCPULock
	log *logiface.Logger[logiface.Event]

	runtimesMu sync.Mutex
	runtimes   map[port.TaskHandle]*taskRuntime

	lines *interruptController

	tick *tickDriver

	parkForever chan struct{}
}

// New constructs a Port and binds it to k. k must not already have a port
// bound.
func New(k *kernel.Kernel, opts ...Option) *Port {
	cfg := resolveOptions(opts)
	p := &Port{
		k:           k,
		log:         cfg.logger,
		runtimes:    make(map[port.TaskHandle]*taskRuntime),
		parkForever: make(chan struct{}),
	}
	k.BindPort(p)
	p.cpu = k.PortCPULock()
	low, high := k.ManagedInterruptRange()
	p.lines = newInterruptController(cfg.lineCount, cfg.handlers, cfg.pendRateLimits, low, high)
	p.tick = newTickDriver(k, cfg.tickInterval)
	return p
}

func (p *Port) logger() *logiface.Logger[logiface.Event] { return p.log }

// Boot enters CPU-Lock and runs the kernel's boot sequence. Call this from
// the goroutine you want to dedicate to booting; it does not return (the
// goroutine ends up parked forever once the first task is dispatched,
// mirroring a bare-metal port's reset handler never returning).
func (p *Port) Boot() {
	bindCurrentGoroutine(port.ContextBoot, 0)
	p.tick.start()
	p.cpu.Enter()
	p.k.Boot()
}

// --- port.Port ---

func (p *Port) DispatchFirstTask() {
	p.dispatchNext()
	<-p.parkForever
}

func (p *Port) MaskManagedInterrupts()   { p.lines.maskManaged() }
func (p *Port) UnmaskManagedInterrupts() { p.lines.unmaskManaged() }

// Stop halts the tick-driving goroutine started by Boot. Intended for tests
// and short-lived example programs that need a clean shutdown; a real
// deployment never calls this, since Boot's caller goroutine parks forever.
func (p *Port) Stop() { p.tick.halt() }

// YieldCPU gives up the CPU on behalf of whichever context calls it. A task
// blocks on its own runtime until redispatched. Boot or interrupt context
// cannot block on anything (there is no runtime backing them); a call from
// interrupt context instead just records that a dispatch is owed once the
// outermost handler returns, per Port.Port's documented contract — actually
// performing it here would let the newly-dispatched task's goroutine run
// concurrently with the still-unwinding handler, breaking the one-flow-of-
// control-at-a-time model the rest of this package relies on.
func (p *Port) YieldCPU() {
	rs := currentRoleState()

	if rs.ctx == port.ContextInterrupt {
		rs.dispatchPending = true
		return
	}

	var rt *taskRuntime
	var wait chan struct{}
	if rs.ctx == port.ContextTask {
		rt = p.runtimeFor(rs.handle)
		wait = rt.prepareWait()
	}

	p.cpu.Enter()
	next, ok := p.dispatchNext()

	if rs.ctx == port.ContextTask {
		if ok && next == rs.handle {
			return
		}
		<-wait
	}
}

func (p *Port) ExitAndDispatch(task port.TaskHandle) {
	p.dispatchNext()
	unbindCurrentGoroutine()
	p.removeRuntime(task)
}

func (p *Port) InitializeTaskState(task port.TaskHandle) {
	t, ok := p.k.Task(task)
	if !ok {
		panic(fmt.Sprintf("simport: InitializeTaskState: unknown task %d", task))
	}
	rt := newTaskRuntime()
	wait := rt.prepareWait()
	p.setRuntime(task, rt)

	attr := t.Attr()
	go func() {
		bindCurrentGoroutine(port.ContextTask, task)
		<-wait
		p.logger().Debug().Int(`task`, int(task)).Log(`task entry`)
		attr.EntryPoint(attr.EntryParam)
		// A task is expected to call Kernel.ExitTask itself; this is the
		// fallback for an entry point that just returns instead, so its
		// TCB doesn't stay stuck Running forever.
		if p.Context() == port.ContextTask {
			p.k.ExitTask()
		}
	}()
}

func (p *Port) Context() port.Context { return currentRole().ctx }

func (p *Port) SetInterruptLinePriority(num port.InterruptNum, prio port.InterruptPriority) error {
	return p.lines.setPriority(num, prio)
}

func (p *Port) EnableInterruptLine(num port.InterruptNum) error  { return p.lines.enable(num) }
func (p *Port) DisableInterruptLine(num port.InterruptNum) error { return p.lines.disable(num) }

func (p *Port) PendInterruptLine(num port.InterruptNum) error {
	return p.lines.pend(p, num)
}

func (p *Port) ClearInterruptLine(num port.InterruptNum) error { return p.lines.clear(num) }

func (p *Port) IsInterruptLinePending(num port.InterruptNum) (bool, error) {
	return p.lines.isPending(num)
}

func (p *Port) TickCount() port.Tick { return p.tick.count() }

func (p *Port) PendTickAfter(delta port.Tick) error { return p.tick.pendAfter(delta) }

// dispatchNext resolves the kernel's scheduling decision and, if a task
// should now run, signals its goroutine. Precondition: CPU-Lock active; it
// is released by this call, matching every Port.Port method's documented
// CPU-Lock contract.
func (p *Port) dispatchNext() (next port.TaskHandle, ok bool) {
	next, ok = p.k.ChooseRunningTask()
	p.cpu.Leave()
	if ok {
		p.runtimeFor(next).signal()
	}
	return
}

func (p *Port) runtimeFor(h port.TaskHandle) *taskRuntime {
	p.runtimesMu.Lock()
	defer p.runtimesMu.Unlock()
	rt, ok := p.runtimes[h]
	if !ok {
		panic(fmt.Sprintf("simport: no runtime registered for task %d", h))
	}
	return rt
}

func (p *Port) setRuntime(h port.TaskHandle, rt *taskRuntime) {
	p.runtimesMu.Lock()
	defer p.runtimesMu.Unlock()
	p.runtimes[h] = rt
}

func (p *Port) removeRuntime(h port.TaskHandle) {
	p.runtimesMu.Lock()
	defer p.runtimesMu.Unlock()
	delete(p.runtimes, h)
}
