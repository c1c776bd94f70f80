package kernel

import "github.com/gopherkernel/fpos/kernel/port"

// fakePort is a synchronous, single-goroutine stand-in for port.Port: it
// drives every dispatch decision inline, on the caller's own goroutine,
// instead of handing off to another one the way simport does. This is
// enough to exercise every scheduler transition deterministically, without
// needing the concurrency machinery simport provides for a real,
// many-goroutine hosted port (see kernel/simport's own tests for that).
type fakePort struct {
	k *Kernel

	ctx port.Context

	dispatchFirstCalls int
	yieldCalls         int
	exitCalls          []port.TaskHandle
	initCalls          []port.TaskHandle
	maskCalls          int
	unmaskCalls        int

	ticks port.Tick

	lines [8]fakeLine
}

type fakeLine struct {
	priority port.InterruptPriority
	enabled  bool
	pending  bool
}

func newFakePort() *fakePort { return &fakePort{} }

func (p *fakePort) DispatchFirstTask() {
	p.dispatchFirstCalls++
	p.k.ChooseRunningTask()
	p.k.cpu.Leave()
}

func (p *fakePort) MaskManagedInterrupts()   { p.maskCalls++ }
func (p *fakePort) UnmaskManagedInterrupts() { p.unmaskCalls++ }

func (p *fakePort) YieldCPU() {
	p.yieldCalls++
	p.k.cpu.Enter()
	p.k.ChooseRunningTask()
	p.k.cpu.Leave()
}

func (p *fakePort) ExitAndDispatch(task port.TaskHandle) {
	p.exitCalls = append(p.exitCalls, task)
	p.k.ChooseRunningTask()
	p.k.cpu.Leave()
}

func (p *fakePort) InitializeTaskState(task port.TaskHandle) {
	p.initCalls = append(p.initCalls, task)
}

func (p *fakePort) Context() port.Context { return p.ctx }

func (p *fakePort) SetInterruptLinePriority(num port.InterruptNum, prio port.InterruptPriority) error {
	if int(num) >= len(p.lines) {
		return port.ErrBadParam
	}
	p.lines[num].priority = prio
	return nil
}

func (p *fakePort) EnableInterruptLine(num port.InterruptNum) error {
	if int(num) >= len(p.lines) {
		return port.ErrBadParam
	}
	p.lines[num].enabled = true
	return nil
}

func (p *fakePort) DisableInterruptLine(num port.InterruptNum) error {
	if int(num) >= len(p.lines) {
		return port.ErrBadParam
	}
	p.lines[num].enabled = false
	return nil
}

func (p *fakePort) PendInterruptLine(num port.InterruptNum) error {
	if int(num) >= len(p.lines) {
		return port.ErrBadParam
	}
	p.lines[num].pending = true
	return nil
}

func (p *fakePort) ClearInterruptLine(num port.InterruptNum) error {
	if int(num) >= len(p.lines) {
		return port.ErrBadParam
	}
	p.lines[num].pending = false
	return nil
}

func (p *fakePort) IsInterruptLinePending(num port.InterruptNum) (bool, error) {
	if int(num) >= len(p.lines) {
		return false, port.ErrBadParam
	}
	return p.lines[num].pending, nil
}

func (p *fakePort) TickCount() port.Tick { return p.ticks }

func (p *fakePort) PendTickAfter(delta port.Tick) error {
	if delta == 0 || delta > port.MaxTimeout {
		return port.ErrBadParam
	}
	return nil
}

// bootWith constructs a Kernel bound to a fresh fakePort, enters CPU-Lock
// (standing in for the port's reset/entry code), and calls Boot.
func bootWith(opts ...Option) (*Kernel, *fakePort) {
	k, err := New(opts...)
	if err != nil {
		panic(err)
	}
	p := newFakePort()
	p.k = k
	k.BindPort(p)
	k.cpu.Enter()
	k.Boot()
	return k, p
}
