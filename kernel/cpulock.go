package kernel

import "github.com/gopherkernel/fpos/kernel/port"

// cpuLock bundles the atomic Active/Inactive flag with the port calls that
// give it teeth (masking/unmasking managed interrupts). Every scheduler
// mutation in this package happens between a successful Enter and its
// matching Leave.
type cpuLock struct {
	state *cpuLockState
	p     port.Port
}

func newCPULock(p port.Port) *cpuLock {
	return &cpuLock{state: newCPULockState(), p: p}
}

// Enter acquires CPU-Lock. Precondition: CPU-Lock inactive; violating this
// is a port/kernel bug (every internal call site already checked), so it
// panics rather than returning an error — only the public façade
// (AcquireCPULock) translates the inactive precondition into a value-level
// error for application code.
func (c *cpuLock) Enter() {
	if !c.state.tryActivate() {
		panic("kernel: enter_cpu_lock called while CPU-Lock already active")
	}
	c.p.MaskManagedInterrupts()
}

// Leave releases CPU-Lock. Precondition: CPU-Lock active.
func (c *cpuLock) Leave() {
	c.p.UnmaskManagedInterrupts()
	if !c.state.deactivate() {
		panic("kernel: leave_cpu_lock called while CPU-Lock inactive")
	}
}

// TryEnter acquires CPU-Lock if inactive, returning whether it did.
func (c *cpuLock) TryEnter() bool {
	if !c.state.tryActivate() {
		return false
	}
	c.p.MaskManagedInterrupts()
	return true
}

// IsActive reports whether CPU-Lock is currently held.
func (c *cpuLock) IsActive() bool { return c.state.isActive() }

// guard is the kernel's internal scoped CPU-Lock acquisition. It releases
// CPU-Lock at most once, when Release is called; it does not release on its
// own, so only a caller that defers Release gets release on every exit path,
// including panics. guard is unexported: application code has no scoped
// helper and takes CPU-Lock through AcquireCPULock / ReleaseCPULock.
type guard struct {
	lock *cpuLock
	held bool
}

// acquireGuard takes CPU-Lock and returns a guard that releases it exactly
// once, however the caller's scope is exited.
func (c *cpuLock) acquireGuard() *guard {
	c.Enter()
	return &guard{lock: c, held: true}
}

// Release ends the critical section early. Safe to call multiple times;
// only the first call has an effect, so it may also be deferred
// (defer g.Release()) to cover every exit path.
func (g *guard) Release() {
	if g.held {
		g.held = false
		g.lock.Leave()
	}
}

// forget abandons the guard without releasing CPU-Lock, used by ExitTask,
// where control does not return to the guard's scope and the port
// is responsible for leaving CPU-Lock as part of restoring the next task's
// context (spec.md §4.4 "Exit").
func (g *guard) forget() { g.held = false }
