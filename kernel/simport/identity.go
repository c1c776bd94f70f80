package simport

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"

	"github.com/gopherkernel/fpos/kernel/port"
)

// role records what a single goroutine is standing in for: a task, a
// first-level interrupt handler, or the boot goroutine, plus the interrupt
// re-entrancy bookkeeping PendInterruptLine needs to defer a dispatch
// requested mid-handler until the outermost handler returns (spec.md's
// "called from an interrupt context, it must defer the dispatch"). The
// original source (constance_port_std) tags each backing OS thread with a
// role like this via a Rust thread_local; Go has no equivalent, and
// nothing in the retrieved example repos provides goroutine-local storage
// (see DESIGN.md), so this keys a map on the runtime-assigned goroutine id
// instead, parsed out of runtime.Stack — the same fallback technique used
// by existing goroutine-identity packages in the wider Go ecosystem.
type role struct {
	ctx             port.Context
	handle          port.TaskHandle // valid only when ctx == port.ContextTask
	irqDepth        int
	dispatchPending bool
}

var roles sync.Map // goroutine id (uint64) -> *role

func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// "goroutine 123 [running]:\n..."
	b := buf[:n]
	const prefix = "goroutine "
	if bytes.HasPrefix(b, []byte(prefix)) {
		b = b[len(prefix):]
		if sp := bytes.IndexByte(b, ' '); sp >= 0 {
			if id, err := strconv.ParseUint(string(b[:sp]), 10, 64); err == nil {
				return id
			}
		}
	}
	panic("simport: could not parse goroutine id")
}

// bindCurrentGoroutine tags the calling goroutine with ctx (and, for task
// goroutines, handle) for the remainder of its life. Called once, at the
// top of every goroutine this package spawns.
func bindCurrentGoroutine(ctx port.Context, handle port.TaskHandle) {
	roles.Store(goroutineID(), &role{ctx: ctx, handle: handle})
}

func unbindCurrentGoroutine() {
	roles.Delete(goroutineID())
}

// currentRoleState returns the calling goroutine's bound *role, creating a
// transient ContextBoot one if it was never tagged (true of whatever
// goroutine constructed the Port before calling Boot).
func currentRoleState() *role {
	v, _ := roles.LoadOrStore(goroutineID(), &role{ctx: port.ContextBoot})
	return v.(*role)
}

// currentRole reports the calling goroutine's bound role by value.
func currentRole() role { return *currentRoleState() }
