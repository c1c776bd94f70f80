package kernel

import (
	"errors"

	"github.com/gopherkernel/fpos/kernel/port"
)

// interruptLineErrorFromPort translates a port-level interrupt-line error
// (port.ErrBadParam / port.ErrNotSupported) into the façade's own
// InterruptLineError, so callers only ever need errors.Is against this
// package's sentinels regardless of which layer rejected the call.
func interruptLineErrorFromPort(err error) *InterruptLineError {
	switch {
	case errors.Is(err, port.ErrNotSupported):
		return &InterruptLineError{kind: errNotSupported}
	default:
		return &InterruptLineError{kind: errBadParam}
	}
}

// SetInterruptLinePriority sets an interrupt line's port-defined priority.
// Disallowed while CPU-Lock is active, which includes the whole of Boot
// (startup hooks run with CPU-Lock held), matching
// original_source's r3_test_suite/src/kernel_tests/interrupt_misc.rs:
// "set_priority is disallowed in a boot context" and "... when CPU Lock is
// active". A line's boot-time priority is instead set via
// WithInterruptLine. Also rejects a priority outside the configured
// managed range with ErrBadParam, per the same file's unmanaged-priority
// check.
func (k *Kernel) SetInterruptLinePriority(num port.InterruptNum, prio port.InterruptPriority) *InterruptLineError {
	if k.cpu.IsActive() {
		return &InterruptLineError{kind: errBadContext}
	}
	if prio < k.cfg.managedInterruptLow || prio > k.cfg.managedInterruptHigh {
		return &InterruptLineError{kind: errBadParam}
	}
	if err := k.p.SetInterruptLinePriority(num, prio); err != nil {
		return interruptLineErrorFromPort(err)
	}
	return nil
}

// EnableInterruptLine enables an interrupt line. Allowed from any context,
// including boot, per interrupt_misc.rs.
func (k *Kernel) EnableInterruptLine(num port.InterruptNum) *InterruptLineError {
	if err := k.p.EnableInterruptLine(num); err != nil {
		return interruptLineErrorFromPort(err)
	}
	return nil
}

// DisableInterruptLine disables an interrupt line. Allowed from any
// context; see EnableInterruptLine.
func (k *Kernel) DisableInterruptLine(num port.InterruptNum) *InterruptLineError {
	if err := k.p.DisableInterruptLine(num); err != nil {
		return interruptLineErrorFromPort(err)
	}
	return nil
}

// PendInterruptLine marks an interrupt line pending. Allowed from any
// context; see EnableInterruptLine. Returns ErrNotSupported if the bound
// port cannot pend this line in software.
func (k *Kernel) PendInterruptLine(num port.InterruptNum) *InterruptLineError {
	if err := k.p.PendInterruptLine(num); err != nil {
		return interruptLineErrorFromPort(err)
	}
	return nil
}

// ClearInterruptLine clears an interrupt line's pending flag. Allowed from
// any context; see EnableInterruptLine.
func (k *Kernel) ClearInterruptLine(num port.InterruptNum) *InterruptLineError {
	if err := k.p.ClearInterruptLine(num); err != nil {
		return interruptLineErrorFromPort(err)
	}
	return nil
}

// IsInterruptLinePending reports whether an interrupt line is pending.
// Returns ErrNotSupported if the bound port cannot query this in software.
func (k *Kernel) IsInterruptLinePending(num port.InterruptNum) (bool, *InterruptLineError) {
	pending, err := k.p.IsInterruptLinePending(num)
	if err != nil {
		return false, interruptLineErrorFromPort(err)
	}
	return pending, nil
}
