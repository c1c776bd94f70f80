package kernel

import "sync/atomic"

// TaskState is one of the five states a TCB can occupy. This kernel adopts
// the richer of the two task-module revisions the original source
// contained (see SPEC_FULL.md §F): Waiting is a first-class state, not
// folded into Ready.
type TaskState uint8

const (
	// Dormant is the terminal idle state: not runnable, stack not owned by
	// any in-flight call.
	Dormant TaskState = iota
	// Ready means the task is in its priority bucket, waiting to be chosen.
	Ready
	// Running means the task is the one actively executing.
	Running
	// Waiting means the task has suspended itself via WaitUntilWokenUp.
	Waiting
	// PendingActivation is the pre-boot state for tasks configured
	// active-at-start; Boot promotes these to Ready.
	PendingActivation
)

func (s TaskState) String() string {
	switch s {
	case Dormant:
		return "Dormant"
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Waiting:
		return "Waiting"
	case PendingActivation:
		return "PendingActivation"
	default:
		return "Unknown"
	}
}

// cpuLockState is the two-state machine backing CPU-Lock: Inactive or
// Active. It is the scheduler-wide analogue of the teacher's FastState
// (state.go in the eventloop package) — a single atomic word, cache-line
// padded, mutated only via compare-and-swap, with no transition table to
// validate because there are only two states and both transitions are
// guarded by a precondition check at the call site (cpuLock.Enter /
// cpuLock.Leave) rather than by the state machine itself.
type cpuLockState struct { //nolint:unused // padding fields are intentional
	_ [64]byte
	v atomic.Uint32
	_ [60]byte
}

const (
	cpuLockInactive uint32 = 0
	cpuLockActive   uint32 = 1
)

func newCPULockState() *cpuLockState {
	s := &cpuLockState{}
	s.v.Store(cpuLockInactive)
	return s
}

func (s *cpuLockState) isActive() bool { return s.v.Load() == cpuLockActive }

// tryActivate transitions Inactive -> Active, returning whether it
// succeeded (i.e. the lock was actually acquired by this call).
func (s *cpuLockState) tryActivate() bool {
	return s.v.CompareAndSwap(cpuLockInactive, cpuLockActive)
}

// deactivate transitions Active -> Inactive, returning whether it
// succeeded (fails only if the lock was not actually active, which its
// caller cpuLock.Leave treats as a kernel/port bug and panics on;
// ReleaseCPULock checks IsActive first and reports BadContext instead).
func (s *cpuLockState) deactivate() bool {
	return s.v.CompareAndSwap(cpuLockActive, cpuLockInactive)
}
