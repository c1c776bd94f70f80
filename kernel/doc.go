// Package kernel implements the core of a fixed-priority preemptive
// real-time scheduler: the CPU-Lock critical-section discipline, the task
// control block (TCB) state machine, the per-priority ready queue, the
// scheduler core (activation, wait/wake, choose-next-running-task), the boot
// sequencer, and the context-checked public façade.
//
// # Architecture
//
// The kernel never touches hardware or goroutines directly. It is driven by
// a [port.Port] supplied at construction time, the thin architecture-specific
// contract through which dispatching, context switching, and interrupt
// masking happen. [github.com/gopherkernel/fpos/kernel/simport] supplies a
// hosted/simulated Port, running each task on its own goroutine and each
// interrupt handler on the goroutine that pends it, suitable for
// development without real hardware. This package's own tests use a
// synchronous fake port instead.
//
// # Task Lifecycle
//
//	Dormant --activate--> Ready --chosen--> Running
//	  ^                                        |
//	  |                                      wait
//	  +---------------- wake ---------------Waiting
//	Running --ExitTask--> Dormant
//	PendingActivation --Boot--> Ready
//
// # Thread Safety
//
// There is exactly one logical flow of control at a time. All scheduler
// mutations happen while CPU-Lock is held; readers outside CPU-Lock are
// restricted to the dispatcher itself and to task-local introspection
// ([Kernel.Current]). See [Kernel.AcquireCPULock] for the public entry point to the
// critical section.
package kernel
