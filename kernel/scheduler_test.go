package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func noopEntry(uintptr) {}

func TestBootPromotesActiveAtStartTasks(t *testing.T) {
	k, p := bootWith(
		kernel2Tasks()...,
	)
	require.Equal(t, 1, p.dispatchFirstCalls)

	task1, ok := k.Task(1)
	require.True(t, ok)
	require.Equal(t, Running, task1.State(), "the only active-at-start task must be chosen as running_task")

	task2, ok := k.Task(2)
	require.True(t, ok)
	require.Equal(t, Dormant, task2.State())
}

func kernel2Tasks() []Option {
	return []Option{
		WithPriorityLevels(4),
		WithTask(TaskAttr{EntryPoint: noopEntry}, 1, true),
		WithTask(TaskAttr{EntryPoint: noopEntry}, 0, false),
	}
}

// TestChooseRunningTaskPreemption exercises spec.md's S2 shape directly
// against the scheduler core: a higher-priority task made Ready preempts
// immediately once CPU-Lock is released, and the preempted task goes back
// to Ready (not Waiting, not Dormant).
func TestChooseRunningTaskPreemption(t *testing.T) {
	k, p := bootWith(kernel2Tasks()...)

	task1, _ := k.Task(1)
	require.Equal(t, Running, task1.State())

	task2, _ := k.Task(2)
	require.Nil(t, task2.Activate())

	require.Equal(t, Running, task2.State(), "priority 0 must preempt priority 1")
	require.Equal(t, Ready, task1.State(), "the preempted task goes back to Ready, not Dormant")
	require.Equal(t, 1, p.yieldCalls)
}

// TestChooseRunningTaskNoRoundRobin is spec.md §4.4's tie-break note: equal
// priority never preempts the currently running task.
func TestChooseRunningTaskNoRoundRobin(t *testing.T) {
	k, p := bootWith(
		WithPriorityLevels(4),
		WithTask(TaskAttr{EntryPoint: noopEntry}, 1, true),
		WithTask(TaskAttr{EntryPoint: noopEntry}, 1, false),
	)
	task1, _ := k.Task(1)
	task2, _ := k.Task(2)

	require.Nil(t, task2.Activate())

	require.Equal(t, Running, task1.State(), "equal priority must not preempt")
	require.Equal(t, Ready, task2.State())
	require.Equal(t, 0, p.yieldCalls)
}

// TestActivateFromStartupHookFailsGracefully covers spec.md §4.5/§4.6: a
// startup hook runs with CPU-Lock already held by Boot, so Activate must
// report ErrBadContext instead of panicking when called from one.
func TestActivateFromStartupHookFailsGracefully(t *testing.T) {
	var hookErr *ActivateTaskError
	var hookRan bool
	k, _ := bootWith(
		WithPriorityLevels(4),
		WithTask(TaskAttr{EntryPoint: noopEntry}, 1, true),
		WithTask(TaskAttr{EntryPoint: noopEntry}, 0, false),
		WithStartupHook(func(k *Kernel) {
			hookRan = true
			task2, _ := k.Task(2)
			hookErr = task2.Activate()
		}),
	)
	require.True(t, hookRan)
	require.ErrorIs(t, hookErr, ErrBadContext)

	task2, _ := k.Task(2)
	require.Equal(t, Dormant, task2.State(), "the failed Activate must not have changed task2's state")
}

func TestBadTaskIDLookup(t *testing.T) {
	k, _ := bootWith(kernel2Tasks()...)
	_, ok := k.Task(0)
	require.False(t, ok)
	_, ok = k.Task(42)
	require.False(t, ok)
}

func TestTimerTickWakesExpiredWaiter(t *testing.T) {
	k, p := bootWith(
		WithPriorityLevels(4),
		WithTask(TaskAttr{EntryPoint: noopEntry}, 1, true),
		WithTask(TaskAttr{EntryPoint: noopEntry}, 0, false),
	)
	task2, _ := k.Task(2)
	// Drive task2 into Waiting with a deadline directly through the TCB,
	// the way WaitUntilWokenUp would from task context; exercised here
	// without a second goroutine since this test only needs TimerTick's
	// own expiry scan.
	task2.t.state = Waiting
	task2.t.hasDeadline = true
	task2.t.deadline = 5
	p.ticks = 5

	k.TimerTick()

	require.Equal(t, Running, task2.State(), "an expired waiter at higher priority preempts on wake")
	require.Equal(t, WakeTimeout, task2.t.wakeOutcome)
}

func TestTimerTickIgnoresUnexpiredDeadline(t *testing.T) {
	k, p := bootWith(
		WithPriorityLevels(4),
		WithTask(TaskAttr{EntryPoint: noopEntry}, 1, true),
		WithTask(TaskAttr{EntryPoint: noopEntry}, 0, false),
	)
	task2, _ := k.Task(2)
	task2.t.state = Waiting
	task2.t.hasDeadline = true
	task2.t.deadline = 100
	p.ticks = 5

	k.TimerTick()

	require.Equal(t, Waiting, task2.State())
}
