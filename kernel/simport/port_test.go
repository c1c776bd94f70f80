package simport_test

import (
	"sync"
	"testing"
	"time"

	"github.com/gopherkernel/fpos/kernel"
	"github.com/gopherkernel/fpos/kernel/port"
	"github.com/gopherkernel/fpos/kernel/simport"
	"github.com/stretchr/testify/require"
)

const settleWindow = 200 * time.Millisecond

// TestPreemptionOnActivate is spec.md's S2 scenario, run end-to-end against
// the real hosted port: a low-priority task activates a higher-priority
// one and observes it has already run to completion by the time Activate
// returns.
func TestPreemptionOnActivate(t *testing.T) {
	var k *kernel.Kernel
	var mu sync.Mutex
	var order []string

	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	taskB := func(uintptr) {
		record("B")
		k.ExitTask()
	}
	taskA := func(uintptr) {
		record("A-before")
		b, _ := k.Task(2)
		require.Nil(t, b.Activate())
		record("A-after")
		k.ExitTask()
	}

	k, err := kernel.New(
		kernel.WithPriorityLevels(4),
		kernel.WithTask(kernel.TaskAttr{EntryPoint: taskA}, 2, true),
		kernel.WithTask(kernel.TaskAttr{EntryPoint: taskB}, 1, false),
	)
	require.NoError(t, err)

	p := simport.New(k)
	go p.Boot()
	defer p.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, settleWindow, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"A-before", "B", "A-after"}, order)
}

// TestParkAndWake exercises Park/Task.Wake across two real goroutines.
func TestParkAndWake(t *testing.T) {
	var k *kernel.Kernel
	woken := make(chan struct{})

	waiter := func(uintptr) {
		k.Park()
		close(woken)
		k.ExitTask()
	}
	manager := func(uintptr) {
		w, _ := k.Task(2)
		require.Nil(t, w.Activate())
		time.Sleep(20 * time.Millisecond)
		w.Wake()
		k.Park() // stay Waiting instead of exiting
	}

	k, err := kernel.New(
		kernel.WithPriorityLevels(4),
		kernel.WithTask(kernel.TaskAttr{EntryPoint: manager}, 1, true),
		kernel.WithTask(kernel.TaskAttr{EntryPoint: waiter}, 0, false),
	)
	require.NoError(t, err)

	p := simport.New(k)
	go p.Boot()
	defer p.Stop()

	select {
	case <-woken:
	case <-time.After(settleWindow):
		t.Fatal("waiter was never woken")
	}
}

// TestSleepTimesOut exercises Kernel.Sleep's deadline path against the real
// tick driver.
func TestSleepTimesOut(t *testing.T) {
	var k *kernel.Kernel
	done := make(chan struct{})

	sleeper := func(uintptr) {
		k.Sleep(20)
		close(done)
		k.ExitTask()
	}

	k, err := kernel.New(
		kernel.WithPriorityLevels(4),
		kernel.WithTask(kernel.TaskAttr{EntryPoint: sleeper}, 0, true),
	)
	require.NoError(t, err)

	p := simport.New(k, simport.WithTickInterval(time.Millisecond))
	go p.Boot()
	defer p.Stop()

	select {
	case <-done:
	case <-time.After(settleWindow):
		t.Fatal("sleeper never woke from its deadline")
	}
}

// TestBootAtomicity is spec.md's S4 scenario: a startup hook enables and
// pends an interrupt line under CPU-Lock, but the handler does not run
// until after CPU-Lock is released for the first task.
func TestBootAtomicity(t *testing.T) {
	var seq int32
	var mu sync.Mutex
	record := func(want int32) {
		mu.Lock()
		defer mu.Unlock()
		seq++
		require.Equal(t, want, seq)
	}

	const line port.InterruptNum = 0

	idle := func(uintptr) { time.Sleep(20 * time.Millisecond) }

	k, err := kernel.New(
		kernel.WithPriorityLevels(4),
		kernel.WithManagedInterruptRange(0, 15),
		kernel.WithInterruptLine(line, 5, false),
		kernel.WithTask(kernel.TaskAttr{EntryPoint: idle}, 0, true),
		kernel.WithStartupHook(func(k *kernel.Kernel) {
			record(1)
			require.Nil(t, k.EnableInterruptLine(line))
			require.Nil(t, k.PendInterruptLine(line))
			record(2)
		}),
	)
	require.NoError(t, err)

	p := simport.New(k,
		simport.WithInterruptLineCount(4),
		simport.WithInterruptHandler(line, func() { record(3) }),
	)
	go p.Boot()
	defer p.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seq == 3
	}, settleWindow, time.Millisecond)
}
