// Command 04_boot_hooks reproduces spec.md's S4 scenario: a startup hook
// enables and pends an interrupt line while CPU-Lock is still active, and
// the handler does not actually run until after the first task has started
// and CPU-Lock has been released. A sequence counter records the order:
// 0->1 hook enter, 1->2 hook exit, 2->3 ISR runs.
package main

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/gopherkernel/fpos/kernel"
	"github.com/gopherkernel/fpos/kernel/port"
	"github.com/gopherkernel/fpos/kernel/simport"
	"github.com/joeycumines/logiface"
)

const lineNum port.InterruptNum = 0

func main() {
	var seq atomic.Int32

	isr := func() {
		got := seq.Add(1)
		fmt.Printf("ISR ran, sequence now %d (expected 3)\n", got)
	}

	idle := func(param uintptr) {
		// The first task to run; by the time it is dispatched, CPU-Lock
		// has already been released once on its behalf, which is exactly
		// when a pended managed interrupt becomes eligible to run.
		time.Sleep(20 * time.Millisecond)
	}

	k, err := kernel.New(
		kernel.WithPriorityLevels(4),
		kernel.WithManagedInterruptRange(0, 15),
		kernel.WithInterruptLine(lineNum, 5, false),
		kernel.WithTask(kernel.TaskAttr{EntryPoint: idle}, 0, true),
		kernel.WithStartupHook(func(k *kernel.Kernel) {
			got := seq.Add(1)
			fmt.Printf("startup hook entered, sequence now %d (expected 1)\n", got)
			if err := k.EnableInterruptLine(lineNum); err != nil {
				panic(err)
			}
			if err := k.PendInterruptLine(lineNum); err != nil {
				panic(err)
			}
			got = seq.Add(1)
			fmt.Printf("startup hook exiting, sequence now %d (expected 2)\n", got)
		}),
	)
	if err != nil {
		panic(err)
	}
	k.SetLogger(kernel.NewLogger(os.Stdout, logiface.LevelDebug))

	p := simport.New(k,
		simport.WithInterruptLineCount(4),
		simport.WithInterruptHandler(lineNum, isr),
	)

	go p.Boot()
	time.Sleep(100 * time.Millisecond)
	p.Stop()
}
