// Command 03_wait_wake reproduces the shape of spec.md's S3 scenario: a
// manager task activates several waiter tasks at the same priority, which
// first run and park themselves in activation order (FIFO within a priority
// bucket); the manager then wakes them one at a time, in that same order.
package main

import (
	"os"
	"time"

	"github.com/gopherkernel/fpos/kernel"
	"github.com/gopherkernel/fpos/kernel/simport"
	"github.com/joeycumines/logiface"
)

const numWaiters = 4

func main() {
	var k *kernel.Kernel
	var log *logiface.Logger[logiface.Event]

	waiter := func(param uintptr) {
		id := uint32(param)
		log.Debug().Int(`task`, int(id)).Log(`parking`)
		k.Park()
		log.Info().Int(`task`, int(id)).Log(`woken`)
		k.ExitTask()
	}

	manager := func(param uintptr) {
		for i := uint32(2); i <= numWaiters+1; i++ {
			t, _ := k.Task(i)
			if err := t.Activate(); err != nil {
				panic(err)
			}
		}
		// Let every waiter reach Park before waking any of them.
		k.Sleep(10)
		for i := uint32(2); i <= numWaiters+1; i++ {
			t, _ := k.Task(i)
			t.Wake()
			k.Sleep(2)
		}
		k.ExitTask()
	}

	opts := []kernel.Option{
		kernel.WithPriorityLevels(4),
		kernel.WithTask(kernel.TaskAttr{EntryPoint: manager}, 0, true),
	}
	for i := uint32(0); i < numWaiters; i++ {
		id := i + 2
		opts = append(opts, kernel.WithTask(kernel.TaskAttr{
			EntryPoint: waiter,
			EntryParam: uintptr(id),
		}, 1, false))
	}

	k, err := kernel.New(opts...)
	if err != nil {
		panic(err)
	}
	log = kernel.NewLogger(os.Stdout, logiface.LevelDebug)
	k.SetLogger(log)

	p := simport.New(k)
	go p.Boot()

	time.Sleep(200 * time.Millisecond)
	p.Stop()
}
