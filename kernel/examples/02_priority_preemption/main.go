// Command 02_priority_preemption reproduces spec.md's S2 scenario: a lower-
// priority task activates a higher-priority one and is preempted immediately
// once the activating call's critical section releases CPU-Lock, resuming
// only after the higher-priority task exits.
package main

import (
	"os"
	"time"

	"github.com/gopherkernel/fpos/kernel"
	"github.com/gopherkernel/fpos/kernel/simport"
	"github.com/joeycumines/logiface"
)

func main() {
	var k *kernel.Kernel
	var log *logiface.Logger[logiface.Event]

	taskB := func(param uintptr) { // priority 1, higher than A
		log.Info().Log(`B running`)
		k.ExitTask()
	}

	taskA := func(param uintptr) { // priority 2
		log.Info().Log(`A running, about to activate B`)
		b, _ := k.Task(2)
		if err := b.Activate(); err != nil {
			panic(err)
		}
		// By the time Activate returns, B has already run to completion:
		// the preemption check inside Activate yields to B the instant
		// CPU-Lock is released, and A only resumes once B exits.
		log.Info().Log(`A resumed after B exited`)
		k.ExitTask()
	}

	k, err := kernel.New(
		kernel.WithPriorityLevels(4),
		kernel.WithTask(kernel.TaskAttr{EntryPoint: taskA}, 2, true),
		kernel.WithTask(kernel.TaskAttr{EntryPoint: taskB}, 1, false),
	)
	if err != nil {
		panic(err)
	}
	log = kernel.NewLogger(os.Stdout, logiface.LevelDebug)
	k.SetLogger(log)

	p := simport.New(k)
	go p.Boot()

	time.Sleep(100 * time.Millisecond)
	p.Stop()
}
