// Command 01_basic_tasks boots two statically-declared tasks, one active at
// start and one activated by the first, and lets the scheduler run them to
// completion.
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

	worker := func(param uintptr) {
		task, _ := k.Current()
		k.Sleep(5)
		_ = task.ID()
		k.ExitTask()
	}

	main1 := func(param uintptr) {
		task, _ := k.Task(2)
		if err := task.Activate(); err != nil {
			panic(err)
		}
		k.Sleep(50)
		k.ExitTask()
	}

	k, err := kernel.New(
		kernel.WithPriorityLevels(4),
		kernel.WithTask(kernel.TaskAttr{EntryPoint: main1}, 0, true),
		kernel.WithTask(kernel.TaskAttr{EntryPoint: worker}, 1, false),
	)
	if err != nil {
		panic(err)
	}
	k.SetLogger(kernel.NewLogger(os.Stdout, logiface.LevelDebug))

	p := simport.New(k, simport.WithTickInterval(time.Millisecond))
	go p.Boot()

	time.Sleep(200 * time.Millisecond)
	p.Stop()
}
