package simport

import "sync"

// taskRuntime is the handoff primitive backing a single task's goroutine:
// a one-shot channel the goroutine blocks on, recreated each time the task
// gives up the CPU. Closing it is the signal to proceed.
type taskRuntime struct {
	mu     sync.Mutex
	resume chan struct{}
}

func newTaskRuntime() *taskRuntime { return &taskRuntime{} }

// prepareWait installs a fresh channel and returns it. The caller must
// arrange to only ever block on the exact channel returned, never on
// rt.resume read again later — signal may have already replaced it.
func (rt *taskRuntime) prepareWait() chan struct{} {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	ch := make(chan struct{})
	rt.resume = ch
	return ch
}

// signal wakes whoever is parked on the most recently prepared channel, if
// any. A signal with nothing waiting (no prepareWait call since the last
// signal) is silently dropped; this happens when the dispatcher re-selects
// a task that is already running. A task's very first dispatch is never
// dropped: InitializeTaskState itself calls prepareWait before the
// goroutine starts, so there is always a channel installed by the time
// signal can race against it.
func (rt *taskRuntime) signal() {
	rt.mu.Lock()
	ch := rt.resume
	rt.resume = nil
	rt.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}
