package simport

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopherkernel/fpos/kernel"
	"github.com/gopherkernel/fpos/kernel/port"
)

// tickDriver advances a software tick counter at a fixed wall-clock period
// and calls the bound kernel's TimerTick on every advance. The actual
// sleep primitive is platform-specific (tick_unix.go / tick_other.go),
// mirroring the teacher's per-platform poller file split
// (poller_linux.go / poller_darwin.go / poller_windows.go).
type tickDriver struct {
	k        *kernel.Kernel
	interval time.Duration
	n        atomic.Uint64

	once sync.Once
	stop chan struct{}
}

func newTickDriver(k *kernel.Kernel, interval time.Duration) *tickDriver {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &tickDriver{k: k, interval: interval, stop: make(chan struct{})}
}

func (d *tickDriver) start() {
	d.once.Do(func() {
		go d.run()
	})
}

// halt stops the driver's goroutine. Safe to call even if start was never
// called; safe to call more than once.
func (d *tickDriver) halt() {
	defer func() { recover() }()
	close(d.stop)
}

func (d *tickDriver) count() port.Tick { return d.n.Load() }

// pendAfter is a no-op: this driver ticks at a fixed period regardless of
// any specific requested deadline, and TimerTick re-checks every waiting
// task's deadline on each tick, so there is no next-wake hint to act on.
func (d *tickDriver) pendAfter(delta port.Tick) error { return nil }

func (d *tickDriver) fire() {
	d.n.Add(1)
	d.k.TimerTick()
}
