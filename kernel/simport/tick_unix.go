//go:build unix

package simport

import (
	"golang.org/x/sys/unix"
)

// run sleeps in terms of unix.Nanosleep rather than time.Sleep so the tick
// period tracks CLOCK_MONOTONIC directly instead of going through the Go
// runtime's timer heap, matching the teacher pack's preference for
// golang.org/x/sys/unix over higher-level timing wrappers on unix targets.
func (d *tickDriver) run() {
	spec := unix.NsecToTimespec(d.interval.Nanoseconds())
	for {
		select {
		case <-d.stop:
			return
		default:
		}
		rem := spec
		for {
			if err := unix.Nanosleep(&rem, &rem); err == nil {
				break
			} else if err != unix.EINTR {
				break
			}
		}
		d.fire()
	}
}
