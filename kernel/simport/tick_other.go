//go:build !unix

package simport

import "time"

func (d *tickDriver) run() {
	t := time.NewTicker(d.interval)
	defer t.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-t.C:
			d.fire()
		}
	}
}
