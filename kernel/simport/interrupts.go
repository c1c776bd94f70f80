package simport

import (
	"sync"
	"time"

	"github.com/gopherkernel/fpos/kernel/port"
	"github.com/joeycumines/go-catrate"
)

type interruptLine struct {
	priority port.InterruptPriority
	enabled  bool
	pending  bool
	handler  func()
}

// interruptController owns every interrupt line's software state. Unlike
// real hardware, "masking" here is derived from the kernel's own CPU-Lock
// state plus each line's configured priority against the kernel's
// managed-interrupt range (spec.md §4.2): a line whose priority falls
// outside [managedLow, managedHi] is never masked by CPU-Lock, matching a
// real port's nonmaskable high-priority interrupts.
type interruptController struct {
	mu         sync.Mutex
	lines      [64]interruptLine
	count      int
	masked     bool
	managedLow port.InterruptPriority
	managedHi  port.InterruptPriority
	limiter    *catrate.Limiter
}

func newInterruptController(lineCount int, handlers map[port.InterruptNum]func(), rates map[time.Duration]int, managedLow, managedHi port.InterruptPriority) *interruptController {
	if lineCount <= 0 || lineCount > 64 {
		panic("simport: interrupt line count must be in 1..=64")
	}
	c := &interruptController{count: lineCount, managedLow: managedLow, managedHi: managedHi}
	for num, fn := range handlers {
		if int(num) >= lineCount {
			panic("simport: interrupt handler registered for out-of-range line")
		}
		c.lines[num].handler = fn
	}
	if len(rates) > 0 {
		c.limiter = catrate.NewLimiter(rates)
	}
	return c
}

func (c *interruptController) checkLine(num port.InterruptNum) error {
	if int(num) >= c.count {
		return port.ErrBadParam
	}
	return nil
}

func (c *interruptController) setPriority(num port.InterruptNum, prio port.InterruptPriority) error {
	if err := c.checkLine(num); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines[num].priority = prio
	return nil
}

func (c *interruptController) enable(num port.InterruptNum) error {
	if err := c.checkLine(num); err != nil {
		return err
	}
	c.mu.Lock()
	c.lines[num].enabled = true
	c.mu.Unlock()
	return nil
}

func (c *interruptController) disable(num port.InterruptNum) error {
	if err := c.checkLine(num); err != nil {
		return err
	}
	c.mu.Lock()
	c.lines[num].enabled = false
	c.mu.Unlock()
	return nil
}

func (c *interruptController) clear(num port.InterruptNum) error {
	if err := c.checkLine(num); err != nil {
		return err
	}
	c.mu.Lock()
	c.lines[num].pending = false
	c.mu.Unlock()
	return nil
}

func (c *interruptController) isPending(num port.InterruptNum) (bool, error) {
	if err := c.checkLine(num); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines[num].pending, nil
}

func (c *interruptController) maskManaged()   { c.mu.Lock(); c.masked = true; c.mu.Unlock() }
func (c *interruptController) unmaskManaged() { c.mu.Lock(); c.masked = false; c.mu.Unlock() }

// pend raises num: it marks the line pending and, if the line is enabled
// and not presently masked, runs its handler synchronously in the calling
// goroutine with Port.Context reporting ContextInterrupt — the handler IS
// the first-level interrupt handler, not a callback invoked by one.
//
// An over-rate Pend (per the optional go-catrate limiter) is coalesced
// into the existing pending state rather than re-running the handler,
// mirroring how a saturated hardware interrupt source still only leaves
// one pending bit set no matter how many times it fires before it is
// acknowledged.
func (c *interruptController) pend(p *Port, num port.InterruptNum) error {
	if err := c.checkLine(num); err != nil {
		return err
	}

	c.mu.Lock()
	line := &c.lines[num]
	if c.limiter != nil {
		if _, ok := c.limiter.Allow(num); !ok {
			line.pending = true
			c.mu.Unlock()
			return nil
		}
	}
	line.pending = true
	withinManagedRange := line.priority >= c.managedLow && line.priority <= c.managedHi
	runNow := line.enabled && (!c.masked || !withinManagedRange)
	handler := line.handler
	c.mu.Unlock()

	if !runNow || handler == nil {
		return nil
	}

	c.runHandler(p, num, handler)
	return nil
}

func (c *interruptController) runHandler(p *Port, num port.InterruptNum, handler func()) {
	rs := currentRoleState()
	saved := *rs
	rs.ctx = port.ContextInterrupt
	rs.handle = 0
	rs.irqDepth++
	rs.dispatchPending = false

	handler()

	pending := rs.dispatchPending
	rs.irqDepth--
	topLevel := rs.irqDepth == 0
	*rs = saved

	if pending && topLevel {
		p.cpu.Enter()
		p.dispatchNext()
	}
}
