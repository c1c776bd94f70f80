package simport

import (
	"time"

	"github.com/gopherkernel/fpos/kernel/port"
	"github.com/joeycumines/logiface"
)

// config mirrors the kernel package's own functional-options shape
// (resolveOptions / Option), applied here to the port's own concerns: how
// many interrupt lines exist, what runs for each, the tick period, and
// optional Pend rate limiting.
type config struct {
	lineCount      int
	handlers       map[port.InterruptNum]func()
	tickInterval   time.Duration
	pendRateLimits map[time.Duration]int
	logger         *logiface.Logger[logiface.Event]
}

// Option configures a Port at construction time.
type Option interface{ apply(*config) }

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithInterruptLineCount reserves numbered interrupt lines 0..n-1 (default
// 8). SetInterruptLinePriority/EnableInterruptLine etc. return
// port.ErrBadParam for any line number outside this range.
func WithInterruptLineCount(n int) Option {
	return optionFunc(func(c *config) { c.lineCount = n })
}

// WithInterruptHandler registers the function invoked synchronously,
// within the calling goroutine, whenever PendInterruptLine observes the
// named line enabled. Handlers run with Port.Context reporting
// ContextInterrupt.
func WithInterruptHandler(num port.InterruptNum, fn func()) Option {
	return optionFunc(func(c *config) { c.handlers[num] = fn })
}

// WithTickInterval sets the wall-clock period between simulated timer
// ticks (default 1ms). Each tick advances Port.TickCount by 1 and calls
// the bound kernel's TimerTick.
func WithTickInterval(d time.Duration) Option {
	return optionFunc(func(c *config) { c.tickInterval = d })
}

// WithInterruptPendRateLimit wires github.com/joeycumines/go-catrate's
// sliding-window limiter in front of PendInterruptLine: a Pend that would
// exceed any configured rate, keyed per interrupt line, is coalesced into
// the line's existing pending state instead of invoking the handler again,
// modeling how a saturated physical interrupt source is throttled by a
// real controller rather than delivered at unbounded rates.
func WithInterruptPendRateLimit(rates map[time.Duration]int) Option {
	return optionFunc(func(c *config) { c.pendRateLimits = rates })
}

// WithLogger installs a structured logger for port-level diagnostics
// (dispatch decisions, interrupt delivery). Defaults to nil (disabled).
func WithLogger(l *logiface.Logger[logiface.Event]) Option {
	return optionFunc(func(c *config) { c.logger = l })
}

func resolveOptions(opts []Option) *config {
	c := &config{
		lineCount:    8,
		handlers:     make(map[port.InterruptNum]func()),
		tickInterval: time.Millisecond,
	}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(c)
		}
	}
	return c
}
