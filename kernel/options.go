package kernel

import "github.com/gopherkernel/fpos/kernel/port"

// config is the result of resolving every Option passed to New. It plays
// the role spec.md §6 assigns to the (out-of-scope) compile-time
// configurator: producing the TCB pool, the per-priority ready-queue head
// array, and NUM_TASK_PRIORITY_LEVELS. Here that happens at New() time
// instead of at compile time, in the exact functional-options shape of the
// teacher's options.go (LoopOption / loopOptionImpl / resolveLoopOptions).
type config struct {
	priorityLevels       int
	managedInterruptLow  port.InterruptPriority
	managedInterruptHigh port.InterruptPriority
	tasks                []taskSpec
	interruptLines       []interruptLineSpec
	startupHooks         []func(*Kernel)
}

type taskSpec struct {
	attr          TaskAttr
	priority      port.TaskPriority
	activeAtStart bool
}

type interruptLineSpec struct {
	num            port.InterruptNum
	priority       port.InterruptPriority
	enabledAtStart bool
}

// Option configures a Kernel at construction time.
type Option interface {
	apply(*config) error
}

type optionFunc func(*config) error

func (f optionFunc) apply(c *config) error { return f(c) }

// WithPriorityLevels sets NUM_TASK_PRIORITY_LEVELS (default 8). Must be in
// 1..=64 (the ready queue's bitmap is a single uint64).
func WithPriorityLevels(n int) Option {
	return optionFunc(func(c *config) error {
		c.priorityLevels = n
		return nil
	})
}

// WithManagedInterruptRange records the [low, high] interrupt-priority
// range the port should treat as managed (maskable by CPU-Lock). The
// kernel itself uses it only to reject out-of-range priorities in
// Kernel.SetInterruptLinePriority; it is also surfaced to the bound port
// via Kernel.ManagedInterruptRange so the port's MaskManagedInterrupts
// implementation knows what to mask.
func WithManagedInterruptRange(low, high port.InterruptPriority) Option {
	return optionFunc(func(c *config) error {
		c.managedInterruptLow, c.managedInterruptHigh = low, high
		return nil
	})
}

// WithTask statically declares a task. Tasks are assigned IDs in
// declaration order, starting at 1, mirroring the compile-time-populated
// pool spec.md §3/§6 describes. activeAtStart tasks begin in
// PendingActivation and are promoted to Ready by Boot; others begin
// Dormant.
func WithTask(attr TaskAttr, priority port.TaskPriority, activeAtStart bool) Option {
	return optionFunc(func(c *config) error {
		c.tasks = append(c.tasks, taskSpec{attr: attr, priority: priority, activeAtStart: activeAtStart})
		return nil
	})
}

// WithInterruptLine declares an interrupt line's boot-time attributes:
// its priority and whether it starts enabled. Boot applies these via the
// bound port before running startup hooks (spec.md §4.5).
func WithInterruptLine(num port.InterruptNum, priority port.InterruptPriority, enabledAtStart bool) Option {
	return optionFunc(func(c *config) error {
		c.interruptLines = append(c.interruptLines, interruptLineSpec{num: num, priority: priority, enabledAtStart: enabledAtStart})
		return nil
	})
}

// WithStartupHook registers a function to run during Boot, after every TCB
// and interrupt line is initialized but before the first task is
// dispatched, in registration order (spec.md §4.5). CPU-Lock is held for
// the entire duration of Boot, including every startup hook, so Task.Activate
// called from a hook always reports ErrBadContext rather than succeeding —
// activeAtStart is the only way to have a task running once the first task
// is dispatched. A hook may still enable or pend interrupt lines (those
// operations are allowed from any context) but must not release CPU-Lock.
func WithStartupHook(fn func(*Kernel)) Option {
	return optionFunc(func(c *config) error {
		c.startupHooks = append(c.startupHooks, fn)
		return nil
	})
}

func resolveOptions(opts []Option) (*config, error) {
	c := &config{priorityLevels: 8}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(c); err != nil {
			return nil, err
		}
	}
	if c.priorityLevels <= 0 || c.priorityLevels > 64 {
		return nil, &ConfigError{msg: "priority levels must be in 1..=64"}
	}
	for i, t := range c.tasks {
		if int(t.priority) >= c.priorityLevels {
			return nil, &ConfigError{msg: "task has priority outside configured levels", taskIndex: i}
		}
	}
	return c, nil
}

// ConfigError is returned by New when the resolved configuration is
// internally inconsistent (e.g. a task priority outside the configured
// range). Unlike the façade's *Error types, this never occurs once the
// kernel is running; it is a build-time-equivalent validation failure.
type ConfigError struct {
	msg       string
	taskIndex int
}

func (e *ConfigError) Error() string { return "kernel: config: " + e.msg }
