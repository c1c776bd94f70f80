package kernel

import (
	"fmt"
	"os"
	"sync"

	"github.com/joeycumines/logiface"
)

// logEvent is the kernel's own minimal logiface.Event implementation, in
// the shape the teacher's tests build theirs in (coverage_extra_test.go's
// testEvent): embed UnimplementedEvent, track a level, accumulate fields.
// It is deliberately simple: kernel diagnostics are low-volume (boot
// milestones at Info; activations, exits and task switches at Debug), so
// there is no need for the teacher's
// zero-allocation byte-buffer event (stumpy's Event) here.
type logEvent struct {
	logiface.UnimplementedEvent
	level  logiface.Level
	fields []logField
	msg    string
}

type logField struct {
	key string
	val any
}

func (e *logEvent) Level() logiface.Level { return e.level }

func (e *logEvent) AddField(key string, val any) {
	e.fields = append(e.fields, logField{key, val})
}

func (e *logEvent) AddMessage(msg string) bool {
	e.msg = msg
	return true
}

// logEventFactory and logEventWriter implement logiface.EventFactory and
// logiface.Writer for *logEvent, writing a simple "key=value" line to an
// io.Writer. This stands in for the teacher's package-level
// SetStructuredLogger default logger (logging.go's NewDefaultLogger),
// adapted to the logiface facade the teacher also depends on.
type logEventFactory struct{ pool sync.Pool }

func newLogEventFactory() *logEventFactory {
	f := &logEventFactory{}
	f.pool.New = func() any { return new(logEvent) }
	return f
}

func (f *logEventFactory) NewEvent(level logiface.Level) *logEvent {
	e := f.pool.Get().(*logEvent)
	e.level = level
	e.fields = e.fields[:0]
	e.msg = ""
	return e
}

type logEventWriter struct {
	out *os.File
	mu  sync.Mutex
}

func (w *logEventWriter) Write(e *logEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "level=%s msg=%q", e.level, e.msg)
	for _, f := range e.fields {
		fmt.Fprintf(w.out, " %s=%v", f.key, f.val)
	}
	fmt.Fprintln(w.out)
	return nil
}

// NewLogger builds a logiface logger, in the generic logiface.Event shape
// most consumers of logiface hold (see e.g. the pack's
// joeycumines-go-utilpkg/sql/export.Exporter.Logger field), writing
// structured lines to out at minLevel and above.
func NewLogger(out *os.File, minLevel logiface.Level) *logiface.Logger[logiface.Event] {
	typed := logiface.New[*logEvent](
		logiface.WithEventFactory[*logEvent](newLogEventFactory()),
		logiface.WithWriter[*logEvent](&logEventWriter{out: out}),
		logiface.WithLevel[*logEvent](minLevel),
	)
	return typed.Logger()
}
