package log

import "sync/atomic"

// Echoable wraps a Logger with a runtime on/off switch for Debugf,
// matching the original's log_getEcho/log_setEcho pair: info-level
// logging can be silenced at runtime, error logging never is.
type Echoable struct {
	next Logger
	echo atomic.Bool
}

// NewEchoable wraps next with echo initially enabled.
func NewEchoable(next Logger) *Echoable {
	e := &Echoable{next: next}
	e.echo.Store(true)
	return e
}

// SetEcho enables or disables Debugf output.
func (e *Echoable) SetEcho(on bool) { e.echo.Store(on) }

// Echo reports whether Debugf output is currently enabled.
func (e *Echoable) Echo() bool { return e.echo.Load() }

func (e *Echoable) Debugf(format string, args ...any) {
	if e.echo.Load() {
		e.next.Debugf(format, args...)
	}
}

func (e *Echoable) Warnf(format string, args ...any)  { e.next.Warnf(format, args...) }
func (e *Echoable) Errorf(format string, args ...any) { e.next.Errorf(format, args...) }
