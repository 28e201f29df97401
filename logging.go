// logging.go - package-level structured logging.
//
// The core performs no logging on its own hot paths beyond cheap nil checks;
// callers opt in with SetLogger. The backend is github.com/joeycumines/logiface
// (the facade the rest of this dependency family is built around), using
// github.com/joeycumines/stumpy as the default JSON event backend — stumpy is
// logiface's own "model" implementation, so pairing them here needs no
// additional glue code.
//
// Design decision, following the teacher's eventloop package: a package-level
// variable is appropriate because logging is a cross-cutting infrastructure
// concern and every PromiseBox/Token/Operation in a process shares the same
// logging destination; per-instance logger configuration would add surface
// area this core has no use for.
package promisecore

import (
	"sync/atomic"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the concrete logiface logger type used throughout this package.
type Logger = logiface.Logger[*stumpy.Event]

var globalLogger atomic.Pointer[Logger]

// SetLogger installs the package-level logger used for debug-level tracing
// of state transitions, list drains, and cancellation propagation. Passing
// nil disables logging (the default).
func SetLogger(l *Logger) {
	globalLogger.Store(l)
}

// NewDefaultLogger builds a ready-to-use [Logger] writing leveled JSON to
// opts (stumpy.WithWriter et al. may be passed through via options).
func NewDefaultLogger(level logiface.Level, options ...stumpy.Option) *Logger {
	return stumpy.L.New(
		stumpy.L.WithStumpy(options...),
		stumpy.L.WithLevel(level),
	)
}

func logger() *Logger {
	return globalLogger.Load()
}

func logTransition(component string, from, to int32, ok bool) {
	l := logger()
	if l == nil {
		return
	}
	l.Debug().
		Str(`component`, component).
		Int64(`from`, int64(from)).
		Int64(`to`, int64(to)).
		Bool(`ok`, ok).
		Log(`state transition`)
}

func logDrain(component string, count int) {
	l := logger()
	if l == nil || count == 0 {
		return
	}
	l.Debug().
		Str(`component`, component).
		Int(`count`, count).
		Log(`drained callback list`)
}

func logLastObserverGone(component string) {
	l := logger()
	if l == nil {
		return
	}
	l.Debug().
		Str(`component`, component).
		Log(`last observer detached`)
}
