// Package safe provides panic-safe goroutine launching. In this module
// only xsync.PoolOfNoPool launches through it; the admission queue
// dispatcher, workspace fan-out, external provider hedging, and async
// ingestion jobs start their goroutines without it.
package safe

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// PanicError wraps a recovered panic with its timestamp and stack trace.
type PanicError struct {
	time  time.Time
	info  any
	stack []byte
	cache atomic.Pointer[string]
}

// Error renders the panic, its timestamp, and its stack trace. The
// rendered message is cached after the first call.
func (e *PanicError) Error() string {
	if e.cache.Load() == nil {
		msg := fmt.Sprintf("panic: \ntimestamp: %s, \nerror: %+v, \nstack: %s",
			e.time.Format(time.RFC3339Nano), e.info, string(e.stack))
		e.cache.Store(&msg)
	}
	return *e.cache.Load()
}

// NewPanicError builds a PanicError from the value passed to panic() and
// the stack captured at recovery time.
func NewPanicError(info any, stack []byte) error {
	return &PanicError{time: time.Now(), info: info, stack: stack}
}

// Go launches fn in a new goroutine, recovering any panic and routing it to
// panicFns. It never blocks the caller and never lets a panic in fn crash
// the process.
func Go(fn func(), panicFns ...func(error)) {
	wrapped := WithRecover(fn, panicFns...)
	if wrapped == nil {
		return
	}
	go wrapped()
}

// WithRecover wraps fn with panic recovery, returning nil if fn is nil.
// Use this directly (without Go) when recovery is needed but a new
// goroutine is not, e.g. inside a worker pool's own goroutine.
func WithRecover(fn func(), panicFns ...func(error)) func() {
	if fn == nil {
		return nil
	}
	return func() {
		defer func() {
			if r := recover(); r != nil {
				if len(panicFns) == 0 {
					return
				}
				err := NewPanicError(r, debug.Stack())
				for _, panicFn := range panicFns {
					panicFn(err)
				}
			}
		}()
		fn()
	}
}
