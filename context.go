package promisecore

// Context is the external task queue this package schedules work onto. It
// is deliberately the smallest possible contract: "run this function,
// eventually, according to whatever ordering and threading policy the
// implementation chooses." [DelayedPromiseBox] and [PromiseOperation] never
// assume anything stronger than this about where or when fn runs.
//
// Grounded on the teacher's own event loop Submit contract (eventloop's
// js.go/loop.go schedule a func() onto a single-threaded microtask queue),
// narrowed down to just the scheduling primitive this package needs —
// pulling in the teacher's full poller/timer/microtask-ordering machinery
// would be out of scope here; a caller that wants that behavior can supply
// an eventloop-backed Context itself.
type Context interface {
	// Execute schedules fn to run according to the implementation's policy.
	// It may run fn before returning (as [InlineContext] does) or hand it off
	// to run later.
	Execute(fn func())
}

// InlineContext runs fn synchronously, on the calling goroutine, during the
// Execute call itself. It is the simplest possible Context: appropriate for
// tests, and for callers that are already running on a single-threaded
// actor and want scheduling to be a no-op.
type InlineContext struct{}

// Execute implements [Context] by calling fn synchronously.
func (InlineContext) Execute(fn func()) { fn() }

// GoroutineContext runs fn on a new goroutine per call. It is the simplest
// possible "user-provided queue" that actually hands work to a different
// thread of control, grounded on the teacher's pattern of submitting work as
// `go fn()` at its simplest call sites, without any of the ordering
// guarantees the teacher's full event loop adds on top.
type GoroutineContext struct{}

// Execute implements [Context] by spawning a goroutine.
func (GoroutineContext) Execute(fn func()) { go fn() }
