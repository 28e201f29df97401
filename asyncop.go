package promisecore

import "sync/atomic"

// OperationState is the lifecycle state of an [AsyncOperation].
type OperationState int32

const (
	// OperationInitial is the state right after construction: not yet
	// started. This is also what IsReady means throughout this package.
	OperationInitial OperationState = iota
	// OperationExecuting is set by Start and lasts until the worker calls
	// Finish, which may happen after Main returns.
	OperationExecuting
	// OperationFinished is terminal.
	OperationFinished
)

// Worker is the unit of work an [AsyncOperation] runs. Go favors
// composition over inheritance for this: rather than subclassing a base
// operation type (the approach spec.md section 9 explicitly rules out),
// callers implement Worker and hand it to Start.
type Worker interface {
	// Main runs the operation's body. It must eventually call op.Finish()
	// exactly once, synchronously or from another goroutine.
	Main(op *AsyncOperation)
}

// WorkerFunc adapts a plain function to the [Worker] interface, mirroring
// the stdlib http.HandlerFunc idiom for the common case of a worker with no
// state of its own beyond the closure.
type WorkerFunc func(op *AsyncOperation)

// Main implements [Worker].
func (f WorkerFunc) Main(op *AsyncOperation) { f(op) }

// AsyncOperation is a minimal three-state work unit: Initial, Executing,
// Finished. It carries no scheduling or cancellation policy of its own —
// those are layered on top by [PromiseOperation].
type AsyncOperation struct {
	state atomic.Int32
}

// NewAsyncOperation constructs an operation in OperationInitial.
func NewAsyncOperation() *AsyncOperation {
	return &AsyncOperation{}
}

// State returns the current lifecycle state.
func (o *AsyncOperation) State() OperationState {
	return OperationState(o.state.Load())
}

// IsReady reports whether the operation is still in OperationInitial —
// constructed but not yet started. spec.md section 6 names an "is-ready"
// observable without pinning its meaning to a specific state in section 3;
// "constructed, not yet started" is the only reading consistent with an
// is-executing/is-finished/is-ready triad over this three-state machine.
func (o *AsyncOperation) IsReady() bool {
	return o.State() == OperationInitial
}

// IsExecuting reports whether the operation is currently running.
func (o *AsyncOperation) IsExecuting() bool {
	return o.State() == OperationExecuting
}

// IsFinished reports whether the operation has completed.
func (o *AsyncOperation) IsFinished() bool {
	return o.State() == OperationFinished
}

// Start transitions Initial -> Executing and invokes w.Main synchronously
// on the calling goroutine. Returns false without calling Main if the
// operation was not in OperationInitial (double-start is a caller error
// reported as a plain failure, not a panic, since unlike observer-count
// underflow it is plausible for a racing caller to simply lose the start).
func (o *AsyncOperation) Start(w Worker) bool {
	if !o.state.CompareAndSwap(int32(OperationInitial), int32(OperationExecuting)) {
		return false
	}
	w.Main(o)
	return true
}

// Finish transitions Executing -> Finished. It panics with an
// [AssertionError] if the operation is not currently executing: per
// spec.md section 4.4, the base implementation asserts state == Executing,
// since a worker calling Finish from any other state is always a
// programmer error (calling it twice, or before Start).
func (o *AsyncOperation) Finish() {
	if !o.state.CompareAndSwap(int32(OperationExecuting), int32(OperationFinished)) {
		panic(newAssertionError("AsyncOperation", "Finish called while not Executing"))
	}
}
