package promisecore

// PromiseOperation composes an [AsyncOperation], a [DelayedPromiseBox], and
// a child [Promise]/[Resolver] pair produced by the work itself into a
// single cancellable, queue-schedulable unit: construct it, hand the
// caller its Promise, then either Run it or Cancel it before it runs.
//
// The composition follows spec.md section 4.6's seven steps:
//
//  1. Construction builds an AsyncOperation (Initial) and a
//     DelayedPromiseBox (Delayed) sharing this operation's lifetime; the
//     DelayedPromiseBox's Promise is the one handed to the caller.
//  2. Run dispatches the operation onto the queue via the
//     DelayedPromiseBox's own Realize, which is itself single-winner.
//  3. Once realized, the dispatched function starts the AsyncOperation,
//     moving Initial -> Executing.
//  4. The AsyncOperation's Worker.Main invokes the caller-supplied start
//     function, which returns a child Promise representing the actual
//     async work.
//  5. Main taps the child Promise with an immediate-context observer that
//     forwards its eventual settlement into the outer Resolver and then
//     calls Finish, moving Executing -> Finished — regardless of whether
//     the child fulfills, rejects, or was already cancelled. Finish is
//     driven by the child actually settling (Tap's callback), not by Main
//     merely registering that observer: a child that settles
//     asynchronously, after Main returns, must not report IsFinished until
//     its Tap callback actually runs, per spec.md section 4.4's
//     isExecuting/isFinished contract for a host queue polling this
//     operation.
//  6. Cancel, called before Run wins its race, cancels via the
//     DelayedPromiseBox's EmptyAndCancel, so the work never starts at all.
//  7. Cancel, called after the work has started, instead requests
//     cancellation through Resolver.CancelWithGrace: a concurrently
//     in-flight resolution from the child promise may still win the
//     Cancelling -> Resolving edge, so whether the operation ultimately
//     resolves or cancels is decided by the outer box's own state
//     transitions, never by a separately tracked cancelled flag.
type PromiseOperation struct {
	op      *AsyncOperation
	delayed *DelayedPromiseBox
	start   func(resolver Resolver) Promise
}

// NewPromiseOperation constructs an operation that, once Run, dispatches
// onto queue and calls start with the outer Resolver. start must return a
// child Promise whose eventual settlement becomes this operation's
// settlement; for work that settles synchronously, start can settle the
// resolver itself and return an already-resolved Promise.
func NewPromiseOperation(queue Context, start func(resolver Resolver) Promise) *PromiseOperation {
	po := &PromiseOperation{
		op:    NewAsyncOperation(),
		start: start,
	}
	po.delayed = NewDelayedPromiseBox(queue, func(resolver Resolver) {
		po.op.Start(WorkerFunc(func(op *AsyncOperation) {
			child := po.start(resolver)
			child.Tap(func(value any, err error) {
				switch {
				case child.State() == StateCancelled:
					resolver.Cancel()
				case err != nil:
					resolver.Reject(err)
				default:
					resolver.Fulfill(value)
				}
				op.Finish()
			})
		}))
	})
	return po
}

// Promise returns the caller-facing view of this operation's outer
// settlement. Safe to call at any point in the operation's lifecycle.
func (po *PromiseOperation) Promise() Promise {
	return po.delayed.Promise()
}

// Run dispatches the operation onto its queue. Returns false if the
// operation was already run or already cancelled.
func (po *PromiseOperation) Run() bool {
	return po.delayed.Realize()
}

// Cancel cancels the operation. Before Run wins its race, this prevents the
// work from ever starting (step 6 above); after Run has won, this instead
// requests cancellation with the race-resolving semantics described in
// step 7, so a resolution already in flight may still complete normally.
func (po *PromiseOperation) Cancel() bool {
	if po.delayed.EmptyAndCancel() {
		return true
	}
	return po.delayed.resolver.CancelWithGrace()
}

// IsReady, IsExecuting, and IsFinished expose the underlying
// [AsyncOperation]'s lifecycle state, independent of whether the outer
// Promise has itself settled yet.
func (po *PromiseOperation) IsReady() bool     { return po.op.IsReady() }
func (po *PromiseOperation) IsExecuting() bool { return po.op.IsExecuting() }
func (po *PromiseOperation) IsFinished() bool  { return po.op.IsFinished() }

// Release is the Go analog of spec.md section 4.6 step 5's "on
// destruction" behavior: a garbage-collected runtime has no deterministic
// destructor, so a caller that constructs a PromiseOperation and ends up
// never calling Run must call Release explicitly (or a host queue wrapper
// can arrange a runtime.SetFinalizer that calls it) to guarantee the
// associated Promise still resolves, as Cancelled, instead of hanging
// forever unresolved. It is exactly EmptyAndCancel: a no-op if Run already
// won the race.
func (po *PromiseOperation) Release() bool {
	return po.delayed.EmptyAndCancel()
}
