package promisecore

// DelayedPromiseBox wraps a [PromiseBox] that starts in StateDelayed: no
// work runs, and no cancellation request is meaningful, until something
// calls Realize. It exists to let a caller build and hand out a Promise
// before deciding whether the backing work should ever actually start —
// the deferred-start discipline spec.md section 4.5 describes.
//
// Realization is single-winner: of however many goroutines call Realize or
// EmptyAndCancel concurrently, exactly one wins the underlying
// Delayed -> Empty transition (PromiseBox.TransitionTo's CAS loop), the
// same one-winner idiom [OneshotBlock] uses, just expressed via the state
// machine's own CAS instead of a dedicated flag.
type DelayedPromiseBox struct {
	box      *PromiseBox
	resolver Resolver
	promise  Promise
	ctx      Context
	fn       func(Resolver)
}

// NewDelayedPromiseBox constructs a box in StateDelayed. Once realized, fn
// is dispatched onto ctx exactly once, receiving the Resolver side of this
// box's Promise/Resolver pair.
func NewDelayedPromiseBox(ctx Context, fn func(Resolver)) *DelayedPromiseBox {
	box := NewPromiseBox(StateDelayed)
	resolver, promise := newPromiseFromBox(box)
	return &DelayedPromiseBox{box: box, resolver: resolver, promise: promise, ctx: ctx, fn: fn}
}

// Promise returns the caller-facing view of this box. Safe to call before,
// during, or after realization.
func (d *DelayedPromiseBox) Promise() Promise {
	return d.promise
}

// Realize transitions Delayed -> Empty and, iff this call won that
// transition, dispatches the stored (ctx, fn) pair onto ctx. Returns false
// without dispatching anything if the box was not in StateDelayed (already
// realized, or already cancelled via EmptyAndCancel).
func (d *DelayedPromiseBox) Realize() bool {
	if !d.box.TransitionTo(StateEmpty) {
		return false
	}
	fn, resolver := d.fn, d.resolver
	d.fn = nil // drop the reference once handed off; nothing needs it again
	d.ctx.Execute(func() { fn(resolver) })
	return true
}

// EmptyAndCancel cancels the box before the stored work ever runs. It
// transitions Delayed -> Empty -> Cancelled in one call, without ever
// dispatching fn onto ctx, and finalizes the box's lists. Returns false if
// the box was not in StateDelayed — in particular, if Realize already won
// the race, EmptyAndCancel is too late and the work will run as normal.
func (d *DelayedPromiseBox) EmptyAndCancel() bool {
	if !d.box.TransitionTo(StateEmpty) {
		return false
	}
	d.fn = nil
	if !d.box.TransitionTo(StateCancelled) {
		panic(newAssertionError("DelayedPromiseBox", "Empty -> Cancelled transition rejected immediately after winning Delayed -> Empty"))
	}
	d.box.finalizeTerminal()
	return true
}
