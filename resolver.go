package promisecore

// settlement holds the published result of a promise. It is written at
// most once, by whichever goroutine wins the transition into
// StateResolved, before that transition is visible to any reader — the
// state transition's atomic store is what makes this write visible to
// other goroutines (Go's memory model treats the CAS as a synchronizing
// release; any goroutine that later observes StateResolved via an atomic
// load happens-after this write), so settlement itself needs no atomics of
// its own.
type settlement struct {
	value any
	err   error
}

// Promise is the read-only, observer-facing view over a [PromiseBox]. It
// exposes exactly the observation surface spec.md section 6 calls for:
// State, Tap, ToChannel, Seal, RequestCancel. It deliberately does not
// expose a full then/map/catch combinator algebra (out of scope per
// spec.md's Non-goals); Tap is the only registration primitive, sufficient
// to let a combinator layer be built on top without this package knowing
// about it.
type Promise struct {
	box *PromiseBox
	s   *settlement
}

// Resolver is the write side of the same box + settlement pair a [Promise]
// observes. Exactly one Resolver/Promise pair shares a given box; only code
// holding the Resolver may settle it.
type Resolver struct {
	box *PromiseBox
	s   *settlement
}

// NewPromise constructs a fresh, unsettled Promise/Resolver pair sharing
// one [PromiseBox] starting in StateEmpty.
func NewPromise() (Resolver, Promise) {
	box := NewPromiseBox(StateEmpty)
	s := &settlement{}
	return Resolver{box: box, s: s}, Promise{box: box, s: s}
}

// newPromiseFromBox wraps an already-constructed box (used by
// [DelayedPromiseBox], whose box starts in StateDelayed rather than
// StateEmpty).
func newPromiseFromBox(box *PromiseBox) (Resolver, Promise) {
	s := &settlement{}
	return Resolver{box: box, s: s}, Promise{box: box, s: s}
}

// Fulfill settles the promise with value, running every registered Tap
// callback. Returns false (and settles nothing) if the box was not in a
// state from which StateResolving could be entered (StateEmpty or
// StateCancelling).
func (r Resolver) Fulfill(value any) bool {
	return r.settle(value, nil)
}

// Reject settles the promise with err, running every registered Tap
// callback. Returns false (and settles nothing) if the box could not enter
// StateResolving.
func (r Resolver) Reject(err error) bool {
	return r.settle(nil, err)
}

func (r Resolver) settle(value any, err error) bool {
	if !r.box.TransitionTo(StateResolving) {
		return false
	}
	r.s.value = value
	r.s.err = err
	if !r.box.TransitionTo(StateResolved) {
		panic(newAssertionError("Resolver", "Resolving -> Resolved transition rejected"))
	}
	r.box.finalizeTerminal()
	return true
}

// Cancel settles the promise as cancelled. From StateEmpty it goes straight
// to StateCancelled, without passing through StateCancelling; from
// StateCancelling it completes the pending cancellation. It returns false
// from any other state (e.g. a resolution was already in flight).
func (r Resolver) Cancel() bool {
	if !r.box.TransitionTo(StateCancelled) {
		return false
	}
	r.box.finalizeTerminal()
	return true
}

// CancelWithGrace implements the race-resolving cancel path
// [PromiseOperation] uses: it first moves the box Empty -> Cancelling
// (rather than straight to Cancelled), giving any concurrently in-flight
// settle call a chance to win the Cancelling -> Resolving edge instead,
// then attempts to confirm Cancelling -> Cancelled. Returns true iff this
// call was the one that ultimately settled the box as cancelled; false if
// the box was never in a cancellable state, or if a racing settle call won
// the Cancelling -> Resolving edge first. The outcome is decided entirely
// by which TransitionTo call wins — there is no separate cancelled flag to
// fall out of sync with the box's actual state.
func (r Resolver) CancelWithGrace() bool {
	if !r.box.TransitionTo(StateCancelling) {
		return false
	}
	if !r.box.TransitionTo(StateCancelled) {
		return false
	}
	r.box.finalizeTerminal()
	return true
}

// OnRequestCancel registers fn to run the next time RequestCancel is called
// on this promise (or immediately, if it already was). This is the
// Resolver-side counterpart of Promise.RequestCancel: the producer listens
// for cancellation requests from whoever holds the Promise.
func (r Resolver) OnRequestCancel(fn func()) {
	r.box.PushRequestCancel(&listNode{run: fn})
}

// State returns the current state of the underlying box.
func (p Promise) State() PromiseState {
	return p.box.State()
}

// Tap registers fn to run once the promise reaches a terminal state,
// receiving the published value and error. If the promise has already
// settled, fn runs immediately on the calling goroutine (before Tap
// returns), matching PromiseBox.PushCallback's immediate-invoke contract
// for an already-closed list.
//
// Per spec.md section 6, Tap also drives the box's observer count itself
// (the only registration primitive that does; [Promise.IncrementObserverCount]
// exposes the counter to callers counting their own observers): it increments the box's observer count before registering,
// and decrements it once fn has run (whether that run happens inline here
// or later, from finalizeTerminal's drain). If this decrement is the one
// that reports "last observer gone", it is logged; no further action is
// required of this package, since list teardown is already driven by the
// box's own terminal-state transition, not by the observer count.
func (p Promise) Tap(fn func(value any, err error)) {
	s := p.s
	p.box.IncrementObserverCount()
	p.box.PushCallback(&listNode{run: func() {
		fn(s.value, s.err)
		if p.box.DecrementObserverCount() {
			logLastObserverGone("Promise")
		}
	}})
}

// ToChannel returns a channel that receives exactly one settlement (the
// published value/error pair) and is then closed. It is built on Tap, and
// so shares Tap's immediate-fire behavior for an already-settled promise
// (the value is already in the channel's buffer by the time ToChannel
// returns).
func (p Promise) ToChannel() <-chan struct {
	Value any
	Err   error
} {
	ch := make(chan struct {
		Value any
		Err   error
	}, 1)
	p.Tap(func(value any, err error) {
		ch <- struct {
			Value any
			Err   error
		}{Value: value, Err: err}
		close(ch)
	})
	return ch
}

// Seal marks the promise as having no further observers attaching, per
// PromiseBox.Seal.
func (p Promise) Seal() bool {
	return p.box.Seal()
}

// RequestCancel asks the producer to cancel this promise. It is advisory:
// the producer observes the request via Resolver.OnRequestCancel and
// decides whether and how to honor it (by calling Resolver.Cancel, or by
// continuing to resolve normally). Returns true iff this call was the one
// that delivered the request (false if already requested, if the box is
// still in StateDelayed, or if the promise already settled before the
// request could be delivered).
func (p Promise) RequestCancel() bool {
	return p.box.RequestCancel()
}

// IncrementObserverCount and DecrementObserverCount expose the box's
// flagged observer counter to callers building a reference-counted
// combinator layer on top of Promise (spec.md section 4.1's observer
// bookkeeping is intentionally visible here rather than hidden, since
// owning the increment/decrement discipline is the caller's
// responsibility, not this package's).
func (p Promise) IncrementObserverCount() uint64 { return p.box.IncrementObserverCount() }

// DecrementObserverCount see IncrementObserverCount.
func (p Promise) DecrementObserverCount() bool { return p.box.DecrementObserverCount() }
