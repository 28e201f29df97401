package promisecore

import (
	"sync/atomic"
	"unsafe"
)

// PromiseState is the state of a [PromiseBox]. The zero value is
// StateDelayed; boxes are always constructed via [NewPromiseBox], which sets
// the starting state explicitly.
type PromiseState int32

const (
	// StateDelayed is the pre-armed state of a lazy box: no work runs and
	// cancellation requests are silently ignored until realization moves
	// the box to StateEmpty. Only [DelayedPromiseBox] starts here.
	StateDelayed PromiseState = iota
	// StateEmpty is a live, unresolved promise with no resolution in flight.
	StateEmpty
	// StateResolving marks a resolution (or a cancellation that a handler
	// may still convert to a resolution) in progress.
	StateResolving
	// StateResolved is terminal: the promise fulfilled or rejected.
	StateResolved
	// StateCancelling marks a cancellation in progress that in-flight work
	// may still observe and race against StateResolving.
	StateCancelling
	// StateCancelled is terminal: the promise was cancelled.
	StateCancelled
)

func (s PromiseState) String() string {
	switch s {
	case StateDelayed:
		return "Delayed"
	case StateEmpty:
		return "Empty"
	case StateResolving:
		return "Resolving"
	case StateResolved:
		return "Resolved"
	case StateCancelling:
		return "Cancelling"
	case StateCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether s is Resolved or Cancelled.
func (s PromiseState) IsTerminal() bool {
	return s == StateResolved || s == StateCancelled
}

// transitionTable encodes every valid state edge. Self-transitions are
// never present (and are rejected before this table is even consulted);
// any edge absent here is rejected.
//
// Grounded on eventloop/state.go's FastState.TransitionAny: a plain map of
// valid (from) sets per target would work just as well, but keeping the
// table keyed by source state (like FastState's documented state-machine
// diagram) makes the one-hop edges this type actually allows easy to read
// at a glance, and matches spec.md section 3's table layout.
var transitionTable = map[PromiseState][]PromiseState{
	StateDelayed:    {StateEmpty},
	StateEmpty:      {StateResolving, StateCancelling, StateCancelled},
	StateResolving:  {StateResolved},
	StateCancelling: {StateResolving, StateCancelled},
}

func validEdge(from, to PromiseState) bool {
	for _, t := range transitionTable[from] {
		if t == to {
			return true
		}
	}
	return false
}

const (
	observerCountMask      uint64 = (uint64(1) << 62) - 1
	observerUnobservedFlag uint64 = uint64(1) << 62
	observerUnsealedFlag   uint64 = uint64(1) << 63
)

// PromiseBox is the atomic, lock-free state machine backing one promise. It
// owns the lifecycle state, two independently swappable intrusive callback
// lists (a normal callback list and a request-cancel list), and a flagged
// observer counter. It holds no value or error: those live in whatever
// external storage the caller (see [Resolver] and [Promise]) publishes
// before transitioning to StateResolved, per spec.md section 3.
//
// Every operation is wait-free or a bounded CAS loop; none of them block.
type PromiseBox struct { // betteralign:ignore
	state             atomic.Int32
	callbackList      unsafe.Pointer // *listNode Treiber stack, or swapFailed
	requestCancelList unsafe.Pointer // *listNode Treiber stack, or swapFailed
	observerCount     atomic.Uint64
}

// NewPromiseBox constructs a box starting in the given state (StateDelayed
// for a [DelayedPromiseBox], StateEmpty for an ordinary promise — no other
// starting state makes sense, since every other state is only reachable by
// a transition).
func NewPromiseBox(initial PromiseState) *PromiseBox {
	b := &PromiseBox{}
	b.state.Store(int32(initial))
	b.observerCount.Store(observerUnsealedFlag | observerUnobservedFlag)
	return b
}

// State returns the current state. If the observed state is StateResolved,
// the spec calls for an acquire fence pairing with the release store
// TransitionTo(StateResolved) performed; Go's atomic.Int32.Load already
// carries that guarantee (the Go memory model treats every atomic operation
// as a synchronizing event, which is strictly stronger than the C++
// acquire/release split the spec is written against), so no additional
// fence is needed here. StateUnfenced is provided anyway, as a distinctly
// named entry point for callers that only want the tag and explicitly don't
// care about value-publication ordering.
func (b *PromiseBox) State() PromiseState {
	return PromiseState(b.state.Load())
}

// StateUnfenced is identical to State in this implementation; see State's
// doc comment for why Go needs no separate fenced/unfenced read.
func (b *PromiseBox) StateUnfenced() PromiseState {
	return PromiseState(b.state.Load())
}

// TransitionTo attempts to move the box from its current state to target
// along one of the edges in the state table. Self-transitions and edges
// absent from the table always fail. Returns true iff this call's CAS won
// the race and committed target.
//
// A successful CAS is a synchronizing atomic write under Go's memory model,
// so writes made before TransitionTo(StateResolved) are visible to any
// goroutine that later observes StateResolved via State; no separate release
// fence is needed.
func (b *PromiseBox) TransitionTo(target PromiseState) bool {
	for {
		cur := PromiseState(b.state.Load())
		if cur == target || !validEdge(cur, target) {
			logTransition("PromiseBox", int32(cur), int32(target), false)
			return false
		}
		if b.state.CompareAndSwap(int32(cur), int32(target)) {
			logTransition("PromiseBox", int32(cur), int32(target), true)
			return true
		}
	}
}

// PushCallback registers n on the callback list. If the list is already
// closed (the box has reached a terminal state and been finalized), n.run
// is invoked immediately instead — matching the "if promise is already
// resolved, the callback will immediately [be] called" contract documented
// by fanghaos-go-promise's Future.addCallback, and implemented here via the
// same closed-sentinel check promisealttwo.addHandler uses.
func (b *PromiseBox) PushCallback(n *listNode) {
	if isSwapFailed(pushList(&b.callbackList, n)) {
		n.run()
	}
}

// PushRequestCancel registers n on the request-cancel list. If a cancel was
// already requested (or the box already reached a terminal state), n.run
// fires immediately.
func (b *PromiseBox) PushRequestCancel(n *listNode) {
	if isSwapFailed(pushList(&b.requestCancelList, n)) {
		n.run()
	}
}

// RequestCancel permanently closes the request-cancel list, running every
// callback registered via PushRequestCancel exactly once, in registration
// order. Safe to call concurrently or more than once: only the goroutine
// that wins the underlying swap runs the chain; a losing caller (list
// already closed) gets false back and runs nothing. Returns true iff this
// call was the one that closed the list. A request made while the box is
// still in StateDelayed is ignored: it returns false and leaves the list
// open, so it has no effect once the box is realized.
func (b *PromiseBox) RequestCancel() bool {
	if b.State() == StateDelayed {
		return false
	}
	head := closeList(&b.requestCancelList)
	if isSwapFailed(head) {
		return false
	}
	n := runChain(head)
	logDrain("PromiseBox.requestCancelList", n)
	return true
}

// finalizeTerminal is called by the box's owner (see Resolver) immediately
// after a successful transition into StateResolved or StateCancelled, per
// the invariant that reaching a terminal state implies both lists are
// closed. It drains and runs the callback list (the result/error is now
// published and State() returns the terminal state, so callbacks observe
// it), and closes the request-cancel list without running it — a
// cancellation request is moot once the box has already settled, so any
// pending request-cancel registrants are simply dropped, not invoked.
func (b *PromiseBox) finalizeTerminal() {
	head := closeList(&b.callbackList)
	if !isSwapFailed(head) {
		n := runChain(head)
		logDrain("PromiseBox.callbackList", n)
	}
	closeList(&b.requestCancelList)
}

// IncrementObserverCount records a new observer attaching to the box. It
// clears the "unobserved" flag (only ever cleared once, by whichever call
// wins the race to clear it first; subsequent calls are no-ops on that
// bit) and increments the low 62-bit count. Returns the updated word.
func (b *PromiseBox) IncrementObserverCount() uint64 {
	for {
		old := b.observerCount.Load()
		next := (old &^ observerUnobservedFlag) + 1
		if b.observerCount.CompareAndSwap(old, next) {
			return next
		}
	}
}

// DecrementObserverCount unconditionally subtracts one observer. It panics
// (an [AssertionError]) if the low 62 bits were already zero — that would
// mean more decrements happened than increments, a programmer error per
// spec.md section 7. It returns true iff this decrement brought the count
// bits from exactly 1 down to 0 *and* the box was already sealed beforehand
// (old == 1 exactly: no unsealed flag, no unobserved flag, count == 1) —
// the "last observer gone" signal. If the count reaches zero while the box
// is still unsealed, more observers may yet attach, so this call reports
// false; the eventual Seal call (once the count is already zero) is what
// reports the signal instead. This is why Seal and DecrementObserverCount
// return true at most once between the two of them, never both, per
// spec.md section 4.1.
func (b *PromiseBox) DecrementObserverCount() bool {
	old := b.observerCount.Add(^uint64(0)) + 1 // old value, pre-decrement
	if old&observerCountMask == 0 {
		panic(newAssertionError("PromiseBox", "observer count underflow"))
	}
	return old == 1
}

// Seal clears the "unsealed" flag, signaling that no further observers will
// attach. Returns true iff, after clearing, the entire word is zero —
// meaning the count was already zero and the box had been observed at
// least once. A seal performed before any IncrementObserverCount call
// leaves the unobserved flag set, so it reports false even with a zero
// count: nobody ever attached, so there is no "last observer gone" signal
// to raise. Returns true at most once per box lifetime.
func (b *PromiseBox) Seal() bool {
	for {
		old := b.observerCount.Load()
		if old&observerUnsealedFlag == 0 {
			return false
		}
		next := old &^ observerUnsealedFlag
		if b.observerCount.CompareAndSwap(old, next) {
			return next == 0
		}
	}
}
