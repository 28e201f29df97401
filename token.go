package promisecore

import (
	"sync/atomic"
	"unsafe"
)

// tokenNode is the intrusive node registered against an
// InvalidationTokenBox. Unlike listNode, it is never "run" by the box
// itself at push time; it carries a generation stamp so a late reader can
// tell whether it was orphaned by a Reset that happened between push and
// read.
type tokenNode struct {
	next       unsafe.Pointer // *tokenNode
	generation uint64
	invalidate func()
}

// InvalidationTokenBox manages a chain of registered invalidation callbacks
// plus a generation counter, and a separate chain of child token boxes that
// should be invalidated (recursively) whenever this box is reset.
//
// spec.md section 9 describes the reference design as a single tagged
// pointer word (low bits = generation, remaining bits = head pointer of the
// live chain), justified there by the platform's native word size. Go's
// garbage collector does not track pointers hidden inside a plain integer,
// so stashing a live *tokenNode in a uintptr is memory-unsafe here — the
// collector could reclaim the node out from under a reader that has only a
// numeric view of it. spec.md section 9 itself allows substituting "a wider
// atomic struct, if the platform permits"; this implementation takes that
// option and keeps the two pieces of state as separate atomic fields
// instead of one packed word:
//
//   - head is a Treiber stack of tokenNode, exactly like a PromiseBox list,
//     but never transitions to a swapFailed-style closed sentinel — Reset
//     only ever swaps it back to nil, since a token box is reusable across
//     generations rather than terminal.
//   - generation increments on every Reset, and is read back by Register so
//     callers can detect "this token was invalidated between construction
//     and registration" without consulting head at all.
type InvalidationTokenBox struct {
	head       unsafe.Pointer // *tokenNode
	generation atomic.Uint64
	children   unsafe.Pointer // *listNode Treiber stack of child boxes to reset
}

// NewInvalidationTokenBox constructs a box at generation 0 with no
// registrations.
func NewInvalidationTokenBox() *InvalidationTokenBox {
	return &InvalidationTokenBox{}
}

// Generation returns the current generation counter.
func (b *InvalidationTokenBox) Generation() uint64 {
	return b.generation.Load()
}

// Push registers invalidate to run the next time Reset is called, and
// returns the generation this registration was made against. A caller that
// later wants to confirm its registration hasn't already been silently
// dropped by an intervening Reset compares this value against a fresh
// Generation() read.
//
// Push never runs invalidate synchronously, even if the box's generation
// has already moved past what the caller expects — unlike PromiseBox's
// lists, a token box is not terminal, so there is no "closed" state that
// would make an immediate-invoke fallback meaningful; staleness is
// reported, not corrected, via the returned generation.
func (b *InvalidationTokenBox) Push(invalidate func()) uint64 {
	gen := b.generation.Load()
	n := &tokenNode{generation: gen, invalidate: invalidate}
	for {
		h := atomic.LoadPointer(&b.head)
		n.next = h
		if atomic.CompareAndSwapPointer(&b.head, h, unsafe.Pointer(n)) {
			return gen
		}
	}
}

// Reset detaches every node currently registered and bumps the generation
// counter, then invalidates those nodes (running each node's invalidate
// callback, in registration order) and every child box registered via
// PushChild (recursively, via their own Reset). Child registrations stay in
// place, so a child is reset again on every later Reset of this box. It
// returns the number of direct nodes invalidated.
//
// Grounded on the same swap-then-reverse-then-run idiom as runChain in
// list.go, generalized to a box that survives its own reset instead of
// becoming permanently closed.
func (b *InvalidationTokenBox) Reset() int {
	head := atomic.SwapPointer(&b.head, nil)
	b.generation.Add(1)

	count := 0
	var reversed *tokenNode
	for cur := (*tokenNode)(head); cur != nil; {
		next := (*tokenNode)(cur.next)
		cur.next = unsafe.Pointer(reversed)
		reversed = cur
		cur = next
	}
	for n := reversed; n != nil; n = (*tokenNode)(n.next) {
		if n.invalidate != nil {
			n.invalidate()
		}
		count++
	}

	for cur := (*listNode)(atomic.LoadPointer(&b.children)); cur != nil; cur = (*listNode)(cur.next) {
		cur.run()
	}

	logDrain("InvalidationTokenBox", count)
	return count
}

// PushChild registers a child box to be reset whenever this box resets,
// implementing the chained/hierarchical cancellation spec.md section 4.2
// describes (resetting a parent token must invalidate every descendant
// token derived from it, transitively).
func (b *InvalidationTokenBox) PushChild(child *InvalidationTokenBox) {
	n := &listNode{run: func() { child.Reset() }}
	pushList(&b.children, n)
}

// Token is a thin, user-facing view over an [InvalidationTokenBox],
// mirroring how [Promise] and [Resolver] wrap a [PromiseBox] rather than
// exposing the box type directly.
type Token struct {
	box *InvalidationTokenBox
}

// NewToken constructs a Token backed by a fresh box.
func NewToken() Token {
	return Token{box: NewInvalidationTokenBox()}
}

// Register attaches invalidate to run the next time this token is
// invalidated (or immediately-scheduled child resets cascade into it), and
// returns the generation the registration was made against.
func (t Token) Register(invalidate func()) uint64 {
	return t.box.Push(invalidate)
}

// Invalidate resets the underlying box: every registered callback and every
// child token derived via NewChild fires, and the generation advances.
func (t Token) Invalidate() int {
	return t.box.Reset()
}

// Generation returns the current generation of the underlying box.
func (t Token) Generation() uint64 {
	return t.box.Generation()
}

// NewChild creates a new Token whose box is reset (transitively) whenever t
// is invalidated, implementing the parent/child invalidation chain spec.md
// section 4.2 names.
func (t Token) NewChild() Token {
	child := NewToken()
	t.box.PushChild(child.box)
	return child
}
