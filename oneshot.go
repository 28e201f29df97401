package promisecore

import "sync/atomic"

// OneshotBlock guards a single callback so it runs at most once no matter
// how many goroutines race to invoke it. It owns no other state: callers
// that need to pass a value through supply it via closure capture.
//
// Grounded on the single-fire CAS test-and-set idiom used throughout the
// retrieved pack for exactly-once teardown — e.g. the Awaitable.Close
// pattern (an atomic.Bool "closeWinner" guarding a one-time action) found
// among the retrieved reference files, and the same shape as
// fanghaos-go-promise's RequestCancel/IsCancelled guard.
type OneshotBlock struct {
	fired atomic.Bool
	fn    func()
}

// NewOneshotBlock constructs a block around fn, not yet fired.
func NewOneshotBlock(fn func()) *OneshotBlock {
	return &OneshotBlock{fn: fn}
}

// Invoke runs the wrapped callback iff this is the first call to Invoke
// across the block's lifetime. Returns true iff this call was the one that
// fired it.
func (b *OneshotBlock) Invoke() bool {
	if !b.fired.CompareAndSwap(false, true) {
		return false
	}
	fn := b.fn
	b.fn = nil
	if fn != nil {
		fn()
	}
	return true
}

// Fired reports whether the block has already fired (or is in the process
// of firing — the flag flips before fn runs, matching the spec's "claim
// the right to run before running" ordering).
func (b *OneshotBlock) Fired() bool {
	return b.fired.Load()
}
