package promisecore

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromiseBox_TransitionTable(t *testing.T) {
	cases := []struct {
		from PromiseState
		to   PromiseState
		ok   bool
	}{
		{StateDelayed, StateEmpty, true},
		{StateDelayed, StateResolving, false},
		{StateDelayed, StateCancelled, false},
		{StateEmpty, StateResolving, true},
		{StateEmpty, StateCancelling, true},
		{StateEmpty, StateCancelled, true},
		{StateEmpty, StateDelayed, false},
		{StateResolving, StateResolved, true},
		{StateResolving, StateCancelled, false},
		{StateCancelling, StateResolving, true},
		{StateCancelling, StateCancelled, true},
		{StateCancelling, StateEmpty, false},
		{StateResolved, StateResolved, false},
		{StateResolved, StateCancelled, false},
		{StateCancelled, StateResolved, false},
	}

	for _, c := range cases {
		b := NewPromiseBox(c.from)
		got := b.TransitionTo(c.to)
		assert.Equalf(t, c.ok, got, "%s -> %s", c.from, c.to)
		if c.ok {
			assert.Equal(t, c.to, b.State())
		} else {
			assert.Equal(t, c.from, b.State())
		}
	}
}

func TestPromiseBox_SelfTransitionAlwaysFails(t *testing.T) {
	for _, s := range []PromiseState{StateDelayed, StateEmpty, StateResolving, StateResolved, StateCancelling, StateCancelled} {
		b := NewPromiseBox(s)
		assert.False(t, b.TransitionTo(s))
	}
}

func TestPromiseBox_ConcurrentTransition_ExactlyOneWinner(t *testing.T) {
	const n = 200
	b := NewPromiseBox(StateEmpty)
	var wins atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if b.TransitionTo(StateResolving) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), wins.Load())
	assert.Equal(t, StateResolving, b.State())
}

func TestPromiseBox_PushCallback_FiresImmediatelyWhenAlreadyClosed(t *testing.T) {
	b := NewPromiseBox(StateEmpty)
	require.True(t, b.TransitionTo(StateResolving))
	require.True(t, b.TransitionTo(StateResolved))
	b.finalizeTerminal()

	ran := false
	b.PushCallback(&listNode{run: func() { ran = true }})
	assert.True(t, ran)
}

func TestPromiseBox_PushCallback_RunsInRegistrationOrderOnDrain(t *testing.T) {
	b := NewPromiseBox(StateEmpty)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		b.PushCallback(&listNode{run: func() { order = append(order, i) }})
	}
	require.True(t, b.TransitionTo(StateResolving))
	require.True(t, b.TransitionTo(StateResolved))
	b.finalizeTerminal()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestPromiseBox_RequestCancel_RunsOnceAndLateRegistrationsFireImmediately(t *testing.T) {
	b := NewPromiseBox(StateEmpty)
	count := 0
	b.PushRequestCancel(&listNode{run: func() { count++ }})

	require.True(t, b.RequestCancel())
	assert.False(t, b.RequestCancel(), "second RequestCancel must not re-run or re-win")
	assert.Equal(t, 1, count)

	late := false
	b.PushRequestCancel(&listNode{run: func() { late = true }})
	assert.True(t, late)
}

func TestPromiseBox_ObserverCount_IncrementDecrementSealOnceEach(t *testing.T) {
	b := NewPromiseBox(StateEmpty)
	b.IncrementObserverCount()
	b.IncrementObserverCount()

	// Count reaches zero while still unsealed: neither decrement may claim
	// the "last observer gone" signal, since a new observer could still
	// attach before Seal is called.
	assert.False(t, b.DecrementObserverCount())
	assert.False(t, b.DecrementObserverCount())

	// Seal, called after the count already hit zero, is the one that
	// reports the signal.
	assert.True(t, b.Seal())
	assert.False(t, b.Seal(), "second Seal must not report true again")
}

func TestPromiseBox_ObserverCount_DecrementAfterSealSignalsLastGone(t *testing.T) {
	b := NewPromiseBox(StateEmpty)
	b.IncrementObserverCount()

	// Sealed while an observer is still outstanding: Seal itself can't
	// claim the signal yet (count isn't zero).
	assert.False(t, b.Seal())

	// The decrement that brings the count to zero, with sealing already
	// done, is the one that reports true.
	assert.True(t, b.DecrementObserverCount())
}

func TestPromiseBox_ObserverCount_SealBeforeAnyObserverNeverSignalsLastGone(t *testing.T) {
	b := NewPromiseBox(StateEmpty)
	assert.False(t, b.Seal(), "sealing before any observer attached must not report last-observer-gone")
}

func TestPromiseBox_ObserverCount_DecrementUnderflowPanics(t *testing.T) {
	b := NewPromiseBox(StateEmpty)
	assert.Panics(t, func() {
		b.DecrementObserverCount()
	})
}

func TestPromiseBox_ConcurrentCallbackPushAndResolve(t *testing.T) {
	const n = 500
	b := NewPromiseBox(StateEmpty)
	var ran atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n + 1)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			b.PushCallback(&listNode{run: func() { ran.Add(1) }})
		}()
	}
	go func() {
		defer wg.Done()
		require.True(t, b.TransitionTo(StateResolving))
		require.True(t, b.TransitionTo(StateResolved))
		b.finalizeTerminal()
	}()
	wg.Wait()
	assert.Equal(t, int64(n), ran.Load())
}
