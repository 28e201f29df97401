package promisecore

import (
	"sync/atomic"
	"unsafe"
)

// listNode is the intrusive node pushed onto a PromiseBox's callback list or
// request-cancel list, or onto an InvalidationTokenBox's chain. The box
// never allocates these; callers own the storage and supply run, the
// closure invoked when the node is eventually drained or the list was
// already closed at push time.
//
// Grounded on eventloop/internal/promisealttwo/promise.go's handlerNode:
// a single-field Treiber-stack node, linked purely through an
// unsafe.Pointer next, with the sentinel-based "closed" check lifted out
// into the shared pushList and closeList helpers below.
type listNode struct {
	next unsafe.Pointer // *listNode
	run  func()
}

// swapFailed is the sentinel marking a list as permanently closed. Any
// reserved, distinct, never-dereferenced-as-data *listNode works; per
// spec.md section 6 it need only be distinguishable from every real pushed
// node and from nil.
var swapFailed unsafe.Pointer = unsafe.Pointer(&listNode{})

// isSwapFailed reports whether a head value returned by pushList/closeList
// represents the closed-list sentinel.
func isSwapFailed(p unsafe.Pointer) bool { return p == swapFailed }

// pushList implements the CAS-loop push/seal protocol shared by both of a
// PromiseBox's lists and an InvalidationTokenBox's child chain:
//
//  1. load the current head
//  2. if already closed (swapFailed), return it without mutating n
//  3. otherwise link n.next to the loaded head (idempotent: only n's own
//     next field is written, so replays under contention are harmless)
//  4. CAS the head from the loaded value to n; on failure, retry from 1
//
// It returns the previous head on success, or swapFailed if the list was
// already closed — the caller distinguishes "closed" from "was empty"
// because nil is a valid, non-closed prior head.
func pushList(head *unsafe.Pointer, n *listNode) unsafe.Pointer {
	for {
		h := atomic.LoadPointer(head)
		if h == swapFailed {
			return swapFailed
		}
		n.next = h
		if atomic.CompareAndSwapPointer(head, h, unsafe.Pointer(n)) {
			return h
		}
	}
}

// closeList permanently closes the list referenced by head, returning the
// chain that was attached at the moment of closure (nil if the list was
// empty, swapFailed if some other goroutine already closed it first).
func closeList(head *unsafe.Pointer) unsafe.Pointer {
	return atomic.SwapPointer(head, swapFailed)
}

// runChain walks a Treiber-stack chain returned by closeList and invokes
// each node's run callback in the order the nodes were originally pushed
// (FIFO) rather than LIFO stack order — registrants expect first-registered,
// first-notified semantics, as fanghaos-go-promise's addCallback documents
// ("If promise is already resolved, the callback will immediately called")
// and as promisealttwo.processHandlers implements via an explicit reversal
// pass before scheduling.
func runChain(head unsafe.Pointer) int {
	if head == nil || head == swapFailed {
		return 0
	}

	var reversed *listNode
	for cur := (*listNode)(head); cur != nil; {
		next := (*listNode)(cur.next)
		cur.next = unsafe.Pointer(reversed)
		reversed = cur
		cur = next
	}

	count := 0
	for n := reversed; n != nil; n = (*listNode)(n.next) {
		if n.run != nil {
			n.run()
		}
		count++
	}
	return count
}
