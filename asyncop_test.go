package promisecore

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncOperation_Lifecycle(t *testing.T) {
	op := NewAsyncOperation()
	assert.True(t, op.IsReady())
	assert.False(t, op.IsExecuting())
	assert.False(t, op.IsFinished())

	started := false
	ok := op.Start(WorkerFunc(func(o *AsyncOperation) {
		started = true
		assert.True(t, o.IsExecuting())
		o.Finish()
	}))

	require.True(t, ok)
	assert.True(t, started)
	assert.True(t, op.IsFinished())
	assert.False(t, op.IsReady())
	assert.False(t, op.IsExecuting())
}

func TestAsyncOperation_DoubleStartFails(t *testing.T) {
	op := NewAsyncOperation()
	require.True(t, op.Start(WorkerFunc(func(o *AsyncOperation) { o.Finish() })))
	assert.False(t, op.Start(WorkerFunc(func(o *AsyncOperation) { o.Finish() })))
}

func TestAsyncOperation_FinishWithoutExecutingPanics(t *testing.T) {
	op := NewAsyncOperation()
	assert.Panics(t, func() { op.Finish() })
}

func TestAsyncOperation_FinishTwicePanics(t *testing.T) {
	op := NewAsyncOperation()
	require.True(t, op.Start(WorkerFunc(func(o *AsyncOperation) { o.Finish() })))
	assert.Panics(t, func() { op.Finish() })
}

func TestAsyncOperation_ConcurrentStart_ExactlyOneWinner(t *testing.T) {
	const n = 200
	op := NewAsyncOperation()
	var wins atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if op.Start(WorkerFunc(func(o *AsyncOperation) { o.Finish() })) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), wins.Load())
}
