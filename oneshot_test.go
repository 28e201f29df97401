package promisecore

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOneshotBlock_InvokeRunsExactlyOnce(t *testing.T) {
	var runs atomic.Int64
	b := NewOneshotBlock(func() { runs.Add(1) })

	assert.False(t, b.Fired())
	assert.True(t, b.Invoke())
	assert.True(t, b.Fired())
	assert.False(t, b.Invoke())
	assert.False(t, b.Invoke())
	assert.Equal(t, int64(1), runs.Load())
}

func TestOneshotBlock_InvokeReleasesCallbackStorage(t *testing.T) {
	b := NewOneshotBlock(func() {})
	assert.True(t, b.Invoke())
	assert.Nil(t, b.fn, "fn must be released (nilled) once it has run")
}

func TestOneshotBlock_ConcurrentInvoke_OnlyOneWinner(t *testing.T) {
	const n = 1000
	var runs atomic.Int64
	var winners atomic.Int64
	b := NewOneshotBlock(func() { runs.Add(1) })

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if b.Invoke() {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), runs.Load())
	assert.Equal(t, int64(1), winners.Load())
}
