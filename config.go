package promisecore

import "runtime"

// config.go — functional options for constructing Context implementations,
// following the teacher's options.go pattern (eventloop's LoopOption /
// WithStrictMicrotaskOrdering: an option interface applying onto an
// unexported options struct, resolved by a constructor) rather than a
// struct literal or a chain of setter methods.

// poolOptions holds configuration for a PoolContext.
type poolOptions struct {
	workers   int
	queueSize int
}

// PoolOption configures a [PoolContext] constructed via [NewPoolContext].
type PoolOption interface {
	applyPool(*poolOptions)
}

type poolOptionFunc func(*poolOptions)

func (f poolOptionFunc) applyPool(o *poolOptions) { f(o) }

// WithWorkers sets the number of goroutines draining the pool's queue.
// Non-positive values are ignored (the default, runtime.GOMAXPROCS(0),
// stands).
func WithWorkers(n int) PoolOption {
	return poolOptionFunc(func(o *poolOptions) {
		if n > 0 {
			o.workers = n
		}
	})
}

// WithQueueSize sets the buffered channel depth backing the pool. A
// non-positive value is ignored (the default of 64 stands). Execute blocks
// once the queue is full and every worker is busy — callers that can't
// tolerate that should size the queue generously or use
// [GoroutineContext] instead, which never blocks.
func WithQueueSize(n int) PoolOption {
	return poolOptionFunc(func(o *poolOptions) {
		if n > 0 {
			o.queueSize = n
		}
	})
}

func resolvePoolOptions(opts []PoolOption) poolOptions {
	cfg := poolOptions{
		workers:   runtime.GOMAXPROCS(0),
		queueSize: 64,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyPool(&cfg)
	}
	return cfg
}

// PoolContext is a [Context] backed by a fixed-size worker pool draining a
// buffered channel, grounded on the teacher's eventloop.Loop's own
// task-queue-plus-worker shape (minus its microtask/timer machinery, which
// is out of this package's scope — see context.go's doc comment). Unlike
// [GoroutineContext], which spawns unbounded goroutines, PoolContext bounds
// concurrency to a fixed worker count, matching how a production promise
// library's host queue is typically sized.
type PoolContext struct {
	queue chan func()
}

// NewPoolContext starts a pool of workers draining a shared queue, and
// returns a Context that submits onto it. The pool runs until the process
// exits; PoolContext has no Close/Stop, matching spec.md's core being
// defined independently of any particular queue lifecycle — callers that
// need a stoppable pool compose one externally and wrap it in their own
// Context.
func NewPoolContext(opts ...PoolOption) *PoolContext {
	cfg := resolvePoolOptions(opts)
	c := &PoolContext{queue: make(chan func(), cfg.queueSize)}
	for i := 0; i < cfg.workers; i++ {
		go c.worker()
	}
	return c
}

func (c *PoolContext) worker() {
	for fn := range c.queue {
		fn()
	}
}

// Execute implements [Context] by enqueueing fn for a worker to run. It
// blocks if the queue is full and every worker is currently busy.
func (c *PoolContext) Execute(fn func()) {
	c.queue <- fn
}
