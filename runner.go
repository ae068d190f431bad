package stream

import (
	"github.com/panjf2000/ants/v2"
)

// Runner bounds the goroutines spent driving background loops (iterable
// bridges, channel consumers) by submitting them to a shared ants pool. A
// process hosting many concurrent pipelines sizes one Runner instead of
// paying a goroutine per bridge.
type Runner struct {
	pool *ants.Pool
}

// NewRunner builds a runner over a pool of the given size.
func NewRunner(size int, opts ...ants.Option) (*Runner, error) {
	pool, err := ants.NewPool(size, opts...)
	if err != nil {
		return nil, err
	}
	return &Runner{pool: pool}, nil
}

// Go runs fn on the pool. A nil runner, a released pool or a failed submit
// fall back to a dedicated goroutine so drive loops are never dropped.
func (r *Runner) Go(fn func()) {
	if r == nil || r.pool == nil {
		go fn()
		return
	}
	if err := r.pool.Submit(fn); err != nil {
		go fn()
	}
}

// Release shuts the underlying pool down.
func (r *Runner) Release() {
	if r != nil && r.pool != nil {
		r.pool.Release()
	}
}
