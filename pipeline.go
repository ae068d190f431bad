package stream

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Stream is the capability every pipeline stage declares: a teardown entry
// point and the error/close signals. Readable, Writable, Duplex and
// Transform all implement it.
type Stream interface {
	Destroy(err error)
	Destroyed() bool
	OnError(fn func(error))
	OnClose(fn func())
}

// anySource and anySink are the type-erased wiring capabilities Pipeline
// uses to couple adjacent stages of differing item types. The typed Pipe
// operator is preferred when the types are known statically.
type anySource interface {
	onDataAny(fn func(any))
	onEndAny(fn func())
	Pause()
	Resume()
}

type anySink interface {
	writeAny(v any, cb func(error)) (bool, error)
	endAny()
	onDrainAny(fn func())
	NeedsDrain() bool
}

func (r *Readable[T]) onDataAny(fn func(any)) { r.OnData(func(v T) { fn(v) }) }

func (r *Readable[T]) onEndAny(fn func()) { r.OnEnd(fn) }

func (w *Writable[T]) writeAny(v any, cb func(error)) (bool, error) {
	vt, ok := v.(T)
	if !ok {
		return false, fmt.Errorf("%w: cannot write %T", ErrStageMismatch, v)
	}
	return w.Write(vt, cb), nil
}
func (w *Writable[T]) endAny() { w.End(nil) }

func (w *Writable[T]) onDrainAny(fn func()) { w.OnDrain(fn) }

func (d *Duplex[In, Out]) onDataAny(fn func(any)) { d.r.onDataAny(fn) }

func (d *Duplex[In, Out]) onEndAny(fn func()) { d.r.onEndAny(fn) }

func (d *Duplex[In, Out]) writeAny(v any, cb func(error)) (bool, error) {
	return d.w.writeAny(v, cb)
}

func (d *Duplex[In, Out]) endAny() { d.w.endAny() }

func (d *Duplex[In, Out]) onDrainAny(fn func()) { d.w.onDrainAny(fn) }

// IsReadable reports whether v can head a pipe (has the readable capability).
func IsReadable(v any) bool {
	_, ok := v.(anySource)
	return ok
}

// IsWritable reports whether v can terminate a pipe (has the writable
// capability).
func IsWritable(v any) bool {
	_, ok := v.(anySink)
	return ok
}

// Composer is the shared failure domain of a set of stages: the first error
// from any of them destroys every stage exactly once. It is an explicit
// registry with construction/teardown scope, not a process-wide table.
type Composer struct {
	stages []Stream
	mu     sync.Mutex
	done   bool
	err    error
	log    zerolog.Logger
}

// NewComposer registers the stages and installs the shared error handler.
func NewComposer(stages []Stream, opts ...Option) *Composer {
	o := buildOptions(opts)
	c := &Composer{stages: stages, log: o.logger}
	lo.ForEach(stages, func(s Stream, _ int) {
		s.OnError(func(err error) { c.Teardown(err) })
	})
	return c
}

// Teardown destroys every registered stage with err. Only the first call
// has any effect; destroying a stage fires its error signal, which calls
// back into Teardown, so the guard must tolerate re-entry from the same
// goroutine.
func (c *Composer) Teardown(err error) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	c.err = err
	c.mu.Unlock()
	c.log.Debug().Err(err).Int("stages", len(c.stages)).Msg("pipeline teardown")
	lo.ForEach(c.stages, func(s Stream, _ int) { s.Destroy(err) })
}

// Err returns the error Teardown ran with, if it ran.
func (c *Composer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Pipeline pipes each adjacent pair of stages left to right and registers
// them all under one Composer, so the first error anywhere destroys the
// whole chain exactly once. Every stage but the last must be readable and
// every stage but the first writable; item types of adjacent stages must
// agree, a mismatch during flow tearing the pipeline down with
// ErrStageMismatch.
func Pipeline(stages ...Stream) (*Composer, error) {
	if len(stages) < 2 {
		return nil, ErrPipelineTooShort
	}
	for i := 0; i < len(stages)-1; i++ {
		if _, ok := stages[i].(anySource); !ok {
			return nil, fmt.Errorf("%w: stage %d is not readable", ErrStageMismatch, i)
		}
		if _, ok := stages[i+1].(anySink); !ok {
			return nil, fmt.Errorf("%w: stage %d is not writable", ErrStageMismatch, i+1)
		}
	}
	c := NewComposer(stages)
	for i := 0; i < len(stages)-1; i++ {
		pipeAny(stages[i].(anySource), stages[i+1].(anySink), c)
	}
	return c, nil
}

func pipeAny(src anySource, dst anySink, c *Composer) {
	src.onDataAny(func(v any) {
		ok, err := dst.writeAny(v, nil)
		if err != nil {
			c.Teardown(err)
			return
		}
		if !ok {
			src.Pause()
			// Same race as in Pipe: the drain may have fired while the
			// write was still on this stack.
			if !dst.NeedsDrain() {
				src.Resume()
			}
		}
	})
	dst.onDrainAny(func() { src.Resume() })
	src.onEndAny(func() { dst.endAny() })
	src.Resume()
}

// Run wires the stages with Pipeline and blocks until the final stage
// reaches a terminal outcome or ctx is done; cancellation tears the chain
// down. It returns the first pipeline error, nil on clean completion.
func Run(ctx context.Context, stages ...Stream) error {
	c, err := Pipeline(stages...)
	if err != nil {
		return err
	}
	err = Wait(ctx, stages[len(stages)-1])
	if err != nil {
		c.Teardown(err)
	}
	if cerr := c.Err(); cerr != nil {
		return cerr
	}
	return err
}
