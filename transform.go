package stream

import "sync"

// TransformFunc maps one incoming item to zero or one outgoing item. A
// false second return drops the item; a non-nil error fails the stage.
type TransformFunc[In, Out any] func(v In) (Out, bool, error)

// FlushFunc runs once at end of input, before the outgoing side ends. It
// may still push trailing output.
type FlushFunc[Out any] func(push func(Out) bool) error

// Transform is a duplex stage whose incoming items are fed through a
// transform function and whose outputs are pushed on its own readable half.
// Backpressure crosses the stage: while the readable half is full, the
// pending write is held and no further input is consumed until a reader
// drains the output.
type Transform[In, Out any] struct {
	*Duplex[In, Out]
	fn    TransformFunc[In, Out]
	flush FlushFunc[Out]

	pmu    sync.Mutex
	parked func(error) // write completion held until the output side drains
}

// NewTransform builds a transform stage.
func NewTransform[In, Out any](fn TransformFunc[In, Out], opts ...Option) *Transform[In, Out] {
	return NewTransformWithFlush(fn, nil, opts...)
}

// NewTransformWithFlush builds a transform stage with a flush function that
// runs once after the last write has completed and before the readable half
// ends.
func NewTransformWithFlush[In, Out any](fn TransformFunc[In, Out], flush FlushFunc[Out], opts ...Option) *Transform[In, Out] {
	t := &Transform[In, Out]{fn: fn, flush: flush}
	sink := func(v In, done func(error)) { t.consume(v, done) }
	pull := func(*Readable[Out], int) { t.release(nil) }
	t.Duplex = NewDuplex[In, Out](sink, pull, opts...)
	t.Duplex.w.OnFinish(func() {
		if t.flush != nil {
			if err := t.flush(t.Duplex.r.Push); err != nil {
				t.Duplex.r.Destroy(err)
				return
			}
		}
		t.Duplex.r.End()
	})
	t.Duplex.w.OnClose(func() { t.release(ErrDestroyed) })
	t.Duplex.r.OnClose(func() { t.release(ErrDestroyed) })
	return t
}

func (t *Transform[In, Out]) consume(v In, done func(error)) {
	out, ok, err := t.fn(v)
	if err != nil {
		done(err)
		return
	}
	if !ok {
		done(nil)
		return
	}
	// Park before pushing: a reader on another goroutine may drain the
	// output and fire the release between Push and any later bookkeeping.
	t.pmu.Lock()
	t.parked = done
	t.pmu.Unlock()
	if t.Duplex.r.Push(out) {
		t.release(nil)
	}
}

func (t *Transform[In, Out]) release(err error) {
	t.pmu.Lock()
	done := t.parked
	t.parked = nil
	t.pmu.Unlock()
	if done != nil {
		done(err)
	}
}

// Passthrough is a transform whose function is the identity. It decouples
// two pipeline segments with its own buffers without touching the items.
type Passthrough[T any] struct {
	*Transform[T, T]
}

// NewPassthrough builds an identity stage.
func NewPassthrough[T any](opts ...Option) *Passthrough[T] {
	return &Passthrough[T]{
		NewTransform(func(v T) (T, bool, error) { return v, true, nil }, opts...),
	}
}

// Tap builds an identity stage that invokes fn on every item flowing
// through, for side effects such as logging or metrics.
func Tap[T any](fn func(T), opts ...Option) *Transform[T, T] {
	return NewTransform(func(v T) (T, bool, error) {
		fn(v)
		return v, true, nil
	}, opts...)
}
