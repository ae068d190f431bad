package stream

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// SinkFunc is the drain hook of a Writable: it consumes one item and reports
// completion through done, synchronously or later. done must be called
// exactly once per item; extra calls are ignored.
type SinkFunc[T any] func(v T, done func(error))

type writeReq[T any] struct {
	v    T
	size int
	cb   func(error)
}

// Writable is a buffered data sink. Write hands items to the drain hook one
// at a time, in order; while the hook is busy or the sink is corked, items
// queue up. Write reports false once the queue reaches the high-water mark
// and a one-shot drain signal fires when it has fully emptied again.
type Writable[T any] struct {
	mu   sync.Mutex
	tick ticker

	st      state[writeReq[T]]
	sizeOf  func(T) int
	sink    SinkFunc[T]
	writing bool

	drainFns  []func()
	finishFns []func()
	errFns    []func(error)
	closeFns  []func()

	errEmitted   bool
	closeEmitted bool
	failed       error

	cleanup func(error) error
	log     zerolog.Logger
}

// NewWritable builds a sink around the given drain hook.
func NewWritable[T any](sink SinkFunc[T], opts ...Option) *Writable[T] {
	o := buildOptions(opts)
	return &Writable[T]{
		st:      newState[writeReq[T]](o.mode, o.writeHWM, func(req writeReq[T]) int { return req.size }),
		sizeOf:  itemSize[T](o.mode),
		sink:    sink,
		cleanup: o.cleanup,
		log:     o.logger,
	}
}

// Write queues an item for the drain hook and reports whether capacity
// remains; a false return asks the producer to pause until drain fires. cb,
// which may be nil, is invoked once the item has been consumed (or failed).
// Writing after End panics with ErrWriteAfterEnd.
func (w *Writable[T]) Write(v T, cb func(error)) bool {
	if cb == nil {
		cb = func(error) {}
	}
	w.mu.Lock()
	if w.st.destroyed {
		w.mu.Unlock()
		w.tick.run(func() { cb(ErrDestroyed) })
		return false
	}
	if w.st.ended {
		w.mu.Unlock()
		panic(ErrWriteAfterEnd)
	}
	req := writeReq[T]{v: v, size: w.sizeOf(v), cb: cb}
	w.st.push(req)
	ok := w.st.belowMark()
	if !ok {
		w.st.needDrain = true
	}
	var fns []func()
	if w.st.corked == 0 && !w.writing {
		fns = w.dispatchNextLocked()
	}
	w.mu.Unlock()
	w.tick.run(fns...)
	return ok
}

// Cork defers draining: writes queue up until the matching Uncork. Corks
// nest.
func (w *Writable[T]) Cork() {
	w.mu.Lock()
	if !w.st.destroyed {
		w.st.corked++
	}
	w.mu.Unlock()
}

// Uncork undoes one Cork; at zero the queued writes flush in order.
func (w *Writable[T]) Uncork() {
	w.mu.Lock()
	if w.st.corked > 0 {
		w.st.corked--
	}
	var fns []func()
	if w.st.corked == 0 && !w.writing {
		fns = w.dispatchNextLocked()
	}
	w.mu.Unlock()
	w.tick.run(fns...)
}

// End closes the sink for input: once every queued write has completed, the
// finish signal fires exactly once. cb, which may be nil, is invoked with
// the outcome (nil on finish). End fully uncorks.
func (w *Writable[T]) End(cb func(error)) {
	w.mu.Lock()
	if w.st.destroyed {
		w.mu.Unlock()
		if cb != nil {
			w.tick.run(func() { cb(ErrDestroyed) })
		}
		return
	}
	w.st.ended = true
	w.st.corked = 0
	var fns []func()
	if !w.writing {
		fns = w.dispatchNextLocked()
	}
	fns = append(fns, w.maybeFinishLocked()...)
	w.mu.Unlock()
	if cb != nil {
		fire := onceErrFunc(cb)
		w.OnFinish(func() { fire(nil) })
		w.OnError(fire)
		w.OnClose(func() { fire(ErrDestroyed) })
	}
	w.tick.run(fns...)
}

// EndWith writes one final item, then ends the sink.
func (w *Writable[T]) EndWith(v T, cb func(error)) {
	w.Write(v, nil)
	w.End(cb)
}

// dispatchNextLocked starts the drain hook on the next queued item, if any.
// Follow-up items chain from onWriteDone, keeping at most one in flight.
func (w *Writable[T]) dispatchNextLocked() []func() {
	if w.writing || w.st.corked > 0 || len(w.st.buf) == 0 || w.st.destroyed {
		return nil
	}
	req := w.st.buf[0]
	w.st.buf[0] = writeReq[T]{}
	w.st.buf = w.st.buf[1:]
	w.writing = true
	done := onceErrFunc(func(err error) { w.onWriteDone(req, err) })
	return []func(){func() { w.sink(req.v, done) }}
}

func (w *Writable[T]) onWriteDone(req writeReq[T], err error) {
	w.mu.Lock()
	w.writing = false
	if w.st.destroyed {
		w.mu.Unlock()
		if err == nil {
			err = ErrDestroyed
		}
		w.tick.run(func() { req.cb(err) })
		return
	}
	w.st.length -= req.size
	if err != nil {
		w.mu.Unlock()
		w.tick.run(func() { req.cb(err) })
		w.Destroy(err)
		return
	}
	fns := []func(){func() { req.cb(nil) }}
	fns = append(fns, w.dispatchNextLocked()...)
	if w.st.length == 0 && w.st.needDrain {
		w.st.needDrain = false
		drains := slices.Clone(w.drainFns)
		fns = append(fns, func() {
			for _, fn := range drains {
				fn()
			}
		})
	}
	fns = append(fns, w.maybeFinishLocked()...)
	w.mu.Unlock()
	w.tick.run(fns...)
}

func (w *Writable[T]) maybeFinishLocked() []func() {
	if !w.st.ended || w.writing || w.st.length != 0 || len(w.st.buf) != 0 ||
		w.st.endEmitted || w.st.destroyed {
		return nil
	}
	w.st.endEmitted = true
	finishes := slices.Clone(w.finishFns)
	return []func(){
		func() {
			w.log.Debug().Msg("writable finished")
			for _, fn := range finishes {
				fn()
			}
		},
		func() { w.Destroy(nil) },
	}
}

// Destroy tears the sink down: queued writes are discarded and their
// callbacks failed, cleanup runs, an error signal fires iff err is non-nil,
// and the close signal fires exactly once. Idempotent.
func (w *Writable[T]) Destroy(err error) {
	w.mu.Lock()
	if w.st.destroyed {
		w.mu.Unlock()
		return
	}
	w.st.destroyed = true
	pending := w.st.buf
	w.st.discard()
	w.st.needDrain = false
	cleanup := w.cleanup
	w.mu.Unlock()

	w.tick.run(func() {
		if cleanup != nil {
			if cerr := cleanup(err); cerr != nil {
				err = multierr.Append(err, cerr)
			}
		}
		cbErr := err
		if cbErr == nil {
			cbErr = ErrDestroyed
		}
		for _, req := range pending {
			req.cb(cbErr)
		}
		w.mu.Lock()
		w.failed = err
		w.errEmitted = err != nil
		errFns := slices.Clone(w.errFns)
		w.mu.Unlock()
		if err != nil {
			w.log.Debug().Err(err).Msg("writable destroyed")
			for _, fn := range errFns {
				fn(err)
			}
		}
		w.mu.Lock()
		w.closeEmitted = true
		closeFns := slices.Clone(w.closeFns)
		w.mu.Unlock()
		for _, fn := range closeFns {
			fn()
		}
	})
}

// OnDrain subscribes to the one-shot drain signal, fired when a previously
// full sink has emptied its queue.
func (w *Writable[T]) OnDrain(fn func()) {
	w.mu.Lock()
	w.drainFns = append(w.drainFns, fn)
	w.mu.Unlock()
}

// OnFinish subscribes to the finish signal. Subscribing after the signal
// has fired invokes fn on the next tick.
func (w *Writable[T]) OnFinish(fn func()) {
	w.mu.Lock()
	if w.st.endEmitted {
		w.mu.Unlock()
		w.tick.run(fn)
		return
	}
	w.finishFns = append(w.finishFns, fn)
	w.mu.Unlock()
}

// OnError subscribes to the error signal. Subscribing after an error has
// fired invokes fn with it on the next tick.
func (w *Writable[T]) OnError(fn func(error)) {
	w.mu.Lock()
	if w.errEmitted {
		err := w.failed
		w.mu.Unlock()
		w.tick.run(func() { fn(err) })
		return
	}
	w.errFns = append(w.errFns, fn)
	w.mu.Unlock()
}

// OnClose subscribes to the close signal. Subscribing after close invokes
// fn on the next tick.
func (w *Writable[T]) OnClose(fn func()) {
	w.mu.Lock()
	if w.closeEmitted {
		w.mu.Unlock()
		w.tick.run(fn)
		return
	}
	w.closeFns = append(w.closeFns, fn)
	w.mu.Unlock()
}

// Buffered reports the queued amount, including the in-flight item, in
// items or bytes per mode.
func (w *Writable[T]) Buffered() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.st.length
}

// NeedsDrain reports whether a refused Write is still waiting for the
// drain signal. It turns false at the moment drain fires, so a producer
// that paused on a false Write can tell a pending drain from one that
// already fired while the Write was still on its stack.
func (w *Writable[T]) NeedsDrain() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.st.needDrain
}

// Corked reports the current cork depth.
func (w *Writable[T]) Corked() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.st.corked
}

// Ended reports whether End has been called.
func (w *Writable[T]) Ended() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.st.ended
}

// Finished reports whether the finish signal has fired.
func (w *Writable[T]) Finished() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.st.endEmitted
}

// Destroyed reports whether the sink has been destroyed.
func (w *Writable[T]) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.st.destroyed
}
