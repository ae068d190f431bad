package stream

import (
	"io"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// PullFunc is the pull hook of a Readable. It is invoked, never while the
// endpoint lock is held, when the source needs more data: the implementation
// should eventually Push items (or End) on the source. want is the free
// buffer capacity at the time of the call.
type PullFunc[T any] func(r *Readable[T], want int)

// Readable is a push-buffered data source. A producer feeds it with Push and
// End; consumers either subscribe to OnData and drive it with Resume, couple
// it to a Writable with Pipe, or pull from it with Next/All.
//
// Push reports false once the buffer reaches the high-water mark, signalling
// the producer to stop until the want signal (or pull hook) fires again.
// Order of delivery is the order of pushes.
type Readable[T any] struct {
	mu   sync.Mutex
	tick ticker

	st      state[T]
	pull    PullFunc[T]
	pulling bool // a want/pull cycle is outstanding, reset by Push and End

	resumeScheduled bool

	dataFns  []func(T)
	wantFns  []func(int)
	endFns   []func()
	errFns   []func(error)
	closeFns []func()

	errEmitted   bool
	closeEmitted bool
	failed       error

	waiter chan outcome[T] // at most one outstanding Next

	cleanup func(error) error
	log     zerolog.Logger
}

// NewReadable builds a source with the given pull hook, which may be nil for
// sources fed externally.
func NewReadable[T any](pull PullFunc[T], opts ...Option) *Readable[T] {
	o := buildOptions(opts)
	return &Readable[T]{
		st:      newState[T](o.mode, o.readHWM, itemSize[T](o.mode)),
		pull:    pull,
		cleanup: o.cleanup,
		log:     o.logger,
	}
}

// Push appends an item to the buffer and reports whether capacity remains.
// A false return asks the producer to pause until the source wants more.
// Pushing after End panics with ErrWriteAfterEnd; pushing after Destroy is a
// no-op returning false.
func (r *Readable[T]) Push(v T) bool {
	r.mu.Lock()
	if r.st.destroyed {
		r.mu.Unlock()
		return false
	}
	if r.st.ended {
		r.mu.Unlock()
		panic(ErrWriteAfterEnd)
	}
	r.pulling = false
	var fns []func()
	if w := r.waiter; w != nil {
		// A pull consumer is suspended on this item: hand it over directly.
		r.waiter = nil
		fns = append(fns, func() { w <- outcome[T]{v: v} })
		r.mu.Unlock()
		r.tick.run(fns...)
		return true
	}
	r.st.push(v)
	ok := r.st.belowMark()
	if r.st.flowing {
		fns = append(fns, r.flow)
	}
	r.mu.Unlock()
	r.tick.run(fns...)
	return ok
}

// End marks that no more items will arrive. Once the buffer drains to zero
// the end signal fires exactly once.
func (r *Readable[T]) End() {
	r.mu.Lock()
	if r.st.destroyed || r.st.ended {
		r.mu.Unlock()
		return
	}
	r.st.ended = true
	r.pulling = false
	var fns []func()
	if w := r.waiter; w != nil {
		r.waiter = nil
		fns = append(fns, func() { w <- outcome[T]{err: io.EOF} })
	}
	fns = append(fns, r.maybeEndLocked()...)
	r.mu.Unlock()
	r.tick.run(fns...)
}

// Read removes and returns buffered data. In discrete mode n is ignored and
// one item is returned. In chunked mode up to n bytes of the head chunk are
// returned; a remainder is carried forward (reads never span chunks).
//
// When nothing is buffered Read returns the zero value and false; if the
// source has not ended this also triggers the want signal and pull hook, so
// the caller should retry after data arrives.
func (r *Readable[T]) Read(n int) (T, bool) {
	var zero T
	r.mu.Lock()
	if r.st.destroyed {
		r.mu.Unlock()
		return zero, false
	}
	if r.st.length == 0 {
		var fns []func()
		if r.st.ended {
			fns = r.maybeEndLocked()
		} else {
			fns = r.wantLocked()
		}
		r.mu.Unlock()
		r.tick.run(fns...)
		return zero, false
	}
	v := r.st.pop(n)
	fns := r.afterReadLocked()
	r.mu.Unlock()
	r.tick.run(fns...)
	return v, true
}

// Pause stops flowing delivery. Buffered and future pushes are retained
// until Resume.
func (r *Readable[T]) Pause() {
	r.mu.Lock()
	r.st.flowing = false
	r.mu.Unlock()
}

// Resume (re)starts flowing delivery to the data handlers. Delivery happens
// on a deferred tick, never synchronously underneath the caller.
func (r *Readable[T]) Resume() {
	r.mu.Lock()
	if r.st.destroyed {
		r.mu.Unlock()
		return
	}
	r.st.flowing = true
	if r.resumeScheduled {
		r.mu.Unlock()
		return
	}
	r.resumeScheduled = true
	r.mu.Unlock()
	r.tick.run(func() {
		r.mu.Lock()
		r.resumeScheduled = false
		r.mu.Unlock()
		r.flow()
	})
}

// flow delivers buffered items to the data handlers until the buffer is
// empty, flowing stops, or the endpoint is destroyed. Runs on the tick.
func (r *Readable[T]) flow() {
	for {
		r.mu.Lock()
		if r.st.destroyed || !r.st.flowing || r.st.length == 0 {
			var fns []func()
			if !r.st.destroyed && r.st.flowing {
				if r.st.ended {
					fns = r.maybeEndLocked()
				} else {
					fns = r.wantLocked()
				}
			}
			r.mu.Unlock()
			r.tick.run(fns...)
			return
		}
		v := r.st.pop(0)
		data := slices.Clone(r.dataFns)
		r.mu.Unlock()
		for _, fn := range data {
			fn(v)
		}
	}
}

// afterReadLocked decides what a successful read implies: wanting more
// input, or firing end once the drained source is done.
func (r *Readable[T]) afterReadLocked() []func() {
	if r.st.ended {
		return r.maybeEndLocked()
	}
	if r.st.belowMark() {
		return r.wantLocked()
	}
	return nil
}

// wantLocked arms a single want/pull cycle: the want signal fires with the
// free capacity and the pull hook, if any, is invoked. The cycle re-arms
// when the producer answers with Push or End.
func (r *Readable[T]) wantLocked() []func() {
	if r.pulling || r.st.ended || r.st.destroyed || !r.st.belowMark() {
		return nil
	}
	r.pulling = true
	want := r.st.hwm - r.st.length
	wants := slices.Clone(r.wantFns)
	pull := r.pull
	return []func(){func() {
		for _, fn := range wants {
			fn(want)
		}
		if pull != nil {
			pull(r, want)
		}
	}}
}

func (r *Readable[T]) maybeEndLocked() []func() {
	if !r.st.ended || r.st.length != 0 || r.st.endEmitted || r.st.destroyed {
		return nil
	}
	r.st.endEmitted = true
	ends := slices.Clone(r.endFns)
	return []func(){
		func() {
			r.log.Debug().Msg("readable ended")
			for _, fn := range ends {
				fn()
			}
		},
		func() { r.Destroy(nil) },
	}
}

// Destroy tears the source down: buffered items are discarded, cleanup runs,
// an error signal fires iff err is non-nil, and the close signal fires
// exactly once. Destroy is idempotent; later calls are no-ops.
func (r *Readable[T]) Destroy(err error) {
	r.mu.Lock()
	if r.st.destroyed {
		r.mu.Unlock()
		return
	}
	r.st.destroyed = true
	r.st.discard()
	r.pulling = false
	w := r.waiter
	r.waiter = nil
	ended := r.st.endEmitted
	cleanup := r.cleanup
	r.mu.Unlock()

	r.tick.run(func() {
		if cleanup != nil {
			if cerr := cleanup(err); cerr != nil {
				err = multierr.Append(err, cerr)
			}
		}
		r.mu.Lock()
		r.failed = err
		r.errEmitted = err != nil
		errFns := slices.Clone(r.errFns)
		r.mu.Unlock()
		if err != nil {
			r.log.Debug().Err(err).Msg("readable destroyed")
			for _, fn := range errFns {
				fn(err)
			}
		}
		if w != nil {
			switch {
			case err != nil:
				w <- outcome[T]{err: err}
			case ended:
				w <- outcome[T]{err: io.EOF}
			default:
				w <- outcome[T]{err: ErrDestroyed}
			}
		}
		r.mu.Lock()
		r.closeEmitted = true
		closeFns := slices.Clone(r.closeFns)
		r.mu.Unlock()
		for _, fn := range closeFns {
			fn()
		}
	})
}

// OnData subscribes to delivered items. Delivery only happens while the
// source is flowing (after Resume or Pipe).
func (r *Readable[T]) OnData(fn func(T)) {
	r.mu.Lock()
	r.dataFns = append(r.dataFns, fn)
	r.mu.Unlock()
}

// OnWant subscribes to the needs-more signal, fired with the free capacity
// when the buffer has room and input is wanted.
func (r *Readable[T]) OnWant(fn func(int)) {
	r.mu.Lock()
	r.wantFns = append(r.wantFns, fn)
	r.mu.Unlock()
}

// OnEnd subscribes to the end-of-data signal. Subscribing after the signal
// has fired invokes fn on the next tick.
func (r *Readable[T]) OnEnd(fn func()) {
	r.mu.Lock()
	if r.st.endEmitted {
		r.mu.Unlock()
		r.tick.run(fn)
		return
	}
	r.endFns = append(r.endFns, fn)
	r.mu.Unlock()
}

// OnError subscribes to the error signal. Subscribing after an error has
// fired invokes fn with it on the next tick.
func (r *Readable[T]) OnError(fn func(error)) {
	r.mu.Lock()
	if r.errEmitted {
		err := r.failed
		r.mu.Unlock()
		r.tick.run(func() { fn(err) })
		return
	}
	r.errFns = append(r.errFns, fn)
	r.mu.Unlock()
}

// OnClose subscribes to the close signal. Subscribing after close invokes
// fn on the next tick.
func (r *Readable[T]) OnClose(fn func()) {
	r.mu.Lock()
	if r.closeEmitted {
		r.mu.Unlock()
		r.tick.run(fn)
		return
	}
	r.closeFns = append(r.closeFns, fn)
	r.mu.Unlock()
}

// Buffered reports the current buffered amount, in items or bytes per mode.
func (r *Readable[T]) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.length
}

// Flowing reports whether the source is actively delivering to data handlers.
func (r *Readable[T]) Flowing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.flowing
}

// Ended reports whether End has been called.
func (r *Readable[T]) Ended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.ended
}

// Destroyed reports whether the source has been destroyed.
func (r *Readable[T]) Destroyed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.destroyed
}
