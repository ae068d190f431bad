package stream

import (
	"iter"
)

// Iterator is a pull-based sequence of items, finite or infinite. An
// iterator whose production can fail should also implement Err (checked
// after Next reports false), in the manner of bufio.Scanner.
type Iterator[T any] interface {
	Next() (T, bool)
}

type errIterator interface {
	Err() error
}

// From bridges a pull-based iterator into a push-based Readable. The drive
// loop pushes while the source reports capacity, then suspends until the
// source wants more; it never runs more than one high-water mark ahead of
// the consumer. Exhaustion ends the source; an iterator error destroys it
// with that error.
//
// The loop runs on its own goroutine, or on a shared pool when WithRunner
// is given.
func From[T any](it Iterator[T], opts ...Option) *Readable[T] {
	o := buildOptions(opts)
	wake := make(chan struct{}, 1)
	closeWake := onceFunc(func() { close(wake) })
	opts = chainCleanup(opts, o.cleanup, func(error) error {
		closeWake()
		return nil
	})

	r := NewReadable[T](func(*Readable[T], int) {
		select {
		case wake <- struct{}{}:
		default:
		}
	}, opts...)

	drive := func() {
		defer closeWake()
		for {
			v, ok := it.Next()
			if !ok {
				if e, hasErr := it.(errIterator); hasErr && e.Err() != nil {
					r.Destroy(e.Err())
				} else {
					r.End()
				}
				return
			}
			if r.Destroyed() {
				return
			}
			if !r.Push(v) {
				// Tokens can arrive early; wait until there is real capacity.
				for !r.hasCapacity() {
					if _, open := <-wake; !open {
						return
					}
					if r.Destroyed() {
						return
					}
				}
			}
		}
	}
	if o.runner != nil {
		o.runner.Go(drive)
	} else {
		go drive()
	}
	return r
}

// chainCleanup replaces the configured cleanup with prev followed by next,
// merging errors through the destroy path.
func chainCleanup(opts []Option, prev, next func(error) error) []Option {
	return append(append([]Option(nil), opts...), WithCleanup(func(err error) error {
		nerr := next(err)
		if prev != nil {
			if perr := prev(err); perr != nil {
				return perr
			}
		}
		return nerr
	}))
}

func (r *Readable[T]) hasCapacity() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.st.destroyed && r.st.belowMark()
}

// FromSlice bridges a slice into a Readable delivering its items in order.
func FromSlice[T any](items []T, opts ...Option) *Readable[T] {
	return From[T](&sliceIterator[T]{items: items}, opts...)
}

type sliceIterator[T any] struct {
	items []T
}

func (it *sliceIterator[T]) Next() (T, bool) {
	if len(it.items) == 0 {
		var zero T
		return zero, false
	}
	v := it.items[0]
	it.items = it.items[1:]
	return v, true
}

// FromSeq bridges a range-over-func sequence into a Readable.
func FromSeq[T any](seq iter.Seq[T], opts ...Option) *Readable[T] {
	next, stop := iter.Pull(seq)
	o := buildOptions(opts)
	opts = chainCleanup(opts, o.cleanup, func(error) error {
		stop()
		return nil
	})
	return From[T](pullIterator[T]{next: next}, opts...)
}

type pullIterator[T any] struct {
	next func() (T, bool)
}

func (it pullIterator[T]) Next() (T, bool) { return it.next() }

// FromChannel bridges a channel into a Readable; the source ends when the
// channel closes.
func FromChannel[T any](ch <-chan T, opts ...Option) *Readable[T] {
	return From[T](chanIterator[T]{ch: ch}, opts...)
}

type chanIterator[T any] struct {
	ch <-chan T
}

func (it chanIterator[T]) Next() (T, bool) {
	v, ok := <-it.ch
	return v, ok
}
