package stream

import (
	"context"
	"io"
	"iter"
)

// outcome is what a suspended Next resumes with: an item, io.EOF, or a
// failure.
type outcome[T any] struct {
	v   T
	err error
}

// Next pulls the next item, suspending the caller until an item, end of
// data (io.EOF) or an error arrives, or ctx is done. At most one Next may
// be outstanding per source; overlapping calls panic with ErrConcurrentNext.
//
// Next drives the source itself (triggering the want signal and pull hook);
// do not mix it with OnData consumption.
func (r *Readable[T]) Next(ctx context.Context) (T, error) {
	var zero T
	r.mu.Lock()
	if r.waiter != nil {
		r.mu.Unlock()
		panic(ErrConcurrentNext)
	}
	if r.st.length > 0 {
		v := r.st.pop(0)
		fns := r.afterReadLocked()
		r.mu.Unlock()
		r.tick.run(fns...)
		return v, nil
	}
	if r.st.destroyed {
		failed, ended := r.failed, r.st.ended
		r.mu.Unlock()
		switch {
		case failed != nil:
			return zero, failed
		case ended:
			return zero, io.EOF
		default:
			return zero, ErrDestroyed
		}
	}
	if r.st.ended {
		fns := r.maybeEndLocked()
		r.mu.Unlock()
		r.tick.run(fns...)
		return zero, io.EOF
	}
	w := make(chan outcome[T], 1)
	r.waiter = w
	fns := r.wantLocked()
	r.mu.Unlock()
	r.tick.run(fns...)

	select {
	case o := <-w:
		return o.v, o.err
	case <-ctx.Done():
		r.mu.Lock()
		if r.waiter == w {
			r.waiter = nil
		}
		r.mu.Unlock()
		// An item may have been handed over concurrently; prefer it.
		select {
		case o := <-w:
			return o.v, o.err
		default:
			return zero, ctx.Err()
		}
	}
}

// All returns the source as a lazy sequence driven by Next. The sequence
// stops silently at end of data; a failure is yielded as the final pair.
func (r *Readable[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			v, err := r.Next(ctx)
			if err == io.EOF {
				return
			}
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// ToChannel drives the source with Next on a new goroutine and delivers its
// items on the returned channel, which closes on end, error or ctx done.
// The close itself does not carry the cause: callers that need to tell a
// failure from a clean end pair the channel with Finished or OnError on
// the source.
func (r *Readable[T]) ToChannel(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			v, err := r.Next(ctx)
			if err != nil {
				return
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
