package stream

import "context"

type ender interface {
	OnEnd(fn func())
}

type finisher interface {
	OnFinish(fn func())
}

// Finished invokes fn exactly once with the first terminal outcome of the
// endpoint: its error, or nil when end of data, finish, or close arrives
// first. This is the completion primitive pipeline teardown and external
// callers share.
func Finished(s Stream, fn func(error)) {
	fire := onceErrFunc(fn)
	s.OnError(fire)
	s.OnClose(func() { fire(nil) })
	if e, ok := s.(ender); ok {
		e.OnEnd(func() { fire(nil) })
	}
	if f, ok := s.(finisher); ok {
		f.OnFinish(func() { fire(nil) })
	}
}

// Wait blocks until the endpoint reaches a terminal outcome or ctx is done,
// returning the endpoint's error (nil on clean completion) or ctx's.
func Wait(ctx context.Context, s Stream) error {
	ch := make(chan error, 1)
	Finished(s, func(err error) { ch <- err })
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
