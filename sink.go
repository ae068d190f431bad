package stream

import "sync"

// SliceSink is a Writable that accumulates everything written to it. Handy
// as the terminal stage of a pipeline in tests and small tools.
type SliceSink[T any] struct {
	*Writable[T]

	mu    sync.Mutex
	items []T
}

// NewSliceSink builds a collecting sink.
func NewSliceSink[T any](opts ...Option) *SliceSink[T] {
	s := &SliceSink[T]{}
	s.Writable = NewWritable(func(v T, done func(error)) {
		s.mu.Lock()
		s.items = append(s.items, v)
		s.mu.Unlock()
		done(nil)
	}, opts...)
	return s
}

// Items returns a copy of everything collected so far, in write order.
func (s *SliceSink[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.items...)
}
