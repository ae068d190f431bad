package stream

import "sync"

// onceFunc returns a wrapper that invokes fn at most once.
func onceFunc(fn func()) func() {
	var once sync.Once
	return func() { once.Do(fn) }
}

// onceErrFunc returns a wrapper that invokes fn at most once, with the
// argument of the first call. Later calls are dropped.
func onceErrFunc(fn func(error)) func(error) {
	var once sync.Once
	return func(err error) {
		once.Do(func() { fn(err) })
	}
}
