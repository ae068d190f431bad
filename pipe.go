package stream

// Source is the readable capability Pipe requires of an upstream stage.
// Readable, Duplex and Transform implement it.
type Source[T any] interface {
	OnData(fn func(T))
	OnEnd(fn func())
	Pause()
	Resume()
}

// Sink is the writable capability Pipe requires of a downstream stage.
// Writable, Duplex and Transform implement it.
type Sink[T any] interface {
	Write(v T, cb func(error)) bool
	End(cb func(error))
	OnDrain(fn func())
	NeedsDrain() bool
}

// Pipe couples a source to a sink: every delivered item is written
// downstream, a full sink pauses the source, the sink's drain signal
// resumes it, and end of data ends the sink. Pipe starts the flow and
// returns the sink so chains read left to right.
//
// Pipe itself buffers nothing; total memory across a chain is bounded by
// the endpoints' high-water marks.
func Pipe[T any](src Source[T], dst Sink[T]) Sink[T] {
	src.OnData(func(v T) {
		if !dst.Write(v, nil) {
			src.Pause()
			// A fast sink can empty its queue and fire drain while the
			// Write above is still on this stack, landing the resume
			// before the pause. That drain will not fire again, so if it
			// has already been consumed, resume here instead.
			if !dst.NeedsDrain() {
				src.Resume()
			}
		}
	})
	dst.OnDrain(func() { src.Resume() })
	src.OnEnd(func() { dst.End(nil) })
	src.Resume()
	return dst
}
