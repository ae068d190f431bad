package stream

import "sync/atomic"

// Duplex is a bidirectional endpoint: one Writable half for incoming items
// and one Readable half for outgoing items, under a single identity. The
// halves are composed, not shared: each keeps its own buffer, threshold and
// flags, so either side's invariants can be checked locally. An error on
// one half tears the other down as well.
type Duplex[In, Out any] struct {
	w *Writable[In]
	r *Readable[Out]
}

// NewDuplex builds a duplex endpoint from a drain hook for the incoming
// side and a pull hook for the outgoing side. WithReadableHighWaterMark and
// WithWritableHighWaterMark size the halves independently; WithCleanup runs
// once, on the readable half's teardown.
func NewDuplex[In, Out any](sink SinkFunc[In], pull PullFunc[Out], opts ...Option) *Duplex[In, Out] {
	wopts := append(append([]Option(nil), opts...), WithCleanup(nil))
	d := &Duplex[In, Out]{
		w: NewWritable(sink, wopts...),
		r: NewReadable(pull, opts...),
	}
	d.w.OnError(func(err error) { d.r.Destroy(err) })
	d.r.OnError(func(err error) { d.w.Destroy(err) })
	return d
}

// Readable returns the outgoing half.
func (d *Duplex[In, Out]) Readable() *Readable[Out] { return d.r }

// Writable returns the incoming half.
func (d *Duplex[In, Out]) Writable() *Writable[In] { return d.w }

// Writable-side delegation.

func (d *Duplex[In, Out]) Write(v In, cb func(error)) bool { return d.w.Write(v, cb) }

func (d *Duplex[In, Out]) End(cb func(error)) { d.w.End(cb) }

func (d *Duplex[In, Out]) EndWith(v In, cb func(error)) { d.w.EndWith(v, cb) }

func (d *Duplex[In, Out]) Cork() { d.w.Cork() }

func (d *Duplex[In, Out]) Uncork() { d.w.Uncork() }

func (d *Duplex[In, Out]) OnDrain(fn func()) { d.w.OnDrain(fn) }

func (d *Duplex[In, Out]) NeedsDrain() bool { return d.w.NeedsDrain() }

func (d *Duplex[In, Out]) OnFinish(fn func()) { d.w.OnFinish(fn) }

// Readable-side delegation.

func (d *Duplex[In, Out]) Read(n int) (Out, bool) { return d.r.Read(n) }

func (d *Duplex[In, Out]) Pause() { d.r.Pause() }

func (d *Duplex[In, Out]) Resume() { d.r.Resume() }

func (d *Duplex[In, Out]) OnData(fn func(Out)) { d.r.OnData(fn) }

func (d *Duplex[In, Out]) OnWant(fn func(int)) { d.r.OnWant(fn) }

func (d *Duplex[In, Out]) OnEnd(fn func()) { d.r.OnEnd(fn) }

// Destroy tears both halves down with the same error.
func (d *Duplex[In, Out]) Destroy(err error) {
	d.w.Destroy(err)
	d.r.Destroy(err)
}

// OnError subscribes to failures of either half; fn fires at most once.
func (d *Duplex[In, Out]) OnError(fn func(error)) {
	fire := onceErrFunc(fn)
	d.w.OnError(fire)
	d.r.OnError(fire)
}

// OnClose fires once both halves have closed.
func (d *Duplex[In, Out]) OnClose(fn func()) {
	remaining := int32(2)
	dec := func() {
		if atomic.AddInt32(&remaining, -1) == 0 {
			fn()
		}
	}
	d.w.OnClose(dec)
	d.r.OnClose(dec)
}

// Destroyed reports whether both halves have been destroyed.
func (d *Duplex[In, Out]) Destroyed() bool {
	return d.w.Destroyed() && d.r.Destroyed()
}
