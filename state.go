package stream

// Mode selects how an endpoint accounts for buffered data against its
// high-water mark.
type Mode int

const (
	// Discrete counts one buffer slot per item, whatever its size.
	Discrete Mode = iota
	// ChunkedBytes counts byte lengths; items must be []byte.
	ChunkedBytes
)

const (
	// DefaultHighWaterMark applies to discrete-mode endpoints.
	DefaultHighWaterMark = 16
	// DefaultChunkedHighWaterMark applies to chunked-mode endpoints, in bytes.
	DefaultChunkedHighWaterMark = 16 * 1024
)

// state is the buffering state machine shared by both endpoint halves. A
// Readable owns one for its output buffer and a Writable owns one for its
// input buffer; the two are never shared. size reports the buffer cost of
// one element and is fixed at construction from the mode.
type state[T any] struct {
	hwm  int
	mode Mode
	size func(T) int

	buf    []T
	length int

	ended      bool // no more input will arrive
	endEmitted bool // terminal signal (end or finish) already fired
	destroyed  bool
	flowing    bool
	needDrain  bool
	corked     int
}

func newState[T any](mode Mode, hwm int, size func(T) int) state[T] {
	if hwm <= 0 {
		if mode == ChunkedBytes {
			hwm = DefaultChunkedHighWaterMark
		} else {
			hwm = DefaultHighWaterMark
		}
	}
	return state[T]{hwm: hwm, mode: mode, size: size}
}

func (s *state[T]) push(v T) {
	s.buf = append(s.buf, v)
	s.length += s.size(v)
}

// pop removes buffered data from the head of the queue. In discrete mode n
// is ignored and the head item is returned whole. In chunked mode a request
// smaller than the head chunk splits it at the requested boundary and
// carries the remainder forward; reads never span chunk boundaries.
func (s *state[T]) pop(n int) T {
	v := s.buf[0]
	if s.mode == ChunkedBytes && n > 0 {
		if b, ok := any(v).([]byte); ok && n < len(b) {
			s.buf[0] = any(b[n:]).(T)
			s.length -= n
			return any(b[:n:n]).(T)
		}
	}
	s.buf[0] = *new(T)
	s.buf = s.buf[1:]
	s.length -= s.size(v)
	return v
}

func (s *state[T]) discard() {
	s.buf = nil
	s.length = 0
	s.flowing = false
}

// belowMark is the capacity-available predicate: pushes and writes report
// true to their caller exactly while it holds.
func (s *state[T]) belowMark() bool {
	return s.length < s.hwm
}

func itemSize[T any](mode Mode) func(T) int {
	if mode == ChunkedBytes {
		return func(v T) int {
			if b, ok := any(v).([]byte); ok {
				return len(b)
			}
			return 1
		}
	}
	return func(T) int { return 1 }
}
