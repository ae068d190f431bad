package stream

import (
	"github.com/rs/zerolog"
)

type options struct {
	mode     Mode
	readHWM  int
	writeHWM int
	logger   zerolog.Logger
	cleanup  func(error) error
	runner   *Runner
}

// Option customises endpoint construction.
type Option func(*options)

func buildOptions(opts []Option) options {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithHighWaterMark sets the capacity threshold of the endpoint: item count
// in discrete mode, byte count in chunked mode. On a Duplex or Transform it
// applies to both halves. Non-positive values keep the mode's default.
func WithHighWaterMark(n int) Option {
	return func(o *options) {
		o.readHWM = n
		o.writeHWM = n
	}
}

// WithReadableHighWaterMark sets the threshold of the readable half only.
func WithReadableHighWaterMark(n int) Option {
	return func(o *options) { o.readHWM = n }
}

// WithWritableHighWaterMark sets the threshold of the writable half only.
func WithWritableHighWaterMark(n int) Option {
	return func(o *options) { o.writeHWM = n }
}

// Chunked switches the endpoint to byte accounting. Items must be []byte.
func Chunked() Option {
	return func(o *options) { o.mode = ChunkedBytes }
}

// WithLogger attaches a zerolog logger to the endpoint. Lifecycle
// transitions (end, finish, destroy, teardown) are logged at debug level.
// The default logger is a no-op.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCleanup registers endpoint-specific cleanup to run on the first
// Destroy, before the close signal fires. Its error, if any, is merged into
// the destroy error.
func WithCleanup(fn func(error) error) Option {
	return func(o *options) { o.cleanup = fn }
}

// WithRunner submits background drive loops (such as the pull loop behind
// From) to the given Runner instead of a dedicated goroutine.
func WithRunner(r *Runner) Option {
	return func(o *options) { o.runner = r }
}
