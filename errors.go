package stream

import (
	"errors"
)

var (
	// ErrWriteAfterEnd reports a Push or Write on an endpoint that has
	// already been ended. It is a programmer error and is raised as a panic.
	ErrWriteAfterEnd = errors.New("stream: write after end")

	// ErrDestroyed reports an operation on a destroyed endpoint.
	ErrDestroyed = errors.New("stream: endpoint destroyed")

	// ErrConcurrentNext reports overlapping Next calls on the same source.
	// At most one Next may be outstanding at a time; a second one panics.
	ErrConcurrentNext = errors.New("stream: concurrent Next on the same source")

	// ErrPipelineTooShort is returned when Pipeline is given fewer than two stages.
	ErrPipelineTooShort = errors.New("stream: pipeline requires at least two stages")

	// ErrStageMismatch is returned when adjacent pipeline stages cannot be
	// wired, either because a stage lacks the required capability or because
	// the item types of two adjacent stages disagree.
	ErrStageMismatch = errors.New("stream: incompatible pipeline stages")
)
