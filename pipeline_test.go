package stream_test

import (
	"errors"
	"testing"

	"github.com/fogfactory/stream"
	"github.com/maxatome/go-testdeep/td"
	"github.com/samber/lo"
)

func TestPipeline(t *testing.T) {

	t.Run("fewer_than_two_stages_is_rejected", func(t *testing.T) {
		// Act
		_, err := stream.Pipeline(stream.NewReadable[int](nil))

		// Assert
		td.CmpErrorIs(t, err, stream.ErrPipelineTooShort)
	})

	t.Run("intermediate_stage_must_be_readable", func(t *testing.T) {
		// Arrange: a bare sink cannot feed a following stage
		src := stream.NewReadable[int](nil)
		mid := stream.NewSliceSink[int]()
		dst := stream.NewSliceSink[int]()

		// Act
		_, err := stream.Pipeline(src, mid, dst)

		// Assert
		td.CmpErrorIs(t, err, stream.ErrStageMismatch)
	})

	t.Run("intermediate_stage_must_be_writable", func(t *testing.T) {
		// Arrange
		src := stream.NewReadable[int](nil)
		mid := stream.NewReadable[int](nil)
		dst := stream.NewSliceSink[int]()

		// Act
		_, err := stream.Pipeline(src, mid, dst)

		// Assert
		td.CmpErrorIs(t, err, stream.ErrStageMismatch)
	})

	t.Run("item_type_mismatch_tears_down_during_flow", func(t *testing.T) {
		// Arrange: wiring is dynamic, so the mismatch only surfaces on the
		// first item
		src := stream.NewReadable[int](nil)
		dst := stream.NewSliceSink[string]()

		c, err := stream.Pipeline(src, dst)
		td.CmpNoError(t, err)

		// Act
		src.Push(42)

		// Assert
		td.CmpErrorIs(t, c.Err(), stream.ErrStageMismatch)
		td.CmpTrue(t, src.Destroyed())
		td.CmpTrue(t, dst.Destroyed())
	})

	t.Run("error_in_middle_stage_destroys_every_stage_once", func(t *testing.T) {
		// Arrange
		boom := errors.New("boom")
		src := stream.FromSlice(lo.Range(10))
		tr := stream.NewTransform(func(v int) (int, bool, error) {
			if v == 4 {
				return 0, false, boom
			}
			return v, true, nil
		})
		sink := stream.NewSliceSink[int]()
		var sinkErrs int
		sink.OnError(func(error) { sinkErrs++ })

		// Act
		err := stream.Run(testContext(t), src, tr, sink)

		// Assert
		td.CmpErrorIs(t, err, boom)
		td.CmpTrue(t, src.Destroyed())
		td.CmpTrue(t, tr.Destroyed())
		td.CmpTrue(t, sink.Destroyed())
		td.Cmp(t, sink.Items(), lo.Range(4), "items accepted before the failure survive")
		td.Cmp(t, sinkErrs, 1)
	})

	t.Run("clean_run_returns_nil_and_delivers_everything", func(t *testing.T) {
		// Arrange
		src := stream.FromSlice(lo.Range(50))
		mid := stream.NewPassthrough[int]()
		sink := stream.NewSliceSink[int]()

		// Act
		err := stream.Run(testContext(t), src, mid, sink)

		// Assert
		td.CmpNoError(t, err)
		td.Cmp(t, sink.Items(), lo.Range(50))
	})

	t.Run("backpressure_crosses_stage_boundaries", func(t *testing.T) {
		// Arrange: tiny marks everywhere force pause/resume cycling, yet
		// order and completeness must hold
		src := stream.FromSlice(lo.Range(100), stream.WithHighWaterMark(2))
		mid := stream.NewPassthrough[int](stream.WithHighWaterMark(2))
		sink := stream.NewSliceSink[int](stream.WithHighWaterMark(2))

		// Act
		err := stream.Run(testContext(t), src, mid, sink)

		// Assert
		td.CmpNoError(t, err)
		td.Cmp(t, sink.Items(), lo.Range(100))
	})

	t.Run("teardown_is_idempotent", func(t *testing.T) {
		// Arrange
		src := stream.NewReadable[int](nil)
		sink := stream.NewSliceSink[int]()
		c, err := stream.Pipeline(src, sink)
		td.CmpNoError(t, err)
		boom := errors.New("boom")

		// Act
		c.Teardown(boom)
		c.Teardown(errors.New("later"))

		// Assert: only the first error sticks
		td.Cmp(t, c.Err(), boom)
	})
}
