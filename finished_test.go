package stream_test

import (
	"errors"
	"testing"

	"github.com/fogfactory/stream"
	"github.com/maxatome/go-testdeep/td"
)

func TestFinished(t *testing.T) {

	t.Run("fires_once_on_end_of_data", func(t *testing.T) {
		// Arrange
		r := stream.NewReadable[int](nil)
		var calls int
		var last error
		stream.Finished(r, func(err error) {
			calls++
			last = err
		})

		// Act: end also auto-destroys, which must not fire a second time
		r.End()

		// Assert
		td.Cmp(t, calls, 1)
		td.CmpNoError(t, last)
	})

	t.Run("fires_once_on_finish", func(t *testing.T) {
		// Arrange
		w := stream.NewSliceSink[int]()
		var calls int
		stream.Finished(w, func(error) { calls++ })

		// Act
		w.Write(1, nil)
		w.End(nil)

		// Assert
		td.Cmp(t, calls, 1)
		td.Cmp(t, w.Items(), []int{1})
	})

	t.Run("reports_the_destroy_error", func(t *testing.T) {
		// Arrange
		boom := errors.New("boom")
		r := stream.NewReadable[int](nil)
		var got error
		stream.Finished(r, func(err error) { got = err })

		// Act
		r.Destroy(boom)

		// Assert
		td.Cmp(t, got, boom)
	})

	t.Run("errorless_destroy_reports_nil", func(t *testing.T) {
		// Arrange
		r := stream.NewReadable[int](nil)
		var calls int
		var last error
		stream.Finished(r, func(err error) {
			calls++
			last = err
		})

		// Act
		r.Destroy(nil)

		// Assert
		td.Cmp(t, calls, 1)
		td.CmpNoError(t, last)
	})

	t.Run("late_observer_still_fires", func(t *testing.T) {
		// Arrange
		r := stream.NewReadable[int](nil)
		r.End()

		// Act
		var calls int
		stream.Finished(r, func(error) { calls++ })

		// Assert
		td.Cmp(t, calls, 1)
	})
}
