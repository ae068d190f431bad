package stream_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/fogfactory/stream"
	"github.com/maxatome/go-testdeep/td"
	"github.com/samber/lo"
)

func TestNext(t *testing.T) {

	t.Run("drains_buffered_items_then_reports_eof", func(t *testing.T) {
		// Arrange
		r := stream.FromSlice([]string{"fog", "factory"})
		ctx := testContext(t)

		// Act & Assert
		v, err := r.Next(ctx)
		td.CmpNoError(t, err)
		td.Cmp(t, v, "fog")

		v, err = r.Next(ctx)
		td.CmpNoError(t, err)
		td.Cmp(t, v, "factory")

		_, err = r.Next(ctx)
		td.Cmp(t, err, io.EOF)
	})

	t.Run("suspends_until_an_item_is_pushed", func(t *testing.T) {
		// Arrange
		r := stream.NewReadable[int](nil)
		go func() {
			// The want signal fires once Next suspends; pushing straight
			// away is enough, the handover is buffered.
			r.Push(99)
		}()

		// Act
		v, err := r.Next(testContext(t))

		// Assert
		td.CmpNoError(t, err)
		td.Cmp(t, v, 99)
	})

	t.Run("pull_hook_feeds_the_suspended_caller", func(t *testing.T) {
		// Arrange: a source producing on demand
		n := 0
		r := stream.NewReadable(func(r *stream.Readable[int], _ int) {
			n++
			if n > 3 {
				r.End()
				return
			}
			r.Push(n * 10)
		})
		ctx := testContext(t)

		// Act
		var got []int
		for {
			v, err := r.Next(ctx)
			if err == io.EOF {
				break
			}
			td.CmpNoError(t, err)
			got = append(got, v)
		}

		// Assert
		td.Cmp(t, got, []int{10, 20, 30})
	})

	t.Run("destroy_resumes_the_caller_with_the_error", func(t *testing.T) {
		// Arrange
		boom := errors.New("boom")
		r := stream.NewReadable[int](nil)
		go r.Destroy(boom)

		// Act
		_, err := r.Next(testContext(t))

		// Assert
		td.Cmp(t, err, boom)
	})

	t.Run("cancellation_releases_the_caller", func(t *testing.T) {
		// Arrange
		r := stream.NewReadable[int](nil)
		ctx, cancel := context.WithCancel(testContext(t))
		cancel()

		// Act
		_, err := r.Next(ctx)

		// Assert
		td.CmpErrorIs(t, err, context.Canceled)

		// The source is still usable afterwards
		r.Push(5)
		v, err := r.Next(testContext(t))
		td.CmpNoError(t, err)
		td.Cmp(t, v, 5)
	})

	t.Run("overlapping_calls_panic", func(t *testing.T) {
		// Arrange: the pull hook only fires once the first caller has
		// suspended, which is the window the second call must refuse in
		suspended := make(chan struct{})
		var once sync.Once
		r := stream.NewReadable(func(*stream.Readable[int], int) {
			once.Do(func() { close(suspended) })
		})
		ctx, cancel := context.WithCancel(testContext(t))
		defer cancel()
		go func() { _, _ = r.Next(ctx) }()
		<-suspended

		// Act & Assert
		td.CmpPanic(t,
			func() { _, _ = r.Next(ctx) },
			stream.ErrConcurrentNext)
	})
}

func TestAll(t *testing.T) {

	t.Run("yields_every_item_lazily", func(t *testing.T) {
		// Arrange
		r := stream.FromSlice(lo.Range(5))

		// Act
		var got []int
		for v, err := range r.All(testContext(t)) {
			td.CmpNoError(t, err)
			got = append(got, v)
		}

		// Assert
		td.Cmp(t, got, lo.Range(5))
	})

	t.Run("failure_is_the_final_pair", func(t *testing.T) {
		// Arrange
		boom := errors.New("boom")
		r := stream.From[int](&failingIterator{items: []int{1}, err: boom},
			stream.WithHighWaterMark(1))

		// Act
		var got []int
		var last error
		for v, err := range r.All(testContext(t)) {
			if err != nil {
				last = err
				continue
			}
			got = append(got, v)
		}

		// Assert
		td.Cmp(t, got, []int{1})
		td.CmpErrorIs(t, last, boom)
	})

	t.Run("drains_a_piped_chain_with_tiny_marks", func(t *testing.T) {
		// Arrange: bridge and transform both hold a single item, so every
		// hop cycles through pause, drain and resume under concurrent
		// producer and consumer goroutines
		src := stream.FromSlice(lo.Range(500), stream.WithHighWaterMark(1))
		mid := stream.NewPassthrough[int](stream.WithHighWaterMark(1))
		stream.Pipe[int](src, mid)

		// Act
		var got []int
		for v, err := range mid.Readable().All(testContext(t)) {
			td.CmpNoError(t, err)
			got = append(got, v)
		}

		// Assert
		td.Cmp(t, got, lo.Range(500))
	})

	t.Run("early_break_stops_consumption", func(t *testing.T) {
		// Arrange
		r := stream.FromSlice(lo.Range(100), stream.WithHighWaterMark(2))
		defer r.Destroy(nil)

		// Act
		var got []int
		for v, err := range r.All(testContext(t)) {
			td.CmpNoError(t, err)
			got = append(got, v)
			if len(got) == 3 {
				break
			}
		}

		// Assert: nothing beyond the mark was produced for the unread rest
		td.Cmp(t, got, []int{0, 1, 2})
		td.CmpTrue(t, r.Buffered() <= 2)
	})
}

func TestToChannel(t *testing.T) {

	t.Run("delivers_and_closes_on_end", func(t *testing.T) {
		// Arrange
		r := stream.FromSlice(lo.Range(4))

		// Act
		got := lo.ChannelToSlice(r.ToChannel(testContext(t)))

		// Assert
		td.Cmp(t, got, lo.Range(4))
	})

	t.Run("failure_is_observed_on_the_source", func(t *testing.T) {
		// Arrange: the channel closes without a cause, the source carries it
		boom := errors.New("boom")
		r := stream.From[int](&failingIterator{items: []int{1, 2}, err: boom},
			stream.WithHighWaterMark(1))

		// Act
		got := lo.ChannelToSlice(r.ToChannel(testContext(t)))
		err := stream.Wait(testContext(t), r)

		// Assert
		td.Cmp(t, got, []int{1, 2})
		td.CmpErrorIs(t, err, boom)
	})
}
