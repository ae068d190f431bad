package stream

import (
	"errors"
	"sync"
	"testing"

	"github.com/maxatome/go-testdeep/td"
)

func TestTicker(t *testing.T) {

	t.Run("drains_in_fifo_order", func(t *testing.T) {
		// Arrange
		var tk ticker
		var got []int

		// Act
		tk.run(
			func() { got = append(got, 1) },
			func() { got = append(got, 2) },
			func() { got = append(got, 3) },
		)

		// Assert
		td.Cmp(t, got, []int{1, 2, 3})
	})

	t.Run("reentrant_run_queues_instead_of_recursing", func(t *testing.T) {
		// Arrange
		var tk ticker
		var got []int

		// Act: the inner run must not execute before the outer handler
		// returns
		tk.run(func() {
			tk.run(func() { got = append(got, 2) })
			got = append(got, 1)
		})

		// Assert
		td.Cmp(t, got, []int{1, 2})
	})

	t.Run("deep_chains_run_in_constant_stack", func(t *testing.T) {
		// Arrange
		var tk ticker
		const depth = 100000
		n := 0
		var step func()
		step = func() {
			n++
			if n < depth {
				tk.run(step)
			}
		}

		// Act
		tk.run(step)

		// Assert
		td.Cmp(t, n, depth)
	})

	t.Run("concurrent_runs_never_interleave_a_handler", func(t *testing.T) {
		// Arrange
		var tk ticker
		var mu sync.Mutex
		active, maxActive := 0, 0
		handler := func() {
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()
			mu.Lock()
			active--
			mu.Unlock()
		}

		// Act
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 100 {
					tk.run(handler)
				}
			}()
		}
		wg.Wait()

		// Assert: a single goroutine drains at a time
		td.Cmp(t, maxActive, 1)
	})
}

func TestOnce(t *testing.T) {

	t.Run("once_func_runs_a_single_time", func(t *testing.T) {
		// Arrange
		n := 0
		fn := onceFunc(func() { n++ })

		// Act
		fn()
		fn()

		// Assert
		td.Cmp(t, n, 1)
	})

	t.Run("once_err_func_keeps_the_first_argument", func(t *testing.T) {
		// Arrange
		var got error
		fn := onceErrFunc(func(err error) { got = err })
		first := errors.New("first")

		// Act
		fn(first)
		fn(errors.New("second"))

		// Assert
		td.Cmp(t, got, first)
	})
}
