package stream_test

import (
	"sync"
	"testing"

	"github.com/fogfactory/stream"
	"github.com/maxatome/go-testdeep/td"
	"github.com/samber/lo"
)

func TestRunner(t *testing.T) {

	t.Run("runs_submitted_functions", func(t *testing.T) {
		// Arrange
		runner, err := stream.NewRunner(2)
		td.CmpNoError(t, err)
		defer runner.Release()

		var mu sync.Mutex
		var got []int
		var wg sync.WaitGroup

		// Act
		lo.ForEach(lo.Range(10), func(i, _ int) {
			wg.Add(1)
			runner.Go(func() {
				defer wg.Done()
				mu.Lock()
				got = append(got, i)
				mu.Unlock()
			})
		})
		wg.Wait()

		// Assert
		td.Cmp(t, len(got), 10)
	})

	t.Run("nil_runner_still_runs", func(t *testing.T) {
		// Arrange
		var runner *stream.Runner
		done := make(chan struct{})

		// Act
		runner.Go(func() { close(done) })

		// Assert
		<-done
	})

	t.Run("released_pool_falls_back_to_goroutines", func(t *testing.T) {
		// Arrange
		runner, err := stream.NewRunner(1)
		td.CmpNoError(t, err)
		runner.Release()
		done := make(chan struct{})

		// Act: submit fails on a released pool, the work must still run
		runner.Go(func() { close(done) })

		// Assert
		<-done
	})
}
