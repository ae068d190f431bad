package benchmark

import (
	"fmt"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/fogfactory/stream"
	"github.com/samber/lo"
)

// Profile generates a pprof profile of a pipeline pushing itemCount items
// through depth chained passthrough stages. It will be outputted as
// stream_{date}_n{itemCount}_d{depth}.prof.
//
// use pprof to read the file (go install github.com/google/pprof@latest).
func Profile(itemCount, depth int) {
	f, err := os.Create(fmt.Sprintf("stream_%s_n%d_d%d.prof",
		strings.ReplaceAll(time.Now().Truncate(time.Second).Format(time.DateTime), " ", "-"),
		itemCount, depth))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	src := stream.FromSlice(lo.Range(itemCount))
	stages := []stream.Stream{src}
	for i := 0; i < depth; i++ {
		stages = append(stages, stream.NewPassthrough[int]())
	}
	sink := stream.NewSliceSink[int]()
	stages = append(stages, sink)

	if err := pprof.StartCPUProfile(f); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer pprof.StopCPUProfile()

	c, err := stream.Pipeline(stages...)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	done := make(chan error, 1)
	stream.Finished(sink, func(err error) { done <- err })
	if err := <-done; err != nil {
		c.Teardown(err)
		fmt.Println(err)
	}
}
