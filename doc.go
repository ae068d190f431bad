/*
stream implements composable, backpressure-aware producer/consumer endpoints
for moving discrete items or byte chunks between pipeline stages while
bounding memory use and preserving order.

The building blocks are a Readable source, a Writable sink, a Duplex endpoint
holding one of each, and a Transform stage that maps items flowing through a
duplex. Each endpoint owns a bounded buffer with a high-water mark: Push and
Write report false once the buffer reaches the mark, Pipe reacts by pausing
the upstream source, and a one-shot drain signal resumes it once the sink has
caught up. Because Pipe itself never buffers, the memory held by a chain of
piped stages is bounded by the sum of their high-water marks, however long
the chain.

Producers that are naturally pull-based (slices, channels, cursors, pull
iterators) are adapted with From, which pushes as long as there is capacity
and suspends until the source asks for more. Consumers that prefer pulling
drive a stream with Next or All instead of subscribing to data signals.

Pipeline wires a whole chain in one call and tears every stage down on the
first error from any of them; Finished and Wait observe the completion of a
single endpoint. Destroy is the single teardown path, idempotent, used both
for explicit shutdown and for error propagation.

Endpoint callbacks are dispatched cooperatively: each endpoint queues its
signal handlers and hooks on a tick queue drained by one goroutine at a
time, so resuming a source with thousands of buffered items never grows the
call stack, and handler order follows buffer order.

Scheduling across many concurrent pipelines can be bounded with a Runner,
which drives iterable bridges on a shared goroutine pool instead of one
goroutine each.
*/

package stream
