package stream

import "sync"

// ticker is the cooperative scheduler behind every endpoint. Signal handlers
// and hooks are never invoked while the endpoint's state lock is held;
// instead they are queued here and drained FIFO by whichever goroutine got
// there first. A handler that triggers further emissions only grows the
// queue, not the call stack, so resuming a source with a deep buffer runs in
// constant stack space. At most one goroutine drains a given queue at a
// time, which is what keeps endpoint callbacks single-threaded.
type ticker struct {
	mu       sync.Mutex
	queue    []func()
	draining bool
}

// run enqueues fns and, unless another goroutine is already draining this
// queue, drains it to empty before returning.
func (t *ticker) run(fns ...func()) {
	t.mu.Lock()
	t.queue = append(t.queue, fns...)
	if t.draining {
		t.mu.Unlock()
		return
	}
	t.draining = true
	for len(t.queue) > 0 {
		fn := t.queue[0]
		t.queue[0] = nil
		t.queue = t.queue[1:]
		t.mu.Unlock()
		fn()
		t.mu.Lock()
	}
	t.draining = false
	t.mu.Unlock()
}
