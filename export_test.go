package stream

// Test-only exports.

// HasCapacity exposes the bridge's capacity predicate.
func (r *Readable[T]) HasCapacity() bool { return r.hasCapacity() }
