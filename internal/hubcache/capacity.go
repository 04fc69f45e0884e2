package hubcache

// CapacityTracker recomputes the hub's current capacity each tick and
// reports whether a Capacity message must be sent to host this tick:
// only on change, or on the first tick after a reconnect (spec.md §4.13).
type CapacityTracker struct {
	maxCapacity int
	lastSent    *int
}

func NewCapacityTracker(maxCapacity int) *CapacityTracker {
	return &CapacityTracker{maxCapacity: maxCapacity}
}

// OnReconnect clears the previously-sent capacity so the next Tick call
// always reports a value to resend.
func (t *CapacityTracker) OnReconnect() {
	t.lastSent = nil
}

// Tick recomputes current capacity from the pending and running game
// counts and reports it if it differs from the last reported value (or
// none has ever been sent).
func (t *CapacityTracker) Tick(pending, running int) (capacity int, shouldSend bool) {
	capacity = t.maxCapacity - pending - running
	if t.lastSent == nil || *t.lastSent != capacity {
		sent := capacity
		t.lastSent = &sent
		return capacity, true
	}
	return capacity, false
}
