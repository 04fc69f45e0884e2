// Package readiness implements the per-client init-progress aggregator of
// spec.md §4.4.
package readiness

import "math"

// Aggregator tracks readiness in [0, 1] per client and lazily aggregates.
type Aggregator struct {
	values map[uint64]float32
}

// NewAggregator builds an aggregator with clients initialized to zero
// readiness, matching the game framework's startup contract (§4.5).
func NewAggregator(clients []uint64) *Aggregator {
	a := &Aggregator{values: make(map[uint64]float32, len(clients))}
	for _, c := range clients {
		a.values[c] = 0
	}
	return a
}

// Set records a client's readiness, clamping to [0, 1] and mapping NaN to
// 1.0 (0/0 is interpreted as "done", per spec.md §3).
func (a *Aggregator) Set(client uint64, value float32) {
	a.values[client] = normalize(value)
}

func normalize(v float32) float32 {
	if math.IsNaN(float64(v)) {
		return 1.0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Aggregate returns the mean readiness across all tracked clients, or 0 if
// there are none. It is computed on demand, not cached.
func (a *Aggregator) Aggregate() float32 {
	if len(a.values) == 0 {
		return 0
	}
	var sum float32
	for _, v := range a.values {
		sum += v
	}
	return sum / float32(len(a.values))
}

// AllReady reports whether the aggregate readiness has reached 1.0.
func (a *Aggregator) AllReady() bool {
	return a.Aggregate() >= 1.0
}
