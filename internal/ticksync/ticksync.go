// Package ticksync implements the ping-based game-tick estimator of
// spec.md §4.3: the client periodically pings the server, and between
// pings extrapolates the server's current tick from wall-clock elapsed
// time and the last measured round trip.
package ticksync

import (
	"errors"

	"github.com/arenahost/backend/internal/codec"
	"github.com/arenahost/backend/internal/ids"
)

// ErrZeroTickDuration is a startup precondition failure (spec.md §7 kind 5):
// a zero tick duration makes the estimator's division undefined.
var ErrZeroTickDuration = errors.New("ticksync: tick duration must be nonzero")

// GetPing is sent client→server to start a round trip measurement.
type GetPing struct {
	ClientTsNs int64
}

func (GetPing) ChannelKind() codec.ChannelKind { return codec.Unordered }

// PingResponse is sent server→client in reply, echoing the request and
// carrying the server's current tick.
type PingResponse struct {
	Request GetPing
	Tick    ids.Tick
}

func (PingResponse) ChannelKind() codec.ChannelKind { return codec.Unordered }

func init() {
	codec.Register(GetPing{})
	codec.Register(PingResponse{})
}

// Estimator tracks the state needed to extrapolate the current game tick
// from wall-clock time between pings.
type Estimator struct {
	tickDurationNs int64

	roundtripLatencyNs    int64
	gameTicksElapsedAtPing ids.Tick
	pingMidpointTimeNs    int64
}

// NewEstimator builds an Estimator for a fixed tick duration in
// nanoseconds. A zero duration is a startup precondition failure.
func NewEstimator(tickDurationNs int64) (*Estimator, error) {
	if tickDurationNs <= 0 {
		return nil, ErrZeroTickDuration
	}
	return &Estimator{tickDurationNs: tickDurationNs}, nil
}

// OnPingResponse updates the estimator from a received PingResponse and the
// wall-clock time it arrived at.
func (e *Estimator) OnPingResponse(resp PingResponse, nowNs int64) {
	roundtrip := nowNs - resp.Request.ClientTsNs
	if roundtrip < 0 {
		roundtrip = 0
	}
	e.roundtripLatencyNs = roundtrip
	e.pingMidpointTimeNs = resp.Request.ClientTsNs + roundtrip/2
	e.gameTicksElapsedAtPing = resp.Tick
}

// EstimateGameTick extrapolates the current tick and its fractional
// component at wall-clock time nowNs. It is monotone in nowNs between
// updates; an update may move the estimate backward if it corrects a
// stale one (spec.md §4.3).
func (e *Estimator) EstimateGameTick(nowNs int64) (ids.Tick, float64) {
	elapsed := nowNs - e.pingMidpointTimeNs
	ticksF := float64(e.gameTicksElapsedAtPing) + float64(elapsed)/float64(e.tickDurationNs)
	whole := int64(ticksF)
	if whole < 0 {
		whole = 0
	}
	frac := ticksF - float64(whole)
	if frac < 0 {
		frac = 0
	}
	return ids.Tick(whole), frac
}

// RoundtripLatencyNs returns the most recently measured round trip.
func (e *Estimator) RoundtripLatencyNs() int64 { return e.roundtripLatencyNs }
