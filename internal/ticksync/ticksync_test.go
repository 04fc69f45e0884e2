package ticksync

import (
	"testing"

	"github.com/arenahost/backend/internal/ids"
	"github.com/stretchr/testify/require"
)

func TestZeroTickDurationRejected(t *testing.T) {
	_, err := NewEstimator(0)
	require.ErrorIs(t, err, ErrZeroTickDuration)
}

func TestEstimateGameTickExample(t *testing.T) {
	// Mirrors spec.md §8 scenario 6: tick_rate=10/s, tick_duration=100ms.
	e, err := NewEstimator(100_000_000)
	require.NoError(t, err)

	e.OnPingResponse(PingResponse{
		Request: GetPing{ClientTsNs: 1_000_000_000},
		Tick:    ids.Tick(51),
	}, 1_020_000_000)

	require.Equal(t, int64(20_000_000), e.RoundtripLatencyNs())

	tick, frac := e.EstimateGameTick(1_115_000_000)
	require.Equal(t, ids.Tick(52), tick)
	require.InDelta(t, 0.05, frac, 1e-9)
}

func TestEstimateMonotoneBetweenUpdates(t *testing.T) {
	e, err := NewEstimator(50_000_000)
	require.NoError(t, err)
	e.OnPingResponse(PingResponse{Request: GetPing{ClientTsNs: 0}, Tick: ids.Tick(10)}, 10_000_000)

	t1, _ := e.EstimateGameTick(100_000_000)
	t2, _ := e.EstimateGameTick(200_000_000)
	require.GreaterOrEqual(t, uint32(t2), uint32(t1))
}
