package readiness

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAggregateEmpty(t *testing.T) {
	a := NewAggregator(nil)
	require.Equal(t, float32(0), a.Aggregate())
	require.False(t, a.AllReady())
}

func TestAllReady(t *testing.T) {
	a := NewAggregator([]uint64{1, 2})
	require.False(t, a.AllReady())

	a.Set(1, 1.0)
	require.False(t, a.AllReady())

	a.Set(2, 1.0)
	require.True(t, a.AllReady())
}

func TestNaNTreatedAsDone(t *testing.T) {
	a := NewAggregator([]uint64{1})
	a.Set(1, float32(math.NaN()))
	require.Equal(t, float32(1.0), a.Aggregate())
	require.True(t, a.AllReady())
}

func TestClamped(t *testing.T) {
	a := NewAggregator([]uint64{1})
	a.Set(1, -5)
	require.Equal(t, float32(0), a.Aggregate())
	a.Set(1, 5)
	require.Equal(t, float32(1), a.Aggregate())
}
