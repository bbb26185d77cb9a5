package kv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHLCNextIsMonotonic(t *testing.T) {
	t.Parallel()

	h := NewHLC()
	last := h.Next()
	for i := 0; i < 1000; i++ {
		next := h.Next()
		require.Greater(t, next, last)
		last = next
	}
}

func TestHLCObserveDoesNotRegress(t *testing.T) {
	t.Parallel()

	h := NewHLC()
	base := h.Next()

	h.Observe(base - 1)
	require.Equal(t, base, h.Current())

	higher := base + 100
	h.Observe(higher)
	require.Equal(t, higher, h.Current())
}

func TestHLCNextAfterObserveLogicalOverflow(t *testing.T) {
	t.Parallel()

	h := NewHLC()
	wall := nonNegativeUint64(time.Now().UnixMilli())
	observed := (wall << hlcLogicalBits) | hlcLogicalMask
	h.Observe(observed)

	next := h.Next()
	require.Greater(t, next, observed)
}

func TestComposeAndSplitTS(t *testing.T) {
	t.Parallel()

	ts := ComposeTS(1_234, 56)
	require.Equal(t, uint64(1_234), PhysicalMs(ts))
	require.Equal(t, uint64(56), ts&hlcLogicalMask)

	// The logical component orders timestamps within one wall millisecond.
	require.Less(t, ComposeTS(1_234, 55), ts)
	require.Less(t, ts, ComposeTS(1_235, 0))
}
