package kv

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLatchSlotsAreSortedAndDeduplicated(t *testing.T) {
	t.Parallel()

	var l latches
	keys := []Key{Key("a"), Key("b"), Key("a"), Key("c")}
	idx := l.slotsFor(keys)

	require.NotEmpty(t, idx)
	require.LessOrEqual(t, len(idx), 3)
	for i := 1; i < len(idx); i++ {
		require.Greater(t, idx[i], idx[i-1])
	}
}

func TestLatchesSerializeOverlappingKeySets(t *testing.T) {
	t.Parallel()

	var l latches
	keys := []Key{Key("x"), Key("y")}

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := l.acquire(keys)
			defer release()
			counter++
		}()
	}
	wg.Wait()
	require.Equal(t, 64, counter)
}
