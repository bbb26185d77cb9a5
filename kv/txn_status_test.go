package kv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTxnStatusEquality(t *testing.T) {
	t.Parallel()

	require.Equal(t, Rollbacked(), Rollbacked())
	require.Equal(t, TTLExpire(), TTLExpire())
	require.Equal(t, LockNotExist(), LockNotExist())
	require.Equal(t, Uncommitted(10, 42), Uncommitted(10, 42))
	require.Equal(t, Committed(42), Committed(42))

	require.NotEqual(t, Uncommitted(10, 42), Uncommitted(10, 43))
	require.NotEqual(t, Uncommitted(10, 42), Uncommitted(11, 42))
	require.NotEqual(t, Committed(42), Committed(43))

	distinct := []TxnStatus{
		Rollbacked(),
		TTLExpire(),
		LockNotExist(),
		Uncommitted(10, 42),
		Committed(42),
	}
	for i, a := range distinct {
		for j, b := range distinct {
			if i == j {
				continue
			}
			require.NotEqual(t, a, b)
		}
	}
}

func TestTxnStatusAccessors(t *testing.T) {
	t.Parallel()

	u := Uncommitted(30_000, 7)
	require.Equal(t, StatusUncommitted, u.Kind())
	require.Equal(t, uint64(30_000), u.LockTTL())
	require.Equal(t, uint64(7), u.MinCommitTS())

	c := Committed(99)
	require.Equal(t, StatusCommitted, c.Kind())
	require.Equal(t, uint64(99), c.CommitTS())
}
