package kv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMvccInfoZeroValueIsEmpty(t *testing.T) {
	t.Parallel()

	var zero MvccInfo
	explicit := MvccInfo{Lock: nil, Writes: nil, Values: nil}
	require.True(t, zero.Equal(explicit))
	require.Nil(t, zero.Lock)
	require.Empty(t, zero.Writes)
	require.Empty(t, zero.Values)
}

func TestMvccInfoEqual(t *testing.T) {
	t.Parallel()

	a := MvccInfo{
		Lock:   &Lock{Key: Key("k"), Primary: RawKey("p"), StartTS: 3, TTL: 10, Op: MutationPut},
		Writes: []WriteRecord{{CommitTS: 4, Write: Write{StartTS: 3, Kind: WritePut}}},
		Values: []ValueRecord{{StartTS: 3, Value: Value("v")}},
	}
	b := MvccInfo{
		Lock:   a.Lock.Clone(),
		Writes: []WriteRecord{{CommitTS: 4, Write: Write{StartTS: 3, Kind: WritePut}}},
		Values: []ValueRecord{{StartTS: 3, Value: Value("v")}},
	}
	require.True(t, a.Equal(b))

	b.Values[0].Value = Value("w")
	require.False(t, a.Equal(b))

	b.Values[0].Value = Value("v")
	b.Lock = nil
	require.False(t, a.Equal(b))
}

func TestLockClone(t *testing.T) {
	t.Parallel()

	l := &Lock{
		Key:         Key("k"),
		Primary:     RawKey("p"),
		StartTS:     7,
		TTL:         3000,
		Op:          MutationInsert,
		MinCommitTS: 8,
		Secondaries: []RawKey{RawKey("s1"), RawKey("s2")},
	}
	c := l.Clone()
	require.Equal(t, l, c)

	c.Key[0] = 'x'
	c.Secondaries[0][0] = 'x'
	require.Equal(t, Key("k"), l.Key)
	require.Equal(t, RawKey("s1"), l.Secondaries[0])

	var nilLock *Lock
	require.Nil(t, nilLock.Clone())
}

func TestLockExpiry(t *testing.T) {
	t.Parallel()

	l := &Lock{StartTS: ComposeTS(1_000, 0), TTL: 500}
	require.False(t, l.IsExpired(ComposeTS(1_499, 0)))
	require.True(t, l.IsExpired(ComposeTS(1_500, 0)))
	// Logical ticks never advance expiry on their own.
	require.False(t, l.IsExpired(ComposeTS(1_499, 65_535)))
}

func TestMutationOpWriteKind(t *testing.T) {
	t.Parallel()

	require.Equal(t, WritePut, MutationPut.WriteKind())
	require.Equal(t, WritePut, MutationInsert.WriteKind())
	require.Equal(t, WriteDelete, MutationDelete.WriteKind())
	require.Equal(t, WriteLock, MutationLock.WriteKind())
}
