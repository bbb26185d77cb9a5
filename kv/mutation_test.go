package kv

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestMutationKeyAndIsInsert(t *testing.T) {
	t.Parallel()

	put, err := PutMutation(Key("k"), Value("v"), nil)
	require.NoError(t, err)
	del, err := DeleteMutation(Key("k"), nil)
	require.NoError(t, err)
	lock, err := LockMutation(Key("k"), nil)
	require.NoError(t, err)
	ins, err := InsertMutation(Key("k"), Value("v"), nil)
	require.NoError(t, err)

	for _, m := range []Mutation{put, del, lock, ins} {
		// Key is a non-consuming accessor; repeated calls agree.
		require.Equal(t, Key("k"), m.Key())
		require.Equal(t, Key("k"), m.Key())
	}

	require.False(t, put.IsInsert())
	require.False(t, del.IsInsert())
	require.False(t, lock.IsInsert())
	require.True(t, ins.IsInsert())
}

func TestMutationIntoInner(t *testing.T) {
	t.Parallel()

	secondaries := []RawKey{RawKey("s1"), RawKey("s2")}

	tests := []struct {
		name      string
		build     func() (Mutation, error)
		wantValue Value
	}{
		{
			name:      "put",
			build:     func() (Mutation, error) { return PutMutation(Key("k"), Value("v"), secondaries) },
			wantValue: Value("v"),
		},
		{
			name:      "delete",
			build:     func() (Mutation, error) { return DeleteMutation(Key("k"), secondaries) },
			wantValue: nil,
		},
		{
			name:      "lock",
			build:     func() (Mutation, error) { return LockMutation(Key("k"), secondaries) },
			wantValue: nil,
		},
		{
			name:      "insert",
			build:     func() (Mutation, error) { return InsertMutation(Key("k"), Value("v"), secondaries) },
			wantValue: Value("v"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := tt.build()
			require.NoError(t, err)

			key, value, secs := m.IntoInner()
			require.Equal(t, Key("k"), key)
			require.Equal(t, tt.wantValue, value)
			require.Equal(t, secondaries, secs)
		})
	}
}

func TestMutationSecondaryKeyInvariant(t *testing.T) {
	t.Parallel()

	_, err := PutMutation(Key("k"), Value("v"), []RawKey{RawKey("k")})
	require.True(t, errors.Is(err, ErrBadSecondaryKeys))

	_, err = DeleteMutation(Key("k"), []RawKey{RawKey("a"), RawKey("a")})
	require.True(t, errors.Is(err, ErrBadSecondaryKeys))

	_, err = InsertMutation(Key("k"), Value("v"), []RawKey{RawKey("a"), RawKey("b")})
	require.NoError(t, err)
}
