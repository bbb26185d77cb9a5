package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/coralkv/coral/kv"
)

func TestBoltRawStoreCRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := NewBoltRawStore(filepath.Join(t.TempDir(), "raw.dat"))
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	_, err = s.Get(ctx, []byte("a"))
	require.True(t, errors.Is(err, ErrKeyNotFound))

	require.NoError(t, s.Put(ctx, []byte("a"), []byte("1")))
	v, err := s.Get(ctx, []byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	ok, err := s.Exists(ctx, []byte("a"))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Delete(ctx, []byte("a")))
	ok, err = s.Exists(ctx, []byte("a"))
	require.NoError(t, err)
	require.False(t, ok)

	// Deleting an absent key is a no-op.
	require.NoError(t, s.Delete(ctx, []byte("a")))
}

func TestBoltRawStoreScan(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := NewBoltRawStore(filepath.Join(t.TempDir(), "raw.dat"))
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	for _, key := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Put(ctx, []byte(key), []byte("v-"+key)))
	}

	pairs, err := s.Scan(ctx, []byte("b"), []byte("c"), 10)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	require.Equal(t, kv.Key("b"), pairs[0].Key)
	require.Equal(t, kv.Value("v-b"), pairs[0].Value)
	require.Equal(t, kv.Key("c"), pairs[1].Key)

	pairs, err = s.Scan(ctx, nil, nil, 2)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	require.Equal(t, kv.Key("a"), pairs[0].Key)

	pairs, err = s.Scan(ctx, nil, nil, 0)
	require.NoError(t, err)
	require.Empty(t, pairs)
}
