package kv

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestBooleanCallbackDispatch(t *testing.T) {
	t.Parallel()

	calls := 0
	cb := NewBooleanCallback(func(err error) {
		calls++
		require.NoError(t, err)
	})
	cb.Execute(ResOK())
	require.Equal(t, 1, calls)

	boom := errors.New("boom")
	cb = NewBooleanCallback(func(err error) {
		require.Same(t, boom, err)
	})
	cb.Execute(ResFailed(boom))
}

func TestBooleansCallbackDispatch(t *testing.T) {
	t.Parallel()

	perKey := []error{nil, errors.New("key 1 locked"), nil}
	cb := NewBooleansCallback(func(results []error, err error) {
		require.NoError(t, err)
		require.Equal(t, perKey, results)
	})
	cb.Execute(ResMulti(perKey))

	boom := errors.New("boom")
	cb = NewBooleansCallback(func(results []error, err error) {
		require.Nil(t, results)
		require.Same(t, boom, err)
	})
	cb.Execute(ResFailed(boom))
}

func TestMvccCallbackDispatch(t *testing.T) {
	t.Parallel()

	info := MvccInfo{
		Lock:   &Lock{Key: Key("k"), Primary: RawKey("k"), StartTS: 5, TTL: 10},
		Writes: []WriteRecord{{CommitTS: 4, Write: Write{StartTS: 3, Kind: WritePut}}},
	}
	cb := NewMvccInfoByKeyCallback(func(got MvccInfo, err error) {
		require.NoError(t, err)
		require.True(t, info.Equal(got))
	})
	cb.Execute(ResMvccKey(info))

	pair := &MvccPair{Key: Key("k"), Info: info}
	cb = NewMvccInfoByStartTSCallback(func(got *MvccPair, err error) {
		require.NoError(t, err)
		require.Same(t, pair, got)
	})
	cb.Execute(ResMvccStartTS(pair))

	// A start-ts lookup that finds no key delivers a nil pair, not an error.
	cb = NewMvccInfoByStartTSCallback(func(got *MvccPair, err error) {
		require.NoError(t, err)
		require.Nil(t, got)
	})
	cb.Execute(ResMvccStartTS(nil))
}

func TestLocksAndTxnStatusCallbackDispatch(t *testing.T) {
	t.Parallel()

	locks := []*Lock{{Key: Key("a"), StartTS: 1}, {Key: Key("b"), StartTS: 2}}
	cb := NewLocksCallback(func(got []*Lock, err error) {
		require.NoError(t, err)
		require.Equal(t, locks, got)
	})
	cb.Execute(ResLocks(locks))

	cb = NewTxnStatusCallback(func(status TxnStatus, err error) {
		require.NoError(t, err)
		require.Equal(t, Committed(42), status)
	})
	cb.Execute(ResTxnStatus(Committed(42)))
}

func TestCallbackMismatchPanics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cb   func() *StorageCallback
		pr   ProcessResult
	}{
		{
			name: "boolean got multi res",
			cb:   func() *StorageCallback { return NewBooleanCallback(func(error) {}) },
			pr:   ResMulti(nil),
		},
		{
			name: "boolean got txn status",
			cb:   func() *StorageCallback { return NewBooleanCallback(func(error) {}) },
			pr:   ResTxnStatus(Rollbacked()),
		},
		{
			name: "booleans got res",
			cb:   func() *StorageCallback { return NewBooleansCallback(func([]error, error) {}) },
			pr:   ResOK(),
		},
		{
			name: "mvcc by key got locks",
			cb:   func() *StorageCallback { return NewMvccInfoByKeyCallback(func(MvccInfo, error) {}) },
			pr:   ResLocks(nil),
		},
		{
			name: "mvcc by start ts got mvcc by key",
			cb:   func() *StorageCallback { return NewMvccInfoByStartTSCallback(func(*MvccPair, error) {}) },
			pr:   ResMvccKey(MvccInfo{}),
		},
		{
			name: "locks got res",
			cb:   func() *StorageCallback { return NewLocksCallback(func([]*Lock, error) {}) },
			pr:   ResOK(),
		},
		{
			name: "txn status got next command",
			cb:   func() *StorageCallback { return NewTxnStatusCallback(func(TxnStatus, error) {}) },
			pr:   ResNextCommand(Rollback{Keys: []Key{Key("k")}, StartTS: 1}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Panics(t, func() { tt.cb().Execute(tt.pr) })
		})
	}
}

func TestCallbackExecuteTwicePanics(t *testing.T) {
	t.Parallel()

	cb := NewBooleanCallback(func(error) {})
	cb.Execute(ResOK())
	require.Panics(t, func() { cb.Execute(ResOK()) })
}

func TestBatchCallbackRejectsSingleShot(t *testing.T) {
	t.Parallel()

	cb := NewBatchBooleanCallback(func([]BatchBooleanResult) {})
	require.Panics(t, func() { cb.Execute(ResOK()) })

	cb = NewBooleanCallback(func(error) {})
	require.Panics(t, func() { cb.ExecuteBatch([]BatchResult{{ID: 1, Result: ResOK()}}) })
}

func TestExecuteBatchBoolean(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var delivered []BatchBooleanResult
	cb := NewBatchBooleanCallback(func(results []BatchBooleanResult) {
		delivered = append(delivered, results...)
	})

	cb.ExecuteBatch([]BatchResult{
		{ID: 1, Result: ResOK()},
		{ID: 2, Result: ResFailed(boom)},
	})

	require.Len(t, delivered, 2)
	require.Equal(t, uint64(1), delivered[0].ID)
	require.NoError(t, delivered[0].Err)
	require.Equal(t, uint64(2), delivered[1].ID)
	require.Same(t, boom, delivered[1].Err)

	// Later waves of the same pipelined group reuse the callback.
	cb.ExecuteBatch([]BatchResult{{ID: 7, Result: ResOK()}})
	require.Len(t, delivered, 3)
	require.Equal(t, uint64(7), delivered[2].ID)
}

func TestExecuteBatchBooleans(t *testing.T) {
	t.Parallel()

	perKey := []error{nil, errors.New("dup")}
	var delivered []BatchBooleansResult
	cb := NewBatchBooleansCallback(func(results []BatchBooleansResult) {
		delivered = results
	})

	cb.ExecuteBatch([]BatchResult{{ID: 9, Result: ResMulti(perKey)}})
	require.Len(t, delivered, 1)
	require.Equal(t, uint64(9), delivered[0].ID)
	require.Equal(t, perKey, delivered[0].Results)
	require.NoError(t, delivered[0].Err)

	require.Panics(t, func() {
		cb.ExecuteBatch([]BatchResult{{ID: 10, Result: ResTxnStatus(Rollbacked())}})
	})
}
