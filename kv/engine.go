package kv

import (
	"context"
	"io"
)

// Engine is the multi-version storage the command pipeline executes against.
// The interface is timestamp-explicit; callers supply every start, commit,
// and read timestamp.
type Engine interface {
	// Prewrite stages the mutations of one transaction. It returns one entry
	// per mutation (nil on success, a domain error such as ErrLockConflict,
	// ErrWriteConflict, or ErrKeyAlreadyExists otherwise) and a command-level
	// error for failures not attributable to a single mutation.
	Prewrite(ctx context.Context, muts []Mutation, primary RawKey, startTS, lockTTL, minCommitTS uint64) ([]error, error)
	// Commit replaces the given keys' locks with commit records at commitTS.
	Commit(ctx context.Context, keys []Key, startTS, commitTS uint64) error
	// Rollback cancels the transaction on the given keys and leaves rollback
	// records that fence off a late prewrite.
	Rollback(ctx context.Context, keys []Key, startTS uint64) error
	// CheckTxnStatus inspects the primary lock of the transaction that
	// started at lockTS, rolling back an expired lock as a side effect.
	CheckTxnStatus(ctx context.Context, primary Key, lockTS, currentTS uint64) (TxnStatus, error)
	// ScanLocks lists outstanding locks with StartTS <= maxTS; limit <= 0
	// means no limit.
	ScanLocks(ctx context.Context, maxTS uint64, limit int) ([]*Lock, error)
	// MvccByKey reports all multi-version information held for key.
	MvccByKey(ctx context.Context, key Key) (MvccInfo, error)
	// MvccByStartTS scans for the key touched by the transaction that started
	// at startTS; nil means no key matched.
	MvccByStartTS(ctx context.Context, startTS uint64) (*MvccPair, error)

	// GetAt returns the newest value visible at ts or ErrKeyNotFound.
	GetAt(ctx context.Context, key Key, ts uint64) (Value, error)
	// ScanAt returns up to limit pairs visible at ts within [start, end].
	ScanAt(ctx context.Context, start, end Key, limit int, ts uint64) ([]*KVPair, error)
	// LastCommitTS returns the highest commit timestamp applied on this node.
	LastCommitTS() uint64
	// Compact reclaims historical values no longer reachable by any read at
	// or above minTS; commit records are retained.
	Compact(ctx context.Context, minTS uint64) error

	Snapshot() (io.ReadWriter, error)
	Restore(r io.Reader) error
	Close() error
}
