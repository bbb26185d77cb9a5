package kv

import "github.com/cockroachdb/errors"

// Domain errors delivered to callers inside a Failed result. These are
// expected, recoverable-by-caller outcomes and are always propagated.
var (
	ErrBadSecondaryKeys     = errors.New("bad secondary key list")
	ErrKeyAlreadyExists     = errors.New("key already exists")
	ErrLockConflict         = errors.New("lock conflict")
	ErrWriteConflict        = errors.New("write conflict")
	ErrTxnNotFound          = errors.New("txn not found")
	ErrTxnAlreadyCommitted  = errors.New("txn already committed")
	ErrTxnAlreadyRollbacked = errors.New("txn already rolled back")
	ErrKeyNotFound          = errors.New("key not found")
)
