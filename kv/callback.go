package kv

import (
	"fmt"
	"sync/atomic"
)

// StorageCallbackKind discriminates the closed set of continuation shapes a
// caller may register.
type StorageCallbackKind byte

const (
	CallbackBoolean StorageCallbackKind = iota
	CallbackBooleans
	CallbackMvccInfoByKey
	CallbackMvccInfoByStartTS
	CallbackLocks
	CallbackTxnStatus
	CallbackBatchBoolean
	CallbackBatchBooleans
)

func (k StorageCallbackKind) String() string {
	switch k {
	case CallbackBoolean:
		return "Boolean"
	case CallbackBooleans:
		return "Booleans"
	case CallbackMvccInfoByKey:
		return "MvccInfoByKey"
	case CallbackMvccInfoByStartTS:
		return "MvccInfoByStartTs"
	case CallbackLocks:
		return "Locks"
	case CallbackTxnStatus:
		return "TxnStatus"
	case CallbackBatchBoolean:
		return "BatchBoolean"
	case CallbackBatchBooleans:
		return "BatchBooleans"
	default:
		return "Unknown"
	}
}

// BatchResult associates one command of a batch with its process result.
// Batch membership and ordering are controlled by the upstream scheduler;
// ids need not be contiguous.
type BatchResult struct {
	ID     uint64
	Result ProcessResult
}

// BatchBooleanResult is one delivered entry of a BatchBoolean callback.
type BatchBooleanResult struct {
	ID  uint64
	Err error
}

// BatchBooleansResult is one delivered entry of a BatchBooleans callback.
type BatchBooleansResult struct {
	ID      uint64
	Results []error
	Err     error
}

// StorageCallback couples an asynchronously executed command to a typed
// continuation. An instance is exclusively owned by one in-flight command (or
// batch) between submission and delivery.
//
// Execute is single-shot: the callback is consumed and a second call panics.
// ExecuteBatch may be invoked repeatedly on the same batch callback as waves
// of a pipelined group complete; callers must not report a given id twice
// across waves.
type StorageCallback struct {
	kind     StorageCallbackKind
	consumed atomic.Bool

	boolean       func(err error)
	booleans      func(results []error, err error)
	mvccByKey     func(mvcc MvccInfo, err error)
	mvccByStartTS func(pair *MvccPair, err error)
	locks         func(locks []*Lock, err error)
	txnStatus     func(status TxnStatus, err error)
	batchBoolean  func(results []BatchBooleanResult)
	batchBooleans func(results []BatchBooleansResult)
}

func NewBooleanCallback(fn func(err error)) *StorageCallback {
	return &StorageCallback{kind: CallbackBoolean, boolean: fn}
}

func NewBooleansCallback(fn func(results []error, err error)) *StorageCallback {
	return &StorageCallback{kind: CallbackBooleans, booleans: fn}
}

func NewMvccInfoByKeyCallback(fn func(mvcc MvccInfo, err error)) *StorageCallback {
	return &StorageCallback{kind: CallbackMvccInfoByKey, mvccByKey: fn}
}

func NewMvccInfoByStartTSCallback(fn func(pair *MvccPair, err error)) *StorageCallback {
	return &StorageCallback{kind: CallbackMvccInfoByStartTS, mvccByStartTS: fn}
}

func NewLocksCallback(fn func(locks []*Lock, err error)) *StorageCallback {
	return &StorageCallback{kind: CallbackLocks, locks: fn}
}

func NewTxnStatusCallback(fn func(status TxnStatus, err error)) *StorageCallback {
	return &StorageCallback{kind: CallbackTxnStatus, txnStatus: fn}
}

func NewBatchBooleanCallback(fn func(results []BatchBooleanResult)) *StorageCallback {
	return &StorageCallback{kind: CallbackBatchBoolean, batchBoolean: fn}
}

func NewBatchBooleansCallback(fn func(results []BatchBooleansResult)) *StorageCallback {
	return &StorageCallback{kind: CallbackBatchBooleans, batchBooleans: fn}
}

func (cb *StorageCallback) Kind() StorageCallbackKind {
	return cb.kind
}

// Execute delivers the process result of a command to the callback, invoking
// the continuation exactly once with either the success payload or the
// command's error. A result shape the callback did not request is a contract
// violation between submission and execution and panics; it is never coerced
// into a default value.
func (cb *StorageCallback) Execute(pr ProcessResult) {
	if cb.consumed.Swap(true) {
		panic(fmt.Sprintf("%s storage callback executed twice", cb.kind))
	}
	switch cb.kind {
	case CallbackBoolean:
		switch pr.kind {
		case resultRes:
			cb.boolean(nil)
		case resultFailed:
			cb.boolean(pr.err)
		default:
			panic(mismatch(cb.kind, pr.kind))
		}
	case CallbackBooleans:
		switch pr.kind {
		case resultMultiRes:
			cb.booleans(pr.results, nil)
		case resultFailed:
			cb.booleans(nil, pr.err)
		default:
			panic(mismatch(cb.kind, pr.kind))
		}
	case CallbackMvccInfoByKey:
		switch pr.kind {
		case resultMvccKey:
			cb.mvccByKey(pr.mvcc, nil)
		case resultFailed:
			cb.mvccByKey(MvccInfo{}, pr.err)
		default:
			panic(mismatch(cb.kind, pr.kind))
		}
	case CallbackMvccInfoByStartTS:
		switch pr.kind {
		case resultMvccStartTS:
			cb.mvccByStartTS(pr.pair, nil)
		case resultFailed:
			cb.mvccByStartTS(nil, pr.err)
		default:
			panic(mismatch(cb.kind, pr.kind))
		}
	case CallbackLocks:
		switch pr.kind {
		case resultLocks:
			cb.locks(pr.locks, nil)
		case resultFailed:
			cb.locks(nil, pr.err)
		default:
			panic(mismatch(cb.kind, pr.kind))
		}
	case CallbackTxnStatus:
		switch pr.kind {
		case resultTxnStatus:
			cb.txnStatus(pr.status, nil)
		case resultFailed:
			cb.txnStatus(TxnStatus{}, pr.err)
		default:
			panic(mismatch(cb.kind, pr.kind))
		}
	default:
		panic(fmt.Sprintf("callback kind mismatch: %s callback cannot be executed single-shot", cb.kind))
	}
}

// ExecuteBatch delivers one completion wave of a pipelined group, preserving
// the id association of the input sequence. It applies only to the batch
// callback kinds; anything else is a contract violation and panics.
func (cb *StorageCallback) ExecuteBatch(results []BatchResult) {
	switch cb.kind {
	case CallbackBatchBoolean:
		out := make([]BatchBooleanResult, 0, len(results))
		for _, r := range results {
			switch r.Result.kind {
			case resultRes:
				out = append(out, BatchBooleanResult{ID: r.ID})
			case resultFailed:
				out = append(out, BatchBooleanResult{ID: r.ID, Err: r.Result.err})
			default:
				panic(mismatch(cb.kind, r.Result.kind))
			}
		}
		cb.batchBoolean(out)
	case CallbackBatchBooleans:
		out := make([]BatchBooleansResult, 0, len(results))
		for _, r := range results {
			switch r.Result.kind {
			case resultMultiRes:
				out = append(out, BatchBooleansResult{ID: r.ID, Results: r.Result.results})
			case resultFailed:
				out = append(out, BatchBooleansResult{ID: r.ID, Err: r.Result.err})
			default:
				panic(mismatch(cb.kind, r.Result.kind))
			}
		}
		cb.batchBooleans(out)
	default:
		panic(fmt.Sprintf("callback kind mismatch: %s callback cannot accept a batch", cb.kind))
	}
}

func mismatch(cb StorageCallbackKind, pr resultKind) string {
	return fmt.Sprintf("process result mismatch: %s callback got %s result", cb, pr)
}
