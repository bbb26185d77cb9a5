package kv

import "fmt"

// Command is one unit of work submitted to the scheduler together with a
// StorageCallback of the matching shape. Write commands are replicated
// through the proposer before execution; read commands run against the local
// engine on the leader.
type Command interface {
	fmt.Stringer
	isCommand()
}

// Prewrite stages a transaction's mutations: conflict-checks each key, writes
// its lock, and stores the value for Put/Insert. Pairs with a Booleans (or
// BatchBooleans) callback carrying one result per mutation.
type Prewrite struct {
	Mutations   []Mutation
	Primary     RawKey
	StartTS     uint64
	LockTTL     uint64 // milliseconds
	MinCommitTS uint64
}

// Commit finalizes prewritten keys at commitTS. Pairs with a Boolean (or
// BatchBoolean) callback.
type Commit struct {
	Keys     []Key
	StartTS  uint64
	CommitTS uint64
}

// Rollback cancels a transaction on the given keys and leaves a rollback
// record preventing a late prewrite. Pairs with a Boolean callback.
type Rollback struct {
	Keys    []Key
	StartTS uint64
}

// CheckTxnStatus inspects (and possibly resolves) the primary lock of the
// transaction that started at LockTS. Pairs with a TxnStatus callback.
type CheckTxnStatus struct {
	Primary   Key
	LockTS    uint64
	CurrentTS uint64
}

// ResolveLock finds the locks left by the transaction that started at
// StartTS and continues with a Commit (CommitTS > 0) or Rollback follow-up
// command over the affected keys. Pairs with a Boolean callback.
type ResolveLock struct {
	StartTS  uint64
	CommitTS uint64
}

// ScanLock lists outstanding locks with StartTS <= MaxTS. Pairs with a Locks
// callback.
type ScanLock struct {
	MaxTS uint64
	Limit int
}

// MvccByKey reports all multi-version information held for a key. Pairs with
// an MvccInfoByKey callback.
type MvccByKey struct {
	Key Key
}

// MvccByStartTS scans for the key touched by the transaction that started at
// StartTS. Pairs with an MvccInfoByStartTs callback.
type MvccByStartTS struct {
	StartTS uint64
}

func (Prewrite) isCommand()       {}
func (Commit) isCommand()         {}
func (Rollback) isCommand()       {}
func (CheckTxnStatus) isCommand() {}
func (ResolveLock) isCommand()    {}
func (ScanLock) isCommand()       {}
func (MvccByKey) isCommand()      {}
func (MvccByStartTS) isCommand()  {}

func (c Prewrite) String() string {
	return fmt.Sprintf("Prewrite(start_ts=%d, keys=%d)", c.StartTS, len(c.Mutations))
}

func (c Commit) String() string {
	return fmt.Sprintf("Commit(start_ts=%d, commit_ts=%d, keys=%d)", c.StartTS, c.CommitTS, len(c.Keys))
}

func (c Rollback) String() string {
	return fmt.Sprintf("Rollback(start_ts=%d, keys=%d)", c.StartTS, len(c.Keys))
}

func (c CheckTxnStatus) String() string {
	return fmt.Sprintf("CheckTxnStatus(lock_ts=%d, current_ts=%d)", c.LockTS, c.CurrentTS)
}

func (c ResolveLock) String() string {
	return fmt.Sprintf("ResolveLock(start_ts=%d, commit_ts=%d)", c.StartTS, c.CommitTS)
}

func (c ScanLock) String() string {
	return fmt.Sprintf("ScanLock(max_ts=%d, limit=%d)", c.MaxTS, c.Limit)
}

func (c MvccByKey) String() string {
	return fmt.Sprintf("MvccByKey(%q)", c.Key)
}

func (c MvccByStartTS) String() string {
	return fmt.Sprintf("MvccByStartTs(start_ts=%d)", c.StartTS)
}

// latchKeys returns the keys a command must hold latches on while executing.
func latchKeys(cmd Command) []Key {
	switch c := cmd.(type) {
	case Prewrite:
		keys := make([]Key, len(c.Mutations))
		for i, m := range c.Mutations {
			keys[i] = m.Key()
		}
		return keys
	case Commit:
		return c.Keys
	case Rollback:
		return c.Keys
	case CheckTxnStatus:
		return []Key{c.Primary}
	default:
		return nil
	}
}
