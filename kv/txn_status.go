package kv

// TxnStatusKind discriminates the closed set of primary lock states.
type TxnStatusKind byte

const (
	// StatusRollbacked means the transaction was already rolled back before
	// this inspection.
	StatusRollbacked TxnStatusKind = iota
	// StatusTTLExpire means this inspection rolled the lock back because its
	// time-to-live had elapsed.
	StatusTTLExpire
	// StatusLockNotExist means no lock was found and no commit record exists.
	StatusLockNotExist
	// StatusUncommitted means the lock is live.
	StatusUncommitted
	// StatusCommitted means the transaction has committed.
	StatusCommitted
)

func (k TxnStatusKind) String() string {
	switch k {
	case StatusRollbacked:
		return "Rollbacked"
	case StatusTTLExpire:
		return "TtlExpire"
	case StatusLockNotExist:
		return "LockNotExist"
	case StatusUncommitted:
		return "Uncommitted"
	case StatusCommitted:
		return "Committed"
	default:
		return "Unknown"
	}
}

// TxnStatus is the externally observable status of a transaction's primary
// lock. Each inspection produces a fresh value; nothing transitions in place.
// Values are comparable with ==.
type TxnStatus struct {
	kind        TxnStatusKind
	lockTTL     uint64
	minCommitTS uint64
	commitTS    uint64
}

// Rollbacked reports a transaction that was rolled back before inspection.
func Rollbacked() TxnStatus {
	return TxnStatus{kind: StatusRollbacked}
}

// TTLExpire reports a lock that this inspection rolled back on expiry.
func TTLExpire() TxnStatus {
	return TxnStatus{kind: StatusTTLExpire}
}

// LockNotExist reports that neither a lock nor a commit record was found.
func LockNotExist() TxnStatus {
	return TxnStatus{kind: StatusLockNotExist}
}

// Uncommitted reports a live lock. minCommitTS is the earliest timestamp at
// which commit may legally occur.
func Uncommitted(lockTTL, minCommitTS uint64) TxnStatus {
	return TxnStatus{kind: StatusUncommitted, lockTTL: lockTTL, minCommitTS: minCommitTS}
}

// Committed reports a transaction committed at commitTS.
func Committed(commitTS uint64) TxnStatus {
	return TxnStatus{kind: StatusCommitted, commitTS: commitTS}
}

func (s TxnStatus) Kind() TxnStatusKind {
	return s.kind
}

// LockTTL is meaningful only for StatusUncommitted.
func (s TxnStatus) LockTTL() uint64 {
	return s.lockTTL
}

// MinCommitTS is meaningful only for StatusUncommitted.
func (s TxnStatus) MinCommitTS() uint64 {
	return s.minCommitTS
}

// CommitTS is meaningful only for StatusCommitted.
func (s TxnStatus) CommitTS() uint64 {
	return s.commitTS
}

func (s TxnStatus) String() string {
	return s.kind.String()
}
