package kv

type resultKind byte

const (
	resultRes resultKind = iota
	resultMultiRes
	resultMvccKey
	resultMvccStartTS
	resultLocks
	resultTxnStatus
	resultNextCommand
	resultFailed
)

func (k resultKind) String() string {
	switch k {
	case resultRes:
		return "Res"
	case resultMultiRes:
		return "MultiRes"
	case resultMvccKey:
		return "MvccKey"
	case resultMvccStartTS:
		return "MvccStartTs"
	case resultLocks:
		return "Locks"
	case resultTxnStatus:
		return "TxnStatus"
	case resultNextCommand:
		return "NextCommand"
	case resultFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// ProcessResult is the outcome of one completed command. Exactly one is
// produced per command, built through the Res* constructors below.
type ProcessResult struct {
	kind resultKind

	results []error
	mvcc    MvccInfo
	pair    *MvccPair
	locks   []*Lock
	status  TxnStatus
	next    Command
	err     error
}

// ResOK is a bare success.
func ResOK() ProcessResult {
	return ProcessResult{kind: resultRes}
}

// ResMulti carries one result per sub-operation; a nil entry is a success.
func ResMulti(results []error) ProcessResult {
	return ProcessResult{kind: resultMultiRes, results: results}
}

// ResMvccKey carries the multi-version report for a known key.
func ResMvccKey(mvcc MvccInfo) ProcessResult {
	return ProcessResult{kind: resultMvccKey, mvcc: mvcc}
}

// ResMvccStartTS carries the key and report discovered by start-ts scan; a
// nil pair means no key matched.
func ResMvccStartTS(pair *MvccPair) ProcessResult {
	return ProcessResult{kind: resultMvccStartTS, pair: pair}
}

// ResLocks carries a lock listing.
func ResLocks(locks []*Lock) ProcessResult {
	return ProcessResult{kind: resultLocks, locks: locks}
}

// ResTxnStatus carries a primary lock inspection outcome.
func ResTxnStatus(status TxnStatus) ProcessResult {
	return ProcessResult{kind: resultTxnStatus, status: status}
}

// ResNextCommand requests continuation with a follow-up command; the
// scheduler loops it back through the pipeline under the same callback.
func ResNextCommand(cmd Command) ProcessResult {
	return ProcessResult{kind: resultNextCommand, next: cmd}
}

// ResFailed is a terminal failure carrying a structured error.
func ResFailed(err error) ProcessResult {
	return ProcessResult{kind: resultFailed, err: err}
}

// nextCommand unpacks a NextCommand result.
func (pr ProcessResult) nextCommand() (Command, bool) {
	if pr.kind != resultNextCommand {
		return nil, false
	}
	return pr.next, true
}
