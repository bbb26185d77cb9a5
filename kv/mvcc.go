package kv

import "bytes"

// WriteKind discriminates commit record kinds.
type WriteKind byte

const (
	WritePut WriteKind = iota + 1
	WriteDelete
	WriteLock
	WriteRollback
)

func (k WriteKind) String() string {
	switch k {
	case WritePut:
		return "Put"
	case WriteDelete:
		return "Delete"
	case WriteLock:
		return "Lock"
	case WriteRollback:
		return "Rollback"
	default:
		return "Unknown"
	}
}

// WriteKind maps a mutation op to the commit record kind written when a lock
// of that op is committed.
func (op MutationOp) WriteKind() WriteKind {
	switch op {
	case MutationPut, MutationInsert:
		return WritePut
	case MutationDelete:
		return WriteDelete
	case MutationLock:
		return WriteLock
	default:
		panic("unreachable")
	}
}

// Write is a commit record: which transaction wrote at this version and what
// kind of write it was.
type Write struct {
	StartTS uint64
	Kind    WriteKind
}

// WriteRecord pairs a commit timestamp with its write record.
type WriteRecord struct {
	CommitTS uint64
	Write    Write
}

// ValueRecord pairs a transaction start timestamp with the value it wrote.
type ValueRecord struct {
	StartTS uint64
	Value   Value
}

// Lock is an outstanding write intent on a key.
type Lock struct {
	Key         Key
	Primary     RawKey
	StartTS     uint64
	TTL         uint64 // milliseconds
	Op          MutationOp
	MinCommitTS uint64
	// Secondaries is set only on a primary lock of an async commit
	// transaction and lists the other keys participating in it.
	Secondaries []RawKey
}

// Clone returns an owned copy, detached from engine state.
func (l *Lock) Clone() *Lock {
	if l == nil {
		return nil
	}
	c := *l
	c.Key = l.Key.Clone()
	c.Primary = l.Primary.Clone()
	if l.Secondaries != nil {
		c.Secondaries = make([]RawKey, len(l.Secondaries))
		for i, s := range l.Secondaries {
			c.Secondaries[i] = s.Clone()
		}
	}
	return &c
}

// UsesAsyncCommit reports whether the lock carries a secondary key set.
func (l *Lock) UsesAsyncCommit() bool {
	return len(l.Secondaries) > 0
}

// IsExpired reports whether the lock's TTL has elapsed at currentTS. Both
// timestamps are HLC values; expiry compares wall-clock milliseconds.
func (l *Lock) IsExpired(currentTS uint64) bool {
	return PhysicalMs(currentTS) >= PhysicalMs(l.StartTS)+l.TTL
}

// MvccInfo is the aggregated multi-version snapshot for a single key. The
// zero value is the empty report.
//
// Writes and Values are independently populated: a commit record may outlive
// its value under compaction and vice versa during the scan window. Both are
// ordered by descending timestamp (newest first), matching the engine's
// version chain walk.
type MvccInfo struct {
	Lock   *Lock
	Writes []WriteRecord
	Values []ValueRecord
}

// MvccPair couples a discovered key with its MvccInfo for by-start-ts lookup.
type MvccPair struct {
	Key  Key
	Info MvccInfo
}

// Equal compares two reports structurally. Byte slices compare by content.
func (i MvccInfo) Equal(other MvccInfo) bool {
	if (i.Lock == nil) != (other.Lock == nil) {
		return false
	}
	if i.Lock != nil && !i.Lock.equal(other.Lock) {
		return false
	}
	if len(i.Writes) != len(other.Writes) || len(i.Values) != len(other.Values) {
		return false
	}
	for n, w := range i.Writes {
		if w != other.Writes[n] {
			return false
		}
	}
	for n, v := range i.Values {
		if v.StartTS != other.Values[n].StartTS || !bytes.Equal(v.Value, other.Values[n].Value) {
			return false
		}
	}
	return true
}

func (l *Lock) equal(other *Lock) bool {
	if l.StartTS != other.StartTS || l.TTL != other.TTL ||
		l.Op != other.Op || l.MinCommitTS != other.MinCommitTS {
		return false
	}
	if !l.Key.Equal(other.Key) || !l.Primary.Equal(other.Primary) {
		return false
	}
	if len(l.Secondaries) != len(other.Secondaries) {
		return false
	}
	for i, s := range l.Secondaries {
		if !s.Equal(other.Secondaries[i]) {
			return false
		}
	}
	return true
}
