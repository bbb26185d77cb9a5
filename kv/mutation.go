package kv

import (
	"bytes"

	"github.com/cockroachdb/errors"
)

// MutationOp discriminates the closed set of row mutation kinds.
type MutationOp byte

const (
	// MutationPut writes a value, replacing any prior version.
	MutationPut MutationOp = iota
	// MutationDelete writes a tombstone.
	MutationDelete
	// MutationLock acquires a lock without changing the value (read for update).
	MutationLock
	// MutationInsert writes a value only if the key has no visible value;
	// otherwise execution reports ErrKeyAlreadyExists for that mutation.
	MutationInsert
)

func (op MutationOp) String() string {
	switch op {
	case MutationPut:
		return "Put"
	case MutationDelete:
		return "Delete"
	case MutationLock:
		return "Lock"
	case MutationInsert:
		return "Insert"
	default:
		return "Unknown"
	}
}

// Mutation is a single row-level write intent submitted as part of a
// transaction. It is immutable after construction and owned by the command
// that carries it until execution completes.
//
// A non-empty secondary key list marks the mutation as eligible for the
// async/one-phase commit optimization: the primary key's lock encodes the
// secondary set so commit can finalize without contacting every secondary
// synchronously.
type Mutation struct {
	op          MutationOp
	key         Key
	value       Value
	secondaries []RawKey
}

// PutMutation builds a Put mutation.
func PutMutation(key Key, value Value, secondaries []RawKey) (Mutation, error) {
	if err := validateSecondaries(key, secondaries); err != nil {
		return Mutation{}, err
	}
	return Mutation{op: MutationPut, key: key, value: value, secondaries: secondaries}, nil
}

// DeleteMutation builds a Delete mutation.
func DeleteMutation(key Key, secondaries []RawKey) (Mutation, error) {
	if err := validateSecondaries(key, secondaries); err != nil {
		return Mutation{}, err
	}
	return Mutation{op: MutationDelete, key: key, secondaries: secondaries}, nil
}

// LockMutation builds a Lock mutation.
func LockMutation(key Key, secondaries []RawKey) (Mutation, error) {
	if err := validateSecondaries(key, secondaries); err != nil {
		return Mutation{}, err
	}
	return Mutation{op: MutationLock, key: key, secondaries: secondaries}, nil
}

// InsertMutation builds an Insert mutation.
func InsertMutation(key Key, value Value, secondaries []RawKey) (Mutation, error) {
	if err := validateSecondaries(key, secondaries); err != nil {
		return Mutation{}, err
	}
	return Mutation{op: MutationInsert, key: key, value: value, secondaries: secondaries}, nil
}

// validateSecondaries enforces the secondary key invariant: the list must
// exclude the mutation's own key and contain each secondary at most once.
func validateSecondaries(key Key, secondaries []RawKey) error {
	for i, s := range secondaries {
		if bytes.Equal(s, key) {
			return errors.Wrapf(ErrBadSecondaryKeys, "secondary equals mutation key %q", key)
		}
		for _, prev := range secondaries[:i] {
			if prev.Equal(s) {
				return errors.Wrapf(ErrBadSecondaryKeys, "duplicate secondary %q", s)
			}
		}
	}
	return nil
}

// Key returns the mutation's target without consuming it.
func (m Mutation) Key() Key {
	return m.key
}

// IsInsert reports whether the mutation is an Insert. It is the only variant
// test that survives IntoInner; downstream write logic treats all ops
// uniformly once the value-or-absence triple is known, except for Insert's
// existence check.
func (m Mutation) IsInsert() bool {
	return m.op == MutationInsert
}

// Op returns the mutation kind.
func (m Mutation) Op() MutationOp {
	return m.op
}

// IntoInner unpacks the mutation into its key, value, and secondary key list,
// losing the variant tag. The value is nil for Delete and Lock. Callers that
// need the tag afterwards must query IsInsert beforehand.
func (m Mutation) IntoInner() (Key, Value, []RawKey) {
	switch m.op {
	case MutationPut, MutationInsert:
		return m.key, m.value, m.secondaries
	case MutationDelete, MutationLock:
		return m.key, nil, m.secondaries
	default:
		panic("unreachable")
	}
}
