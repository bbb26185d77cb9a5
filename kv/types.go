package kv

import "bytes"

// Key is the engine-internal row identifier. Ordering over Key is
// bytes.Compare and matches the engine's iteration order.
type Key []byte

// RawKey is a caller-supplied, unencoded identifier. It is used when a
// transaction references its other participating keys (secondary keys)
// rather than addressing a row directly.
type RawKey []byte

// Value is an opaque row payload.
type Value []byte

// KVPair couples a key with the value visible at some timestamp.
type KVPair struct {
	Key   Key
	Value Value
}

func (k Key) Compare(other Key) int {
	return bytes.Compare(k, other)
}

func (k Key) Equal(other Key) bool {
	return bytes.Equal(k, other)
}

func (k Key) Clone() Key {
	return Key(bytes.Clone(k))
}

func (k RawKey) Equal(other RawKey) bool {
	return bytes.Equal(k, other)
}

func (k RawKey) Clone() RawKey {
	return RawKey(bytes.Clone(k))
}
