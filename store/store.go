package store

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/coralkv/coral/kv"
)

var ErrKeyNotFound = errors.New("not found")
var ErrInvalidChecksum = errors.New("invalid checksum")

// RawStore is the untransactional key space. It bypasses MVCC entirely and is
// served node-locally; raw and transactional keys never mix.
type RawStore interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Put(ctx context.Context, key []byte, value []byte) error
	Delete(ctx context.Context, key []byte) error
	Exists(ctx context.Context, key []byte) (bool, error)
	Scan(ctx context.Context, start, end []byte, limit int) ([]*kv.KVPair, error)
	Close() error
}
