package store

import (
	"bytes"
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/emirpasic/gods/maps/treemap"

	"github.com/coralkv/coral/kv"
)

// memoryRawStore is a treemap-backed RawStore for nodes running without a
// data directory.
type memoryRawStore struct {
	mtx  sync.RWMutex
	tree *treemap.Map // key []byte -> value []byte
}

func NewMemoryRawStore() RawStore {
	return &memoryRawStore{
		tree: treemap.NewWith(byteSliceComparator),
	}
}

var _ RawStore = (*memoryRawStore)(nil)

func (s *memoryRawStore) Get(_ context.Context, key []byte) ([]byte, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	v, ok := s.tree.Get(key)
	if !ok {
		return nil, errors.WithStack(ErrKeyNotFound)
	}
	b, _ := v.([]byte)
	return bytes.Clone(b), nil
}

func (s *memoryRawStore) Put(_ context.Context, key []byte, value []byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.tree.Put(bytes.Clone(key), bytes.Clone(value))
	return nil
}

func (s *memoryRawStore) Delete(_ context.Context, key []byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.tree.Remove(key)
	return nil
}

func (s *memoryRawStore) Exists(_ context.Context, key []byte) (bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	_, ok := s.tree.Get(key)
	return ok, nil
}

func (s *memoryRawStore) Scan(_ context.Context, start, end []byte, limit int) ([]*kv.KVPair, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if limit <= 0 {
		return []*kv.KVPair{}, nil
	}

	result := make([]*kv.KVPair, 0, limit)
	it := s.tree.Iterator()
	for it.Next() {
		if len(result) >= limit {
			break
		}
		k, _ := it.Key().([]byte)
		if start != nil && bytes.Compare(k, start) < 0 {
			continue
		}
		if end != nil && bytes.Compare(k, end) > 0 {
			break
		}
		v, _ := it.Value().([]byte)
		result = append(result, &kv.KVPair{
			Key:   kv.Key(bytes.Clone(k)),
			Value: kv.Value(bytes.Clone(v)),
		})
	}
	return result, nil
}

func (s *memoryRawStore) Close() error {
	return nil
}
