package store

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"go.etcd.io/bbolt"

	"github.com/coralkv/coral/kv"
)

var rawBucket = []byte("raw")

const boltFileMode = 0666

// boltRawStore is a bbolt-backed RawStore. Raw operations are node-local and
// durable; they never touch the MVCC columns.
type boltRawStore struct {
	mtx   sync.RWMutex
	log   *slog.Logger
	bbolt *bbolt.DB
}

func NewBoltRawStore(path string) (RawStore, error) {
	db, err := bbolt.Open(path, boltFileMode, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &boltRawStore{
		bbolt: db,
		log: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		})),
	}, nil
}

var _ RawStore = (*boltRawStore)(nil)

func (s *boltRawStore) Get(_ context.Context, key []byte) ([]byte, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var v []byte
	err := s.bbolt.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(rawBucket)
		if b == nil {
			return nil
		}
		if raw := b.Get(key); raw != nil {
			v = bytes.Clone(raw)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if v == nil {
		return nil, errors.WithStack(ErrKeyNotFound)
	}
	return v, nil
}

func (s *boltRawStore) Put(ctx context.Context, key []byte, value []byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.log.InfoContext(ctx, "raw put",
		slog.String("key", string(key)),
	)

	err := s.bbolt.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(rawBucket)
		if err != nil {
			return errors.WithStack(err)
		}
		return errors.WithStack(b.Put(key, value))
	})
	return errors.WithStack(err)
}

func (s *boltRawStore) Delete(ctx context.Context, key []byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.log.InfoContext(ctx, "raw delete",
		slog.String("key", string(key)),
	)

	err := s.bbolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(rawBucket)
		if b == nil {
			return nil
		}
		return errors.WithStack(b.Delete(key))
	})
	return errors.WithStack(err)
}

func (s *boltRawStore) Exists(_ context.Context, key []byte) (bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var found bool
	err := s.bbolt.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(rawBucket)
		if b == nil {
			return nil
		}
		found = b.Get(key) != nil
		return nil
	})
	return found, errors.WithStack(err)
}

func (s *boltRawStore) Scan(_ context.Context, start, end []byte, limit int) ([]*kv.KVPair, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if limit <= 0 {
		return []*kv.KVPair{}, nil
	}

	result := make([]*kv.KVPair, 0, limit)
	err := s.bbolt.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(rawBucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		k, v := c.First()
		if start != nil {
			k, v = c.Seek(start)
		}
		for ; k != nil; k, v = c.Next() {
			if end != nil && bytes.Compare(k, end) > 0 {
				break
			}
			result = append(result, &kv.KVPair{
				Key:   kv.Key(bytes.Clone(k)),
				Value: kv.Value(bytes.Clone(v)),
			})
			if len(result) >= limit {
				break
			}
		}
		return nil
	})
	return result, errors.WithStack(err)
}

func (s *boltRawStore) Close() error {
	return errors.WithStack(s.bbolt.Close())
}
