// Package pebble provides the persistent store.KV implementation backed by
// cockroachdb/pebble.
package pebble

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/cloudx-io/bidvault/store"
)

// Store wraps a pebble database behind the store.KV interface.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) a pebble database at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Read(ctx context.Context, key []byte) ([]byte, error) {
	if s.db == nil {
		return nil, store.ErrClosed
	}

	val, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, store.ErrKeyNotFound
		}
		return nil, err
	}
	defer closer.Close()

	// Pebble's value is only valid until the closer; copy it out.
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (s *Store) Write(ctx context.Context, key, value []byte) error {
	if s.db == nil {
		return store.ErrClosed
	}
	return s.db.Set(key, value, pebble.Sync)
}

func (s *Store) Delete(ctx context.Context, key []byte) error {
	if s.db == nil {
		return store.ErrClosed
	}
	return s.db.Delete(key, pebble.Sync)
}

func (s *Store) Batch(ctx context.Context, ops []store.BatchOperation) error {
	if s.db == nil {
		return store.ErrClosed
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	for _, op := range ops {
		switch op.Type {
		case store.BatchPut:
			if err := batch.Set(op.Key, op.Value, nil); err != nil {
				return err
			}
		case store.BatchDelete:
			if err := batch.Delete(op.Key, nil); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown batch operation type: %d", op.Type)
		}
	}
	return batch.Commit(pebble.Sync)
}

func (s *Store) Iterator(ctx context.Context, start, end []byte) (store.Iterator, error) {
	if s.db == nil {
		return nil, store.ErrClosed
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: start,
		UpperBound: end,
	})
	if err != nil {
		return nil, err
	}
	return &iterator{iter: iter}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

type iterator struct {
	iter    *pebble.Iterator
	started bool
	key     []byte
	value   []byte
}

func (it *iterator) Next() bool {
	var valid bool
	if !it.started {
		valid = it.iter.First()
		it.started = true
	} else {
		valid = it.iter.Next()
	}
	if !valid {
		return false
	}

	// Copy both out; pebble reuses its buffers on the next step.
	it.key = append(it.key[:0], it.iter.Key()...)
	it.value = append(it.value[:0], it.iter.Value()...)
	return true
}

func (it *iterator) Key() []byte   { return it.key }
func (it *iterator) Value() []byte { return it.value }
func (it *iterator) Error() error  { return it.iter.Error() }
func (it *iterator) Close() error  { return it.iter.Close() }
