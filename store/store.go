// Package store defines the key-value persistence boundary for the auction
// engine. The engine is the sole writer; implementations only need to honor
// the KV contract, not any auction semantics.
package store

import (
	"context"
)

// KV defines the basic operations any store implementation must support.
type KV interface {
	// Read returns the value for key, or ErrKeyNotFound.
	Read(ctx context.Context, key []byte) ([]byte, error)
	Write(ctx context.Context, key []byte, value []byte) error
	Delete(ctx context.Context, key []byte) error

	// Batch applies all operations atomically: either every op commits or
	// none do.
	Batch(ctx context.Context, ops []BatchOperation) error

	// Iterator traverses keys in [start, end) in ascending order. A nil
	// bound is unbounded on that side.
	Iterator(ctx context.Context, start, end []byte) (Iterator, error)
}

// Iterator allows traversing over store entries.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Close() error
}

// BatchOperation represents a single operation in a batch.
type BatchOperation struct {
	Type  BatchOpType
	Key   []byte
	Value []byte
}

type BatchOpType int

const (
	BatchPut BatchOpType = iota
	BatchDelete
)

// PrefixEnd returns the smallest key greater than every key with the given
// prefix, for use as an exclusive iterator upper bound. Returns nil when no
// such key exists (prefix is all 0xff).
func PrefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
