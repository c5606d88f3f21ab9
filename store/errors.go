package store

import "errors"

var (
	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("store is closed")

	// ErrKeyNotFound is returned when a key doesn't exist in the store.
	ErrKeyNotFound = errors.New("key not found")
)
