package store

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// Memory is an in-memory KV for tests and embedded single-process use.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Read(ctx context.Context, key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	val, ok := m.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *Memory) Write(ctx context.Context, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	val := make([]byte, len(value))
	copy(val, value)
	m.data[string(key)] = val
	return nil
}

func (m *Memory) Delete(ctx context.Context, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	delete(m.data, string(key))
	return nil
}

func (m *Memory) Batch(ctx context.Context, ops []BatchOperation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	// Single map under one lock: applying in order is already atomic with
	// respect to every other operation.
	for _, op := range ops {
		switch op.Type {
		case BatchPut:
			val := make([]byte, len(op.Value))
			copy(val, op.Value)
			m.data[string(op.Key)] = val
		case BatchDelete:
			delete(m.data, string(op.Key))
		}
	}
	return nil
}

func (m *Memory) Iterator(ctx context.Context, start, end []byte) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		kb := []byte(k)
		if start != nil && bytes.Compare(kb, start) < 0 {
			continue
		}
		if end != nil && bytes.Compare(kb, end) >= 0 {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]memoryEntry, len(keys))
	for i, k := range keys {
		val := make([]byte, len(m.data[k]))
		copy(val, m.data[k])
		entries[i] = memoryEntry{key: []byte(k), value: val}
	}
	return &memoryIterator{entries: entries, pos: -1}, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.data = nil
	return nil
}

type memoryEntry struct {
	key, value []byte
}

// memoryIterator iterates over a snapshot taken at creation time.
type memoryIterator struct {
	entries []memoryEntry
	pos     int
}

func (it *memoryIterator) Next() bool {
	if it.pos+1 >= len(it.entries) {
		return false
	}
	it.pos++
	return true
}

func (it *memoryIterator) Key() []byte {
	if it.pos < 0 || it.pos >= len(it.entries) {
		return nil
	}
	return it.entries[it.pos].key
}

func (it *memoryIterator) Value() []byte {
	if it.pos < 0 || it.pos >= len(it.entries) {
		return nil
	}
	return it.entries[it.pos].value
}

func (it *memoryIterator) Error() error { return nil }
func (it *memoryIterator) Close() error { return nil }
