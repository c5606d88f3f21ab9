package store

import (
	"context"
	"errors"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestMemory_ReadWriteDelete(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()

	_, err := kv.Read(ctx, []byte("missing"))
	check.True(t, errors.Is(err, ErrKeyNotFound))

	check.NoError(t, kv.Write(ctx, []byte("k"), []byte("v1")))
	val, err := kv.Read(ctx, []byte("k"))
	assert.NoError(t, err)
	check.Equal(t, []byte("v1"), val)

	check.NoError(t, kv.Write(ctx, []byte("k"), []byte("v2")))
	val, err = kv.Read(ctx, []byte("k"))
	assert.NoError(t, err)
	check.Equal(t, []byte("v2"), val)

	check.NoError(t, kv.Delete(ctx, []byte("k")))
	_, err = kv.Read(ctx, []byte("k"))
	check.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()

	in := []byte("original")
	assert.NoError(t, kv.Write(ctx, []byte("k"), in))
	in[0] = 'X'

	out, err := kv.Read(ctx, []byte("k"))
	assert.NoError(t, err)
	check.Equal(t, []byte("original"), out)

	// mutating the returned slice must not corrupt the store either
	out[0] = 'Y'
	again, err := kv.Read(ctx, []byte("k"))
	assert.NoError(t, err)
	check.Equal(t, []byte("original"), again)
}

func TestMemory_Batch(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()

	assert.NoError(t, kv.Write(ctx, []byte("gone"), []byte("x")))
	err := kv.Batch(ctx, []BatchOperation{
		{Type: BatchPut, Key: []byte("a"), Value: []byte("1")},
		{Type: BatchPut, Key: []byte("b"), Value: []byte("2")},
		{Type: BatchDelete, Key: []byte("gone")},
	})
	assert.NoError(t, err)

	val, err := kv.Read(ctx, []byte("a"))
	assert.NoError(t, err)
	check.Equal(t, []byte("1"), val)

	_, err = kv.Read(ctx, []byte("gone"))
	check.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestMemory_IteratorRange(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()

	for _, k := range []string{"bids/a", "bids/b", "bids/c", "config", "owner"} {
		assert.NoError(t, kv.Write(ctx, []byte(k), []byte(k)))
	}

	iter, err := kv.Iterator(ctx, []byte("bids/"), PrefixEnd([]byte("bids/")))
	assert.NoError(t, err)
	defer iter.Close()

	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	assert.NoError(t, iter.Error())
	check.Equal(t, []string{"bids/a", "bids/b", "bids/c"}, keys)
}

func TestMemory_IteratorUnbounded(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()

	for _, k := range []string{"a", "b", "c"} {
		assert.NoError(t, kv.Write(ctx, []byte(k), []byte(k)))
	}

	iter, err := kv.Iterator(ctx, nil, nil)
	assert.NoError(t, err)
	defer iter.Close()

	count := 0
	for iter.Next() {
		count++
	}
	check.Equal(t, 3, count)
}

func TestMemory_Closed(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	assert.NoError(t, kv.Close())

	_, err := kv.Read(ctx, []byte("k"))
	check.True(t, errors.Is(err, ErrClosed))
	check.True(t, errors.Is(kv.Write(ctx, []byte("k"), nil), ErrClosed))
	check.True(t, errors.Is(kv.Batch(ctx, nil), ErrClosed))
}

func TestPrefixEnd(t *testing.T) {
	check.Equal(t, []byte("bids0"), PrefixEnd([]byte("bids/")))
	check.Equal(t, []byte("b"), PrefixEnd([]byte("a")))
	check.Equal(t, []byte{0x01}, PrefixEnd([]byte{0x00, 0xff}))
	check.Nil(t, PrefixEnd([]byte{0xff, 0xff}))
}
