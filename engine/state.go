package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/bidvault/core"
	"github.com/cloudx-io/bidvault/store"
)

// Persistent slots. Owner, config and the highest-bid record are singletons;
// ledger entries are keyed per bidder under bidLedgerPrefix.
var (
	keyOwner        = []byte("owner")
	keyConfig       = []byte("config")
	keyHighestBid   = []byte("highest_current_bid")
	bidLedgerPrefix = []byte("all_bids/")
)

// Config holds the parameters fixed at instantiation. Open is the only field
// that ever changes, and it transitions true to false exactly once.
type Config struct {
	RequiredDenom string
	FeeRate       decimal.Decimal
	Open          bool
}

// configRecord is the persisted form. The rate round-trips as its decimal
// string so the stored bytes stay independent of the decimal library's
// internal representation.
type configRecord struct {
	RequiredDenom string `cbor:"required_denom"`
	FeeRate       string `cbor:"fee_rate"`
	Open          bool   `cbor:"open"`
}

// highestBidRecord is the single slot tracking the current leader. It is
// overwritten by every accepted bid and never cleared.
type highestBidRecord struct {
	Bidder string      `cbor:"bidder"`
	Amount core.Amount `cbor:"amount"`
}

// state provides typed accessors over the raw KV. Reads are direct; writes
// are staged as batch operations so each action commits all-or-nothing.
type state struct {
	kv store.KV
}

func (s state) readOwner(ctx context.Context) (string, error) {
	raw, err := s.kv.Read(ctx, keyOwner)
	if err != nil {
		return "", fmt.Errorf("read owner: %w", err)
	}
	var owner string
	if err := cbor.Unmarshal(raw, &owner); err != nil {
		return "", fmt.Errorf("decode owner: %w", err)
	}
	return owner, nil
}

func (s state) readConfig(ctx context.Context) (Config, error) {
	raw, err := s.kv.Read(ctx, keyConfig)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var rec configRecord
	if err := cbor.Unmarshal(raw, &rec); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	rate, err := decimal.NewFromString(rec.FeeRate)
	if err != nil {
		return Config{}, fmt.Errorf("decode config fee rate %q: %w", rec.FeeRate, err)
	}
	return Config{
		RequiredDenom: rec.RequiredDenom,
		FeeRate:       rate,
		Open:          rec.Open,
	}, nil
}

func (s state) configExists(ctx context.Context) (bool, error) {
	_, err := s.kv.Read(ctx, keyConfig)
	if errors.Is(err, store.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read config: %w", err)
	}
	return true, nil
}

// readBid returns the bidder's cumulative total. found distinguishes a
// zero-valued entry (retracted) from a missing one (never participated).
func (s state) readBid(ctx context.Context, bidder string) (amount core.Amount, found bool, err error) {
	raw, err := s.kv.Read(ctx, bidLedgerKey(bidder))
	if errors.Is(err, store.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read bid for %s: %w", bidder, err)
	}
	if err := cbor.Unmarshal(raw, &amount); err != nil {
		return 0, false, fmt.Errorf("decode bid for %s: %w", bidder, err)
	}
	return amount, true, nil
}

func (s state) readHighestBid(ctx context.Context) (rec highestBidRecord, found bool, err error) {
	raw, err := s.kv.Read(ctx, keyHighestBid)
	if errors.Is(err, store.ErrKeyNotFound) {
		return highestBidRecord{}, false, nil
	}
	if err != nil {
		return highestBidRecord{}, false, fmt.Errorf("read highest bid: %w", err)
	}
	if err := cbor.Unmarshal(raw, &rec); err != nil {
		return highestBidRecord{}, false, fmt.Errorf("decode highest bid: %w", err)
	}
	return rec, true, nil
}

// countParticipants counts ledger keys. Zeroed (retracted) entries still
// count: the bidder did participate.
func (s state) countParticipants(ctx context.Context) (int, error) {
	iter, err := s.kv.Iterator(ctx, bidLedgerPrefix, store.PrefixEnd(bidLedgerPrefix))
	if err != nil {
		return 0, fmt.Errorf("iterate bid ledger: %w", err)
	}
	defer iter.Close()

	count := 0
	for iter.Next() {
		count++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("iterate bid ledger: %w", err)
	}
	return count, nil
}

func bidLedgerKey(bidder string) []byte {
	return append(append([]byte{}, bidLedgerPrefix...), bidder...)
}

func putOwnerOp(owner string) store.BatchOperation {
	return putOp(keyOwner, owner)
}

func putConfigOp(cfg Config) store.BatchOperation {
	return putOp(keyConfig, configRecord{
		RequiredDenom: cfg.RequiredDenom,
		FeeRate:       cfg.FeeRate.String(),
		Open:          cfg.Open,
	})
}

func putBidOp(bidder string, amount core.Amount) store.BatchOperation {
	return putOp(bidLedgerKey(bidder), amount)
}

func putHighestBidOp(rec highestBidRecord) store.BatchOperation {
	return putOp(keyHighestBid, rec)
}

func putOp(key []byte, value any) store.BatchOperation {
	raw, err := cbor.Marshal(value)
	if err != nil {
		// Every staged value is one of our own fixed record types; an
		// encoding failure is a programming error.
		panic(fmt.Sprintf("encode state record for %q: %v", key, err))
	}
	return store.BatchOperation{Type: store.BatchPut, Key: key, Value: raw}
}
