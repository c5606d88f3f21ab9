// Package engine implements the escrow-backed single-lot ascending auction:
// cumulative bids per participant, a single highest-bid slot, owner payout at
// close, and post-close retraction for losing bidders. All state lives in a
// store.KV; the engine emits payment instructions but never moves funds.
package engine

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/bidvault/core"
	"github.com/cloudx-io/bidvault/store"
)

// maxFeeRatePercent caps the configured rate so a computed fee can never
// exceed the principal it is taken from.
const maxFeeRatePercent = 100

// Engine executes auction actions against a KV-backed state. Actions are
// serialized by an internal mutex and commit their writes as a single batch,
// so a failed action leaves no partial state behind. Queries only take the
// read side of the lock.
type Engine struct {
	mu       sync.RWMutex
	state    state
	self     string
	validate AddressValidator
}

// NewEngine wires an engine over kv. self is the engine's own deployed
// identity, used as the default owner. A nil validator falls back to
// DefaultAddressValidator.
func NewEngine(kv store.KV, self string, validate AddressValidator) *Engine {
	if validate == nil {
		validate = DefaultAddressValidator
	}
	return &Engine{
		state:    state{kv: kv},
		self:     self,
		validate: validate,
	}
}

// InstantiateMsg carries the creation parameters. Owner is optional and
// defaults to the engine's own address. FeeRate is a decimal percentage
// string ("3" charges 3%).
type InstantiateMsg struct {
	Owner         string
	RequiredDenom string
	FeeRate       string
}

// Response is the successful outcome of an action: zero or more payment
// instructions for the external ledger plus observable attributes.
type Response struct {
	Instructions []core.PaymentInstruction
	Attributes   []core.Attribute
}

// HighestBidInfo answers the highest-bid query. Bidder and Amount are nil
// before the first bid is ever placed.
type HighestBidInfo struct {
	Bidder *string
	Amount *core.Amount
	Closed bool
}

// Instantiate persists owner and configuration and opens the event. It may
// run only once per store.
func (e *Engine) Instantiate(ctx context.Context, sender string, msg InstantiateMsg) (*Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	exists, err := e.state.configExists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("already instantiated")
	}

	owner := msg.Owner
	if owner == "" {
		owner = e.self
	} else if err := e.validate(owner); err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}

	if msg.RequiredDenom == "" {
		return nil, fmt.Errorf("required denom must not be empty")
	}

	rate, err := decimal.NewFromString(msg.FeeRate)
	if err != nil {
		return nil, fmt.Errorf("parse fee rate %q: %w", msg.FeeRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(maxFeeRatePercent)) {
		return nil, fmt.Errorf("fee rate %s out of range [0, %d]", rate, maxFeeRatePercent)
	}

	cfg := Config{
		RequiredDenom: msg.RequiredDenom,
		FeeRate:       rate,
		Open:          true,
	}
	err = e.state.kv.Batch(ctx, []store.BatchOperation{
		putOwnerOp(owner),
		putConfigOp(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("persist instantiation: %w", err)
	}

	return &Response{
		Attributes: []core.Attribute{
			{Key: "action", Value: "instantiate"},
			{Key: "sender", Value: sender},
			{Key: "owner", Value: owner},
		},
	}, nil
}

// Bid records the attached payment against the sender's cumulative total.
// The new total must strictly exceed the current highest bid; ties lose. The
// fee is charged on the increment just paid, and only a non-zero fee emits an
// instruction: a zero fee is observable as the "fee"="0" attribute instead.
func (e *Engine) Bid(ctx context.Context, sender string, funds []core.Coin) (*Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.state.readConfig(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.Open {
		return nil, core.ErrBidEventClosed
	}

	paid, err := mustPay(funds, cfg.RequiredDenom)
	if err != nil {
		return nil, err
	}

	highest := core.Amount(0)
	if rec, found, err := e.state.readHighestBid(ctx); err != nil {
		return nil, err
	} else if found {
		highest = rec.Amount
	}

	prior, _, err := e.state.readBid(ctx, sender)
	if err != nil {
		return nil, err
	}
	newTotal, err := core.CheckedAdd(prior, paid)
	if err != nil {
		return nil, err
	}
	if highest >= newTotal {
		return nil, core.ErrBidAmountInsufficient
	}

	fee, err := core.ComputeFee(paid, cfg.FeeRate)
	if err != nil {
		return nil, err
	}
	owner, err := e.state.readOwner(ctx)
	if err != nil {
		return nil, err
	}

	err = e.state.kv.Batch(ctx, []store.BatchOperation{
		putBidOp(sender, newTotal),
		putHighestBidOp(highestBidRecord{Bidder: sender, Amount: newTotal}),
	})
	if err != nil {
		return nil, fmt.Errorf("persist bid: %w", err)
	}

	resp := &Response{
		Attributes: []core.Attribute{{Key: "fee", Value: strconv.FormatUint(uint64(fee), 10)}},
	}
	if fee > 0 {
		resp.Instructions = []core.PaymentInstruction{{
			ToAddress: owner,
			Denom:     cfg.RequiredDenom,
			Amount:    fee,
		}}
	}
	return resp, nil
}

// Close transitions the event to closed and pays the owner the leading total
// minus one fee computed on that whole total. Per-bid fees were already
// collected incrementally, so the winner's increments are charged twice; the
// behavior is kept deliberately (see DESIGN.md).
func (e *Engine) Close(ctx context.Context, sender string) (*Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	owner, err := e.state.readOwner(ctx)
	if err != nil {
		return nil, err
	}
	if sender != owner {
		return nil, core.ErrUnauthorized
	}

	cfg, err := e.state.readConfig(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.Open {
		return nil, core.ErrBidEventClosed
	}

	rec, found, err := e.state.readHighestBid(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		// Closing an event nobody bid on fails at the store level; the open
		// flag stays untouched.
		return nil, fmt.Errorf("read highest bid: %w", store.ErrKeyNotFound)
	}

	fee, err := core.ComputeFee(rec.Amount, cfg.FeeRate)
	if err != nil {
		return nil, err
	}
	payout, err := core.CheckedSub(rec.Amount, fee)
	if err != nil {
		return nil, err
	}

	cfg.Open = false
	err = e.state.kv.Batch(ctx, []store.BatchOperation{putConfigOp(cfg)})
	if err != nil {
		return nil, fmt.Errorf("persist close: %w", err)
	}

	return &Response{
		Instructions: []core.PaymentInstruction{{
			ToAddress: owner,
			Denom:     cfg.RequiredDenom,
			Amount:    payout,
		}},
	}, nil
}

// Retract zeroes the sender's ledger entry after close and instructs the
// ledger to return the funds minus the withdrawal fee. recipient optionally
// redirects the refund; empty means the sender. The current leader can never
// retract: their funds were claimed by Close.
func (e *Engine) Retract(ctx context.Context, sender string, recipient string) (*Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.state.readConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.Open {
		return nil, core.ErrBidEventClosed
	}

	rec, found, err := e.state.readHighestBid(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("read highest bid: %w", store.ErrKeyNotFound)
	}
	if rec.Bidder == sender {
		return nil, core.ErrUnauthorized
	}

	if recipient == "" {
		recipient = sender
	} else if err := e.validate(recipient); err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}

	// Take-and-zero is one critical section under the action lock: read the
	// entry, stage the zero, commit. A concurrent retraction can never
	// observe the pre-zero value.
	amount, found, err := e.state.readBid(ctx, sender)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, core.ErrNoFundsToRetract
	}
	if amount == 0 {
		return nil, core.ErrAlreadyRetracted
	}

	fee, err := core.ComputeFee(amount, cfg.FeeRate)
	if err != nil {
		return nil, err
	}
	refund, err := core.CheckedSub(amount, fee)
	if err != nil {
		return nil, err
	}

	err = e.state.kv.Batch(ctx, []store.BatchOperation{putBidOp(sender, 0)})
	if err != nil {
		return nil, fmt.Errorf("persist retraction: %w", err)
	}

	return &Response{
		Instructions: []core.PaymentInstruction{{
			ToAddress: recipient,
			Denom:     cfg.RequiredDenom,
			Amount:    refund,
		}},
	}, nil
}

// BidderTotalBid returns the cumulative total for address, or zero when the
// address is malformed or never bid. Lookups never fail outward; only store
// faults do.
func (e *Engine) BidderTotalBid(ctx context.Context, address string) (core.Amount, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.validate(address); err != nil {
		return 0, nil
	}
	amount, _, err := e.state.readBid(ctx, address)
	if err != nil {
		return 0, err
	}
	return amount, nil
}

// HighestBid reports the current leader, leading amount and whether the
// event is closed.
func (e *Engine) HighestBid(ctx context.Context) (HighestBidInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cfg, err := e.state.readConfig(ctx)
	if err != nil {
		return HighestBidInfo{}, err
	}

	info := HighestBidInfo{Closed: !cfg.Open}
	rec, found, err := e.state.readHighestBid(ctx)
	if err != nil {
		return HighestBidInfo{}, err
	}
	if found {
		info.Bidder = &rec.Bidder
		info.Amount = &rec.Amount
	}
	return info, nil
}

// TotalParticipants counts every identity that ever placed a bid, retracted
// or not.
func (e *Engine) TotalParticipants(ctx context.Context) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.countParticipants(ctx)
}

// mustPay enforces the attached-payment rules: exactly one coin, in the
// required denomination, with a positive amount.
func mustPay(funds []core.Coin, denom string) (core.Amount, error) {
	if len(funds) == 0 {
		return 0, fmt.Errorf("%w: no funds attached", core.ErrWrongToken)
	}
	if len(funds) > 1 {
		return 0, fmt.Errorf("%w: multiple denominations attached", core.ErrWrongToken)
	}
	coin := funds[0]
	if coin.Denom != denom {
		return 0, fmt.Errorf("%w: got %s, need %s", core.ErrWrongToken, coin.Denom, denom)
	}
	if coin.Amount == 0 {
		return 0, fmt.Errorf("%w: zero amount attached", core.ErrWrongToken)
	}
	return coin.Amount, nil
}
