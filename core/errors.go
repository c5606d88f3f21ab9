package core

import "errors"

// One sentinel per failure kind. Every failed action surfaces exactly one of
// these (possibly wrapped with call-site context); callers match with
// errors.Is.
var (
	// ErrUnauthorized is returned when a non-owner closes the event or the
	// current leader attempts to retract.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBidEventClosed is returned when an action requires the opposite
	// open/closed state than the event is in.
	ErrBidEventClosed = errors.New("bid event closed")

	// ErrWrongToken is returned when the attached payment is missing, split
	// across denominations, or in the wrong denomination.
	ErrWrongToken = errors.New("wrong token to bid")

	// ErrBidAmountInsufficient is returned when a bidder's new cumulative
	// total does not strictly exceed the current highest bid.
	ErrBidAmountInsufficient = errors.New("bid amount is insufficient")

	// ErrNoFundsToRetract is returned when the caller never placed a bid.
	ErrNoFundsToRetract = errors.New("no funds to retract")

	// ErrAlreadyRetracted is returned when the caller's ledger entry was
	// already zeroed by a previous retraction.
	ErrAlreadyRetracted = errors.New("amount already retracted once")

	// ErrInvalidAddress is returned when an identity string fails validation.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrAmountOverflow is returned when integer arithmetic on amounts would
	// overflow or underflow.
	ErrAmountOverflow = errors.New("amount overflow")
)

// ErrorKind maps an error to its wire-level kind string. Unrecognized errors
// (storage failures and the like) report as "store_error".
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrBidEventClosed):
		return "bid_event_closed"
	case errors.Is(err, ErrWrongToken):
		return "wrong_token"
	case errors.Is(err, ErrBidAmountInsufficient):
		return "bid_amount_insufficient"
	case errors.Is(err, ErrNoFundsToRetract):
		return "no_funds_to_retract"
	case errors.Is(err, ErrAlreadyRetracted):
		return "already_retracted"
	case errors.Is(err, ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, ErrAmountOverflow):
		return "amount_overflow"
	default:
		return "store_error"
	}
}
