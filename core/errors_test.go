package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestErrorKind(t *testing.T) {
	check.Equal(t, "unauthorized", ErrorKind(ErrUnauthorized))
	check.Equal(t, "bid_event_closed", ErrorKind(ErrBidEventClosed))
	check.Equal(t, "wrong_token", ErrorKind(ErrWrongToken))
	check.Equal(t, "bid_amount_insufficient", ErrorKind(ErrBidAmountInsufficient))
	check.Equal(t, "no_funds_to_retract", ErrorKind(ErrNoFundsToRetract))
	check.Equal(t, "already_retracted", ErrorKind(ErrAlreadyRetracted))
	check.Equal(t, "invalid_address", ErrorKind(ErrInvalidAddress))
	check.Equal(t, "amount_overflow", ErrorKind(ErrAmountOverflow))
	check.Equal(t, "store_error", ErrorKind(errors.New("disk on fire")))
}

func TestErrorKind_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("bid by alice: %w", ErrWrongToken)
	check.Equal(t, "wrong_token", ErrorKind(wrapped))
}
