package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/bidvault/core"
)

func TestDefaultAddressValidator(t *testing.T) {
	check.NoError(t, DefaultAddressValidator("bidder1"))
	check.NoError(t, DefaultAddressValidator("abc"))
	check.NoError(t, DefaultAddressValidator(strings.Repeat("a", 90)))

	for _, addr := range []string{
		"",
		"ab",
		strings.Repeat("a", 91),
		"Bidder1",
		"bidder 1",
		"bidder-1",
	} {
		err := DefaultAddressValidator(addr)
		check.Error(t, err)
		check.True(t, errors.Is(err, core.ErrInvalidAddress))
	}
}
