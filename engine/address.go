package engine

import (
	"fmt"

	"github.com/cloudx-io/bidvault/core"
)

// AddressValidator reports whether a string is a well-formed identity. The
// hosting runtime supplies the real implementation; this interface enables
// dependency injection for deterministic testing.
type AddressValidator func(addr string) error

const (
	minAddressLen = 3
	maxAddressLen = 90
)

// DefaultAddressValidator accepts lowercase alphanumeric identities within
// bech32-style length bounds. It is purely syntactic: existence of the
// account is the ledger collaborator's concern.
func DefaultAddressValidator(addr string) error {
	if len(addr) < minAddressLen || len(addr) > maxAddressLen {
		return fmt.Errorf("%w: %q has invalid length %d", core.ErrInvalidAddress, addr, len(addr))
	}
	for _, r := range addr {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return fmt.Errorf("%w: %q contains %q", core.ErrInvalidAddress, addr, r)
		}
	}
	return nil
}
