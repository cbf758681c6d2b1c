package ports

import (
	"context"

	"github.com/widgetml/gatekeeper/core"
)

// AccountStore is the external account record keeper. The token core trusts
// the token payload for identity; Lookup only confirms the account still
// exists before a session is honored or extended.
type AccountStore interface {
	// Lookup returns the profile for an identity, or core.ErrAccountNotFound.
	Lookup(ctx context.Context, identity core.Identity) (*core.Profile, error)
}
