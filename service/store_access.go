package service

import (
	"context"
	"fmt"
	"time"

	"github.com/widgetml/gatekeeper/core"
)

// Store entry values. The value distinguishes an explicit revocation from a
// consumed single-use token, so a replay of a rotated refresh token can be
// told apart from a logout.
const (
	markRevoked   = "revoked"
	markConsumed  = "consumed"
	markAttempted = "attempted"
	markPending   = "pending"
)

// minRevocationTTL is the floor for revocation entries written for tokens
// that are already past (or nearly past) expiry, so a revocation still
// outlives any clock disagreement between nodes.
const minRevocationTTL = time.Hour

// storeCtx bounds a revocation-store round trip. Callers treat expiry of
// this context as fail-closed.
func storeCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

// storeFailure wraps a store error so callers can match it as a transient,
// fail-closed infrastructure condition.
func storeFailure(err error) error {
	return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
}

// remainingTTL computes the revocation TTL for a token expiring at expiry,
// applying the floor for tokens that already expired.
func remainingTTL(now, expiry time.Time) time.Duration {
	ttl := expiry.Sub(now)
	if ttl <= 0 {
		return minRevocationTTL
	}
	return ttl
}
