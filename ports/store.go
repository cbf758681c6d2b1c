package ports

import (
	"context"
	"time"
)

// RevocationStore is the TTL-capable key-value cache that tracks token
// liveness. Every entry carries a TTL, typically the remaining lifetime of
// the token it concerns, so the cache self-expires and never grows
// unbounded.
//
// Callers must treat any error as fail-closed: an unreachable store is
// never "not revoked".
type RevocationStore interface {
	// Set writes a key with a value and expiration time.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get retrieves a value by key. The second return reports presence.
	Get(ctx context.Context, key string) (string, bool, error)

	// SetNX atomically writes the key only if it is absent and reports
	// whether this call won. All single-use semantics (refresh rotation,
	// verification nonces, challenge attempts) build on this primitive;
	// never replace it with a read-then-write.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}
