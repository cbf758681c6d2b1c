package ports

import (
	"context"

	"github.com/widgetml/gatekeeper/core"
)

// EventPublisher notifies other instances about security-relevant events.
type EventPublisher interface {
	// PublishLogout announces that a session's tokens were revoked.
	PublishLogout(ctx context.Context, identity core.Identity, tokenID string) error

	// PublishTokenReuse announces that a rotated refresh token was replayed,
	// which is treated as evidence of a stolen token.
	PublishTokenReuse(ctx context.Context, identity core.Identity, tokenID string) error
}
