package ports

import (
	"context"

	"github.com/widgetml/gatekeeper/core"
)

// Mailer hands a freshly issued verification token to the outbound email
// system. Formatting and delivery are external; this service never builds
// or sends the email itself.
type Mailer interface {
	SendVerification(ctx context.Context, identity core.Identity, purpose core.Purpose, token string) error
}
