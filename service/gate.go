package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/widgetml/gatekeeper/core"
)

// Gate is the per-request authorization contract consumed by everything
// protected: given a presented token and the capability the operation
// requires, it returns the authenticated identity or a rejection. It owns
// no state; it dispatches to the managers and collapses their internal
// failure reasons before they cross the trust boundary, so untrusted
// callers cannot distinguish expired from revoked from forged.
type Gate struct {
	sessions      *SessionService
	verifications *VerificationService
	log           *logrus.Logger
}

// NewGate creates the auth gate over the token managers
func NewGate(sessions *SessionService, verifications *VerificationService, log *logrus.Logger) *Gate {
	return &Gate{
		sessions:      sessions,
		verifications: verifications,
		log:           log,
	}
}

// Authorize resolves a presented token against the required capability.
// Verification capabilities consume the token: authorization and
// single-use consumption are the same act for those.
func (g *Gate) Authorize(ctx context.Context, token string, capability core.Capability) (core.Identity, error) {
	var (
		identity core.Identity
		err      error
	)

	switch capability {
	case core.CapabilitySession:
		identity, err = g.sessions.Authenticate(ctx, token)
	case core.CapabilityEmailVerify:
		identity, err = g.verifications.Consume(ctx, token, core.PurposeEmailVerify)
	case core.CapabilityPasswordReset:
		identity, err = g.verifications.Consume(ctx, token, core.PurposePasswordReset)
	default:
		return 0, core.ErrForbidden
	}

	if err != nil {
		g.log.WithFields(logrus.Fields{
			"capability": capability,
			"reason":     err.Error(),
		}).Warn("authorization denied")
		return 0, collapse(err)
	}

	return identity, nil
}

// collapse maps internal rejection reasons onto the two caller-visible
// signals. A structurally valid token presented for the wrong purpose is
// Forbidden; everything else, including a fail-closed store outage, is
// Unauthenticated.
func collapse(err error) error {
	if errors.Is(err, core.ErrWrongPurpose) {
		return core.ErrForbidden
	}
	return core.ErrUnauthenticated
}
