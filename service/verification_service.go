package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/widgetml/gatekeeper/config"
	"github.com/widgetml/gatekeeper/core"
	"github.com/widgetml/gatekeeper/ports"
)

// VerificationService issues and consumes single-use, purpose-scoped tokens
// for email confirmation and password recovery. A token validates at most
// once; its nonce is consumed atomically on the first successful
// presentation.
type VerificationService struct {
	tokenizer ports.Tokenizer
	store     ports.RevocationStore
	mailer    ports.Mailer
	log       *logrus.Logger

	ttl          time.Duration
	storeTimeout time.Duration

	now func() time.Time
}

// NewVerificationService creates a new verification token service. mailer
// may be nil; issued tokens are then only returned to the caller.
func NewVerificationService(
	tokenizer ports.Tokenizer,
	store ports.RevocationStore,
	mailer ports.Mailer,
	log *logrus.Logger,
	cfg *config.Config,
) *VerificationService {
	return &VerificationService{
		tokenizer:    tokenizer,
		store:        store,
		mailer:       mailer,
		log:          log,
		ttl:          cfg.VerificationTTL,
		storeTimeout: cfg.StoreTimeout,
		now:          time.Now,
	}
}

// Issue mints a verification token for an identity and purpose and hands it
// to the mailer. While a previously issued token is still live, re-requests
// are rejected with ErrAlreadyRequested so an intercepted inbox cannot be
// flooded with fresh links.
func (s *VerificationService) Issue(ctx context.Context, identity core.Identity, purpose core.Purpose) (string, error) {
	sctx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()

	won, err := s.store.SetNX(sctx, outstandingKey(identity, purpose), markPending, s.ttl)
	if err != nil {
		return "", storeFailure(err)
	}
	if !won {
		return "", core.ErrAlreadyRequested
	}

	now := s.now()
	verification := &core.Verification{
		Nonce:     uuid.New().String(),
		Identity:  identity,
		Purpose:   purpose,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	token, err := s.tokenizer.VerificationToToken(verification)
	if err != nil {
		return "", fmt.Errorf("failed to create verification token: %w", err)
	}

	if s.mailer != nil {
		if err := s.mailer.SendVerification(ctx, identity, purpose, token); err != nil {
			return "", fmt.Errorf("failed to hand off verification token: %w", err)
		}
	}

	return token, nil
}

// Consume validates a verification token for the given purpose and burns
// its nonce. Exactly one of any number of concurrent presentations
// succeeds; every later one observes ErrTokenAlreadyUsed.
func (s *VerificationService) Consume(ctx context.Context, token string, purpose core.Purpose) (core.Identity, error) {
	verification, err := s.tokenizer.TokenToVerification(token, purpose)
	if err != nil {
		return 0, err
	}

	sctx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()

	won, err := s.store.SetNX(sctx, verification.Nonce, markConsumed, remainingTTL(s.now(), verification.ExpiresAt))
	if err != nil {
		return 0, storeFailure(err)
	}
	if !won {
		s.log.WithFields(logrus.Fields{
			"identity": verification.Identity,
			"purpose":  verification.Purpose,
		}).Warn("verification token presented again after consumption")
		return 0, core.ErrTokenAlreadyUsed
	}

	return verification.Identity, nil
}

func outstandingKey(identity core.Identity, purpose core.Purpose) string {
	return fmt.Sprintf("outstanding:%d:%s", identity, purpose)
}
