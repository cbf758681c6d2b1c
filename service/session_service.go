package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/widgetml/gatekeeper/config"
	"github.com/widgetml/gatekeeper/core"
	"github.com/widgetml/gatekeeper/ports"
)

// TokenPair is an access/refresh pair freshly minted for one identity.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService issues, validates, rotates and revokes session token
// pairs. Tokens are immutable once signed; liveness lives in the revocation
// store, keyed by jti.
type SessionService struct {
	tokenizer ports.Tokenizer
	store     ports.RevocationStore
	accounts  ports.AccountStore
	eventPub  ports.EventPublisher
	log       *logrus.Logger

	accessTTL        time.Duration
	refreshTTL       time.Duration
	storeTimeout     time.Duration
	blacklistEnabled bool

	now func() time.Time
}

// NewSessionService creates a new session service. accounts may be nil when
// no account store is wired; existence checks are then skipped.
func NewSessionService(
	tokenizer ports.Tokenizer,
	store ports.RevocationStore,
	accounts ports.AccountStore,
	eventPub ports.EventPublisher,
	log *logrus.Logger,
	cfg *config.Config,
) *SessionService {
	return &SessionService{
		tokenizer:        tokenizer,
		store:            store,
		accounts:         accounts,
		eventPub:         eventPub,
		log:              log,
		accessTTL:        cfg.AccessTTL,
		refreshTTL:       cfg.RefreshTTL,
		storeTimeout:     cfg.StoreTimeout,
		blacklistEnabled: cfg.BlacklistEnabled,
		now:              time.Now,
	}
}

// Issue mints a new access/refresh pair for an identity. The two tokens
// carry independent jtis; the access token records the refresh jti so
// revoking the refresh side also cuts off its access token.
func (s *SessionService) Issue(ctx context.Context, identity core.Identity) (*TokenPair, error) {
	now := s.now()
	session := &core.Session{
		Identity:      identity,
		AccessID:      uuid.New().String(),
		RefreshID:     uuid.New().String(),
		IssuedAt:      now,
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshExpiry: now.Add(s.refreshTTL),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Authenticate verifies an access token and returns the identity it was
// issued to. Signature, expiry and revocation failures each surface as
// their own reason so clients can tell "refresh silently" from "log in
// again".
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (core.Identity, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return 0, err
	}

	if err := s.checkLiveness(ctx, session, session.AccessID, session.RefreshID); err != nil {
		return 0, err
	}

	return session.Identity, nil
}

// Refresh rotates a refresh token: the presented token is atomically
// consumed before a new pair is minted, so it is one-time-use. A replay of
// an already-rotated token is treated as compromise evidence: the whole
// identity is revoked and a reuse event is published.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	session, err := s.tokenizer.RefreshTokenToSession(refreshToken)
	if err != nil {
		return nil, err
	}

	if s.accounts != nil {
		if _, err := s.accounts.Lookup(ctx, session.Identity); err != nil {
			if errors.Is(err, core.ErrAccountNotFound) {
				return nil, core.ErrAccountNotFound
			}
			return nil, fmt.Errorf("account lookup failed: %w", err)
		}
	}

	if err := s.checkWatermark(ctx, session); err != nil {
		return nil, err
	}

	sctx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()

	// Distinguish an explicit revocation (logout) from a consumed token
	// before attempting rotation. Both end up as failures, so the race
	// between this read and the SetNX below is harmless.
	mark, found, err := s.store.Get(sctx, session.RefreshID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if found {
		if mark == markConsumed {
			return nil, s.onRefreshReuse(ctx, session)
		}
		return nil, core.ErrTokenRevoked
	}

	won, err := s.store.SetNX(sctx, session.RefreshID, markConsumed, remainingTTL(s.now(), session.RefreshExpiry))
	if err != nil {
		return nil, storeFailure(err)
	}
	if !won {
		// Lost a concurrent presentation of the same token.
		return nil, s.onRefreshReuse(ctx, session)
	}

	return s.Issue(ctx, session.Identity)
}

// Logout revokes both tokens of the presented pair and publishes a logout
// event. The refresh token must belong to the presented access token.
func (s *SessionService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return err
	}

	refresh, err := s.tokenizer.RefreshTokenToSession(refreshToken)
	if err != nil && !errors.Is(err, core.ErrTokenExpired) {
		return err
	}
	if refresh != nil && refresh.RefreshID != session.RefreshID {
		return core.ErrInvalidToken
	}

	sctx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()

	now := s.now()
	if err := s.store.Set(sctx, session.AccessID, markRevoked, remainingTTL(now, session.AccessExpiry)); err != nil {
		return storeFailure(err)
	}

	// The access token only knows its refresh partner's jti; use the
	// refresh token's own expiry when it parsed, the floor otherwise.
	refreshExpiry := now
	if refresh != nil {
		refreshExpiry = refresh.RefreshExpiry
	}
	if err := s.store.Set(sctx, session.RefreshID, markRevoked, remainingTTL(now, refreshExpiry)); err != nil {
		return storeFailure(err)
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishLogout(ctx, session.Identity, session.RefreshID); err != nil {
			// The tokens are already revoked in the store, which is the
			// part that matters; other instances catch up via TTL.
			s.log.WithError(err).WithField("identity", session.Identity).
				Warn("failed to publish logout event")
		}
	}

	return nil
}

// Revoke blacklists a single refresh token without touching the rest of the
// identity's sessions.
func (s *SessionService) Revoke(ctx context.Context, refreshToken string) error {
	session, err := s.tokenizer.RefreshTokenToSession(refreshToken)
	if err != nil {
		return err
	}

	sctx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.Set(sctx, session.RefreshID, markRevoked, remainingTTL(s.now(), session.RefreshExpiry)); err != nil {
		return storeFailure(err)
	}

	return nil
}

// RevokeAll writes an identity-wide revocation watermark: every session
// token for the identity issued at or before now is rejected. The entry
// lives for one refresh lifetime, after which no token from before the
// watermark can still be valid.
func (s *SessionService) RevokeAll(ctx context.Context, identity core.Identity) error {
	sctx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()

	watermark := strconv.FormatInt(s.now().Unix(), 10)
	if err := s.store.Set(sctx, identityKey(identity), watermark, s.refreshTTL); err != nil {
		return storeFailure(err)
	}

	return nil
}

// checkLiveness consults the revocation store for the given jtis and the
// identity watermark. Store failures are fail-closed.
func (s *SessionService) checkLiveness(ctx context.Context, session *core.Session, tokenIDs ...string) error {
	if !s.blacklistEnabled {
		return nil
	}

	if err := s.checkWatermark(ctx, session); err != nil {
		return err
	}

	sctx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()

	for _, tokenID := range tokenIDs {
		if tokenID == "" {
			continue
		}
		_, found, err := s.store.Get(sctx, tokenID)
		if err != nil {
			return storeFailure(err)
		}
		if found {
			return core.ErrTokenRevoked
		}
	}

	return nil
}

// checkWatermark rejects session tokens issued at or before the identity's
// revoke-all watermark.
func (s *SessionService) checkWatermark(ctx context.Context, session *core.Session) error {
	if !s.blacklistEnabled {
		return nil
	}

	sctx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()

	mark, found, err := s.store.Get(sctx, identityKey(session.Identity))
	if err != nil {
		return storeFailure(err)
	}
	if !found {
		return nil
	}

	watermark, err := strconv.ParseInt(mark, 10, 64)
	if err != nil {
		// An unreadable watermark is treated as a live one: fail closed.
		return core.ErrTokenRevoked
	}
	if session.IssuedAt.Unix() <= watermark {
		return core.ErrTokenRevoked
	}

	return nil
}

// onRefreshReuse handles a presentation of an already-consumed refresh
// token: the identity is revoked wholesale and the event published, so both
// the legitimate and the illegitimate holder are cut off and the compromise
// surfaces.
func (s *SessionService) onRefreshReuse(ctx context.Context, session *core.Session) error {
	s.log.WithFields(logrus.Fields{
		"identity": session.Identity,
		"jti":      session.RefreshID,
	}).Warn("rotated refresh token replayed; revoking all sessions for identity")

	if err := s.RevokeAll(ctx, session.Identity); err != nil {
		s.log.WithError(err).WithField("identity", session.Identity).
			Error("failed to revoke identity after refresh token reuse")
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishTokenReuse(ctx, session.Identity, session.RefreshID); err != nil {
			s.log.WithError(err).WithField("identity", session.Identity).
				Warn("failed to publish token reuse event")
		}
	}

	return core.ErrTokenAlreadyUsed
}

func identityKey(identity core.Identity) string {
	return fmt.Sprintf("identity:%d", identity)
}
