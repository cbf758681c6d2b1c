package tokenizer

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/widgetml/gatekeeper/core"
	"github.com/widgetml/gatekeeper/ports"
)

const AudienceAccess = "session:access"
const AudienceRefresh = "session:refresh"
const AudienceVerifyEmail = "verification:email"
const AudienceVerifyPassword = "verification:password"
const AudienceChallenge = "challenge:math"

// Leeway is the tolerated clock skew between the issuing and validating
// nodes when checking exp/iat claims.
const Leeway = 60 * time.Second

// Secrets holds one independent signing secret per token class, so that
// compromise of one class cannot forge another.
type Secrets struct {
	Session      []byte
	Verification []byte
	Challenge    []byte
}

// JWTTokenizer implements the Tokenizer interface using HS256 JWTs
type JWTTokenizer struct {
	secrets Secrets
	now     func() time.Time
}

// Option configures a JWTTokenizer.
type Option func(*JWTTokenizer)

// WithClock overrides the time source used for claim validation.
func WithClock(now func() time.Time) Option {
	return func(j *JWTTokenizer) { j.now = now }
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(secrets Secrets, opts ...Option) ports.Tokenizer {
	j := &JWTTokenizer{secrets: secrets, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// SessionToAccessToken converts a Session to an access JWT token
func (j *JWTTokenizer) SessionToAccessToken(session *core.Session) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   formatIdentity(session.Identity),
			ID:        session.AccessID,
			ExpiresAt: jwt.NewNumericDate(session.AccessExpiry),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
		RefreshID: session.RefreshID,
	}

	return j.sign(claims, j.secrets.Session)
}

// SessionToRefreshToken converts a Session to a refresh JWT token
func (j *JWTTokenizer) SessionToRefreshToken(session *core.Session) (string, error) {
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   formatIdentity(session.Identity),
			ID:        session.RefreshID, // the refresh token's own jti
			ExpiresAt: jwt.NewNumericDate(session.RefreshExpiry),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceRefresh},
		},
	}

	return j.sign(claims, j.secrets.Session)
}

// AccessTokenToSession parses an access token and returns the associated session
func (j *JWTTokenizer) AccessTokenToSession(tokenStr string) (*core.Session, error) {
	claims := &AccessClaims{}
	if err := j.parse(tokenStr, claims, j.secrets.Session, AudienceAccess); err != nil {
		return nil, err
	}

	identity, err := parseIdentity(claims.Subject)
	if err != nil {
		return nil, err
	}

	return &core.Session{
		Identity:     identity,
		AccessID:     claims.ID,
		RefreshID:    claims.RefreshID,
		IssuedAt:     claims.IssuedAt.Time,
		AccessExpiry: claims.ExpiresAt.Time,
	}, nil
}

// RefreshTokenToSession parses a refresh token and returns the associated session
func (j *JWTTokenizer) RefreshTokenToSession(tokenStr string) (*core.Session, error) {
	claims := &RefreshClaims{}
	if err := j.parse(tokenStr, claims, j.secrets.Session, AudienceRefresh); err != nil {
		return nil, err
	}

	identity, err := parseIdentity(claims.Subject)
	if err != nil {
		return nil, err
	}

	// Refresh tokens carry only the refresh half of the pair; AccessID and
	// AccessExpiry stay zero, they are not used on the refresh path.
	return &core.Session{
		Identity:      identity,
		RefreshID:     claims.ID,
		IssuedAt:      claims.IssuedAt.Time,
		RefreshExpiry: claims.ExpiresAt.Time,
	}, nil
}

// VerificationToToken converts a Verification to a JWT token
func (j *JWTTokenizer) VerificationToToken(verification *core.Verification) (string, error) {
	audience, err := audienceForPurpose(verification.Purpose)
	if err != nil {
		return "", err
	}

	claims := VerificationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   formatIdentity(verification.Identity),
			ID:        verification.Nonce,
			ExpiresAt: jwt.NewNumericDate(verification.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(verification.IssuedAt),
			Audience:  jwt.ClaimStrings{audience},
		},
		Purpose: string(verification.Purpose),
	}

	return j.sign(claims, j.secrets.Verification)
}

// TokenToVerification parses a verification token minted for the given purpose.
// A token of the other purpose fails with core.ErrWrongPurpose.
func (j *JWTTokenizer) TokenToVerification(tokenStr string, purpose core.Purpose) (*core.Verification, error) {
	audience, err := audienceForPurpose(purpose)
	if err != nil {
		return nil, err
	}

	claims := &VerificationClaims{}
	if err := j.parse(tokenStr, claims, j.secrets.Verification, audience); err != nil {
		// The purpose is bound into the audience claim, so a purpose
		// mismatch surfaces as an audience failure on an otherwise
		// well-formed token.
		if errors.Is(err, core.ErrInvalidClaims) && claims.Purpose != "" && claims.Purpose != string(purpose) {
			return nil, core.ErrWrongPurpose
		}
		return nil, err
	}

	if claims.Purpose != string(purpose) {
		return nil, core.ErrWrongPurpose
	}

	identity, err := parseIdentity(claims.Subject)
	if err != nil {
		return nil, err
	}

	return &core.Verification{
		Nonce:     claims.ID,
		Identity:  identity,
		Purpose:   purpose,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// ChallengeToToken converts a Challenge to a JWT token
func (j *JWTTokenizer) ChallengeToToken(challenge *core.Challenge) (string, error) {
	claims := ChallengeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        challenge.ID,
			ExpiresAt: jwt.NewNumericDate(challenge.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(challenge.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceChallenge},
		},
		AnswerDigest: challenge.AnswerDigest,
	}

	return j.sign(claims, j.secrets.Challenge)
}

// TokenToChallenge converts a JWT token to a Challenge
func (j *JWTTokenizer) TokenToChallenge(tokenStr string) (*core.Challenge, error) {
	claims := &ChallengeClaims{}
	if err := j.parse(tokenStr, claims, j.secrets.Challenge, AudienceChallenge); err != nil {
		return nil, err
	}

	return &core.Challenge{
		ID:           claims.ID,
		AnswerDigest: claims.AnswerDigest,
		IssuedAt:     claims.IssuedAt.Time,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

func (j *JWTTokenizer) sign(claims jwt.Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

func (j *JWTTokenizer) parse(tokenStr string, claims jwt.Claims, secret []byte, audience string) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithAudience(audience),
		jwt.WithLeeway(Leeway),
		jwt.WithTimeFunc(j.now),
	)

	if err != nil {
		return mapParseError(err)
	}

	if !token.Valid {
		return core.ErrInvalidToken
	}

	return nil
}

// mapParseError translates jwt/v5 validation errors into the core taxonomy.
func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return core.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return core.ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return core.ErrInvalidClaims
	case errors.Is(err, jwt.ErrTokenMalformed):
		return core.ErrInvalidToken
	default:
		return core.ErrInvalidToken
	}
}

func audienceForPurpose(purpose core.Purpose) (string, error) {
	switch purpose {
	case core.PurposeEmailVerify:
		return AudienceVerifyEmail, nil
	case core.PurposePasswordReset:
		return AudienceVerifyPassword, nil
	default:
		return "", core.ErrWrongPurpose
	}
}

func formatIdentity(identity core.Identity) string {
	return strconv.FormatUint(uint64(identity), 10)
}

func parseIdentity(subject string) (core.Identity, error) {
	id, err := strconv.ParseUint(subject, 10, 64)
	if err != nil {
		return 0, core.ErrInvalidClaims
	}
	return core.Identity(id), nil
}
