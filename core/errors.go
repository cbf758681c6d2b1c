package core

import "errors"

var (
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrTokenAlreadyUsed   = errors.New("single-use token was already consumed")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidSignature   = errors.New("invalid token signature")
	ErrInvalidClaims      = errors.New("invalid token claims")
	ErrWrongPurpose       = errors.New("token was issued for a different purpose")
	ErrWrongAnswer        = errors.New("wrong challenge answer")
	ErrChallengeAttempted = errors.New("challenge was already attempted")
	ErrAlreadyRequested   = errors.New("a live token for this request already exists")
	ErrStoreUnavailable   = errors.New("revocation store unavailable")
	ErrAccountNotFound    = errors.New("account not found")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
)
