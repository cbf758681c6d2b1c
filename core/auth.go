package core

import "time"

// Identity is the opaque numeric user reference carried inside tokens.
// The account store owns the record behind it; this service only quotes it.
type Identity uint64

// Purpose scopes a verification token to exactly one workflow.
type Purpose string

const (
	PurposeEmailVerify   Purpose = "email_verify"
	PurposePasswordReset Purpose = "password_reset"
)

// Capability names what a caller must present a token for.
type Capability string

const (
	CapabilitySession       Capability = "session"
	CapabilityEmailVerify   Capability = "email_verify"
	CapabilityPasswordReset Capability = "password_reset"
)

// Session represents an issued access/refresh token pair. The pair shares
// no identifier: AccessID and RefreshID are independent jtis, and the access
// token additionally records RefreshID so revoking the refresh side also
// cuts off its paired access token.
type Session struct {
	Identity      Identity
	AccessID      string // jti of the access token
	RefreshID     string // jti of the refresh token
	IssuedAt      time.Time
	AccessExpiry  time.Time
	RefreshExpiry time.Time
}

// Verification is a single-use, purpose-scoped token (email confirmation or
// password recovery). Nonce is the revocation-cache key consumed on first
// successful validation.
type Verification struct {
	Nonce     string
	Identity  Identity
	Purpose   Purpose
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Challenge is a short-lived human-verification puzzle. Only the digest of
// the correct answer is embedded in the token; the question travels
// out-of-band to the user.
type Challenge struct {
	ID           string
	AnswerDigest string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// Profile is the slice of the external account record this service needs.
type Profile struct {
	Identity Identity
	Email    string
	Verified bool
}
