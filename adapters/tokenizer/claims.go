package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines standard claims with access-specific ones
type AccessClaims struct {
	jwt.RegisteredClaims
	RefreshID string `json:"rid"` // jti of the paired refresh token
}

// RefreshClaims are just the standard claims for refresh tokens
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// VerificationClaims carry the purpose a single-use token was minted for
type VerificationClaims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose"`
}

// ChallengeClaims carry the digest of the correct answer, never the answer
type ChallengeClaims struct {
	jwt.RegisteredClaims
	AnswerDigest string `json:"digest"`
}
