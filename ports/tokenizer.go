package ports

import "github.com/widgetml/gatekeeper/core"

// Tokenizer converts between domain objects and signed token strings.
// Each token class is signed with its own secret: parsing a token of one
// class as another fails, it never coerces.
type Tokenizer interface {
	// Session token operations
	SessionToAccessToken(session *core.Session) (string, error)
	AccessTokenToSession(token string) (*core.Session, error)
	SessionToRefreshToken(session *core.Session) (string, error)
	RefreshTokenToSession(token string) (*core.Session, error)

	// Verification token operations
	VerificationToToken(verification *core.Verification) (string, error)
	TokenToVerification(token string, purpose core.Purpose) (*core.Verification, error)

	// Challenge token operations
	ChallengeToToken(challenge *core.Challenge) (string, error)
	TokenToChallenge(token string) (*core.Challenge, error)
}
