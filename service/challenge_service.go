package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/widgetml/gatekeeper/config"
	"github.com/widgetml/gatekeeper/core"
	"github.com/widgetml/gatekeeper/ports"
)

// ChallengeService issues and validates short-lived math-captcha tokens
// gating sensitive actions. A challenge is bound to exactly one attempt:
// validating it, with the right answer or a wrong one, burns it.
type ChallengeService struct {
	tokenizer ports.Tokenizer
	store     ports.RevocationStore
	log       *logrus.Logger

	ttl          time.Duration
	storeTimeout time.Duration

	now func() time.Time
}

// NewChallengeService creates a new challenge service
func NewChallengeService(
	tokenizer ports.Tokenizer,
	store ports.RevocationStore,
	log *logrus.Logger,
	cfg *config.Config,
) *ChallengeService {
	return &ChallengeService{
		tokenizer:    tokenizer,
		store:        store,
		log:          log,
		ttl:          cfg.ChallengeTTL,
		storeTimeout: cfg.StoreTimeout,
		now:          time.Now,
	}
}

// Issue generates an arithmetic question and a signed token carrying the
// challenge id and a digest of the correct answer. The question is returned
// out-of-band for display; the answer never leaves this function.
func (s *ChallengeService) Issue(ctx context.Context) (challengeID, question, token string, err error) {
	question, answer := generateMathProblem()
	challengeID = uuid.New().String()

	now := s.now()
	challenge := &core.Challenge{
		ID:           challengeID,
		AnswerDigest: answerDigest(challengeID, fmt.Sprintf("%d", answer)),
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.ttl),
	}

	token, err = s.tokenizer.ChallengeToToken(challenge)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to create challenge token: %w", err)
	}

	return challengeID, question, token, nil
}

// Validate checks a submitted answer against the challenge token's digest.
// The attempt is consumed before the answer is compared, so a wrong answer
// burns the challenge just like a right one.
func (s *ChallengeService) Validate(ctx context.Context, token, submittedAnswer string) error {
	challenge, err := s.tokenizer.TokenToChallenge(token)
	if err != nil {
		return err
	}

	sctx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()

	won, err := s.store.SetNX(sctx, challenge.ID, markAttempted, remainingTTL(s.now(), challenge.ExpiresAt))
	if err != nil {
		return storeFailure(err)
	}
	if !won {
		return core.ErrChallengeAttempted
	}

	submitted := answerDigest(challenge.ID, submittedAnswer)
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(challenge.AnswerDigest)) != 1 {
		s.log.WithField("challenge_id", challenge.ID).Info("challenge failed")
		return core.ErrWrongAnswer
	}

	return nil
}

// answerDigest binds the answer to its challenge id so identical answers
// across challenges produce distinct digests.
func answerDigest(challengeID, answer string) string {
	sum := sha256.Sum256([]byte(challengeID + ":" + answer))
	return hex.EncodeToString(sum[:])
}

// generateMathProblem produces a question over two operands in 1..1000 with
// an integer result also constrained to 1..1000. Division is only offered
// when it is exact.
func generateMathProblem() (string, int) {
	operations := []string{"+", "-", "*", "/"}

	for {
		num1 := rand.IntN(1000) + 1
		num2 := rand.IntN(1000) + 1

		var result int
		operation := operations[rand.IntN(len(operations))]

		switch operation {
		case "+":
			result = num1 + num2
		case "-":
			result = num1 - num2
		case "*":
			result = num1 * num2
		case "/":
			if num1%num2 != 0 {
				continue
			}
			result = num1 / num2
		}

		if result < 1 || result > 1000 {
			continue
		}

		return fmt.Sprintf("%d %s %d = ", num1, operation, num2), result
	}
}
