package service

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/widgetml/gatekeeper/adapters/store"
	"github.com/widgetml/gatekeeper/config"
	"github.com/widgetml/gatekeeper/core"
)

type challengeFixture struct {
	challenges *ChallengeService
	clock      *fakeClock
	cfg        *config.Config
}

func newChallengeFixture(cfg *config.Config) *challengeFixture {
	clk := newFakeClock()

	challenges := NewChallengeService(testTokenizer(clk, cfg), store.NewMemoryStore(), quietLogger(), cfg)
	challenges.now = clk.Now

	return &challengeFixture{challenges: challenges, clock: clk, cfg: cfg}
}

// solveQuestion computes the answer to an issued arithmetic question.
func solveQuestion(t *testing.T, question string) string {
	t.Helper()

	var a, b int
	var op string
	_, err := fmt.Sscanf(question, "%d %s %d", &a, &op, &b)
	require.NoError(t, err, "unparseable question %q", question)

	var result int
	switch op {
	case "+":
		result = a + b
	case "-":
		result = a - b
	case "*":
		result = a * b
	case "/":
		require.NotZero(t, b)
		result = a / b
	default:
		t.Fatalf("unexpected operator %q in question %q", op, question)
	}
	return strconv.Itoa(result)
}

func TestChallengeIssueAndValidate(t *testing.T) {
	fx := newChallengeFixture(testConfig())
	ctx := context.Background()

	challengeID, question, token, err := fx.challenges.Issue(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, challengeID)
	require.NotEmpty(t, token)

	answer := solveQuestion(t, question)
	assert.NoError(t, fx.challenges.Validate(ctx, token, answer))
}

func TestChallengeIsSingleAttempt(t *testing.T) {
	fx := newChallengeFixture(testConfig())
	ctx := context.Background()

	_, question, token, err := fx.challenges.Issue(ctx)
	require.NoError(t, err)

	answer := solveQuestion(t, question)
	require.NoError(t, fx.challenges.Validate(ctx, token, answer))

	// A solved challenge cannot be presented again.
	assert.ErrorIs(t, fx.challenges.Validate(ctx, token, answer), core.ErrChallengeAttempted)
}

func TestChallengeWrongAnswerBurnsTheAttempt(t *testing.T) {
	fx := newChallengeFixture(testConfig())
	ctx := context.Background()

	_, question, token, err := fx.challenges.Issue(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, fx.challenges.Validate(ctx, token, "not-a-number"), core.ErrWrongAnswer)

	// The attempt was consumed before the comparison; the right answer no
	// longer helps.
	answer := solveQuestion(t, question)
	assert.ErrorIs(t, fx.challenges.Validate(ctx, token, answer), core.ErrChallengeAttempted)
}

func TestChallengeExpires(t *testing.T) {
	cfg := testConfig()
	fx := newChallengeFixture(cfg)
	ctx := context.Background()

	_, question, token, err := fx.challenges.Issue(ctx)
	require.NoError(t, err)

	fx.clock.Advance(cfg.ChallengeTTL + 2*time.Minute)

	answer := solveQuestion(t, question)
	assert.ErrorIs(t, fx.challenges.Validate(ctx, token, answer), core.ErrTokenExpired)
}

func TestChallengeTamperedTokenIsRejected(t *testing.T) {
	fx := newChallengeFixture(testConfig())
	ctx := context.Background()

	err := fx.challenges.Validate(ctx, "not-a-token", "42")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestGenerateMathProblemStaysInRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		question, result := generateMathProblem()

		assert.GreaterOrEqual(t, result, 1)
		assert.LessOrEqual(t, result, 1000)

		var a, b int
		var op string
		_, err := fmt.Sscanf(question, "%d %s %d", &a, &op, &b)
		require.NoError(t, err, "unparseable question %q", question)
		assert.Contains(t, []string{"+", "-", "*", "/"}, op)
	}
}
