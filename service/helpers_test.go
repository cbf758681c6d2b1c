package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/widgetml/gatekeeper/adapters/store"
	"github.com/widgetml/gatekeeper/adapters/tokenizer"
	"github.com/widgetml/gatekeeper/config"
	"github.com/widgetml/gatekeeper/core"
	"github.com/widgetml/gatekeeper/ports"
)

// fakeClock lets tests move issuing and validating time in lockstep.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// capturedEvents records published security events.
type capturedEvents struct {
	mu      sync.Mutex
	logouts []string
	reuses  []string
}

func (e *capturedEvents) PublishLogout(ctx context.Context, identity core.Identity, tokenID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logouts = append(e.logouts, tokenID)
	return nil
}

func (e *capturedEvents) PublishTokenReuse(ctx context.Context, identity core.Identity, tokenID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reuses = append(e.reuses, tokenID)
	return nil
}

func (e *capturedEvents) reuseCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.reuses)
}

// capturedMail records verification token handoffs.
type capturedMail struct {
	mu     sync.Mutex
	tokens []string
}

func (m *capturedMail) SendVerification(ctx context.Context, identity core.Identity, purpose core.Purpose, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, token)
	return nil
}

// fakeAccounts is a map-backed account store.
type fakeAccounts struct {
	profiles map[core.Identity]*core.Profile
}

func (a *fakeAccounts) Lookup(ctx context.Context, identity core.Identity) (*core.Profile, error) {
	p, ok := a.profiles[identity]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	return p, nil
}

// brokenStore fails every operation, simulating an unreachable cache.
type brokenStore struct{}

var errStoreDown = errors.New("connection refused")

func (brokenStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errStoreDown
}

func (brokenStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errStoreDown
}

func (brokenStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return false, errStoreDown
}

func testConfig() *config.Config {
	return &config.Config{
		SessionSecret:      []byte("session-secret-for-tests"),
		VerificationSecret: []byte("verification-secret-for-tests"),
		ChallengeSecret:    []byte("challenge-secret-for-tests"),
		AccessTTL:          30 * time.Minute,
		RefreshTTL:         24 * time.Hour,
		VerificationTTL:    250 * time.Second,
		ChallengeTTL:       time.Minute,
		StoreTimeout:       2 * time.Second,
		BlacklistEnabled:   true,
	}
}

func testTokenizer(clk *fakeClock, cfg *config.Config) ports.Tokenizer {
	return tokenizer.NewJWTTokenizer(tokenizer.Secrets{
		Session:      cfg.SessionSecret,
		Verification: cfg.VerificationSecret,
		Challenge:    cfg.ChallengeSecret,
	}, tokenizer.WithClock(clk.Now))
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type sessionFixture struct {
	sessions *SessionService
	store    *store.MemoryStore
	clock    *fakeClock
	events   *capturedEvents
	cfg      *config.Config
}

func newSessionFixture(cfg *config.Config, accounts ports.AccountStore) *sessionFixture {
	clk := newFakeClock()
	memStore := store.NewMemoryStore()
	events := &capturedEvents{}

	sessions := NewSessionService(testTokenizer(clk, cfg), memStore, accounts, events, quietLogger(), cfg)
	sessions.now = clk.Now

	return &sessionFixture{
		sessions: sessions,
		store:    memStore,
		clock:    clk,
		events:   events,
		cfg:      cfg,
	}
}
