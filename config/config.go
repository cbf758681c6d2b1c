package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults for everything that is tunable but rarely tuned.
const (
	DefaultListenAddr      = ":9000"
	DefaultRedisURL        = "redis://localhost:6379/0"
	DefaultAccessTTL       = 30 * time.Minute
	DefaultRefreshTTL      = 24 * time.Hour
	DefaultVerificationTTL = 250 * time.Second
	DefaultChallengeTTL    = 60 * time.Second
	DefaultStoreTimeout    = 2 * time.Second
)

// Config is the process configuration: all secrets and lifetimes are loaded
// once at startup and never mutated at runtime.
type Config struct {
	ListenAddr string
	RedisURL   string

	SessionSecret      []byte
	VerificationSecret []byte
	ChallengeSecret    []byte

	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	VerificationTTL time.Duration
	ChallengeTTL    time.Duration

	// StoreTimeout bounds every revocation-store round trip. A timeout is a
	// fail-closed condition for the caller.
	StoreTimeout time.Duration

	// BlacklistEnabled gates the access-token revocation lookup on the read
	// path. Single-use consumption is atomic regardless of this flag.
	BlacklistEnabled bool
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:         getEnv("LISTEN_ADDR", DefaultListenAddr),
		RedisURL:           getEnv("REDIS_URL", DefaultRedisURL),
		SessionSecret:      []byte(os.Getenv("SESSION_SECRET")),
		VerificationSecret: []byte(os.Getenv("VERIFICATION_SECRET")),
		ChallengeSecret:    []byte(os.Getenv("CHALLENGE_SECRET")),
	}

	var err error
	if cfg.AccessTTL, err = getDuration("SESSION_ACCESS_TTL", DefaultAccessTTL); err != nil {
		return nil, err
	}
	if cfg.RefreshTTL, err = getDuration("SESSION_REFRESH_TTL", DefaultRefreshTTL); err != nil {
		return nil, err
	}
	if cfg.VerificationTTL, err = getDuration("VERIFICATION_TTL", DefaultVerificationTTL); err != nil {
		return nil, err
	}
	if cfg.ChallengeTTL, err = getDuration("CHALLENGE_TTL", DefaultChallengeTTL); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = getDuration("STORE_TIMEOUT", DefaultStoreTimeout); err != nil {
		return nil, err
	}
	if cfg.BlacklistEnabled, err = getBool("BLACKLIST_ENABLED", true); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if len(c.SessionSecret) == 0 || len(c.VerificationSecret) == 0 || len(c.ChallengeSecret) == 0 {
		return errors.New("SESSION_SECRET, VERIFICATION_SECRET and CHALLENGE_SECRET are required")
	}

	// Each token class must use an independent secret.
	if bytes.Equal(c.SessionSecret, c.VerificationSecret) ||
		bytes.Equal(c.SessionSecret, c.ChallengeSecret) ||
		bytes.Equal(c.VerificationSecret, c.ChallengeSecret) {
		return errors.New("signing secrets must be distinct per token class")
	}

	for name, ttl := range map[string]time.Duration{
		"SESSION_ACCESS_TTL":  c.AccessTTL,
		"SESSION_REFRESH_TTL": c.RefreshTTL,
		"VERIFICATION_TTL":    c.VerificationTTL,
		"CHALLENGE_TTL":       c.ChallengeTTL,
		"STORE_TIMEOUT":       c.StoreTimeout,
	} {
		if ttl <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if c.AccessTTL >= c.RefreshTTL {
		return errors.New("SESSION_ACCESS_TTL must be shorter than SESSION_REFRESH_TTL")
	}

	return nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func getDuration(name string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}

func getBool(name string, fallback bool) (bool, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return b, nil
}
