package main

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/widgetml/gatekeeper/adapters/events"
	"github.com/widgetml/gatekeeper/adapters/mail"
	"github.com/widgetml/gatekeeper/adapters/store"
	"github.com/widgetml/gatekeeper/adapters/tokenizer"
	"github.com/widgetml/gatekeeper/config"
	"github.com/widgetml/gatekeeper/service"
	"github.com/widgetml/gatekeeper/transport/http"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Parse Redis URL and create client
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}

	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to reach Redis: %v", err)
	}

	// The event publisher rides the same Redis the revocation cache uses.
	wmLogger := watermill.NewStdLogger(false, false)
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		wmLogger,
	)
	if err != nil {
		log.Fatalf("Failed to create Redis publisher: %v", err)
	}

	signer := tokenizer.NewJWTTokenizer(tokenizer.Secrets{
		Session:      cfg.SessionSecret,
		Verification: cfg.VerificationSecret,
		Challenge:    cfg.ChallengeSecret,
	})
	revocations := store.NewRedisStore(redisClient)
	eventPub := events.NewWatermillPublisher(publisher)
	mailer := mail.NewLogMailer(log)

	// The account store is an external collaborator; deployments wire their
	// own implementation here. Without one, existence checks are skipped
	// and the token payload is trusted for identity.
	sessions := service.NewSessionService(signer, revocations, nil, eventPub, log, cfg)
	verifications := service.NewVerificationService(signer, revocations, mailer, log, cfg)
	challenges := service.NewChallengeService(signer, revocations, log, cfg)
	gate := service.NewGate(sessions, verifications, log)

	handlers := http.NewAuthHandlers(sessions, verifications, challenges, nil, cfg)
	router := http.SetupRouter(handlers, gate)

	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
