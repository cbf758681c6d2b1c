package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/widgetml/gatekeeper/core"
	"github.com/widgetml/gatekeeper/ports"
)

const (
	// TopicLogout carries explicit session terminations.
	TopicLogout = "gatekeeper.logout"

	// TopicTokenReuse carries replays of rotated refresh tokens, which are
	// treated as evidence of a stolen token.
	TopicTokenReuse = "gatekeeper.token_reuse"
)

// SecurityEvent is the wire payload for both topics
type SecurityEvent struct {
	Identity core.Identity `json:"identity"`
	TokenID  string        `json:"token_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, identity core.Identity, tokenID string) error {
	return p.publish(TopicLogout, identity, tokenID)
}

// PublishTokenReuse publishes a refresh-token replay event
func (p *WatermillPublisher) PublishTokenReuse(ctx context.Context, identity core.Identity, tokenID string) error {
	return p.publish(TopicTokenReuse, identity, tokenID)
}

func (p *WatermillPublisher) publish(topic string, identity core.Identity, tokenID string) error {
	event := SecurityEvent{
		Identity: identity,
		TokenID:  tokenID,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(tokenID, payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
