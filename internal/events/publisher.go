// Package events publishes marketplace events to NATS and Redis subscribers.
// Delivery is best effort: publishing failures are reported to the caller, which logs them.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/medlink-api/internal/observability"
)

// Event types emitted by the services.
const (
	TypeUserRegistered     = "user.registered"
	TypeUserBlocked        = "user.blocked"
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
	TypeResponseCreated    = "response.created"
	TypeResponseAccepted   = "response.accepted"
	TypeReviewCreated      = "review.created"
	TypeChatMessageSent    = "chat.message_sent"
)

// Event is the envelope written to every transport.
type Event struct {
	ID            string                 `json:"id"`
	Type          string                 `json:"type"`
	OccurredAt    time.Time              `json:"occurred_at"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
}

// Publisher emits marketplace events.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload map[string]interface{}) error
}

type busPublisher struct {
	nats    *nats.Conn
	redis   *redis.Client
	subject string
	channel string
	logger  zerolog.Logger
	now     func() time.Time
}

// NewPublisher builds a publisher writing to whichever transports are configured.
// It returns a no-op publisher when both are nil.
func NewPublisher(natsConn *nats.Conn, redisClient *redis.Client, channel string, logger zerolog.Logger) Publisher {
	if natsConn == nil && redisClient == nil {
		return NopPublisher{}
	}

	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "medlink"
	}

	return &busPublisher{
		nats:    natsConn,
		redis:   redisClient,
		subject: strings.ReplaceAll(channel, ":", "."),
		channel: channel + ":events",
		logger:  logger.With().Str("component", "event_publisher").Logger(),
		now:     time.Now,
	}
}

func (p *busPublisher) Publish(ctx context.Context, eventType string, payload map[string]interface{}) error {
	event := Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		OccurredAt:    p.now().UTC(),
		CorrelationID: observability.CorrelationID(ctx),
		Payload:       payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", eventType, err)
	}

	var errs []error
	if p.nats != nil {
		msg := nats.NewMsg(p.subject + "." + eventType)
		msg.Data = data
		msg.Header.Set("Nats-Msg-Id", event.ID)
		if event.CorrelationID != "" {
			msg.Header.Set("X-Correlation-ID", event.CorrelationID)
		}
		if err := p.nats.PublishMsg(msg); err != nil {
			errs = append(errs, fmt.Errorf("nats publish: %w", err))
		}
	}
	if p.redis != nil {
		if err := p.redis.Publish(ctx, p.channel, data).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis publish: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	p.logger.Debug().Str("event_id", event.ID).Str("type", eventType).Msg("event published")
	return nil
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, map[string]interface{}) error {
	return nil
}
