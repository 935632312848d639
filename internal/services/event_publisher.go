package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"offer-moderation/internal/models"
	"offer-moderation/pkg/cache"
	"offer-moderation/pkg/logger"
	"offer-moderation/pkg/metrics"
	"offer-moderation/pkg/websocket"
)

// EventPublisher delivers moderation events after a transition commits.
// Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, event *models.ModerationEvent) error
}

type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(context.Context, *models.ModerationEvent) error { return nil }

// RedisEventPublisher fans events out to every instance through pub/sub.
type RedisEventPublisher struct {
	cache   *cache.RedisCache
	channel string
}

func NewRedisEventPublisher(cache *cache.RedisCache, channel string) *RedisEventPublisher {
	return &RedisEventPublisher{cache: cache, channel: channel}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, event *models.ModerationEvent) error {
	if err := p.cache.Publish(ctx, p.channel, event); err != nil {
		metrics.EventPublishFailuresTotal.WithLabelValues("redis").Inc()
		return fmt.Errorf("failed to publish moderation event: %w", err)
	}
	return nil
}

// HubEventPublisher pushes events straight to the moderators connected to
// this instance.
type HubEventPublisher struct {
	hub *websocket.Hub
}

func NewHubEventPublisher(hub *websocket.Hub) *HubEventPublisher {
	return &HubEventPublisher{hub: hub}
}

func (p *HubEventPublisher) Publish(_ context.Context, event *models.ModerationEvent) error {
	err := p.hub.Broadcast(websocket.Message{
		Type:      string(event.Type),
		RoomID:    websocket.RoomModerators,
		UserID:    event.ActorID,
		Timestamp: event.OccurredAt.Unix(),
		Data:      event,
	})
	if err != nil {
		metrics.EventPublishFailuresTotal.WithLabelValues("websocket").Inc()
		return fmt.Errorf("failed to broadcast moderation event: %w", err)
	}
	return nil
}

// MultiEventPublisher publishes to every sink and reports all failures.
type MultiEventPublisher []EventPublisher

func (m MultiEventPublisher) Publish(ctx context.Context, event *models.ModerationEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RelayModerationEvents forwards events published on channel by any instance
// to the local websocket hub. It returns when ctx is cancelled.
func RelayModerationEvents(ctx context.Context, redis *cache.RedisCache, channel string, hub *websocket.Hub, log *logger.Logger) error {
	pubsub := redis.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	local := NewHubEventPublisher(hub)
	messages := pubsub.Channel()
	log = log.WithField("channel", channel)
	log.Info("Moderation event relay started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Moderation event relay stopped")
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event models.ModerationEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.WithError(err).Warn("Dropping malformed moderation event")
				continue
			}
			if err := local.Publish(ctx, &event); err != nil {
				log.WithError(err).Warn("Failed to forward moderation event")
			}
		}
	}
}
