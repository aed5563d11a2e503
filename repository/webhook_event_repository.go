package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// WebhookEventRepository deduplicates provider webhook deliveries. Stripe
// delivers events at-least-once, so the same event id may arrive more than
// once; the seen-set ensures the confirmation email is sent a single time.
type WebhookEventRepository interface {
	// MarkSeen records the event id and reports whether this is the first
	// delivery.
	MarkSeen(ctx context.Context, eventID string) (bool, error)
}

type redisWebhookEventRepo struct {
	client *redis.Client
	ttl    time.Duration
}

func NewWebhookEventRepository(client *redis.Client, ttl time.Duration) WebhookEventRepository {
	return &redisWebhookEventRepo{client: client, ttl: ttl}
}

func (r *redisWebhookEventRepo) getKey(eventID string) string {
	return "stripe:event:" + eventID
}

func (r *redisWebhookEventRepo) MarkSeen(ctx context.Context, eventID string) (bool, error) {
	return r.client.SetNX(ctx, r.getKey(eventID), 1, r.ttl).Result()
}
