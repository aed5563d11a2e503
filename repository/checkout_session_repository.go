package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tomjwalt/subterrain1/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CheckoutSessionRepository stores ephemeral checkout sessions. Sessions expire
// on their own; Delete is called on successful payment redirect or explicit exit.
type CheckoutSessionRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error)
	Save(ctx context.Context, session *models.CheckoutSession) error
	Delete(ctx context.Context, id uuid.UUID) error

	// AcquireSubmitLock guards against concurrent re-entry (double-click
	// "continue to payment") while an issuance request is outstanding.
	AcquireSubmitLock(ctx context.Context, id uuid.UUID) (bool, error)
	ReleaseSubmitLock(ctx context.Context, id uuid.UUID) error
}

type redisCheckoutSessionRepo struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewCheckoutSessionRepository(client *redis.Client, ttl time.Duration) CheckoutSessionRepository {
	return &redisCheckoutSessionRepo{
		client:  client,
		ttl:     ttl,
		lockTTL: 30 * time.Second,
	}
}

func (r *redisCheckoutSessionRepo) getKey(id uuid.UUID) string {
	return fmt.Sprintf("checkout:session:%s", id)
}

func (r *redisCheckoutSessionRepo) getLockKey(id uuid.UUID) string {
	return fmt.Sprintf("checkout:lock:%s", id)
}

func (r *redisCheckoutSessionRepo) Get(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error) {
	data, err := r.client.Get(ctx, r.getKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session models.CheckoutSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *redisCheckoutSessionRepo) Save(ctx context.Context, session *models.CheckoutSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.getKey(session.ID), data, r.ttl).Err()
}

func (r *redisCheckoutSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.client.Del(ctx, r.getKey(id)).Err()
}

func (r *redisCheckoutSessionRepo) AcquireSubmitLock(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.client.SetNX(ctx, r.getLockKey(id), 1, r.lockTTL).Result()
}

func (r *redisCheckoutSessionRepo) ReleaseSubmitLock(ctx context.Context, id uuid.UUID) error {
	return r.client.Del(ctx, r.getLockKey(id)).Err()
}
