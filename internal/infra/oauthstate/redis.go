package oauthstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mentora/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "mentora:oauth_state:"

type redisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) (domain.OAuthStateStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &redisStore{client: client}, nil
}

func (r *redisStore) Put(ctx context.Context, state, userID string, ttl time.Duration) error {
	if state == "" || userID == "" {
		return domain.ErrInvalidArgument
	}
	ok, err := r.client.SetNX(ctx, keyPrefix+state, userID, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return errors.New("oauth state collision")
	}
	return nil
}

// Consume uses GETDEL so a state can be redeemed at most once.
func (r *redisStore) Consume(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", domain.ErrInvalidState
	}
	userID, err := r.client.GetDel(ctx, keyPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrInvalidState
	}
	if err != nil {
		return "", fmt.Errorf("redis getdel: %w", err)
	}
	return userID, nil
}
