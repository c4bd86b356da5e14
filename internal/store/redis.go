package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/giantroach/Mistvoyage-sub000/internal/game"
)

const redisKeyPrefix = "mistvoyage:save:"

// RedisStore keeps each slot under its own key.
type RedisStore struct {
	client *redis.Client
}

// OpenRedis connects to addr and verifies the connection.
func OpenRedis(ctx context.Context, addr string) (*RedisStore, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) key(slot string) string {
	return redisKeyPrefix + SanitizeSlot(slot)
}

func (s *RedisStore) Save(ctx context.Context, slot string, snap game.Snapshot) error {
	payload, err := encode(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(slot), payload, 0).Err()
}

func (s *RedisStore) Load(ctx context.Context, slot string) (game.Snapshot, error) {
	payload, err := s.client.Get(ctx, s.key(slot)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return game.Snapshot{}, ErrNotFound
		}
		return game.Snapshot{}, err
	}
	return decode(payload)
}

func (s *RedisStore) Delete(ctx context.Context, slot string) error {
	return s.client.Del(ctx, s.key(slot)).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }
