package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"lifo-parking/internal/parking"
)

const DefaultRedisKey = "parking:state"

// RedisStore keeps the encoded snapshot under one key. SET replaces the value
// atomically.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Save(ctx context.Context, state parking.State) error {
	buf, err := EncodeBytes(state)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.key, buf, 0).Err(); err != nil {
		return fmt.Errorf("s.client.Set(%s): %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (parking.State, error) {
	buf, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return parking.State{}, ErrNoState
	}
	if err != nil {
		return parking.State{}, fmt.Errorf("s.client.Get(%s): %w", s.key, err)
	}

	return DecodeBytes(buf)
}

func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
