package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"cf-hints/api/internal/hints"
)

// RedisStore keeps each hint set as a JSON string under hints:{id}. Keys never expire.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: rdb}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }

func redisKey(id string) string { return "hints:" + id }

func (s *RedisStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}
	n, err := s.client.Exists(ctx, redisKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Write(ctx context.Context, id string, hs hints.HintSet) error {
	if err := checkID(id); err != nil {
		return err
	}
	js, err := encode(hs, false)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKey(id), js, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Read(ctx context.Context, id string) (hints.HintSet, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	js, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return decode(js)
}
