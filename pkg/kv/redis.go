package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RedisStore keeps each namespace in a hash named <prefix>:<namespace>.
type RedisStore struct {
	logger *zap.Logger
	client *redis.Client
	prefix string
}

func NewRedisStore(logger *zap.Logger, config *Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	return &RedisStore{
		logger: logger.Named("redis-store"),
		client: client,
		prefix: config.GetRedisPrefix(),
	}, nil
}

func (s *RedisStore) Start(ctx context.Context, g *errgroup.Group) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	s.logger.Info("connected", zap.String("addr", s.client.Options().Addr))

	g.Go(func() error {
		<-ctx.Done()
		return s.client.Close()
	})
	return nil
}

func (s *RedisStore) hash(ns Namespace) string {
	return fmt.Sprintf("%s:%s", s.prefix, ns)
}

func (s *RedisStore) Get(ctx context.Context, ns Namespace, key string) (string, error) {
	value, err := s.client.HGet(ctx, s.hash(ns), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return value, err
}

func (s *RedisStore) Set(ctx context.Context, ns Namespace, key string, value string) error {
	return s.client.HSet(ctx, s.hash(ns), key, value).Err()
}

func (s *RedisStore) Delete(ctx context.Context, ns Namespace, key string) error {
	return s.client.HDel(ctx, s.hash(ns), key).Err()
}

func (s *RedisStore) Keys(ctx context.Context, ns Namespace) ([]string, error) {
	keys, err := s.client.HKeys(ctx, s.hash(ns)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}
