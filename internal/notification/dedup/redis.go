package dedup

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"hiring-notifier/internal/common/errors"
)

const (
	keyPrefix     = "notify:dedup:"
	pendingMarker = "pending"
)

// RedisStore keeps reservations in Redis so every replica shares them.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+key, pendingMarker, ttl).Result()
	if err != nil {
		return false, nil, errors.NewDedupUnavailableError(err)
	}
	if ok {
		return true, nil, nil
	}

	val, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		// expired between SETNX and GET; report in flight
		return false, nil, nil
	}
	if err != nil {
		return false, nil, errors.NewDedupUnavailableError(err)
	}
	if string(val) == pendingMarker {
		return false, nil, nil
	}
	return false, val, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		return errors.NewDedupUnavailableError(err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return errors.NewDedupUnavailableError(err)
	}
	return nil
}
