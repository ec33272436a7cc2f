package sessions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sfbridge/sfbridge/internal/errors"
)

const redisKeyPrefix = "sfbridge:session:"

// RedisRepo is the durable session store. Expiry is delegated to Redis TTLs,
// refreshed on every Save.
type RedisRepo struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRepo(client *redis.Client, ttl time.Duration) *RedisRepo {
	return &RedisRepo{client: client, ttl: ttl}
}

func (r *RedisRepo) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, errors.ErrSessionNotFound
	}

	raw, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.ErrSessionNotFound
		}
		return nil, errors.Wrapf(errors.ErrSessionPersistence, "get session: %v", err)
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, errors.Wrapf(errors.ErrSessionPersistence, "decode session: %v", err)
	}
	if session.IsExpired() {
		_ = r.client.Del(ctx, redisKeyPrefix+id).Err()
		return nil, errors.ErrSessionNotFound
	}
	return &session, nil
}

func (r *RedisRepo) Save(ctx context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return errors.Wrapf(errors.ErrSessionPersistence, "session id is required")
	}
	session.ExpiresAt = time.Now().Add(r.ttl)

	raw, err := json.Marshal(session)
	if err != nil {
		return errors.Wrapf(errors.ErrSessionPersistence, "encode session: %v", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+session.ID, raw, r.ttl).Err(); err != nil {
		return errors.Wrapf(errors.ErrSessionPersistence, "save session: %v", err)
	}
	return nil
}

func (r *RedisRepo) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return errors.Wrapf(errors.ErrSessionPersistence, "delete session: %v", err)
	}
	return nil
}

func (r *RedisRepo) Kind() string { return "redis" }

func (r *RedisRepo) Close() error { return r.client.Close() }
