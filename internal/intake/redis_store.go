package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions as JSON values whose key TTL is refreshed on every save, so abandoned
// sessions expire without a sweeper and survive process restarts.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets the expiration for sessions.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a store from an existing client.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{client: client, prefix: "marketplace:"}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *RedisStore) key(userID int64) string {
	return s.prefix + "intake:" + strconv.FormatInt(userID, 10)
}

func (s *RedisStore) Load(ctx context.Context, userID int64) (*Session, error) {
	val, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("load intake session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(val, &session); err != nil {
		return nil, fmt.Errorf("decode intake session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode intake session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save intake session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}
