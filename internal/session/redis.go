package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	legalerrors "legal-rag-service/internal/errors"
	"legal-rag-service/internal/logging"
)

const redisKeyPrefix = "legal:session:"

// RedisStore persists sessions as JSON values with the inactivity window as
// the key TTL, refreshed on every write. Expiry is then enforced by Redis
// itself.
type RedisStore struct {
	client *redis.Client
	window time.Duration
	logger logging.Logger
}

// NewRedisStore connects to redisURL and verifies the connection with a ping
func NewRedisStore(ctx context.Context, redisURL string, window time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, legalerrors.NewSessionError("invalid redis url", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, legalerrors.NewSessionError("redis unreachable", err)
	}

	return &RedisStore{
		client: client,
		window: window,
		logger: logging.WithComponent("session-store"),
	}, nil
}

func (rs *RedisStore) key(id string) string {
	return redisKeyPrefix + id
}

func (rs *RedisStore) Create(ctx context.Context, id string) (*Session, error) {
	session := NewSession(id)
	if err := rs.write(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (rs *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := rs.client.Get(ctx, rs.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, legalerrors.NewSessionError("failed to load session", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		// A corrupt value is unrecoverable; drop it so the caller gets a
		// fresh session instead of a permanent failure.
		rs.logger.Warn("Corrupt session value dropped", "session_id", id, "error", err)
		_ = rs.client.Del(ctx, rs.key(id)).Err()
		return nil, nil
	}
	return &session, nil
}

func (rs *RedisStore) Update(ctx context.Context, session *Session) error {
	if session == nil || session.SessionID == "" {
		return legalerrors.NewSessionError("cannot update session without id", nil)
	}
	return rs.write(ctx, session)
}

func (rs *RedisStore) Delete(ctx context.Context, id string) error {
	if err := rs.client.Del(ctx, rs.key(id)).Err(); err != nil {
		return legalerrors.NewSessionError("failed to delete session", err)
	}
	return nil
}

func (rs *RedisStore) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := rs.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(redisKeyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, legalerrors.NewSessionError("failed to list sessions", err)
	}
	return ids, nil
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

func (rs *RedisStore) write(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return legalerrors.NewSessionError("failed to encode session", err)
	}
	if err := rs.client.Set(ctx, rs.key(session.SessionID), data, rs.window).Err(); err != nil {
		return legalerrors.NewSessionError("failed to store session", err)
	}
	return nil
}
