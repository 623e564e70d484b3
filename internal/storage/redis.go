package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jbownzino/hoopwatch/pkg/detection"
	"github.com/jbownzino/hoopwatch/pkg/session"
)

const sessionTTL = time.Hour

// RedisStorage implements the Storage interface using Redis for sessions
// and their detection records
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL string, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	return &RedisStorage{
		client: rdb,
		logger: logger,
	}
}

func sessionKey(id uuid.UUID) string {
	return "session:" + id.String()
}

func detectionsKey(id uuid.UUID) string {
	return "detections:" + id.String()
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	cmd := r.client.Ping(ctx)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(time.Second),
		backoff.WithMaxInterval(10*time.Second),
		backoff.WithMaxElapsedTime(time.Minute),
	), ctx)

	err := backoff.Retry(func() error {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err)
			return err
		}
		return nil
	}, policy)
	if err != nil {
		return fmt.Errorf("redis did not become available: %w", err)
	}

	r.logger.Info("Redis connection established")
	return nil
}

// GetClient exposes the underlying client for pub/sub and queue reuse
func (r *RedisStorage) GetClient() *redis.Client {
	return r.client
}

func (r *RedisStorage) SaveSession(ctx context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		r.logger.Error("Failed to marshal session", "session_id", s.ID, "error", err)
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(s.ID), string(data), sessionTTL).Err(); err != nil {
		r.logger.Error("Failed to save session", "session_id", s.ID, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadSession(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	cmd := r.client.Get(ctx, sessionKey(id))
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Warn("Session not found", "session_id", id)
			return nil, nil // Return nil for not found
		}
		r.logger.Error("Failed to load session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var s session.Session
	if err := json.Unmarshal([]byte(cmd.Val()), &s); err != nil {
		r.logger.Error("Failed to unmarshal session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *RedisStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, sessionKey(id), detectionsKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete session", "session_id", id, "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *RedisStorage) AppendDetection(ctx context.Context, id uuid.UUID, rec detection.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal detection: %w", err)
	}

	key := detectionsKey(id)
	if err := r.client.RPush(ctx, key, string(data)).Err(); err != nil {
		r.logger.Error("Failed to append detection", "session_id", id, "error", err)
		return fmt.Errorf("failed to append detection: %w", err)
	}
	// Detections share the session's lifetime.
	if err := r.client.Expire(ctx, key, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to set detection TTL: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListDetections(ctx context.Context, id uuid.UUID) ([]detection.Record, error) {
	items, err := r.client.LRange(ctx, detectionsKey(id), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.logger.Error("Failed to list detections", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to list detections: %w", err)
	}

	records := make([]detection.Record, 0, len(items))
	for _, item := range items {
		var rec detection.Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal detection: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}
