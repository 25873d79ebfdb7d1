package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"concord-gateway/internal/database"

	"github.com/redis/go-redis/v9"
)

// StatusStore is the fast-lookup side of presence. The durable record lives
// in postgres (users.status); this cache expires so a crashed process cannot
// strand a user "online" past the TTL.
type StatusStore struct {
	client *database.RedisClient
}

func NewStatusStore(client *database.RedisClient) *StatusStore {
	return &StatusStore{client: client}
}

func statusKey(userID uint) string {
	return fmt.Sprintf("presence:%d", userID)
}

func (s *StatusStore) SetStatus(ctx context.Context, userID uint, status string, ttl time.Duration) error {
	pipe := s.client.GetClient().Pipeline()

	pipe.Set(ctx, statusKey(userID), status, ttl)
	pipe.HSet(ctx, fmt.Sprintf("presence:%d:meta", userID), map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, fmt.Sprintf("presence:%d:meta", userID), 24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache status of user %d: %w", userID, err)
	}

	slog.Debug("Status cached", "userID", userID, "status", status)
	return nil
}

func (s *StatusStore) GetStatus(ctx context.Context, userID uint) (string, error) {
	status, err := s.client.GetClient().Get(ctx, statusKey(userID)).Result()
	if err == redis.Nil {
		return "offline", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read status of user %d: %w", userID, err)
	}
	return status, nil
}

// GetStatuses reads many users in one roundtrip (friend lists, rosters).
func (s *StatusStore) GetStatuses(ctx context.Context, userIDs []uint) (map[uint]string, error) {
	if len(userIDs) == 0 {
		return map[uint]string{}, nil
	}

	cmds, err := s.client.GetClient().Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Get(ctx, statusKey(id))
		}
		return nil
	})
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read statuses: %w", err)
	}

	statuses := make(map[uint]string, len(userIDs))
	for i, cmd := range cmds {
		val, err := cmd.(*redis.StringCmd).Result()
		if err != nil {
			statuses[userIDs[i]] = "offline"
			continue
		}
		statuses[userIDs[i]] = val
	}
	return statuses, nil
}
