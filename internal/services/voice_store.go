package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"concord-gateway/internal/database"
)

// VoiceStore persists voice-channel membership keyed by user, with a sliding
// expiry so state survives a process restart for a bounded window. Membership
// is per-user: a user with two connections in the same voice channel still
// occupies a single entry.
type VoiceStore struct {
	client *database.RedisClient
}

func NewVoiceStore(client *database.RedisClient) *VoiceStore {
	return &VoiceStore{client: client}
}

func voiceKey(channelID uint) string {
	return fmt.Sprintf("voice:%d:members", channelID)
}

func (s *VoiceStore) AddMember(ctx context.Context, channelID, userID uint, ttl time.Duration) error {
	pipe := s.client.GetClient().Pipeline()
	pipe.SAdd(ctx, voiceKey(channelID), userID)
	pipe.Expire(ctx, voiceKey(channelID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to persist voice membership %d/%d: %w", channelID, userID, err)
	}
	slog.Debug("Voice membership persisted", "channelID", channelID, "userID", userID)
	return nil
}

func (s *VoiceStore) RemoveMember(ctx context.Context, channelID, userID uint) error {
	if err := s.client.GetClient().SRem(ctx, voiceKey(channelID), userID).Err(); err != nil {
		return fmt.Errorf("failed to remove voice membership %d/%d: %w", channelID, userID, err)
	}
	slog.Debug("Voice membership removed", "channelID", channelID, "userID", userID)
	return nil
}

func (s *VoiceStore) ListMembers(ctx context.Context, channelID uint) ([]uint, error) {
	members, err := s.client.GetClient().SMembers(ctx, voiceKey(channelID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list voice members of channel %d: %w", channelID, err)
	}
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// Refresh extends the expiry of a channel's membership set; called on
// heartbeat-driven activity so the TTL stays sliding.
func (s *VoiceStore) Refresh(ctx context.Context, channelID uint, ttl time.Duration) error {
	return s.client.GetClient().Expire(ctx, voiceKey(channelID), ttl).Err()
}
