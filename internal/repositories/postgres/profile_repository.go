package postgres

import (
	"context"
	"errors"
	"fmt"

	"concord-gateway/internal/models"

	"gorm.io/gorm"
)

var ErrChannelWithoutServer = errors.New("channel has no owning server")

// ProfileRepository answers the lookups the realtime core needs: public
// profiles, server memberships and channel ownership. It also carries the
// durable side of presence (users.status).
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetPublicProfile(ctx context.Context, userID uint) (*models.PublicProfile, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return user.PublicProfile(), nil
}

func (r *ProfileRepository) GetServerMembershipsOf(ctx context.Context, userID uint) ([]uint, error) {
	var serverIDs []uint
	err := r.db.WithContext(ctx).
		Table("server_members").
		Where("user_id = ?", userID).
		Pluck("server_id", &serverIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load memberships of user %d: %w", userID, err)
	}
	return serverIDs, nil
}

func (r *ProfileRepository) GetServerIDForChannel(ctx context.Context, channelID uint) (uint, error) {
	var channel models.Channel
	err := r.db.WithContext(ctx).Select("server_id").First(&channel, channelID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrChannelWithoutServer
		}
		return 0, fmt.Errorf("failed to load channel %d: %w", channelID, err)
	}
	if channel.ServerID == 0 {
		return 0, ErrChannelWithoutServer
	}
	return channel.ServerID, nil
}

func (r *ProfileRepository) UpdateStatus(ctx context.Context, userID uint, status string) error {
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("failed to persist status of user %d: %w", userID, err)
	}
	return nil
}
