package postgres

import (
	"context"
	"errors"
	"fmt"

	"concord-gateway/internal/models"

	"gorm.io/gorm"
)

var ErrNotMessageOwner = errors.New("message belongs to another user")

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *MessageRepository) Update(ctx context.Context, messageID, userID uint, text string) (*models.Message, error) {
	var msg models.Message
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&msg, messageID).Error; err != nil {
			return err
		}
		if msg.UserID != userID {
			return ErrNotMessageOwner
		}
		msg.Text = text
		return tx.Save(&msg).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepository) Delete(ctx context.Context, messageID, userID uint) (*models.Message, error) {
	var msg models.Message
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&msg, messageID).Error; err != nil {
			return err
		}
		if msg.UserID != userID {
			return ErrNotMessageOwner
		}
		return tx.Delete(&msg).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepository) ListByChannel(ctx context.Context, channelID uint, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages of channel %d: %w", channelID, err)
	}
	return msgs, nil
}

func (r *MessageRepository) CreateDirect(ctx context.Context, msg *models.DirectMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create direct message: %w", err)
	}
	return nil
}
