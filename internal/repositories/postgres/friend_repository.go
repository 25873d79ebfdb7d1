package postgres

import (
	"context"
	"errors"
	"fmt"

	"concord-gateway/internal/models"

	"gorm.io/gorm"
)

var (
	ErrFriendshipExists   = errors.New("friendship already exists")
	ErrFriendshipNotFound = errors.New("friendship not found")
)

type FriendRepository struct {
	db *gorm.DB
}

func NewFriendRepository(db *gorm.DB) *FriendRepository {
	return &FriendRepository{db: db}
}

func (r *FriendRepository) CreateRequest(ctx context.Context, userID, friendID uint) (*models.Friend, error) {
	friend := &models.Friend{UserID: userID, FriendID: friendID, Status: models.FriendStatusPending}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Friend
		err := tx.Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
			userID, friendID, friendID, userID).First(&existing).Error
		if err == nil {
			return ErrFriendshipExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check friendship: %w", err)
		}
		return tx.Create(friend).Error
	})
	if err != nil {
		return nil, err
	}
	return friend, nil
}

// Accept marks the pending request sent by requesterID to userID as accepted.
func (r *FriendRepository) Accept(ctx context.Context, userID, requesterID uint) (*models.Friend, error) {
	var friend models.Friend
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND friend_id = ? AND status = ?",
			requesterID, userID, models.FriendStatusPending).First(&friend).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFriendshipNotFound
			}
			return err
		}
		friend.Status = models.FriendStatusAccepted
		return tx.Save(&friend).Error
	})
	if err != nil {
		return nil, err
	}
	return &friend, nil
}

func (r *FriendRepository) ListFriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	var friends []models.Friend
	err := r.db.WithContext(ctx).
		Where("(user_id = ? OR friend_id = ?) AND status = ?", userID, userID, models.FriendStatusAccepted).
		Find(&friends).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list friends of user %d: %w", userID, err)
	}
	ids := make([]uint, 0, len(friends))
	for _, f := range friends {
		if f.UserID == userID {
			ids = append(ids, f.FriendID)
		} else {
			ids = append(ids, f.UserID)
		}
	}
	return ids, nil
}
