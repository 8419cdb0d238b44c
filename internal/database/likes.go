package database

import (
	"context"
	"fmt"

	"f2f-dating-app/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LikeStore struct {
	db *gorm.DB
}

func NewLikeStore(db *gorm.DB) *LikeStore {
	return &LikeStore{db: db}
}

// Record is idempotent per liker and liked pair.
func (s *LikeStore) Record(ctx context.Context, likerID, likedID string) error {
	like := models.Like{LikerID: likerID, LikedID: likedID}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error
	if err != nil {
		return fmt.Errorf("likes.Record: %w", err)
	}
	return nil
}

// Incoming returns the ids that liked userID, oldest like first.
func (s *LikeStore) Incoming(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Like{}).
		Where("liked_id = ?", userID).
		Order("created_at ASC").
		Pluck("liker_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("likes.Incoming: %w", err)
	}
	return ids, nil
}

func (s *LikeStore) Resolve(ctx context.Context, likerID, likedID string) error {
	err := s.db.WithContext(ctx).
		Where("liker_id = ? AND liked_id = ?", likerID, likedID).
		Delete(&models.Like{}).Error
	if err != nil {
		return fmt.Errorf("likes.Resolve: %w", err)
	}
	return nil
}
