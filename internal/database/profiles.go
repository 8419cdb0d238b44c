package database

import (
	"context"
	"fmt"
	"strings"

	"f2f-dating-app/internal/models"

	"gorm.io/gorm"
)

type ProfileStore struct {
	db *gorm.DB
}

func NewProfileStore(db *gorm.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) Create(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("profiles.Create: %w", err)
	}
	return nil
}

func (s *ProfileStore) Get(ctx context.Context, id string) (models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return models.User{}, fmt.Errorf("profiles.Get: %w", notFound(err))
	}
	return u, nil
}

func (s *ProfileStore) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return models.User{}, fmt.Errorf("profiles.FindByEmail: %w", notFound(err))
	}
	return u, nil
}

// ListExcept returns every profile but id, oldest first.
func (s *ProfileStore) ListExcept(ctx context.Context, id string) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Where("id <> ?", id).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("profiles.ListExcept: %w", err)
	}
	return users, nil
}

// Update writes the editable profile fields.
func (s *ProfileStore) Update(ctx context.Context, u models.User) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", u.ID).Updates(map[string]interface{}{
		"full_name":  u.Name,
		"age":        u.Age,
		"bio":        u.Bio,
		"interests":  u.Interests,
		"avatar_url": u.PhotoURL,
		"city":       u.City,
		"latitude":   u.Latitude,
		"longitude":  u.Longitude,
	})
	if res.Error != nil {
		return fmt.Errorf("profiles.Update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("profiles.Update: %w", ErrNotFound)
	}
	return nil
}

func (s *ProfileStore) UpdateLocation(ctx context.Context, id string, lat, lng float64) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"latitude":  lat,
		"longitude": lng,
	}).Error
	if err != nil {
		return fmt.Errorf("profiles.UpdateLocation: %w", err)
	}
	return nil
}

func (s *ProfileStore) SetPushToken(ctx context.Context, id, token string) error {
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("push_token", token).Error; err != nil {
		return fmt.Errorf("profiles.SetPushToken: %w", err)
	}
	return nil
}

// PushToken returns the device token of id, empty when none is registered.
func (s *ProfileStore) PushToken(ctx context.Context, id string) (string, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Select("push_token").Where("id = ?", id).First(&u).Error; err != nil {
		return "", fmt.Errorf("profiles.PushToken: %w", notFound(err))
	}
	return u.PushToken, nil
}
