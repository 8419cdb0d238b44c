package database

import (
	"context"
	"fmt"

	"f2f-dating-app/internal/models"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type EventStore struct {
	db *gorm.DB
}

func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

// List returns all events, newest first.
func (s *EventStore) List(ctx context.Context) ([]models.Event, error) {
	var list []models.Event
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("events.List: %w", err)
	}
	return list, nil
}

func (s *EventStore) Create(ctx context.Context, e models.Event) error {
	if err := s.db.WithContext(ctx).Create(&e).Error; err != nil {
		return fmt.Errorf("events.Create: %w", err)
	}
	return nil
}

func (s *EventStore) UpdateParticipants(ctx context.Context, eventID string, participants []string) error {
	res := s.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", eventID).
		Update("participants_ids", pq.StringArray(participants))
	if res.Error != nil {
		return fmt.Errorf("events.UpdateParticipants: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("events.UpdateParticipants: %w", ErrNotFound)
	}
	return nil
}
