package database

import (
	"context"
	"fmt"

	"f2f-dating-app/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Publisher announces stored messages to live sessions.
type Publisher interface {
	Publish(ctx context.Context, m models.Message) error
}

type MessageStore struct {
	db  *gorm.DB
	pub Publisher
	log *logrus.Entry
}

func NewMessageStore(db *gorm.DB, pub Publisher, log *logrus.Entry) *MessageStore {
	return &MessageStore{db: db, pub: pub, log: log.WithField("component", "messages")}
}

// Append stores m with the timestamp the sender assigned and then publishes
// it. A failed publish is logged; the row stays.
func (s *MessageStore) Append(ctx context.Context, m models.Message) (models.Message, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Provisional = false
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return models.Message{}, fmt.Errorf("messages.Append: %w", err)
	}
	if s.pub != nil {
		if err := s.pub.Publish(ctx, m); err != nil {
			s.log.WithError(err).WithField("message_id", m.ID).Warn("publish stored message")
		}
	}
	return m, nil
}

// ListFor returns messages sent or received by userID, oldest first.
func (s *MessageStore) ListFor(ctx context.Context, userID string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("timestamp ASC").Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("messages.ListFor: %w", err)
	}
	return msgs, nil
}
