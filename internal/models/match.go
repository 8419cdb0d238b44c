package models

import (
	"time"
)

// Like is a one-sided like waiting for the liked profile to accept or reject it.
type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	LikerID   string    `json:"liker_id" gorm:"type:uuid;not null;uniqueIndex:ux_liker_liked"`
	LikedID   string    `json:"liked_id" gorm:"type:uuid;not null;uniqueIndex:ux_liker_liked;index"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionType string

const (
	SessionDirect SessionType = "direct"
	SessionEvent  SessionType = "event"
)

// ChatSession is a conversation thread. Direct sessions are keyed by the
// partner's profile id, event sessions by the event id.
type ChatSession struct {
	ID       string      `json:"id"`
	Type     SessionType `json:"type"`
	EventID  string      `json:"event_id,omitempty"`
	Messages []Message   `json:"messages"`
	Unread   int         `json:"unread"`
}

// LastMessage returns the newest message, if any.
func (s ChatSession) LastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	m := s.Messages[len(s.Messages)-1]
	return &m
}

type Message struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid"`
	SenderID      string    `json:"sender_id" gorm:"type:uuid;not null;index"`
	ReceiverID    string    `json:"receiver_id" gorm:"not null;index"`
	EventID       string    `json:"event_id,omitempty" gorm:"index"`
	Text          string    `json:"text"`
	Timestamp     int64     `json:"timestamp" gorm:"not null;index"` // epoch milliseconds
	IsAIGenerated bool      `json:"is_ai_generated,omitempty" gorm:"default:false"`
	Provisional   bool      `json:"provisional,omitempty" gorm:"-"`
	CreatedAt     time.Time `json:"-"`
}

// DedupKey identifies one logical message across the optimistic and the
// confirmed delivery paths.
type DedupKey struct {
	SenderID  string
	Timestamp int64
}

func (m Message) DedupKey() DedupKey {
	return DedupKey{SenderID: m.SenderID, Timestamp: m.Timestamp}
}

// Partner returns the other participant of a direct message from viewerID's side.
func (m Message) Partner(viewerID string) string {
	if m.SenderID == viewerID {
		return m.ReceiverID
	}
	return m.SenderID
}
