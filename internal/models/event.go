package models

import (
	"time"

	"github.com/lib/pq"
)

type Event struct {
	ID              string         `json:"id" gorm:"primaryKey;type:uuid"`
	Title           string         `json:"title" gorm:"not null"`
	Description     string         `json:"description"`
	Date            time.Time      `json:"date" gorm:"not null"`
	LocationName    string         `json:"location_name" gorm:"not null"`
	OrganizerID     string         `json:"organizer_id" gorm:"type:uuid;not null"`
	ParticipantsIDs pq.StringArray `json:"participants_ids" gorm:"type:text[]"`
	Tags            TagSet         `json:"tags" gorm:"type:text"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (e Event) HasParticipant(userID string) bool {
	for _, id := range e.ParticipantsIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// WithParticipant returns a copy of the participant list with userID appended
// once. Membership is at-most-once.
func (e Event) WithParticipant(userID string) []string {
	out := make([]string, 0, len(e.ParticipantsIDs)+1)
	out = append(out, e.ParticipantsIDs...)
	if !e.HasParticipant(userID) {
		out = append(out, userID)
	}
	return out
}

// WithoutParticipant returns a copy of the participant list without userID.
func (e Event) WithoutParticipant(userID string) []string {
	out := make([]string, 0, len(e.ParticipantsIDs))
	for _, id := range e.ParticipantsIDs {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}
