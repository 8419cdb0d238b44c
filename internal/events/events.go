// Package events keeps the viewer's copy of the event list and plans
// join-event transitions.
package events

import (
	"errors"
	"strings"
	"time"

	"f2f-dating-app/internal/models"
)

var ErrEventNotFound = errors.New("event not found")

// Board is the locally held event list, newest first. It is owned by a
// single session loop.
type Board struct {
	events []models.Event
}

func NewBoard() *Board {
	return &Board{}
}

// Replace installs the authoritative list read from the event store.
func (b *Board) Replace(events []models.Event) {
	b.events = append([]models.Event(nil), events...)
}

func (b *Board) Events() []models.Event {
	out := make([]models.Event, len(b.events))
	for i, e := range b.events {
		e.ParticipantsIDs = append([]string(nil), e.ParticipantsIDs...)
		out[i] = e
	}
	return out
}

func (b *Board) Get(id string) (models.Event, bool) {
	for _, e := range b.events {
		if e.ID == id {
			return e, true
		}
	}
	return models.Event{}, false
}

// JoinPlan describes what joining an event requires.
type JoinPlan struct {
	EventID string
	// AlreadyMember means no remote update is needed.
	AlreadyMember bool
	// Participants is the list to store remotely when AlreadyMember is false.
	Participants []string
}

// BeginJoin plans a join by viewerID. Unless the viewer is already a member,
// the viewer is appended to the local participant list right away.
func (b *Board) BeginJoin(eventID, viewerID string) (JoinPlan, error) {
	for i := range b.events {
		if b.events[i].ID != eventID {
			continue
		}
		if b.events[i].HasParticipant(viewerID) {
			return JoinPlan{EventID: eventID, AlreadyMember: true}, nil
		}
		participants := b.events[i].WithParticipant(viewerID)
		b.events[i].ParticipantsIDs = participants
		return JoinPlan{EventID: eventID, Participants: append([]string(nil), participants...)}, nil
	}
	return JoinPlan{}, ErrEventNotFound
}

// RevertJoin removes viewerID from the local participant list. It is the
// fallback when the authoritative list cannot be re-read after a rejected join.
func (b *Board) RevertJoin(eventID, viewerID string) {
	for i := range b.events {
		if b.events[i].ID == eventID {
			b.events[i].ParticipantsIDs = b.events[i].WithoutParticipant(viewerID)
			return
		}
	}
}

// IsMember reports whether viewerID takes part in eventID.
func (b *Board) IsMember(eventID, viewerID string) bool {
	ev, ok := b.Get(eventID)
	return ok && ev.HasParticipant(viewerID)
}

// CreateInput is the event-create form.
type CreateInput struct {
	Title        string    `json:"title" binding:"required" validate:"required"`
	Description  string    `json:"description"`
	Date         time.Time `json:"date" binding:"required" validate:"required"`
	LocationName string    `json:"location_name" binding:"required" validate:"required"`
	Tags         []string  `json:"tags"`
}

func (in CreateInput) Validate() error {
	return models.Validate(in)
}

// NewEvent builds the record inserted for a new event. The organizer is the
// first participant.
func NewEvent(id, organizerID string, in CreateInput) models.Event {
	return models.Event{
		ID:              id,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Date:            in.Date.UTC(),
		LocationName:    strings.TrimSpace(in.LocationName),
		OrganizerID:     organizerID,
		ParticipantsIDs: []string{organizerID},
		Tags:            models.NewTagSet(in.Tags...),
	}
}
