// Package chat holds the viewer's conversation threads: direct sessions keyed
// by partner id and event sessions keyed by event id.
//
// Messages inside a session are kept in non-decreasing timestamp order, so the
// last element is always the newest message. Local sends are appended as
// provisional messages and later confirmed in place; messages delivered by the
// remote feed are de-duplicated by models.DedupKey.
//
// Store is not safe for concurrent use. It is owned by a single session loop.
package chat

import (
	"errors"
	"sort"
	"strings"

	"f2f-dating-app/internal/models"
)

var (
	ErrSessionNotFound = errors.New("chat session not found")
	ErrNoActiveSession = errors.New("no active chat session")
	ErrEmptyMessage    = errors.New("message text is empty")
)

type Store struct {
	sessions map[string]*models.ChatSession
	// order lists session ids newest-created first.
	order  []string
	active string
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*models.ChatSession)}
}

func (s *Store) Exists(id string) bool {
	_, ok := s.sessions[id]
	return ok
}

// Ensure creates an empty session for id unless one exists. It reports
// whether a session was created.
func (s *Store) Ensure(id string, typ models.SessionType, eventID string) bool {
	if s.Exists(id) {
		return false
	}
	if typ == models.SessionEvent && eventID == "" {
		eventID = id
	}
	s.sessions[id] = &models.ChatSession{ID: id, Type: typ, EventID: eventID, Messages: []models.Message{}}
	s.order = append([]string{id}, s.order...)
	return true
}

// Get returns a copy of the session.
func (s *Store) Get(id string) (models.ChatSession, bool) {
	cs, ok := s.sessions[id]
	if !ok {
		return models.ChatSession{}, false
	}
	return clone(cs), true
}

// Sessions returns copies of all sessions, newest-created first.
func (s *Store) Sessions() []models.ChatSession {
	out := make([]models.ChatSession, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, clone(s.sessions[id]))
	}
	return out
}

func (s *Store) Active() string {
	return s.active
}

// SetActive opens a session. Its unread counter drops to zero.
func (s *Store) SetActive(id string) error {
	cs, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	cs.Unread = 0
	s.active = id
	return nil
}

func (s *Store) ClearActive() {
	s.active = ""
}

func (s *Store) TotalUnread() int {
	n := 0
	for _, cs := range s.sessions {
		n += cs.Unread
	}
	return n
}

// AppendLocal adds the viewer's own message to the active session as a
// provisional message and returns it.
func (s *Store) AppendLocal(senderID, text, provisionalID string, nowMillis int64) (models.Message, error) {
	if s.active == "" {
		return models.Message{}, ErrNoActiveSession
	}
	if strings.TrimSpace(text) == "" {
		return models.Message{}, ErrEmptyMessage
	}
	cs, ok := s.sessions[s.active]
	if !ok {
		return models.Message{}, ErrSessionNotFound
	}

	if last := cs.LastMessage(); last != nil && last.Timestamp > nowMillis {
		nowMillis = last.Timestamp
	}
	msg := models.Message{
		ID:          provisionalID,
		SenderID:    senderID,
		ReceiverID:  cs.ID,
		Text:        text,
		Timestamp:   nowMillis,
		Provisional: true,
	}
	if cs.Type == models.SessionEvent {
		msg.EventID = cs.EventID
	}
	cs.Messages = append(cs.Messages, msg)
	return msg, nil
}

// Confirm replaces a provisional message with the stored one. The message
// keeps its position. It reports whether the provisional message was found.
func (s *Store) Confirm(sessionID, provisionalID string, confirmed models.Message) bool {
	cs, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	for i := range cs.Messages {
		if cs.Messages[i].ID == provisionalID && cs.Messages[i].Provisional {
			confirmed.Provisional = false
			confirmed.Timestamp = cs.Messages[i].Timestamp
			cs.Messages[i] = confirmed
			return true
		}
	}
	return false
}

// ApplyInbound merges a message delivered by the remote feed into the session
// sessionID, creating the session if needed. Duplicates are ignored. The
// unread counter grows only when the session is not the active one.
func (s *Store) ApplyInbound(sessionID string, typ models.SessionType, msg models.Message) bool {
	cs, ok := s.sessions[sessionID]
	if !ok {
		s.Ensure(sessionID, typ, msg.EventID)
		cs = s.sessions[sessionID]
	}

	key := msg.DedupKey()
	for _, m := range cs.Messages {
		if m.DedupKey() == key || (msg.ID != "" && m.ID == msg.ID) {
			return false
		}
	}

	msg.Provisional = false
	insert(cs, msg)
	if s.active != sessionID {
		cs.Unread++
	}
	return true
}

// LoadHistory rebuilds direct sessions from stored messages where viewerID is
// sender or receiver. Sessions for partners present in msgs are replaced;
// others are kept.
func (s *Store) LoadHistory(viewerID string, msgs []models.Message) {
	loaded := make(map[string]*models.ChatSession)
	var order []string
	for _, m := range msgs {
		if m.EventID != "" {
			continue
		}
		partner := m.Partner(viewerID)
		cs, ok := loaded[partner]
		if !ok {
			cs = &models.ChatSession{ID: partner, Type: models.SessionDirect, Messages: []models.Message{}}
			loaded[partner] = cs
			order = append(order, partner)
		}
		insert(cs, m)
	}
	if len(loaded) == 0 {
		return
	}

	kept := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if _, replaced := loaded[id]; !replaced {
			kept = append(kept, id)
		}
	}
	for id, cs := range loaded {
		s.sessions[id] = cs
	}
	s.order = append(kept, order...)
}

// insert places msg after every message with a timestamp not greater than its own.
func insert(cs *models.ChatSession, msg models.Message) {
	i := sort.Search(len(cs.Messages), func(i int) bool {
		return cs.Messages[i].Timestamp > msg.Timestamp
	})
	cs.Messages = append(cs.Messages, models.Message{})
	copy(cs.Messages[i+1:], cs.Messages[i:])
	cs.Messages[i] = msg
}

func clone(cs *models.ChatSession) models.ChatSession {
	out := *cs
	out.Messages = append([]models.Message(nil), cs.Messages...)
	if out.Messages == nil {
		out.Messages = []models.Message{}
	}
	return out
}
