package session

import "f2f-dating-app/internal/models"

type MatchPayload struct {
	User   models.User   `json:"user"`
	Common models.TagSet `json:"common"`
}

type UserPayload struct {
	UserID string `json:"user_id"`
}

type OpenSessionPayload struct {
	SessionID string             `json:"session_id"`
	Type      models.SessionType `json:"type"`
}

type FailurePayload struct {
	SessionID string `json:"session_id,omitempty"`
	EventID   string `json:"event_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error"`
}

type MessagePayload struct {
	SessionID   string         `json:"session_id"`
	Message     models.Message `json:"message"`
	Unread      int            `json:"unread"`
	TotalUnread int            `json:"total_unread"`
}

type PresencePayload struct {
	Online []string `json:"online"`
}

type TypingPayload struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Typing    bool   `json:"typing"`
}
