package session

import (
	"context"
	"errors"

	"f2f-dating-app/internal/chat"
	"f2f-dating-app/internal/models"
	"f2f-dating-app/internal/ratelimit"
)

// SessionView is one row of the chat list.
type SessionView struct {
	ID          string             `json:"id"`
	Type        models.SessionType `json:"type"`
	EventID     string             `json:"event_id,omitempty"`
	Title       string             `json:"title"`
	PhotoURL    string             `json:"photo_url,omitempty"`
	Unread      int                `json:"unread"`
	Online      bool               `json:"online"`
	LastMessage *models.Message    `json:"last_message,omitempty"`
}

type SessionList struct {
	NewMatches  []SessionView `json:"new_matches"`
	Direct      []SessionView `json:"direct"`
	Events      []SessionView `json:"events"`
	TotalUnread int           `json:"total_unread"`
	Active      string        `json:"active,omitempty"`
}

func (c *Coordinator) Sessions(ctx context.Context) (SessionList, error) {
	return exec(ctx, c, func() (SessionList, error) {
		g := chat.Group(c.chats.Sessions())
		return SessionList{
			NewMatches:  c.views(g.NewMatches),
			Direct:      c.views(g.Direct),
			Events:      c.views(g.Events),
			TotalUnread: c.chats.TotalUnread(),
			Active:      c.chats.Active(),
		}, nil
	})
}

func (c *Coordinator) views(sessions []models.ChatSession) []SessionView {
	out := make([]SessionView, 0, len(sessions))
	for _, cs := range sessions {
		v := SessionView{
			ID:          cs.ID,
			Type:        cs.Type,
			EventID:     cs.EventID,
			Unread:      cs.Unread,
			LastMessage: cs.LastMessage(),
		}
		if cs.Type == models.SessionEvent {
			if ev, ok := c.board.Get(cs.EventID); ok {
				v.Title = ev.Title
			}
		} else {
			if p, ok := c.profile(cs.ID); ok {
				v.Title, v.PhotoURL = p.Name, p.PhotoURL
			}
			v.Online = c.isOnline(cs.ID)
		}
		out = append(out, v)
	}
	return out
}

// OpenSession makes id the active session and returns it.
func (c *Coordinator) OpenSession(ctx context.Context, id string) (models.ChatSession, error) {
	return exec(ctx, c, func() (models.ChatSession, error) {
		if err := c.chats.SetActive(id); err != nil {
			return models.ChatSession{}, err
		}
		cs, _ := c.chats.Get(id)
		return cs, nil
	})
}

func (c *Coordinator) CloseSession(ctx context.Context) error {
	return c.do(ctx, func() error {
		c.chats.ClearActive()
		return nil
	})
}

// SendMessage appends text to the active session right away and persists it
// in the background. A failed write raises SignalSendFailed; the message
// stays in the session.
func (c *Coordinator) SendMessage(ctx context.Context, text string) (models.Message, error) {
	return exec(ctx, c, func() (models.Message, error) {
		msg, err := c.chats.AppendLocal(c.viewerID, text, c.deps.NewID(), c.deps.Now().UnixMilli())
		if err != nil {
			return models.Message{}, err
		}
		sessionID := c.chats.Active()
		cs, _ := c.chats.Get(sessionID)

		var stored models.Message
		c.remote("send message", func(ctx context.Context) error {
			var err error
			stored, err = c.deps.Messages.Append(ctx, msg)
			return err
		}, func(err error) {
			if err != nil {
				c.emit(SignalSendFailed, FailurePayload{SessionID: sessionID, MessageID: msg.ID, Error: "message could not be delivered"})
				return
			}
			c.chats.Confirm(sessionID, msg.ID, stored)
		})

		if cs.Type == models.SessionDirect {
			partner, known := c.profile(sessionID)
			c.notify(sessionID, c.viewer.Name, text, map[string]string{
				"type": string(SignalMessage), "session_id": c.viewerID,
			})
			if known && partner.IsCelebrity {
				c.celebrityReply(sessionID, partner)
			}
		}
		return msg, nil
	})
}

// celebrityReply asks the assistant for an in-character answer and delivers
// it as an AI-generated message from celeb.
func (c *Coordinator) celebrityReply(sessionID string, celeb models.User) {
	cs, ok := c.chats.Get(sessionID)
	if !ok {
		return
	}
	viewer := c.viewer
	history := cs.Messages
	var after int64
	if last := cs.LastMessage(); last != nil {
		after = last.Timestamp
	}

	c.emit(SignalTyping, TypingPayload{SessionID: sessionID, UserID: celeb.ID, Typing: true})

	var reply models.Message
	c.remote("celebrity reply", func(ctx context.Context) error {
		ts := c.deps.Now().UnixMilli()
		if ts <= after {
			ts = after + 1
		}
		reply = models.Message{
			ID:            c.deps.NewID(),
			SenderID:      celeb.ID,
			ReceiverID:    viewer.ID,
			Text:          c.deps.Assistant.CelebrityReply(ctx, viewer, celeb, history),
			Timestamp:     ts,
			IsAIGenerated: true,
		}
		stored, err := c.deps.Messages.Append(ctx, reply)
		if err == nil {
			reply = stored
		}
		return err
	}, func(error) {
		c.emit(SignalTyping, TypingPayload{SessionID: sessionID, UserID: celeb.ID, Typing: false})
		c.applyInbound(reply)
	})
}

// DirectMessage opens a direct session with targetID without a match. The
// target must share at least one interest with the viewer. Starting a new
// session is limited per calendar day; a denied attempt raises
// SignalRateLimited and returns the decision with no error. An existing
// session is opened without touching the limit.
func (c *Coordinator) DirectMessage(ctx context.Context, targetID string) (ratelimit.Decision, error) {
	if targetID == c.viewerID {
		return ratelimit.Decision{}, ErrProfileNotFound
	}
	existing, err := exec(ctx, c, func() (bool, error) {
		if c.chats.Exists(targetID) {
			return true, c.openDirect(targetID)
		}
		target, ok := c.profile(targetID)
		if !ok {
			return false, ErrProfileNotFound
		}
		if !c.viewer.Interests.Overlaps(target.Interests) {
			return false, ErrNoSharedInterest
		}
		return false, nil
	})
	if err != nil {
		return ratelimit.Decision{}, err
	}
	if existing {
		lctx, cancel := c.bounded(ctx)
		defer cancel()
		dec, err := c.deps.DMLimiter.Peek(lctx, c.viewerID)
		if err != nil {
			return ratelimit.Decision{}, err
		}
		dec.Allowed = true
		return dec, nil
	}

	lctx, cancel := c.bounded(ctx)
	dec, err := c.deps.DMLimiter.TryConsume(lctx, c.viewerID)
	cancel()
	if err != nil {
		return ratelimit.Decision{}, err
	}
	if !dec.Allowed {
		c.emit(SignalRateLimited, dec)
		return dec, nil
	}

	return dec, c.do(ctx, func() error {
		c.chats.Ensure(targetID, models.SessionDirect, "")
		return c.openDirect(targetID)
	})
}

func (c *Coordinator) openDirect(targetID string) error {
	if err := c.chats.SetActive(targetID); err != nil {
		return err
	}
	c.emit(SignalOpenSession, OpenSessionPayload{SessionID: targetID, Type: models.SessionDirect})
	return nil
}

// DirectMessageQuota reports today's direct-message allowance without using it.
func (c *Coordinator) DirectMessageQuota(ctx context.Context) (ratelimit.Decision, error) {
	lctx, cancel := c.bounded(ctx)
	defer cancel()
	return c.deps.DMLimiter.Peek(lctx, c.viewerID)
}

// IsChatError reports whether err is a chat state error a client can fix.
func IsChatError(err error) bool {
	return errors.Is(err, chat.ErrNoActiveSession) ||
		errors.Is(err, chat.ErrEmptyMessage) ||
		errors.Is(err, chat.ErrSessionNotFound)
}
