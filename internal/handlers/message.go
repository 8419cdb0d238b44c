package handlers

import (
	"net/http"

	"f2f-dating-app/internal/session"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	sessions Sessions
}

type SendMessageRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

func NewMessageHandler(sessions Sessions) *MessageHandler {
	return &MessageHandler{sessions: sessions}
}

// GetChats lists new matches, direct chats and event chats along with the
// remaining direct-message allowance.
func (h *MessageHandler) GetChats(c *gin.Context) {
	withSession(c, h.sessions, func(coord *session.Coordinator) {
		ctx := c.Request.Context()
		list, err := coord.Sessions(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		quota, err := coord.DirectMessageQuota(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"chats": list, "direct_quota": quota})
	})
}

func (h *MessageHandler) OpenChat(c *gin.Context) {
	withSession(c, h.sessions, func(coord *session.Coordinator) {
		cs, err := coord.OpenSession(c.Request.Context(), c.Param("session_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": cs})
	})
}

func (h *MessageHandler) CloseChat(c *gin.Context) {
	withSession(c, h.sessions, func(coord *session.Coordinator) {
		if err := coord.CloseSession(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

// SendMessage sends to the open chat. The message is accepted at once;
// a failed delivery arrives later as a send_failed signal.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	withSession(c, h.sessions, func(coord *session.Coordinator) {
		msg, err := coord.SendMessage(c.Request.Context(), req.Text)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"message": msg})
	})
}

// DirectMessage opens a chat without a match, within the daily limit.
func (h *MessageHandler) DirectMessage(c *gin.Context) {
	withSession(c, h.sessions, func(coord *session.Coordinator) {
		dec, err := coord.DirectMessage(c.Request.Context(), c.Param("user_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if !dec.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Daily direct message limit reached", "quota": dec})
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": c.Param("user_id"), "quota": dec})
	})
}
