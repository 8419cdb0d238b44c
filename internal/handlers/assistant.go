package handlers

import (
	"context"
	"net/http"

	"f2f-dating-app/internal/assistant"
	"f2f-dating-app/internal/session"

	"github.com/gin-gonic/gin"
)

type AssistantHandler struct {
	sessions  Sessions
	assistant *assistant.Assistant
}

type TagCheckRequest struct {
	Tag string `json:"tag" binding:"required,max=60"`
}

func NewAssistantHandler(sessions Sessions, a *assistant.Assistant) *AssistantHandler {
	return &AssistantHandler{sessions: sessions, assistant: a}
}

func (h *AssistantHandler) Icebreaker(c *gin.Context) {
	h.suggest(c, (*session.Coordinator).Icebreaker)
}

func (h *AssistantHandler) Compatibility(c *gin.Context) {
	h.suggest(c, (*session.Coordinator).Compatibility)
}

func (h *AssistantHandler) suggest(c *gin.Context, fn func(*session.Coordinator, context.Context, string) (string, error)) {
	withSession(c, h.sessions, func(coord *session.Coordinator) {
		text, err := fn(coord, c.Request.Context(), c.Param("user_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"text": text})
	})
}

// CheckTag reports whether a custom interest or event tag is acceptable.
func (h *AssistantHandler) CheckTag(c *gin.Context) {
	var req TagCheckRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"tag": req.Tag, "safe": h.assistant.IsTagSafe(c.Request.Context(), req.Tag)})
}
