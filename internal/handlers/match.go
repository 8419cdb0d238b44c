package handlers

import (
	"context"
	"net/http"

	"f2f-dating-app/internal/session"

	"github.com/gin-gonic/gin"
)

type MatchHandler struct {
	sessions Sessions
}

func NewMatchHandler(sessions Sessions) *MatchHandler {
	return &MatchHandler{sessions: sessions}
}

// LikeUser likes a profile picked from the deck or the map.
func (h *MatchHandler) LikeUser(c *gin.Context) {
	h.like(c, (*session.Coordinator).Like)
}

// GetIncomingLikes lists profiles waiting for the caller's answer.
func (h *MatchHandler) GetIncomingLikes(c *gin.Context) {
	withSession(c, h.sessions, func(coord *session.Coordinator) {
		likes, err := coord.IncomingLikes(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"likes": likes})
	})
}

func (h *MatchHandler) AcceptLike(c *gin.Context) {
	h.like(c, (*session.Coordinator).AcceptIncoming)
}

func (h *MatchHandler) RejectLike(c *gin.Context) {
	withSession(c, h.sessions, func(coord *session.Coordinator) {
		if err := coord.RejectIncoming(c.Request.Context(), c.Param("user_id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Like rejected"})
	})
}

func (h *MatchHandler) like(c *gin.Context, fn func(*session.Coordinator, context.Context, string) (session.LikeResult, error)) {
	targetID := c.Param("user_id")
	withSession(c, h.sessions, func(coord *session.Coordinator) {
		res, err := fn(coord, c.Request.Context(), targetID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	})
}
