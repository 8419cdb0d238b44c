package handlers

import (
	"context"
	"errors"
	"net/http"

	"f2f-dating-app/internal/chat"
	"f2f-dating-app/internal/database"
	"f2f-dating-app/internal/events"
	"f2f-dating-app/internal/middleware"
	"f2f-dating-app/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Sessions hands out the caller's session coordinator.
type Sessions interface {
	Acquire(ctx context.Context, viewerID string) (*session.Coordinator, func(), error)
}

// withSession runs fn with the caller's coordinator and releases it after.
func withSession(c *gin.Context, sessions Sessions, fn func(coord *session.Coordinator)) {
	coord, release, err := sessions.Acquire(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	defer release()
	fn(coord)
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fieldErrors(verrs)})
	case errors.Is(err, database.ErrNotFound), errors.Is(err, session.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
	case errors.Is(err, events.ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	case errors.Is(err, chat.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
	case errors.Is(err, session.ErrNoCandidates):
		c.JSON(http.StatusNotFound, gin.H{"error": "No more profiles"})
	case errors.Is(err, session.ErrNoSharedInterest):
		c.JSON(http.StatusConflict, gin.H{"error": "No shared interest with this user"})
	case errors.Is(err, session.ErrNotIncoming):
		c.JSON(http.StatusConflict, gin.H{"error": "No pending like from this user"})
	case errors.Is(err, session.ErrUnsafeTag):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case session.IsChatError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Session closed"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Upstream timeout"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// bindJSON binds the request body and writes a 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fieldErrors(verrs)})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			out[fe.Field()] = fe.Tag() + "=" + fe.Param()
		} else {
			out[fe.Field()] = fe.Tag()
		}
	}
	return out
}
