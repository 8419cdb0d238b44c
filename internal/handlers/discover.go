package handlers

import (
	"net/http"

	"f2f-dating-app/internal/discovery"
	"f2f-dating-app/internal/models"
	"f2f-dating-app/internal/session"

	"github.com/gin-gonic/gin"
)

type DiscoverHandler struct {
	sessions Sessions
}

type SwipeRequest struct {
	Direction session.Direction `json:"direction" binding:"required,oneof=left right"`
}

func NewDiscoverHandler(sessions Sessions) *DiscoverHandler {
	return &DiscoverHandler{sessions: sessions}
}

// Discover lists visible profiles. ?context=browse keeps swiped profiles
// visible; ?refresh=true re-reads the profile list first.
func (h *DiscoverHandler) Discover(c *gin.Context) {
	dctx := discovery.ParseContext(c.Query("context"))
	withSession(c, h.sessions, func(coord *session.Coordinator) {
		ctx := c.Request.Context()
		if c.Query("refresh") == "true" {
			if err := coord.RefreshProfiles(ctx); err != nil {
				respondError(c, err)
				return
			}
		}
		candidates, err := coord.Candidates(ctx, dctx)
		if err != nil {
			respondError(c, err)
			return
		}
		filters, err := coord.Filters(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": candidates, "filters": filters, "context": dctx})
	})
}

func (h *DiscoverHandler) SetFilters(c *gin.Context) {
	var f models.FilterState
	if !bindJSON(c, &f) {
		return
	}
	h.filters(c, func(coord *session.Coordinator) (models.FilterState, error) {
		return coord.SetFilters(c.Request.Context(), f)
	})
}

func (h *DiscoverHandler) ResetFilters(c *gin.Context) {
	h.filters(c, func(coord *session.Coordinator) (models.FilterState, error) {
		return coord.ResetFilters(c.Request.Context())
	})
}

func (h *DiscoverHandler) ExpandRadius(c *gin.Context) {
	h.filters(c, func(coord *session.Coordinator) (models.FilterState, error) {
		return coord.ExpandRadius(c.Request.Context())
	})
}

func (h *DiscoverHandler) filters(c *gin.Context, fn func(*session.Coordinator) (models.FilterState, error)) {
	withSession(c, h.sessions, func(coord *session.Coordinator) {
		f, err := fn(coord)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"filters": f})
	})
}

func (h *DiscoverHandler) Swipe(c *gin.Context) {
	var req SwipeRequest
	if !bindJSON(c, &req) {
		return
	}
	withSession(c, h.sessions, func(coord *session.Coordinator) {
		res, err := coord.Swipe(c.Request.Context(), req.Direction)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	})
}

func (h *DiscoverHandler) ResetSwipes(c *gin.Context) {
	withSession(c, h.sessions, func(coord *session.Coordinator) {
		if err := coord.ResetSwipes(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Swipes reset"})
	})
}
