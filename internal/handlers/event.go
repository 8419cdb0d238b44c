package handlers

import (
	"net/http"

	"f2f-dating-app/internal/events"
	"f2f-dating-app/internal/session"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	sessions Sessions
}

func NewEventHandler(sessions Sessions) *EventHandler {
	return &EventHandler{sessions: sessions}
}

func (h *EventHandler) GetEvents(c *gin.Context) {
	withSession(c, h.sessions, func(coord *session.Coordinator) {
		list, err := coord.Events(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": list})
	})
}

func (h *EventHandler) CreateEvent(c *gin.Context) {
	var in events.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	withSession(c, h.sessions, func(coord *session.Coordinator) {
		ev, err := coord.CreateEvent(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"event": ev})
	})
}

// JoinEvent answers 202 while the join is written; the outcome arrives as
// an open_session or join_failed signal.
func (h *EventHandler) JoinEvent(c *gin.Context) {
	withSession(c, h.sessions, func(coord *session.Coordinator) {
		res, err := coord.JoinEvent(c.Request.Context(), c.Param("event_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		status := http.StatusOK
		if res.Pending {
			status = http.StatusAccepted
		}
		c.JSON(status, res)
	})
}
