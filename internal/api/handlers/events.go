package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListEvents handles GET /api/events?status=open|option|confirmed|cancelled.
func (s *Server) ListEvents(c *gin.Context) {
	events, err := s.engine.ListEvents(c.Request.Context(), c.Query("status"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// GetEvent handles GET /api/events/:event_id.
func (s *Server) GetEvent(c *gin.Context) {
	ev, err := s.engine.GetEvent(c.Request.Context(), c.Param("event_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// PayDeposit handles POST /api/events/:event_id/pay-deposit. It marks the
// deposit paid and injects a synthetic deposit message so the workflow
// advances exactly as it would on a real payment notification.
func (s *Server) PayDeposit(c *gin.Context) {
	res, err := s.engine.PayDeposit(c.Request.Context(), c.Param("event_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}
