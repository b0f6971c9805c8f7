package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"venuehq.io/banquet/internal/engine"
)

// PendingTasks handles GET /api/tasks/pending: the manager work queue.
func (s *Server) PendingTasks(c *gin.Context) {
	tasks, err := s.engine.PendingHILTasks(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

// DecideTaskRequest carries the manager's notes and optional edited
// client message for an approval.
type DecideTaskRequest struct {
	ManagerNotes  string `json:"manager_notes"`
	EditedMessage string `json:"edited_message"`
}

// ApproveTask handles POST /api/tasks/:task_id/approve. Idempotent: a
// replay on a decided task reports skipped instead of failing.
func (s *Server) ApproveTask(c *gin.Context) {
	var req DecideTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		_ = c.Error(err)
		return
	}

	dec, err := s.engine.ApproveTask(c.Request.Context(), c.Param("task_id"), engine.ApproveInput{
		ManagerNotes:  req.ManagerNotes,
		EditedMessage: req.EditedMessage,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dec)
}

// RejectTask handles POST /api/tasks/:task_id/reject.
func (s *Server) RejectTask(c *gin.Context) {
	var req DecideTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		_ = c.Error(err)
		return
	}

	dec, err := s.engine.RejectTask(c.Request.Context(), c.Param("task_id"), req.ManagerNotes)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dec)
}
