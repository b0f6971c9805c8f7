package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health handles GET /health.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"env":    s.cfg.Env,
	})
}

// Root handles GET /: a minimal service banner.
func (s *Server) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "banquet",
		"docs":    "/docs",
	})
}

// Docs handles GET /docs: a plain-text route listing, enough for a
// manager poking at the API with curl.
func (s *Server) Docs(c *gin.Context) {
	c.String(http.StatusOK, `Banquet API

POST /api/start-conversation        {from_email, from_name?, email_body}
POST /api/send-message              {from_email, body, subject?, thread_id?, event_id?}
GET  /api/tasks/pending
POST /api/tasks/:task_id/approve    {manager_notes?, edited_message?}
POST /api/tasks/:task_id/reject     {manager_notes?}
GET  /api/events?status=...
GET  /api/events/:event_id
POST /api/events/:event_id/pay-deposit
POST /api/qna                       {question}
GET  /health
`)
}
