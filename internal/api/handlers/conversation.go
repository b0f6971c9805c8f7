package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"venuehq.io/banquet/internal/engine"
	apperrors "venuehq.io/banquet/internal/pkg/errors"
)

// StartConversationRequest is the minimal inbound shape: a first email.
type StartConversationRequest struct {
	FromEmail string `json:"from_email" binding:"required,email"`
	FromName  string `json:"from_name"`
	EmailBody string `json:"email_body" binding:"required"`
}

// StartConversation handles POST /api/start-conversation.
func (s *Server) StartConversation(c *gin.Context) {
	var req StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, err.Error()))
		return
	}

	res, err := s.engine.StartConversation(c.Request.Context(), req.FromEmail, req.FromName, req.EmailBody)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SendMessageRequest is a full turn: any follow-up message on a thread.
type SendMessageRequest struct {
	FromEmail string `json:"from_email" binding:"required,email"`
	FromName  string `json:"from_name"`
	Subject   string `json:"subject"`
	Body      string `json:"body" binding:"required"`
	ThreadID  string `json:"thread_id"`
	EventID   string `json:"event_id"`
}

// SendMessage handles POST /api/send-message.
func (s *Server) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, err.Error()))
		return
	}

	res, err := s.engine.RunTurn(c.Request.Context(), &engine.InboundMessage{
		FromEmail: req.FromEmail,
		FromName:  req.FromName,
		Subject:   req.Subject,
		Body:      req.Body,
		ThreadID:  req.ThreadID,
		Extras:    engine.MessageExtras{EventID: req.EventID},
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// QnARequest is a stateless catalog question; nothing is persisted.
type QnARequest struct {
	Question string `json:"question" binding:"required"`
}

// QnA handles POST /api/qna.
func (s *Server) QnA(c *gin.Context) {
	var req QnARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, err.Error()))
		return
	}

	topic, body := s.engine.AnswerStateless(req.Question)
	c.JSON(http.StatusOK, gin.H{"topic": topic, "answer": body})
}
