package app

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"venuehq.io/banquet/internal/api/handlers"
	"venuehq.io/banquet/internal/api/middleware"
	"venuehq.io/banquet/internal/config"
	"venuehq.io/banquet/internal/pkg/logger"
)

func newRouter(cfg *config.Config, server *handlers.Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.ErrorHandler())

	if len(cfg.Server.AllowedOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = cfg.Server.AllowedOrigins
		corsCfg.AllowHeaders = append(corsCfg.AllowHeaders,
			"Authorization", "X-Api-Key", middleware.TeamIDHeader, middleware.ManagerIDHeader)
		router.Use(cors.New(corsCfg))
	}

	router.Use(middleware.Auth(cfg.Auth), middleware.Tenant(cfg.Tenant))

	router.GET("/", server.Root)
	router.GET("/health", server.Health)
	router.GET("/docs", server.Docs)

	// Runtime log level (zap atomic level): GET reads, PUT changes.
	router.Any("/log/level", gin.WrapH(logger.HTTPHandler()))

	api := router.Group("/api")
	{
		api.POST("/start-conversation", server.StartConversation)
		api.POST("/send-message", server.SendMessage)
		api.POST("/qna", server.QnA)

		api.GET("/tasks/pending", server.PendingTasks)
		api.POST("/tasks/:task_id/approve", server.ApproveTask)
		api.POST("/tasks/:task_id/reject", server.RejectTask)

		api.GET("/events", server.ListEvents)
		api.GET("/events/:event_id", server.GetEvent)
		api.POST("/events/:event_id/pay-deposit", server.PayDeposit)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": "no such route"})
	})
	return router
}
