package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/rag-chat/internal/common"
	"github.com/suPer8Hu/rag-chat/internal/config"
	"github.com/suPer8Hu/rag-chat/internal/httpapi/handlers"
	"github.com/suPer8Hu/rag-chat/internal/httpapi/middleware"
	"github.com/suPer8Hu/rag-chat/internal/logger"
)

func NewRouter(log *logger.Logger, cfg config.Config, h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestLogger(log.With("service", "HTTP")))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", h.Ping)

	// register
	r.POST("/users", h.CreateUser)

	// auth
	r.POST("/login", h.Login)
	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/me", h.Me)

	// Chat (JWT required)
	authGroup.GET("/api/chat/history/", h.ChatHistory)
	authGroup.POST("/api/chat/send/", h.SendChatMessage)
	authGroup.POST("/api/chat/ask/", h.Ask)

	// Knowledge ingestion (JWT required)
	authGroup.POST("/documents", h.IngestDocument)
	authGroup.GET("/documents/jobs/:job_id", h.GetIngestJob)
	return r
}
