package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/rag-chat/internal/account"
	"github.com/suPer8Hu/rag-chat/internal/chat"
	"github.com/suPer8Hu/rag-chat/internal/common"
	"github.com/suPer8Hu/rag-chat/internal/ingest"
	"github.com/suPer8Hu/rag-chat/internal/logger"
)

type Handler struct {
	Log       *logger.Logger
	Accounts  *account.Service
	ChatSvc   *chat.Service
	IngestSvc *ingest.Service
}

func NewHandler(log *logger.Logger, accounts *account.Service, chatSvc *chat.Service, ingestSvc *ingest.Service) *Handler {
	return &Handler{
		Log:       log.With("service", "HTTPHandler"),
		Accounts:  accounts,
		ChatSvc:   chatSvc,
		IngestSvc: ingestSvc,
	}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}
