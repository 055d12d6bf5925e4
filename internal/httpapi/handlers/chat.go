package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/rag-chat/internal/errs"
	"github.com/suPer8Hu/rag-chat/internal/httpapi/middleware"
)

// Chat endpoints answer with bare JSON (no code/message envelope); the mobile client reads the
// pair objects directly.

type sendMessageReq struct {
	Message string `json:"message"`
}

func chatError(c *gin.Context, status int, msg string, detail error) {
	body := gin.H{"error": msg}
	if detail != nil {
		body["detail"] = detail.Error()
	}
	c.JSON(status, body)
}

func (h *Handler) ChatHistory(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		chatError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	pairs, err := h.ChatSvc.History(c.Request.Context(), uid)
	if err != nil {
		h.Log.Error("load chat history failed", "owner", uid, "error", err)
		chatError(c, http.StatusInternalServerError, "failed to load chat history", err)
		return
	}
	c.JSON(http.StatusOK, pairs)
}

func (h *Handler) SendChatMessage(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		chatError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		chatError(c, http.StatusBadRequest, "invalid json", nil)
		return
	}

	pair, err := h.ChatSvc.SendMessage(c.Request.Context(), uid, req.Message)
	if err != nil {
		if errors.Is(err, errs.ErrValidation) {
			chatError(c, http.StatusBadRequest, "message is required", nil)
			return
		}
		h.Log.Error("send chat message failed", "owner", uid, "error", err)
		chatError(c, http.StatusInternalServerError, "failed to process message", err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Ask answers without touching the message log.
func (h *Handler) Ask(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		chatError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		chatError(c, http.StatusBadRequest, "invalid json", nil)
		return
	}

	reply, err := h.ChatSvc.Ask(c.Request.Context(), uid, req.Message)
	if err != nil {
		if errors.Is(err, errs.ErrValidation) {
			chatError(c, http.StatusBadRequest, "message is required", nil)
			return
		}
		chatError(c, http.StatusInternalServerError, "failed to process message", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": reply})
}
