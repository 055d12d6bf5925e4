package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/rag-chat/internal/account"
	"github.com/suPer8Hu/rag-chat/internal/common"
	"github.com/suPer8Hu/rag-chat/internal/errs"
	"github.com/suPer8Hu/rag-chat/internal/httpapi/middleware"
	"gorm.io/gorm"
)

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	user, token, err := h.Accounts.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrValidation):
			common.Fail(c, http.StatusBadRequest, 10002, "valid email and password (6+ chars) required")
		case errors.Is(err, account.ErrEmailTaken):
			common.Fail(c, http.StatusConflict, 10003, "email already registered")
		default:
			h.Log.Error("register failed", "error", err)
			common.Fail(c, http.StatusInternalServerError, 20001, "failed to create user")
		}
		return
	}

	common.OK(c, gin.H{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Username,
		"token":    token,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	user, token, err := h.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrValidation):
			common.Fail(c, http.StatusBadRequest, 10002, "email and password required")
		case errors.Is(err, account.ErrInvalidCredentials):
			common.Fail(c, http.StatusUnauthorized, 40102, "invalid email or password")
		default:
			h.Log.Error("login failed", "error", err)
			common.Fail(c, http.StatusInternalServerError, 20001, "login failed")
		}
		return
	}

	common.OK(c, gin.H{"id": user.ID, "token": token})
}

func (h *Handler) Me(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	user, profile, err := h.Accounts.Profile(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "user not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	common.OK(c, gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"username":   user.Username,
		"created_at": user.CreatedAt,
		"profile":    profile,
	})
}
