package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/rag-chat/internal/common"
	"github.com/suPer8Hu/rag-chat/internal/errs"
	"github.com/suPer8Hu/rag-chat/internal/httpapi/middleware"
	"github.com/suPer8Hu/rag-chat/internal/ingest"
)

type ingestReq struct {
	Text string `json:"text"`
}

func (h *Handler) IngestDocument(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req ingestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	j, err := h.IngestSvc.Submit(c.Request.Context(), uid, req.Text, strings.TrimSpace(c.GetHeader("Idempotency-Key")))
	if err != nil {
		if errors.Is(err, errs.ErrValidation) {
			common.Fail(c, http.StatusBadRequest, 10002, err.Error())
			return
		}
		h.Log.Error("submit document failed", "owner", uid, "error", err)
		common.Fail(c, http.StatusInternalServerError, 50002, "enqueue failed")
		return
	}

	common.OK(c, gin.H{"job_id": j.ID, "status": j.Status})
}

func (h *Handler) GetIngestJob(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	jobID := c.Param("job_id")
	if jobID == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "job_id required")
		return
	}

	j, err := h.IngestSvc.GetJob(c.Request.Context(), uid, jobID)
	if err != nil {
		if errors.Is(err, ingest.ErrJobNotFound) {
			common.Fail(c, http.StatusNotFound, 40402, "job not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{"job": j})
}
