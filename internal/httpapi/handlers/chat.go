package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chatgram/chatgram/internal/chat"
	"github.com/chatgram/chatgram/internal/common"
)

type sendMessageReq struct {
	UserID    string `json:"user_id" binding:"required"`
	PersonaID string `json:"persona_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

// SendMessage runs one synchronous exchange. The adapter always gets a
// reply text it can forward verbatim: the generated answer on success, the
// limit notice on a denial. Transport and store failures map to error
// statuses so the adapter can retry or apologize.
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	res, err := h.ChatSvc.HandleMessage(c.Request.Context(), req.UserID, req.PersonaID, req.Message)
	if err != nil {
		switch chat.KindOf(err) {
		case chat.KindLimitExceeded:
			dim, _ := chat.DimensionOf(err)
			common.Ok(c, gin.H{
				"outcome":   "limit_exceeded",
				"dimension": string(dim),
				"reply":     chat.Notice(err),
			})
		case chat.KindNotFound:
			common.Fail(c, http.StatusNotFound, 40401, chat.Notice(err))
		case chat.KindTransport:
			common.Fail(c, http.StatusBadGateway, 50201, chat.Notice(err))
		default:
			h.Log.Error().Err(err).Str("persona", req.PersonaID).Msg("exchange failed")
			common.Fail(c, http.StatusInternalServerError, 50001, chat.Notice(err))
		}
		return
	}

	common.Ok(c, gin.H{
		"outcome":     "ok",
		"reply":       res.Reply,
		"message_id":  res.AssistantMessageID,
		"instance_id": res.InstanceID,
	})
}

// SendMessageAsync creates a job and enqueues it. An Idempotency-Key header
// makes retried requests return the existing job.
func (h *Handler) SendMessageAsync(c *gin.Context) {
	if h.Rabbit == nil {
		common.Fail(c, http.StatusServiceUnavailable, 50301, "async pipeline disabled")
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	idempoKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if len(idempoKey) > 128 {
		common.Fail(c, http.StatusBadRequest, 10003, "idempotency key too long")
		return
	}
	var idempoKeyPtr *string
	if idempoKey != "" {
		idempoKeyPtr = &idempoKey
	}

	jobID, err := common.NewULID()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	j := &chat.Job{
		ID:             jobID,
		UserExternalID: req.UserID,
		PersonaID:      req.PersonaID,
		Prompt:         req.Message,
		IdempotencyKey: idempoKeyPtr,
		Status:         chat.JobQueued,
	}

	j, created, err := h.ChatSvc.CreateJobOrGetExisting(c.Request.Context(), j)
	if err != nil {
		h.Log.Error().Err(err).Msg("create job failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	if created {
		if err := h.Rabbit.PublishJob(c.Request.Context(), j.ID); err != nil {
			h.Log.Error().Err(err).Str("job", j.ID).Msg("publish job failed")
			common.Fail(c, http.StatusInternalServerError, 50002, "enqueue failed")
			return
		}
	}

	common.Ok(c, gin.H{"job_id": j.ID})
}

func (h *Handler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if jobID == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "job_id required")
		return
	}

	j, err := h.ChatSvc.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if chat.IsKind(err, chat.KindNotFound) {
			common.Fail(c, http.StatusNotFound, 40402, "job not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.Ok(c, gin.H{
		"job": gin.H{
			"id":                j.ID,
			"persona_id":        j.PersonaID,
			"status":            j.Status,
			"result_message_id": j.ResultMessageID,
			"error":             j.Error,
			"created_at":        j.CreatedAt,
			"updated_at":        j.UpdatedAt,
		},
	})
}

type resetReq struct {
	UserID    string `json:"user_id" binding:"required"`
	PersonaID string `json:"persona_id" binding:"required"`
}

func (h *Handler) Reset(c *gin.Context) {
	var req resetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if err := h.ChatSvc.HandleReset(c.Request.Context(), req.UserID, req.PersonaID); err != nil {
		if chat.IsKind(err, chat.KindNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, chat.Notice(err))
			return
		}
		h.Log.Error().Err(err).Str("persona", req.PersonaID).Msg("reset failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.Ok(c, gin.H{"reset": true})
}

func (h *Handler) History(c *gin.Context) {
	personaID := c.Param("persona_id")
	userID := c.Query("user_id")
	if userID == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "user_id required")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	var beforeID uint64
	if v := c.Query("before_id"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			beforeID = n
		}
	}

	msgs, err := h.ChatSvc.History(c.Request.Context(), userID, personaID, limit, beforeID)
	if err != nil {
		if chat.IsKind(err, chat.KindNotFound) {
			common.Fail(c, http.StatusNotFound, 40403, "conversation not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list messages")
		return
	}

	var nextBeforeID uint64
	if len(msgs) > 0 {
		nextBeforeID = msgs[len(msgs)-1].ID
	}
	common.Ok(c, gin.H{
		"messages":       msgs,
		"next_before_id": nextBeforeID,
	})
}
