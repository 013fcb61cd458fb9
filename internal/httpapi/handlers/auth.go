package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chatgram/chatgram/internal/auth"
	"github.com/chatgram/chatgram/internal/common"
)

type loginReq struct {
	Client string `json:"client" binding:"required"`
	Token  string `json:"token" binding:"required"`
}

// Login exchanges the adapter shared token for a JWT.
func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if err := auth.VerifyToken(h.AdapterTokenHash, req.Token); err != nil {
		common.Fail(c, http.StatusUnauthorized, 40103, "invalid adapter token")
		return
	}

	jwt, err := auth.SignJWT(h.Cfg.JWTSecret, req.Client, 24*time.Hour)
	if err != nil {
		h.Log.Error().Err(err).Msg("sign jwt failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.Ok(c, gin.H{"token": jwt})
}
