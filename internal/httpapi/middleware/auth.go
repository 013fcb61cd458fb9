package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chatgram/chatgram/internal/auth"
	"github.com/chatgram/chatgram/internal/common"
)

// ClientKey is the gin context key holding the authenticated adapter
// client name.
const ClientKey = "adapter_client"

// AuthRequired validates the Bearer JWT minted at /login.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
			c.Abort()
			return
		}
		client, err := auth.ParseJWT(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40102, "invalid token")
			c.Abort()
			return
		}
		c.Set(ClientKey, client)
		c.Next()
	}
}
