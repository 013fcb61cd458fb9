package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/chatgram/chatgram/internal/common"
)

// ListPersonas returns the persona menu in configuration order. Prompts
// stay server-side; the adapter only needs what it can show the user.
func (h *Handler) ListPersonas(c *gin.Context) {
	personas := h.ChatSvc.ListPersonas()

	out := make([]gin.H, 0, len(personas))
	for _, p := range personas {
		out = append(out, gin.H{
			"id":                p.ID,
			"name":              p.Name,
			"retrieval_enabled": p.RetrievalEnabled,
			"limits": gin.H{
				"max_messages": p.Limits.MaxMessages,
				"max_tokens":   p.Limits.MaxTokens,
				"max_chars":    p.Limits.MaxChars,
				"window_hours": p.Limits.WindowHours,
			},
		})
	}
	common.Ok(c, gin.H{"personas": out})
}
