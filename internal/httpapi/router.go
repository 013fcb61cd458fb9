package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/chatgram/chatgram/internal/common"
	"github.com/chatgram/chatgram/internal/config"
	"github.com/chatgram/chatgram/internal/httpapi/handlers"
	"github.com/chatgram/chatgram/internal/httpapi/middleware"
)

func NewRouter(cfg config.Config, h *handlers.Handler, promReg *prometheus.Registry, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", func(c *gin.Context) { common.Ok(c, gin.H{"pong": true}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))

	r.POST("/login", h.Login)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/personas", h.ListPersonas)
	authGroup.POST("/chat/messages", h.SendMessage)
	authGroup.POST("/chat/messages/async", h.SendMessageAsync)
	authGroup.GET("/chat/jobs/:job_id", h.GetJob)
	authGroup.POST("/chat/reset", h.Reset)
	authGroup.GET("/chat/instances/:persona_id/messages", h.History)

	return r
}
