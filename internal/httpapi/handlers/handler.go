package handlers

import (
	"github.com/rs/zerolog"

	"github.com/chatgram/chatgram/internal/chat"
	"github.com/chatgram/chatgram/internal/config"
	"github.com/chatgram/chatgram/internal/store/rabbitmq"
)

type Handler struct {
	Cfg              config.Config
	ChatSvc          *chat.Service
	Rabbit           *rabbitmq.Publisher // nil when the async pipeline is disabled
	AdapterTokenHash string
	Log              zerolog.Logger
}

func NewHandler(cfg config.Config, svc *chat.Service, rabbit *rabbitmq.Publisher, adapterTokenHash string, log zerolog.Logger) *Handler {
	return &Handler{
		Cfg:              cfg,
		ChatSvc:          svc,
		Rabbit:           rabbit,
		AdapterTokenHash: adapterTokenHash,
		Log:              log,
	}
}
