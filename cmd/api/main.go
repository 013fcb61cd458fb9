package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/chatgram/chatgram/internal/ai"
	"github.com/chatgram/chatgram/internal/auth"
	"github.com/chatgram/chatgram/internal/chat"
	"github.com/chatgram/chatgram/internal/config"
	"github.com/chatgram/chatgram/internal/db"
	"github.com/chatgram/chatgram/internal/httpapi"
	"github.com/chatgram/chatgram/internal/httpapi/handlers"
	"github.com/chatgram/chatgram/internal/logger"
	"github.com/chatgram/chatgram/internal/metrics"
	"github.com/chatgram/chatgram/internal/persona"
	"github.com/chatgram/chatgram/internal/retrieval"
	"github.com/chatgram/chatgram/internal/store/rabbitmq"
)

func main() {
	cfg := config.Load()
	log := logger.New("chatgram-api", logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect failed")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("database migrate failed")
	}

	// Provider registry: personas route to a provider by name and carry
	// their own model identifier.
	providers := ai.NewRegistry()
	providers.Register("ollama", func(_ context.Context, model string) (ai.Provider, error) {
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, model), nil
	})
	providers.Register("openrouter", func(_ context.Context, model string) (ai.Provider, error) {
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, model,
			cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})

	// Persona configuration is validated once here; any problem is fatal.
	defs, err := persona.LoadFile(cfg.PersonasFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.PersonasFile).Msg("persona config load failed")
	}
	registry, err := persona.NewRegistry(defs, providers.Names())
	if err != nil {
		log.Fatal().Err(err).Msg("persona config invalid")
	}
	log.Info().Int("personas", len(registry.List())).Msg("personas loaded")

	var retriever retrieval.Retriever
	if cfg.DocsDir != "" {
		kw, err := retrieval.NewKeywordRetriever(cfg.DocsDir)
		if err != nil {
			log.Fatal().Err(err).Str("dir", cfg.DocsDir).Msg("document index failed")
		}
		retriever = kw
		if cfg.RedisAddr != "" {
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			retriever = retrieval.NewCachedRetriever(kw, rdb, cfg.RetrievalTTL, log)
		}
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(promReg)

	svc := chat.NewService(chat.NewRepo(gdb), registry, providers, retriever, chat.Options{
		GenerateTimeout:  cfg.GenerateTimeout,
		RetrievalTimeout: cfg.RetrievalTimeout,
		RetrievalTopK:    cfg.RetrievalTopK,
		ContextMaxChars:  cfg.ContextMaxChars,
		Metrics:          m,
		Logger:           log,
	})

	tokenHash := cfg.AdapterTokenHash
	if tokenHash == "" {
		if cfg.AdapterToken == "" {
			log.Fatal().Msg("ADAPTER_TOKEN_HASH or ADAPTER_TOKEN is required")
		}
		tokenHash, err = auth.HashToken(cfg.AdapterToken)
		if err != nil {
			log.Fatal().Err(err).Msg("hash adapter token failed")
		}
	}

	var publisher *rabbitmq.Publisher
	if cfg.RabbitURL != "" {
		publisher, err = rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, async pipeline disabled")
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	h := handlers.NewHandler(cfg, svc, publisher, tokenHash, log)
	router := httpapi.NewRouter(cfg, h, promReg, log)

	log.Info().Str("addr", cfg.Addr).Msg("api listening")
	if err := router.Run(cfg.Addr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
