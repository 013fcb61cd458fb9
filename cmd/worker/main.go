package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/chatgram/chatgram/internal/ai"
	"github.com/chatgram/chatgram/internal/chat"
	"github.com/chatgram/chatgram/internal/config"
	"github.com/chatgram/chatgram/internal/db"
	"github.com/chatgram/chatgram/internal/logger"
	"github.com/chatgram/chatgram/internal/metrics"
	"github.com/chatgram/chatgram/internal/persona"
	"github.com/chatgram/chatgram/internal/retrieval"
)

type jobMsg struct {
	JobID string `json:"job_id"`
}

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()
	log := logger.New("chatgram-worker", logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect failed")
	}

	providers := ai.NewRegistry()
	providers.Register("ollama", func(_ context.Context, model string) (ai.Provider, error) {
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, model), nil
	})
	providers.Register("openrouter", func(_ context.Context, model string) (ai.Provider, error) {
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, model,
			cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})

	defs, err := persona.LoadFile(cfg.PersonasFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.PersonasFile).Msg("persona config load failed")
	}
	registry, err := persona.NewRegistry(defs, providers.Names())
	if err != nil {
		log.Fatal().Err(err).Msg("persona config invalid")
	}

	var retriever retrieval.Retriever
	if cfg.DocsDir != "" {
		kw, err := retrieval.NewKeywordRetriever(cfg.DocsDir)
		if err != nil {
			log.Fatal().Err(err).Str("dir", cfg.DocsDir).Msg("document index failed")
		}
		retriever = kw
	}

	svc := chat.NewService(chat.NewRepo(gdb), registry, providers, retriever, chat.Options{
		GenerateTimeout:  cfg.GenerateTimeout,
		RetrievalTimeout: cfg.RetrievalTimeout,
		RetrievalTopK:    cfg.RetrievalTopK,
		ContextMaxChars:  cfg.ContextMaxChars,
		Metrics:          metrics.NewNop(),
		Logger:           log,
	})

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatal().Err(err).Msg("rabbit dial failed")
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("rabbit channel failed")
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue + ".dlq",
	}); err != nil {
		log.Fatal().Err(err).Msg("queue declare failed")
	}

	concurrency := workerConcurrency()
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatal().Err(err).Msg("qos failed")
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("consume failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("queue", cfg.RabbitQueue).Int("concurrency", concurrency).Msg("worker started")

	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m jobMsg
				if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
					log.Error().Int("worker", workerID).Err(err).Msg("bad job message")
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := svc.RunJob(ctx, m.JobID); err != nil {
					log.Error().
						Int("worker", workerID).
						Str("job", m.JobID).
						Dur("cost", time.Since(start)).
						Err(err).
						Msg("job failed")
					_ = d.Nack(false, false)
					continue
				}

				log.Debug().Int("worker", workerID).Str("job", m.JobID).Dur("cost", time.Since(start)).Msg("job done")
				if err := d.Ack(false); err != nil {
					log.Error().Int("worker", workerID).Str("job", m.JobID).Err(err).Msg("ack failed")
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Warn().Msg("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}
