package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/chatgram/chatgram/internal/ai"
	"github.com/chatgram/chatgram/internal/metrics"
	"github.com/chatgram/chatgram/internal/persona"
	"github.com/chatgram/chatgram/internal/retrieval"
)

// Service orchestrates one exchange per inbound message: persona lookup,
// instance load, limit check, optional retrieval, prompt assembly, model
// call and the post-success append. All collaborators are injected.
type Service struct {
	repo      *Repo
	personas  *persona.Registry
	providers *ai.Registry
	retriever retrieval.Retriever // nil disables the retrieval gate
	tracker   *Tracker
	locks     *pairLocks
	metrics   *metrics.Metrics
	log       zerolog.Logger
	now       func() time.Time

	genTimeout      time.Duration
	retrTimeout     time.Duration
	topK            int
	contextMaxChars int
}

type Options struct {
	GenerateTimeout  time.Duration
	RetrievalTimeout time.Duration
	RetrievalTopK    int
	ContextMaxChars  int
	Metrics          *metrics.Metrics
	Logger           zerolog.Logger
}

func NewService(repo *Repo, personas *persona.Registry, providers *ai.Registry, retriever retrieval.Retriever, opts Options) *Service {
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = 90 * time.Second
	}
	if opts.RetrievalTimeout <= 0 {
		opts.RetrievalTimeout = 5 * time.Second
	}
	if opts.RetrievalTopK <= 0 {
		opts.RetrievalTopK = 3
	}
	if opts.ContextMaxChars <= 0 {
		opts.ContextMaxChars = 4000
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	return &Service{
		repo:            repo,
		personas:        personas,
		providers:       providers,
		retriever:       retriever,
		tracker:         NewTracker(),
		locks:           newPairLocks(),
		metrics:         opts.Metrics,
		log:             opts.Logger,
		now:             time.Now,
		genTimeout:      opts.GenerateTimeout,
		retrTimeout:     opts.RetrievalTimeout,
		topK:            opts.RetrievalTopK,
		contextMaxChars: opts.ContextMaxChars,
	}
}

// ExchangeResult is a completed exchange.
type ExchangeResult struct {
	Reply              string
	AssistantMessageID uint64
	InstanceID         string
}

// HandleMessage runs the full exchange pipeline for one inbound
// (user, persona, text) triple. Counters and history change only when the
// model call succeeds; a denial or failure leaves the store untouched.
func (s *Service) HandleMessage(ctx context.Context, externalUserID, personaID, text string) (*ExchangeResult, error) {
	p, err := s.personas.Get(personaID)
	if err != nil {
		s.metrics.ExchangesTotal.WithLabelValues(personaID, "not_found").Inc()
		return nil, newError(KindNotFound, "unknown persona", err)
	}

	unlock := s.locks.acquire(externalUserID + "/" + personaID)
	defer unlock()

	user, err := s.repo.GetOrCreateUser(ctx, externalUserID)
	if err != nil {
		return nil, newError(KindStore, "load user", err)
	}
	inst, _, err := s.repo.GetOrCreateInstance(ctx, user.ID, personaID, s.now())
	if err != nil {
		return nil, newError(KindStore, "load chat instance", err)
	}

	verdict := s.tracker.Check(inst, p.Limits, text)
	if verdict.Decision == ResetRequired {
		if err := s.repo.ResetInstance(ctx, inst, s.now()); err != nil {
			return nil, newError(KindStore, "window rollover reset", err)
		}
		s.log.Info().Str("persona", personaID).Str("user", externalUserID).Msg("usage window rolled over")
		inst.MessageCount, inst.TokenCount, inst.CharCount = 0, 0, 0
		inst.WindowStartedAt = s.now()
		verdict = s.tracker.Check(inst, p.Limits, text)
	}
	if verdict.Decision == Deny {
		s.metrics.ExchangesTotal.WithLabelValues(personaID, "limit_denied").Inc()
		s.metrics.LimitDenialsTotal.WithLabelValues(string(verdict.Dimension)).Inc()
		return nil, limitError(verdict.Dimension)
	}

	history, err := s.repo.ListMessagesAsc(ctx, inst.InstanceID)
	if err != nil {
		return nil, newError(KindStore, "load history", err)
	}

	prompt := make([]ai.Message, 0, len(history)+3)
	prompt = append(prompt, ai.Message{Role: RoleSystem, Content: p.SystemMessage})
	if p.RetrievalEnabled && s.retriever != nil {
		if block := s.contextBlock(ctx, text); block != "" {
			prompt = append(prompt, ai.Message{Role: RoleSystem, Content: block})
		}
	}
	for _, m := range history {
		prompt = append(prompt, ai.Message{Role: m.Role, Content: m.Content})
	}
	prompt = append(prompt, ai.Message{Role: RoleUser, Content: text})

	provider, err := s.providers.Get(ctx, p.Provider, p.Model)
	if err != nil {
		return nil, newError(KindConfig, "resolve provider", err)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.genTimeout)
	defer cancel()

	start := s.now()
	result, err := provider.Chat(genCtx, prompt, ai.Params{
		Temperature: p.Temperature,
		MaxTokens:   p.MaxReplyTokens,
	})
	s.metrics.ModelLatency.WithLabelValues(personaID).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.ExchangesTotal.WithLabelValues(personaID, "model_error").Inc()
		s.log.Error().Err(err).Str("persona", personaID).Msg("model call failed")
		return nil, newError(KindTransport, "model call failed", err)
	}

	userTokens := s.tracker.Estimate(text)
	assistantTokens := s.tracker.Estimate(result.Text)
	tokensUsed := userTokens + assistantTokens
	if result.TokensUsed > 0 {
		// Prefer the provider's reported usage over the estimate.
		tokensUsed = result.TokensUsed
	}

	userMsg := &Message{
		InstanceID: inst.InstanceID,
		Role:       RoleUser,
		Content:    text,
		TokenCount: userTokens,
	}
	assistantMsg := &Message{
		InstanceID: inst.InstanceID,
		Role:       RoleAssistant,
		Content:    result.Text,
		TokenCount: assistantTokens,
	}
	cost := ExchangeCost{
		Tokens: tokensUsed,
		Chars:  utf8.RuneCountInString(text) + utf8.RuneCountInString(result.Text),
	}
	if err := s.repo.AppendExchange(ctx, inst, userMsg, assistantMsg, cost, s.now()); err != nil {
		s.metrics.ExchangesTotal.WithLabelValues(personaID, "store_error").Inc()
		return nil, newError(KindStore, "append exchange", err)
	}

	s.metrics.ExchangesTotal.WithLabelValues(personaID, "ok").Inc()
	s.log.Debug().
		Str("persona", personaID).
		Str("user", externalUserID).
		Int("tokens", tokensUsed).
		Msg("exchange completed")

	return &ExchangeResult{
		Reply:              result.Text,
		AssistantMessageID: assistantMsg.ID,
		InstanceID:         inst.InstanceID,
	}, nil
}

// contextBlock queries the retrieval gate and assembles the injected
// context, bounded by the configured budget independent of persona limits.
// Gate failure degrades to no context, never a failed exchange.
func (s *Service) contextBlock(ctx context.Context, query string) string {
	retrCtx, cancel := context.WithTimeout(ctx, s.retrTimeout)
	defer cancel()

	snippets, err := s.retriever.Retrieve(retrCtx, query, s.topK)
	if err != nil {
		s.metrics.RetrievalFailures.Inc()
		s.log.Warn().Err(err).Msg("retrieval failed, proceeding without context")
		return ""
	}
	if len(snippets) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Relevant context:\n")
	budget := s.contextMaxChars
	for _, sn := range snippets {
		entry := fmt.Sprintf("\n[%s]\n%s\n", sn.Source, sn.Text)
		if utf8.RuneCountInString(entry) > budget {
			continue
		}
		b.WriteString(entry)
		budget -= utf8.RuneCountInString(entry)
	}
	if budget == s.contextMaxChars {
		// nothing fit
		return ""
	}
	return b.String()
}

// HandleReset clears the conversation for the (user, persona) pair:
// history and counters go together, atomically.
func (s *Service) HandleReset(ctx context.Context, externalUserID, personaID string) error {
	if _, err := s.personas.Get(personaID); err != nil {
		return newError(KindNotFound, "unknown persona", err)
	}

	unlock := s.locks.acquire(externalUserID + "/" + personaID)
	defer unlock()

	user, err := s.repo.GetOrCreateUser(ctx, externalUserID)
	if err != nil {
		return newError(KindStore, "load user", err)
	}
	inst, created, err := s.repo.GetOrCreateInstance(ctx, user.ID, personaID, s.now())
	if err != nil {
		return newError(KindStore, "load chat instance", err)
	}
	if created {
		// Fresh instance is already empty.
		return nil
	}
	if err := s.repo.ResetInstance(ctx, inst, s.now()); err != nil {
		return newError(KindStore, "reset chat instance", err)
	}
	return nil
}

// ListPersonas returns the persona menu in configuration order.
func (s *Service) ListPersonas() []persona.Persona {
	return s.personas.List()
}

// History pages stored messages newest to oldest for an existing pair.
func (s *Service) History(ctx context.Context, externalUserID, personaID string, limit int, beforeID uint64) ([]Message, error) {
	if _, err := s.personas.Get(personaID); err != nil {
		return nil, newError(KindNotFound, "unknown persona", err)
	}
	user, err := s.repo.GetUserByExternalID(ctx, externalUserID)
	if err != nil {
		return nil, newError(KindNotFound, "unknown user", err)
	}
	inst, err := s.repo.GetInstanceByPair(ctx, user.ID, personaID)
	if err != nil {
		return nil, newError(KindNotFound, "no conversation", err)
	}
	msgs, err := s.repo.ListMessagesDesc(ctx, inst.InstanceID, limit, beforeID)
	if err != nil {
		return nil, newError(KindStore, "list messages", err)
	}
	return msgs, nil
}

// Job operations used by the async pipeline.

func (s *Service) CreateJobOrGetExisting(ctx context.Context, job *Job) (*Job, bool, error) {
	j, created, err := s.repo.CreateJobOrGetExisting(ctx, job)
	if err != nil {
		return nil, false, newError(KindStore, "create job", err)
	}
	return j, created, nil
}

func (s *Service) GetJob(ctx context.Context, jobID string) (*Job, error) {
	j, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, newError(KindNotFound, "unknown job", err)
	}
	return j, nil
}

// RunJob executes a queued job through the same pipeline as HandleMessage
// and records the outcome on the job row. Limit denials and not-found
// personas are terminal failures; transport errors are returned so the
// caller can retry the delivery.
func (s *Service) RunJob(ctx context.Context, jobID string) error {
	_ = s.repo.UpdateJobStatusRunning(ctx, jobID)

	j, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return newError(KindStore, "load job", err)
	}

	res, err := s.HandleMessage(ctx, j.UserExternalID, j.PersonaID, j.Prompt)
	if err != nil {
		switch KindOf(err) {
		case KindLimitExceeded, KindNotFound:
			_ = s.repo.MarkJobFailed(ctx, jobID, Notice(err))
			return nil
		default:
			_ = s.repo.MarkJobFailed(ctx, jobID, err.Error())
			return err
		}
	}
	return s.repo.MarkJobSucceeded(ctx, jobID, res.AssistantMessageID)
}

// Notice renders the single user-visible reply for a failed exchange. The
// transport always answers with exactly one message, never silence.
func Notice(err error) string {
	switch KindOf(err) {
	case KindLimitExceeded:
		dim, _ := DimensionOf(err)
		return fmt.Sprintf("Sorry, I can't answer that: the %s limit for this persona has been reached. Use /reset to start over.", dim)
	case KindNotFound:
		return "I don't know that persona. Use /personas to see what's available."
	case KindTransport:
		return "Sorry, I couldn't reach the model just now. Please try again."
	default:
		return "Sorry, something went wrong while processing your message."
	}
}
