package ai

import "context"

// Message is a single prompt entry in provider wire order.
type Message struct {
	Role    string
	Content string
}

// Result is a completed generation. TokensUsed is zero when the provider
// does not report usage; callers fall back to their own estimate.
type Result struct {
	Text       string
	TokensUsed int
}

// Params carries per-persona generation settings.
type Params struct {
	Temperature *float64
	MaxTokens   int
}

// Provider is the model-client capability. Implementations are created per
// persona by the registry with the persona's model baked in.
type Provider interface {
	Chat(ctx context.Context, messages []Message, params Params) (Result, error)
}
