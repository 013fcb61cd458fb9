package chat

import (
	"time"
	"unicode/utf8"

	"github.com/chatgram/chatgram/internal/persona"
)

// Dimension names a quota axis in denial notices.
type Dimension string

const (
	DimMessages Dimension = "messages"
	DimTokens   Dimension = "tokens"
	DimChars    Dimension = "chars"
)

// Decision is the outcome of a limit check.
type Decision int

const (
	Allow Decision = iota
	Deny
	ResetRequired
)

// Verdict is the result of checking one candidate message against a
// persona's quotas.
type Verdict struct {
	Decision  Decision
	Dimension Dimension // set when Decision == Deny
}

// TokenEstimator converts text to a deterministic token estimate.
type TokenEstimator func(text string) int

// EstimateTokens is the default estimator: the ~4 chars/token heuristic.
// Good enough for threshold comparison, not billing-accurate.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// Tracker evaluates usage quotas. It is a pure predicate: counters are
// updated by the orchestrator only after a successful model call.
type Tracker struct {
	Estimate TokenEstimator
	Now      func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{Estimate: EstimateTokens, Now: time.Now}
}

// Check decides whether the incoming message is permitted given the
// instance's accumulated usage. Dimensions are checked in a fixed order
// (messages, tokens, chars) so denial reporting is reproducible. A window
// rollover takes precedence: the caller clears the instance and proceeds
// as if it were new.
func (t *Tracker) Check(inst *ChatInstance, limits persona.Limits, incoming string) Verdict {
	if limits.WindowHours > 0 {
		window := time.Duration(limits.WindowHours) * time.Hour
		if t.Now().Sub(inst.WindowStartedAt) >= window {
			return Verdict{Decision: ResetRequired}
		}
	}

	if limits.Unbounded() {
		return Verdict{Decision: Allow}
	}

	if limits.MaxMessages > 0 && inst.MessageCount+1 > limits.MaxMessages {
		return Verdict{Decision: Deny, Dimension: DimMessages}
	}
	if limits.MaxTokens > 0 && inst.TokenCount+t.Estimate(incoming) > limits.MaxTokens {
		return Verdict{Decision: Deny, Dimension: DimTokens}
	}
	if limits.MaxChars > 0 && inst.CharCount+utf8.RuneCountInString(incoming) > limits.MaxChars {
		return Verdict{Decision: Deny, Dimension: DimChars}
	}
	return Verdict{Decision: Allow}
}
