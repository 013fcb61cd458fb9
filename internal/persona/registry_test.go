package persona

import (
	"errors"
	"strings"
	"testing"
)

func valid(id string) Persona {
	return Persona{
		ID:            id,
		SystemMessage: "You are " + id + ".",
		Provider:      "ollama",
		Model:         "llama3:latest",
	}
}

func TestNewRegistry_GetAndListOrder(t *testing.T) {
	reg, err := NewRegistry([]Persona{valid("b"), valid("a"), valid("c")}, []string{"ollama"})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	p, err := reg.Get("a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Name != "a" {
		t.Fatalf("expected name defaulted to id, got %q", p.Name)
	}

	// Declaration order, not sorted.
	list := reg.List()
	if len(list) != 3 || list[0].ID != "b" || list[1].ID != "a" || list[2].ID != "c" {
		t.Fatalf("unexpected list order: %+v", list)
	}
}

func TestNewRegistry_UnknownIDIsTypedError(t *testing.T) {
	reg, err := NewRegistry([]Persona{valid("a")}, []string{"ollama"})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	_, err = reg.Get("ghost")
	var nf *ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if nf.ID != "ghost" {
		t.Fatalf("expected id in error, got %q", nf.ID)
	}
}

func TestNewRegistry_Validation(t *testing.T) {
	cases := []struct {
		name     string
		personas []Persona
		wantSub  string
	}{
		{"empty set", nil, "no personas"},
		{"missing id", []Persona{{SystemMessage: "x", Provider: "ollama", Model: "m"}}, "no id"},
		{"duplicate id", []Persona{valid("a"), valid("a")}, "duplicate id"},
		{
			"missing system message",
			[]Persona{{ID: "a", Provider: "ollama", Model: "m"}},
			"systemMessage is required",
		},
		{
			"missing model",
			[]Persona{{ID: "a", SystemMessage: "x", Provider: "ollama"}},
			"model is required",
		},
		{
			"missing provider",
			[]Persona{{ID: "a", SystemMessage: "x", Model: "m"}},
			"provider is required",
		},
		{
			"unknown provider",
			[]Persona{{ID: "a", SystemMessage: "x", Provider: "anthropic", Model: "m"}},
			"unknown provider",
		},
		{
			"negative limit",
			[]Persona{{ID: "a", SystemMessage: "x", Provider: "ollama", Model: "m",
				Limits: Limits{MaxMessages: -1}}},
			"non-negative",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry(tc.personas, []string{"ollama"})
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("expected %q in error, got %v", tc.wantSub, err)
			}
		})
	}
}

func TestNewRegistry_ProviderCaseInsensitive(t *testing.T) {
	p := valid("a")
	p.Provider = " Ollama "
	reg, err := NewRegistry([]Persona{p}, []string{"ollama"})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	got, _ := reg.Get("a")
	if got.Provider != "ollama" {
		t.Fatalf("expected normalized provider, got %q", got.Provider)
	}
}

func TestParse_FullDocument(t *testing.T) {
	doc := `
personas:
  - id: tutor
    name: Math Tutor
    provider: openrouter
    model: openrouter/auto
    temperature: 0.2
    maxReplyTokens: 500
    retrievalEnabled: true
    systemMessage: You are a patient math tutor.
    limits:
      maxMessages: 10
      maxTokens: 5000
      maxChars: 20000
      windowHours: 12
  - id: poet
    provider: ollama
    model: llama3:latest
    systemMessage: You answer in rhyme.
`
	personas, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(personas) != 2 {
		t.Fatalf("expected 2 personas, got %d", len(personas))
	}

	tutor := personas[0]
	if tutor.ID != "tutor" || tutor.Name != "Math Tutor" {
		t.Fatalf("unexpected persona: %+v", tutor)
	}
	if tutor.Temperature == nil || *tutor.Temperature != 0.2 {
		t.Fatalf("expected temperature 0.2, got %v", tutor.Temperature)
	}
	if tutor.MaxReplyTokens != 500 || !tutor.RetrievalEnabled {
		t.Fatalf("unexpected persona: %+v", tutor)
	}
	if tutor.Limits.MaxMessages != 10 || tutor.Limits.WindowHours != 12 {
		t.Fatalf("unexpected limits: %+v", tutor.Limits)
	}

	poet := personas[1]
	if poet.Temperature != nil {
		t.Fatalf("expected nil temperature when omitted, got %v", *poet.Temperature)
	}
	if !poet.Limits.Unbounded() {
		t.Fatalf("expected unbounded limits when omitted, got %+v", poet.Limits)
	}
}

func TestParse_Malformed(t *testing.T) {
	if _, err := Parse([]byte("personas: {broken")); err == nil {
		t.Fatalf("expected parse error")
	}
}
