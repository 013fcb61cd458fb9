package persona

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound reports an unknown persona id.
type ErrNotFound struct {
	ID string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("persona %q not found", e.ID)
}

// Registry holds the persona set for the lifetime of the process. It is
// read-only after construction and safe for concurrent use.
type Registry struct {
	byID  map[string]Persona
	order []string
}

// NewRegistry validates the persona list and builds the registry.
// knownProviders names the model providers registered with the AI registry;
// a persona referencing anything else is a configuration error.
func NewRegistry(personas []Persona, knownProviders []string) (*Registry, error) {
	if len(personas) == 0 {
		return nil, fmt.Errorf("persona: no personas configured")
	}

	providers := make(map[string]bool, len(knownProviders))
	for _, p := range knownProviders {
		providers[strings.ToLower(strings.TrimSpace(p))] = true
	}

	r := &Registry{byID: make(map[string]Persona, len(personas))}
	for i, p := range personas {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("persona: entry %d has no id", i)
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("persona: duplicate id %q", p.ID)
		}
		if strings.TrimSpace(p.SystemMessage) == "" {
			return nil, fmt.Errorf("persona %q: systemMessage is required", p.ID)
		}
		if strings.TrimSpace(p.Model) == "" {
			return nil, fmt.Errorf("persona %q: model is required", p.ID)
		}
		p.Provider = strings.ToLower(strings.TrimSpace(p.Provider))
		if p.Provider == "" {
			return nil, fmt.Errorf("persona %q: provider is required", p.ID)
		}
		if len(providers) > 0 && !providers[p.Provider] {
			return nil, fmt.Errorf("persona %q: unknown provider %q", p.ID, p.Provider)
		}
		if p.Limits.MaxMessages < 0 || p.Limits.MaxTokens < 0 || p.Limits.MaxChars < 0 || p.Limits.WindowHours < 0 {
			return nil, fmt.Errorf("persona %q: limits must be non-negative", p.ID)
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		r.byID[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return r, nil
}

// Get returns the persona for the given id.
func (r *Registry) Get(id string) (Persona, error) {
	p, ok := r.byID[id]
	if !ok {
		return Persona{}, &ErrNotFound{ID: id}
	}
	return p, nil
}

// List returns all personas in configuration declaration order, for stable
// menu display.
func (r *Registry) List() []Persona {
	out := make([]Persona, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

type fileSchema struct {
	Personas []Persona `yaml:"personas"`
}

// Parse decodes a personas YAML document.
func Parse(data []byte) ([]Persona, error) {
	var f fileSchema
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("persona: parse config: %w", err)
	}
	return f.Personas, nil
}

// LoadFile reads and decodes a personas YAML file.
func LoadFile(path string) ([]Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persona: read config: %w", err)
	}
	return Parse(data)
}
