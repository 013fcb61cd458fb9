package persona

// Limits configures the usage quota of a persona. A zero value for any
// dimension means that dimension is unbounded.
type Limits struct {
	MaxMessages int `yaml:"maxMessages"`
	MaxTokens   int `yaml:"maxTokens"`
	MaxChars    int `yaml:"maxChars"`
	// WindowHours > 0 enables automatic rollover: once the window has
	// elapsed since the instance's window start, usage resets on the next
	// message. Zero means usage accumulates until an explicit reset.
	WindowHours int `yaml:"windowHours"`
}

// Unbounded reports whether no dimension is configured.
func (l Limits) Unbounded() bool {
	return l.MaxMessages == 0 && l.MaxTokens == 0 && l.MaxChars == 0
}

// Persona is an immutable chatbot definition loaded from configuration at
// startup. Edits require redeploying the configuration file.
type Persona struct {
	ID               string   `yaml:"id"`
	Name             string   `yaml:"name"`
	SystemMessage    string   `yaml:"systemMessage"`
	Provider         string   `yaml:"provider"`
	Model            string   `yaml:"model"`
	Temperature      *float64 `yaml:"temperature"`
	MaxReplyTokens   int      `yaml:"maxReplyTokens"`
	Limits           Limits   `yaml:"limits"`
	RetrievalEnabled bool     `yaml:"retrievalEnabled"`
}
