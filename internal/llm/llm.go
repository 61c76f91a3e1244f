// Package llm provides the language-model clients used by the LLM analyzers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
)

const (
	ProviderClaude = "anthropic"
	ProviderOpenAI = "openai"
)

// ErrNoAPIKey is returned when a client is built without credentials.
var ErrNoAPIKey = errors.New("llm: API key is required")

// Client sends a single prompt and returns the raw text of the answer.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Model() string
}

// Request is one completion call.
type Request struct {
	SystemPrompt string
	Prompt       string

	// Image is an optional PNG sent alongside the prompt.
	Image []byte

	// SchemaName and Schema request structured JSON output where the provider
	// supports it. Providers without schema support ignore them.
	SchemaName string
	Schema     any

	MaxTokens   int
	Temperature *float64
}

type Config struct {
	Provider   string        `yaml:"provider"`
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	MaxTokens  int           `yaml:"max_tokens"`
	Timeout    time.Duration `yaml:"timeout"`
	HTTPClient *http.Client  `yaml:"-"`
}

// New builds the client for cfg.Provider. An empty provider means Claude.
func New(cfg Config) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderClaude, "claude":
		return NewClaude(cfg)
	case ProviderOpenAI:
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// GenerateSchema reflects T into a closed JSON schema suitable for strict
// structured output.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// Temp returns a pointer to t for Request.Temperature.
func Temp(t float64) *float64 {
	return &t
}
