package ai

import (
	"context"
	"errors"
	"strings"
)

// Client provides both embedding and text-generation capabilities.
type Client interface {
	Embed(text string) ([]float32, error)
	Generate(ctx context.Context, prompt string) (string, error)
	Dim() int
}

// Provider is enumeration of supported AI providers
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderOpenAI Provider = "openai"
	ProviderStub   Provider = "stub"
)

// ClientConfig holds configuration for AI clients
type ClientConfig struct {
	APIKey      string
	EmbedModel  string
	ChatModel   string
	Dim         int
	Temperature float32
	Provider    Provider
}

// NewClient creates a new AI client based on configuration
func NewClient(config *ClientConfig) (Client, error) {
	if config == nil {
		return nil, errors.New("client config is required")
	}

	ctx := context.Background()
	switch config.Provider {
	case ProviderGoogle:
		return NewGoogleClient(ctx, config)
	case ProviderOpenAI:
		return NewOpenAIClient(config), nil
	case ProviderStub:
		return NewStubClient(config.Dim), nil
	default:
		return nil, errors.New("unsupported provider: " + string(config.Provider))
	}
}

// StubClient is a stub implementation of the Client interface for testing
type StubClient struct {
	dim int
}

// NewStubClient creates a new StubClient
func NewStubClient(dim int) *StubClient {
	if dim <= 0 {
		dim = 64
	}
	return &StubClient{dim: dim}
}

// Embed folds characters into a fixed number of buckets. Deterministic and
// cheap; similar texts land near each other, which is enough for local runs.
func (s *StubClient) Embed(text string) ([]float32, error) {
	vec := make([]float32, s.dim)
	for i, r := range text {
		vec[(int(r)+i)%s.dim]++
	}
	return vec, nil
}

// Generate returns a canned reply built from the prompt's last line.
func (s *StubClient) Generate(ctx context.Context, prompt string) (string, error) {
	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	return "stub response to: " + last, nil
}

// Dim returns the embedding dimension
func (s *StubClient) Dim() int {
	return s.dim
}
