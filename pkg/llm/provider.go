package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ProviderConfig selects a model served by Ollama or an OpenAI compatible
// API.
type ProviderConfig struct {
	Provider string // "ollama" or "openai"
	BaseURL  string
	Model    string
	APIKey   string
}

// NewEmbeddingClient returns a client for the embedding model.
func NewEmbeddingClient(config ProviderConfig) (embeddings.EmbedderClient, error) {
	switch config.Provider {
	case "", "ollama":
		client, err := newOllama(config)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "openai":
		opts := []openai.Option{openai.WithEmbeddingModel(config.Model)}
		opts = append(opts, openaiOptions(config)...)
		client, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", config.Provider)
	}
}

// NewModel returns the text generation model.
func NewModel(config ProviderConfig) (llms.Model, error) {
	switch config.Provider {
	case "", "ollama":
		model, err := newOllama(config)
		if err != nil {
			return nil, err
		}
		return model, nil
	case "openai":
		opts := []openai.Option{openai.WithModel(config.Model)}
		opts = append(opts, openaiOptions(config)...)
		model, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM: %w", err)
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", config.Provider)
	}
}

func newOllama(config ProviderConfig) (*ollama.LLM, error) {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	return llm, nil
}

func openaiOptions(config ProviderConfig) []openai.Option {
	var opts []openai.Option
	if config.APIKey != "" {
		opts = append(opts, openai.WithToken(config.APIKey))
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}
	return opts
}
