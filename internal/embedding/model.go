package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyResponse   = errors.New("embedding response is empty")
	ErrCountMismatch   = errors.New("embedding count does not match input count")
	ErrUnknownProvider = errors.New("unknown embedding provider")
)

// Model turns texts into vectors. Implementations return exactly one vector
// per input text, in input order, all of the same dimension.
type Model interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// ModelID names the provider and model, e.g. "openai/text-embedding-3-small".
	// Vectors from different model ids must never be compared.
	ModelID() string
}

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Options selects and configures an embedding model.
type Options struct {
	Provider  string
	Model     string
	BatchSize int

	// OpenAI is required for the openai provider.
	OpenAI *Client

	// OllamaURL is the Ollama API base URL for the ollama provider.
	OllamaURL string
}

// NewModel builds the Model for opts.Provider.
func NewModel(opts Options) (Model, error) {
	switch strings.ToLower(opts.Provider) {
	case "", ProviderOpenAI:
		if opts.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder: %w", ErrMissingAPIKey)
		}
		e := NewEmbedder(opts.OpenAI, opts.BatchSize)
		if opts.Model != "" {
			e.model = opts.Model
		}
		return e, nil
	case ProviderOllama:
		return NewOllamaEmbedder(OllamaConfig{
			BaseURL:   opts.OllamaURL,
			Model:     opts.Model,
			BatchSize: opts.BatchSize,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
}

func checkCount(got, want int) error {
	if got == 0 && want > 0 {
		return ErrEmptyResponse
	}
	if got != want {
		return fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, got, want)
	}
	return nil
}
