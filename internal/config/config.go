// Package config loads the assistant's settings from the environment.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrMissingOpenAIKey = errors.New("OPENAI_API_KEY is required")
)

const (
	BackendFlat   = "flat"
	BackendQdrant = "qdrant"
)

var (
	providers  = []string{"openai", "ollama"}
	backends   = []string{BackendFlat, BackendQdrant}
	logFormats = []string{"text", "json", "pretty"}
)

// Config is the resolved configuration.
type Config struct {
	GitHubToken  string
	OpenAIAPIKey string
	Port         int
	DataDir      string

	ChunkSize    int
	ChunkOverlap int
	TopK         int

	EmbeddingProvider string
	EmbeddingModel    string
	OllamaURL         string

	ChatModel       string
	ChatTemperature float64

	VectorBackend string
	QdrantHost    string
	QdrantPort    int

	Debug     bool
	LogFormat string
}

// NewDefaultConfig returns the configuration used when nothing is set.
// The two credentials have no default.
func NewDefaultConfig() *Config {
	return &Config{
		Port:              5000,
		DataDir:           "data",
		ChunkSize:         500,
		ChunkOverlap:      100,
		TopK:              5,
		EmbeddingProvider: "openai",
		EmbeddingModel:    "text-embedding-3-small",
		OllamaURL:         "http://localhost:11434",
		ChatModel:         "gpt-3.5-turbo",
		ChatTemperature:   0.2,
		VectorBackend:     BackendFlat,
		QdrantHost:        "localhost",
		QdrantPort:        6334,
		LogFormat:         "text",
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("%w: PORT %d out of range", ErrInvalidConfig, c.Port)
	case c.DataDir == "":
		return fmt.Errorf("%w: DATA_DIR is empty", ErrInvalidConfig)
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: CHUNK_SIZE must be positive", ErrInvalidConfig)
	case c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize:
		return fmt.Errorf("%w: CHUNK_OVERLAP must be in [0, CHUNK_SIZE)", ErrInvalidConfig)
	case c.TopK <= 0:
		return fmt.Errorf("%w: TOP_K must be positive", ErrInvalidConfig)
	case !slices.Contains(providers, strings.ToLower(c.EmbeddingProvider)):
		return fmt.Errorf("%w: unknown EMBEDDING_PROVIDER %q", ErrInvalidConfig, c.EmbeddingProvider)
	case !slices.Contains(backends, strings.ToLower(c.VectorBackend)):
		return fmt.Errorf("%w: unknown VECTOR_BACKEND %q", ErrInvalidConfig, c.VectorBackend)
	case !slices.Contains(logFormats, strings.ToLower(c.LogFormat)):
		return fmt.Errorf("%w: unknown LOG_FORMAT %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// RequireOpenAI returns ErrMissingOpenAIKey when no key is configured.
// Answer generation always uses OpenAI.
func (c *Config) RequireOpenAI() error {
	if c.OpenAIAPIKey == "" {
		return ErrMissingOpenAIKey
	}
	return nil
}

// UsesQdrant reports whether searches go to Qdrant.
func (c *Config) UsesQdrant() bool {
	return strings.EqualFold(c.VectorBackend, BackendQdrant)
}
