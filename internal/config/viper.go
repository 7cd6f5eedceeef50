package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Viper keys. Each maps to the upper-cased environment variable.
const (
	KeyGitHubToken       = "github_token"
	KeyOpenAIAPIKey      = "openai_api_key"
	KeyPort              = "port"
	KeyDataDir           = "data_dir"
	KeyChunkSize         = "chunk_size"
	KeyChunkOverlap      = "chunk_overlap"
	KeyTopK              = "top_k"
	KeyEmbeddingProvider = "embedding_provider"
	KeyEmbeddingModel    = "embedding_model"
	KeyOllamaURL         = "ollama_url"
	KeyChatModel         = "chat_model"
	KeyChatTemperature   = "chat_temperature"
	KeyVectorBackend     = "vector_backend"
	KeyQdrantHost        = "qdrant_host"
	KeyQdrantPort        = "qdrant_port"
	KeyDebug             = "debug"
	KeyLogFormat         = "log_format"
)

var keys = []string{
	KeyGitHubToken, KeyOpenAIAPIKey, KeyPort, KeyDataDir, KeyChunkSize,
	KeyChunkOverlap, KeyTopK, KeyEmbeddingProvider, KeyEmbeddingModel,
	KeyOllamaURL, KeyChatModel, KeyChatTemperature, KeyVectorBackend,
	KeyQdrantHost, KeyQdrantPort, KeyDebug, KeyLogFormat,
}

// InitViper creates a *viper.Viper with the defaults registered and every
// key bound to its environment variable.
//
// Precedence (highest to lowest):
//  1. flags bound with BindFlags
//  2. environment variables (PORT, DATA_DIR, ...)
//  3. defaults from NewDefaultConfig()
func InitViper() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		// Keys without a default are only seen by AutomaticEnv through an
		// explicit binding.
		_ = v.BindEnv(key, strings.ToUpper(key))
	}
	return v
}

func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault(KeyPort, d.Port)
	v.SetDefault(KeyDataDir, d.DataDir)

	// Chunking and retrieval
	v.SetDefault(KeyChunkSize, d.ChunkSize)
	v.SetDefault(KeyChunkOverlap, d.ChunkOverlap)
	v.SetDefault(KeyTopK, d.TopK)

	// Models
	v.SetDefault(KeyEmbeddingProvider, d.EmbeddingProvider)
	v.SetDefault(KeyEmbeddingModel, d.EmbeddingModel)
	v.SetDefault(KeyOllamaURL, d.OllamaURL)
	v.SetDefault(KeyChatModel, d.ChatModel)
	v.SetDefault(KeyChatTemperature, d.ChatTemperature)

	// Vector store
	v.SetDefault(KeyVectorBackend, d.VectorBackend)
	v.SetDefault(KeyQdrantHost, d.QdrantHost)
	v.SetDefault(KeyQdrantPort, d.QdrantPort)

	v.SetDefault(KeyDebug, d.Debug)
	v.SetDefault(KeyLogFormat, d.LogFormat)
}

// BindFlags binds every flag in fs whose name matches a key, with dashes
// in place of underscores (--data-dir for data_dir).
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	if fs == nil {
		return
	}
	for _, key := range keys {
		if f := fs.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// FromViper reads a Config out of v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		GitHubToken:       v.GetString(KeyGitHubToken),
		OpenAIAPIKey:      v.GetString(KeyOpenAIAPIKey),
		Port:              v.GetInt(KeyPort),
		DataDir:           v.GetString(KeyDataDir),
		ChunkSize:         v.GetInt(KeyChunkSize),
		ChunkOverlap:      v.GetInt(KeyChunkOverlap),
		TopK:              v.GetInt(KeyTopK),
		EmbeddingProvider: v.GetString(KeyEmbeddingProvider),
		EmbeddingModel:    v.GetString(KeyEmbeddingModel),
		OllamaURL:         v.GetString(KeyOllamaURL),
		ChatModel:         v.GetString(KeyChatModel),
		ChatTemperature:   v.GetFloat64(KeyChatTemperature),
		VectorBackend:     v.GetString(KeyVectorBackend),
		QdrantHost:        v.GetString(KeyQdrantHost),
		QdrantPort:        v.GetInt(KeyQdrantPort),
		Debug:             v.GetBool(KeyDebug),
		LogFormat:         v.GetString(KeyLogFormat),
	}
}

// Load resolves the configuration from flags, environment and defaults,
// and validates it.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := InitViper()
	BindFlags(v, fs)

	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
