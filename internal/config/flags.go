package config

import "github.com/spf13/pflag"

// AddFlags registers the command-line overrides shared by the binaries.
// Defaults come from NewDefaultConfig so help output matches the
// environment defaults.
func AddFlags(fs *pflag.FlagSet) {
	d := NewDefaultConfig()
	fs.String("data-dir", d.DataDir, "Directory holding the corpus and index artifacts")
	fs.Int("top-k", d.TopK, "Number of chunks retrieved per question")
	fs.String("vector-backend", d.VectorBackend, "Vector search backend (flat or qdrant)")
	fs.String("embedding-provider", d.EmbeddingProvider, "Embedding provider (openai or ollama)")
	fs.String("log-format", d.LogFormat, "Log format (text, json or pretty)")
	fs.Bool("debug", d.Debug, "Enable debug logging")
}
