package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultOllamaModel is the default model used with Ollama.
	DefaultOllamaModel = "nomic-embed-text"

	// DefaultOllamaURL is the default Ollama API URL.
	DefaultOllamaURL = "http://localhost:11434"
)

// OllamaConfig holds configuration for the Ollama embedder.
type OllamaConfig struct {
	// BaseURL defaults to DefaultOllamaURL.
	BaseURL string
	// Model defaults to DefaultOllamaModel.
	Model string
	// BatchSize defaults to DefaultBatchSize.
	BatchSize int
	// HTTPClient defaults to a client with a two minute timeout.
	HTTPClient *http.Client
}

// OllamaEmbedder generates embeddings with Ollama's /api/embed endpoint.
type OllamaEmbedder struct {
	baseURL    string
	model      string
	batchSize  int
	httpClient *http.Client
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// ollamaStatusError is a non-200 response from Ollama.
type ollamaStatusError struct {
	StatusCode int
	Body       string
}

func (e *ollamaStatusError) Error() string {
	return fmt.Sprintf("ollama returned status %d: %s", e.StatusCode, e.Body)
}

// NewOllamaEmbedder creates an embedder backed by an Ollama server.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	e := &OllamaEmbedder{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		httpClient: cfg.HTTPClient,
	}
	if e.baseURL == "" {
		e.baseURL = DefaultOllamaURL
	}
	if e.model == "" || e.model == DefaultModel {
		e.model = DefaultOllamaModel
	}
	if e.batchSize <= 0 {
		e.batchSize = DefaultBatchSize
	}
	if e.httpClient == nil {
		e.httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return e
}

// ModelID implements Model.
func (e *OllamaEmbedder) ModelID() string {
	return ProviderOllama + "/" + e.model
}

// GenerateEmbeddings implements Model.
func (e *OllamaEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))

		var batch [][]float32
		err := backoff.Retry(func() error {
			var err error
			batch, err = e.embed(ctx, texts[i:end])
			return err
		}, backoff.WithContext(newBackOff(), ctx))
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		all = append(all, batch...)
	}
	return all, nil
}

// embed performs one request. Rate limiting and server errors are returned
// as retryable; everything else is permanent.
func (e *OllamaEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		statusErr := &ollamaStatusError{StatusCode: resp.StatusCode, Body: string(msg)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	if err := checkCount(len(out.Embeddings), len(texts)); err != nil {
		return nil, backoff.Permanent(err)
	}
	return out.Embeddings, nil
}
