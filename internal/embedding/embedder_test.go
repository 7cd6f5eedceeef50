package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// fakeOpenAI serves /embeddings, answering each input i with the vector
// [len(input), i]. The first failFirst requests get a 429.
func fakeOpenAI(t *testing.T, failFirst int32, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if n <= failFirst {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"rate limited","type":"requests","code":"rate_limit_exceeded"}}`))
			return
		}

		var req embeddingsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Answer in reverse order to exercise index placement.
		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{float64(len(req.Input[i])), float64(i)},
			})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient("test-key", option.WithBaseURL(url), option.WithMaxRetries(0))
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient("")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestEmbedder_GenerateEmbeddings_BatchesInOrder(t *testing.T) {
	var calls atomic.Int32
	srv := fakeOpenAI(t, 0, &calls)
	defer srv.Close()

	e := NewEmbedder(newTestClient(t, srv.URL), 2)
	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}

	got, err := e.GenerateEmbeddings(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, got, len(texts))

	for i, text := range texts {
		assert.Equal(t, float32(len(text)), got[i][0], "vector %d out of order", i)
	}
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "openai/text-embedding-3-small", e.ModelID())
}

func TestEmbedder_RetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := fakeOpenAI(t, 1, &calls)
	defer srv.Close()

	e := NewEmbedder(newTestClient(t, srv.URL), 0)
	got, err := e.GenerateEmbeddings(context.Background(), []string{"retry me"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbedder_PermanentError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	e := NewEmbedder(newTestClient(t, srv.URL), 0)
	_, err := e.GenerateEmbeddings(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "non rate-limit errors must not be retried")
}

func TestNewModel(t *testing.T) {
	client, err := NewClient("k")
	require.NoError(t, err)

	m, err := NewModel(Options{Provider: "openai", Model: "text-embedding-3-large", OpenAI: client})
	require.NoError(t, err)
	assert.Equal(t, "openai/text-embedding-3-large", m.ModelID())

	m, err = NewModel(Options{Provider: "ollama", Model: "all-minilm"})
	require.NoError(t, err)
	assert.Equal(t, "ollama/all-minilm", m.ModelID())

	_, err = NewModel(Options{Provider: "openai"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewModel(Options{Provider: "cohere"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
