// Package testutil holds deterministic stand-ins for the remote models.
package testutil

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// HashDim is the dimension of HashEmbedder vectors.
const HashDim = 256

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("injected failure")

// HashEmbedder is a bag-of-words embedder: every lower-cased word adds one
// to the bucket chosen by its FNV hash. Texts sharing vocabulary get
// similar vectors, identical texts get identical vectors.
type HashEmbedder struct {
	// Fail makes every call return ErrInjected.
	Fail bool
	// Model overrides the reported model id.
	Model string

	mu    sync.Mutex
	calls int
	texts int
}

func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{}
}

func (h *HashEmbedder) ModelID() string {
	if h.Model != "" {
		return h.Model
	}
	return "test/hash"
}

func (h *HashEmbedder) GenerateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	h.mu.Lock()
	h.calls++
	h.texts += len(texts)
	h.mu.Unlock()

	if h.Fail {
		return nil, ErrInjected
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = HashVector(text)
	}
	return out, nil
}

// Calls returns the number of GenerateEmbeddings calls so far.
func (h *HashEmbedder) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

// Texts returns the total number of texts embedded so far.
func (h *HashEmbedder) Texts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.texts
}

// HashVector returns the unnormalized bag-of-words vector of text.
func HashVector(text string) []float32 {
	v := make([]float32, HashDim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%HashDim]++
	}
	return v
}

// StubGenerator returns a fixed answer and records the prompts it received.
type StubGenerator struct {
	Answer string
	Err    error

	mu      sync.Mutex
	prompts []string
}

func (g *StubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.Err != nil {
		return "", g.Err
	}
	return g.Answer, nil
}

// Prompts returns the prompts received so far.
func (g *StubGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}
