package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/mcp-docs-assistant/internal/rag"
)

const (
	defaultMaxResults = 5
	maxMaxResults     = 20
)

// Engine is the query engine behind the tools.
type Engine interface {
	Ask(ctx context.Context, message string) rag.Answer
	Retrieve(ctx context.Context, question string, k int) ([]rag.Result, error)
	Status() rag.Status
}

// makeAskHandler creates the ask_docs tool handler. It never returns an
// error: the engine falls back to canned answers.
func makeAskHandler(engine Engine) func(
	context.Context, *mcp.CallToolRequest, AskDocsInput,
) (*mcp.CallToolResult, AskDocsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskDocsInput) (
		*mcp.CallToolResult, AskDocsOutput, error,
	) {
		answer := engine.Ask(ctx, input.Question)

		sources := make([]Source, len(answer.Sources))
		for i, s := range answer.Sources {
			sources[i] = Source{
				Path:       s.Path,
				File:       s.File,
				ChunkIndex: s.ChunkIndex,
				Score:      float64(s.Score),
			}
		}

		return nil, AskDocsOutput{Answer: answer.Text, Sources: sources}, nil
	}
}

// makeSearchHandler creates the search_docs tool handler.
// Returns the nearest chunks without calling the chat model.
func makeSearchHandler(engine Engine) func(
	context.Context, *mcp.CallToolRequest, SearchDocsInput,
) (*mcp.CallToolResult, SearchDocsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchDocsInput) (
		*mcp.CallToolResult, SearchDocsOutput, error,
	) {
		query := strings.TrimSpace(input.Query)
		if query == "" {
			return nil, SearchDocsOutput{}, errors.New("query must not be empty")
		}

		// Apply defaults
		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = defaultMaxResults
		}
		maxResults = min(maxResults, maxMaxResults)

		chunks, err := engine.Retrieve(ctx, query, maxResults)
		if errors.Is(err, rag.ErrNotReady) {
			return nil, SearchDocsOutput{
				Results: []SearchResult{},
				Message: rag.NotReadyResponse,
			}, nil
		}
		if err != nil {
			return nil, SearchDocsOutput{}, fmt.Errorf("search failed: %w", err)
		}

		results := make([]SearchResult, 0, len(chunks))
		for _, c := range chunks {
			results = append(results, SearchResult{
				Path:       c.Record.Path,
				File:       c.Record.File,
				Title:      c.Record.Title,
				ChunkIndex: c.Record.ChunkIndex,
				Score:      float64(c.Score),
				Text:       c.Record.Text,
			})
		}

		if len(results) == 0 {
			return nil, SearchDocsOutput{
				Results: []SearchResult{},
				Message: "No matching documents found. Try broader search terms.",
			}, nil
		}

		return nil, SearchDocsOutput{Results: results}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
func makeStatusHandler(engine Engine) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		st := engine.Status()
		return nil, StatusOutput{
			Ready:       st.Ready,
			Reason:      st.Reason,
			TotalChunks: st.Chunks,
			TotalDocs:   st.Documents,
			BuildID:     st.BuildID,
			Model:       st.Model,
			TopK:        st.TopK,
		}, nil
	}
}
