// Package mcp exposes the documentation assistant as Model Context Protocol tools.
package mcp

// AskDocsInput defines the input parameters for the ask_docs tool.
type AskDocsInput struct {
	// Question is the user's question about the Model Context Protocol.
	Question string `json:"question" jsonschema:"The question to answer from the MCP documentation"`
}

// AskDocsOutput contains the generated answer.
type AskDocsOutput struct {
	// Answer is always set, even when the index is not ready.
	Answer string `json:"answer"`
	// Sources lists the chunks the answer was grounded on.
	Sources []Source `json:"sources"`
}

// Source identifies a chunk that grounded an answer.
type Source struct {
	Path       string  `json:"path"`
	File       string  `json:"file"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// SearchDocsInput defines the input parameters for the search_docs tool.
type SearchDocsInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"The semantic search query for finding relevant documentation"`
	// MaxResults is the maximum number of chunks to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"Maximum number of chunks to return (1-20, default 5)"`
}

// SearchDocsOutput contains the search results.
type SearchDocsOutput struct {
	// Results is the list of matching chunks, best first.
	Results []SearchResult `json:"results"`
	// Message provides informational context (e.g., "No matching documents found").
	Message string `json:"message,omitempty"`
}

// SearchResult represents a single chunk match from semantic search.
type SearchResult struct {
	Path       string  `json:"path"`
	File       string  `json:"file"`
	Title      string  `json:"title,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// StatusInput defines the input parameters for the get_index_status tool.
// This tool takes no parameters.
type StatusInput struct{}

// StatusOutput describes the loaded index.
type StatusOutput struct {
	// Ready is false when the index is missing or could not be loaded.
	Ready bool `json:"ready"`
	// Reason explains why the index is not ready.
	Reason string `json:"reason,omitempty"`
	// TotalChunks is the number of indexed chunks.
	TotalChunks int `json:"total_chunks"`
	// TotalDocs is the number of distinct source documents.
	TotalDocs int `json:"total_docs"`
	// BuildID identifies the indexing run.
	BuildID string `json:"build_id,omitempty"`
	// Model is the embedding model the index was built with.
	Model string `json:"model,omitempty"`
	// TopK is the number of chunks retrieved per question.
	TopK int `json:"top_k"`
}
