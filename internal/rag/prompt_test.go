package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bull/mcp-docs-assistant/internal/index"
)

func TestBuildContext(t *testing.T) {
	results := []Result{
		{Record: index.Record{File: "a.md", Text: "first"}},
		{Record: index.Record{File: "b.md", Text: "second\nline"}},
	}
	assert.Equal(t, "From a.md:\nfirst\n\nFrom b.md:\nsecond\nline", BuildContext(results))
	assert.Equal(t, "", BuildContext(nil))
}

func TestPrompt(t *testing.T) {
	want := "You are an AI assistant specialized in the Model Context Protocol (MCP).\n" +
		"Use the following context from the MCP documentation to answer the user's question.\n" +
		"If you don't know the answer based on the context, say so honestly.\n" +
		"\n" +
		"### Context:\n" +
		"From a.md:\nfirst\n" +
		"\n" +
		"### User Question:\n" +
		"What is {{.Context}} <b>?\n" +
		"\n" +
		"### Response:\n"

	got := Prompt("From a.md:\nfirst", "What is {{.Context}} <b>?")
	assert.Equal(t, want, got)
}
